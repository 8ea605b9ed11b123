/*
Copyright © 2024 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package regrid

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"math"
	"runtime"

	"github.com/ctessum/requestcache"

	"github.com/spatialmodel/regrid/engine"
	"github.com/spatialmodel/regrid/weights"
)

// WeightCache remembers computed weight matrices so that builds of the
// same grid pair, method and engine configuration share one computation.
// Engines that do not implement engine.Keyer are not cached. Concurrent requests
// for the same weights wait for a single computation. It is safe for
// concurrent use.
type WeightCache struct {
	c *requestcache.Cache
}

// NewWeightCache returns a cache holding up to maxEntries matrices in
// memory.
func NewWeightCache(maxEntries int) *WeightCache {
	return &WeightCache{
		c: requestcache.NewCache(weightWorker, runtime.GOMAXPROCS(0),
			requestcache.Deduplicate(), requestcache.Memory(maxEntries)),
	}
}

type weightRequest struct {
	eng      engine.Engine
	src, dst *Grid
	method   Method
}

func weightWorker(_ context.Context, requestI interface{}) (interface{}, error) {
	r := requestI.(*weightRequest)
	return r.eng.Weights(r.src.mesh, r.dst.mesh, r.method)
}

func (wc *WeightCache) weights(ctx context.Context, eng engine.Engine, src, dst *Grid, method Method) (*weights.Matrix, error) {
	k, ok := eng.(engine.Keyer)
	if !ok {
		return eng.Weights(src.mesh, dst.mesh, method)
	}
	key := fmt.Sprintf("%s_%T_%s_%s_%s", method, eng, k.Key(), gridKey(src), gridKey(dst))
	r := wc.c.NewRequest(ctx, &weightRequest{eng: eng, src: src, dst: dst, method: method}, key)
	resultI, err := r.Result()
	if err != nil {
		return nil, err
	}
	return resultI.(*weights.Matrix), nil
}

// gridKey returns a digest of the shape and coordinates of g.
func gridKey(g *Grid) string {
	h := sha256.New()
	binary.Write(h, binary.LittleEndian, [2]int64{int64(g.nx), int64(g.ny)})
	for _, s := range [][]float64{g.lon, g.lat, g.lonB, g.latB} {
		writeFloats(h, s)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeFloats(h hash.Hash, s []float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(len(s)))
	h.Write(b[:])
	for _, v := range s {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		h.Write(b[:])
	}
}
