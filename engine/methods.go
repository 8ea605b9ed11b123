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

package engine

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"gonum.org/v1/gonum/mat"

	"github.com/spatialmodel/regrid/mesh"
	"github.com/spatialmodel/regrid/weights"
)

func (e *Native) bilinear(src, dst mesh.Mesh) *weights.Matrix {
	qi := mesh.NewQuadIndex(src)
	return e.parallel(src.Len(), dst.Len(), dst.Len(), func(i int, add func(int, int, float64)) {
		lon, lat := dst.CenterLonLat(i)
		q, s, t, ok := qi.Locate(dst.Center(i), lon, lat)
		if !ok {
			return
		}
		for k, w := range mesh.BilinearWeights(s, t) {
			add(i, q.Vertices[k], w)
		}
	})
}

// patchTerms is the number of terms in the quadratic patch polynomial
// 1, x, y, x², xy, y².
const patchTerms = 6

// patchCond is the largest condition number of the normal equations for
// which a patch fit is trusted.
const patchCond = 1e10

func (e *Native) patch(src, dst mesh.Mesh) *weights.Matrix {
	qi := mesh.NewQuadIndex(src)
	nx, ny := src.Shape()
	return e.parallel(src.Len(), dst.Len(), dst.Len(), func(i int, add func(int, int, float64)) {
		lon, lat := dst.CenterLonLat(i)
		p := dst.Center(i)
		q, s, t, ok := qi.Locate(p, lon, lat)
		if !ok {
			return
		}
		var cells []int
		for iy := q.IY - 1; iy <= q.IY+2; iy++ {
			for ix := q.IX - 1; ix <= q.IX+2; ix++ {
				if ix >= 0 && iy >= 0 && ix < nx && iy < ny {
					cells = append(cells, mesh.Index(ix, iy, nx))
				}
			}
		}
		w, err := patchWeights(src, cells, p)
		if err != nil {
			for k, bw := range mesh.BilinearWeights(s, t) {
				add(i, q.Vertices[k], bw)
			}
			return
		}
		for k, c := range cells {
			add(i, c, w[k])
		}
	})
}

// patchWeights fits a quadratic polynomial by least squares to the source
// centers in cells, in the gnomonic plane about p, and returns the weight
// of each center in the fitted value at p.
func patchWeights(src mesh.Mesh, cells []int, p s2.Point) ([]float64, error) {
	n := len(cells)
	if n < patchTerms {
		return nil, fmt.Errorf("engine: patch has %d points, need %d", n, patchTerms)
	}
	tp := mesh.NewTangent(p)
	xs := make([]float64, n)
	ys := make([]float64, n)
	var h float64
	for k, c := range cells {
		x, y, ok := tp.Project(src.Center(c))
		if !ok {
			return nil, fmt.Errorf("engine: patch point %d is beyond the horizon", c)
		}
		xs[k], ys[k] = x, y
		h = math.Max(h, math.Max(math.Abs(x), math.Abs(y)))
	}
	if h == 0 {
		return nil, fmt.Errorf("engine: degenerate patch")
	}
	// p is the origin of the plane, so the fitted value at p is the
	// constant term. Scale coordinates to keep the normal equations well
	// conditioned.
	a := mat.NewDense(n, patchTerms, nil)
	for k := range cells {
		x, y := xs[k]/h, ys[k]/h
		a.SetRow(k, []float64{1, x, y, x * x, x * y, y * y})
	}
	var ata mat.Dense
	ata.Mul(a.T(), a)
	if c := mat.Cond(&ata, 1); c > patchCond || math.IsInf(c, 0) || math.IsNaN(c) {
		return nil, fmt.Errorf("engine: patch normal equations are ill-conditioned (%g)", c)
	}
	e1 := mat.NewVecDense(patchTerms, []float64{1, 0, 0, 0, 0, 0})
	var z mat.VecDense
	if err := z.SolveVec(&ata, e1); err != nil {
		return nil, fmt.Errorf("engine: solving patch: %v", err)
	}
	var w mat.VecDense
	w.MulVec(a, &z)
	return w.RawVector().Data, nil
}

func (e *Native) nearestS2D(src, dst mesh.Mesh) *weights.Matrix {
	pi := mesh.NewPointIndex(src)
	return e.parallel(src.Len(), dst.Len(), dst.Len(), func(i int, add func(int, int, float64)) {
		lon, lat := dst.CenterLonLat(i)
		if j, ok := pi.Nearest(dst.Center(i), lon, lat); ok {
			add(i, j, 1)
		}
	})
}

func (e *Native) nearestD2S(src, dst mesh.Mesh) *weights.Matrix {
	pi := mesh.NewPointIndex(dst)
	return e.parallel(src.Len(), dst.Len(), src.Len(), func(j int, add func(int, int, float64)) {
		lon, lat := src.CenterLonLat(j)
		if i, ok := pi.Nearest(src.Center(j), lon, lat); ok {
			add(i, j, 1)
		}
	})
}

func (e *Native) conservative(src, dst mesh.Mesh) (*weights.Matrix, error) {
	if !src.HasCorners() {
		return nil, fmt.Errorf("%w: source", ErrNoCorners)
	}
	if !dst.HasCorners() {
		return nil, fmt.Errorf("%w: destination", ErrNoCorners)
	}
	level := e.opts.CoverLevel
	if level <= 0 {
		level = mesh.CoverLevel(src, e.opts.CellsPerCell)
		if l := mesh.CoverLevel(dst, e.opts.CellsPerCell); l > level {
			level = l
		}
	}
	if level <= 0 {
		// Every cell is degenerate, so nothing overlaps.
		return weights.NewBuilder(src.Len(), dst.Len()).Build(), nil
	}
	e.opts.Log.WithField("level", level).Debug("engine: covering cells for conservative weights")
	si := mesh.NewCellIndex(src, level)
	return e.parallel(src.Len(), dst.Len(), dst.Len(), func(i int, add func(int, int, float64)) {
		cu := mesh.Cover(dst.Cell(i), level)
		area := cu.ExactArea()
		if area == 0 {
			return
		}
		cells, areas := si.Overlaps(cu)
		for k, c := range cells {
			add(i, c, areas[k]/area)
		}
	}), nil
}
