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
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/spatialmodel/regrid/engine"
	"github.com/spatialmodel/regrid/weights"
)

type buildConfig struct {
	weightFile string
	extra      []int
	eng        engine.Engine
	log        logrus.FieldLogger
	fill       float64
	cache      *WeightCache
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithWeightFile writes the computed weights to path, which must not exist.
func WithWeightFile(path string) BuildOption {
	return func(c *buildConfig) { c.weightFile = path }
}

// WithExtraDims sets the sizes of the batch dimensions that follow the two
// spatial dimensions in every field passed to Apply.
func WithExtraDims(dims ...int) BuildOption {
	return func(c *buildConfig) { c.extra = append([]int(nil), dims...) }
}

// WithEngine sets the engine that computes the weights. The default is a
// native engine that leaves unmapped destination cells out of the matrix.
func WithEngine(e engine.Engine) BuildOption {
	return func(c *buildConfig) { c.eng = e }
}

// WithLogger sets the logger for the operator and its build.
func WithLogger(log logrus.FieldLogger) BuildOption {
	return func(c *buildConfig) { c.log = log }
}

// WithUnmappedFill sets the value that unmapped destination cells hold in
// Apply results. The default is NaN.
func WithUnmappedFill(v float64) BuildOption {
	return func(c *buildConfig) { c.fill = v }
}

// WithCache shares weight computations between builds through c.
func WithCache(c *WeightCache) BuildOption {
	return func(bc *buildConfig) { bc.cache = c }
}

func newBuildConfig(opts []BuildOption) *buildConfig {
	c := &buildConfig{log: logrus.StandardLogger(), fill: math.NaN()}
	for _, o := range opts {
		o(c)
	}
	if c.eng == nil {
		c.eng = engine.NewNative(&engine.Options{Unmapped: engine.UnmappedIgnore, Log: c.log})
	}
	return c
}

// Build computes the weights that map fields on src onto dst and returns
// an operator that applies them.
//
// The arguments are checked before any weights are computed, in this
// order: method must be valid (*InvalidMethodError); both grids must have
// corners for Conservative (*MissingCornersError, source first); extra
// dimensions must be positive (*ShapeError); and the weight file, if any,
// must not exist (*WeightFileExistsError). An existing weight file is never
// modified.
func Build(src, dst *Grid, method Method, opts ...BuildOption) (*Operator, error) {
	c := newBuildConfig(opts)
	if !method.Valid() {
		return nil, &InvalidMethodError{Method: method.String()}
	}
	if src == nil || dst == nil {
		return nil, errors.New("regrid: source and destination grids are required")
	}
	if method.NeedsCorners() {
		if !src.HasCorners() {
			return nil, &MissingCornersError{Grid: "source"}
		}
		if !dst.HasCorners() {
			return nil, &MissingCornersError{Grid: "destination"}
		}
	}
	for _, d := range c.extra {
		if d <= 0 {
			return nil, &ShapeError{What: "extra dimensions", Got: c.extra, Reason: "sizes must be positive"}
		}
	}
	if c.weightFile != "" {
		if _, err := os.Lstat(c.weightFile); err == nil {
			return nil, &WeightFileExistsError{Path: c.weightFile}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("regrid: checking weight file: %w", err)
		}
	}

	start := time.Now()
	var w *weights.Matrix
	var err error
	if c.cache != nil {
		w, err = c.cache.weights(context.Background(), c.eng, src, dst, method)
	} else {
		w, err = c.eng.Weights(src.mesh, dst.mesh, method)
	}
	if err != nil {
		return nil, fmt.Errorf("regrid: computing %s weights: %w", method, err)
	}

	// The operator checks the matrix against the grids, so it is made
	// before anything is written.
	op, err := newOperator(method, src, dst, c.extra, w, c.fill, c.log)
	if err != nil {
		return nil, err
	}
	if c.weightFile != "" {
		if err := weights.WriteFile(c.weightFile, w, meta(method, src, dst)); err != nil {
			if ferr := op.Finalize(); ferr != nil {
				c.log.WithError(ferr).Warn("regrid: releasing operator")
			}
			if errors.Is(err, weights.ErrExists) {
				return nil, &WeightFileExistsError{Path: c.weightFile}
			}
			return nil, fmt.Errorf("regrid: writing weight file: %w", err)
		}
	}
	c.log.WithFields(logrus.Fields{
		"method":   method.String(),
		"src":      fmt.Sprintf("%dx%d", src.nx, src.ny),
		"dst":      fmt.Sprintf("%dx%d", dst.nx, dst.ny),
		"nnz":      w.NNZ(),
		"unmapped": len(w.Unmapped()),
		"elapsed":  time.Since(start).String(),
	}).Info("regrid: built operator")
	return op, nil
}

// BuildNamed is Build with the method given by its key, as accepted by
// ParseMethod.
func BuildNamed(src, dst *Grid, method string, opts ...BuildOption) (*Operator, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}
	return Build(src, dst, m, opts...)
}

func meta(method Method, src, dst *Grid) weights.Meta {
	return weights.Meta{
		Method:   method.String(),
		SrcShape: [2]int{src.nx, src.ny},
		DstShape: [2]int{dst.nx, dst.ny},
		SrcLon:   src.lon,
		SrcLat:   src.lat,
		DstLon:   dst.lon,
		DstLat:   dst.lat,
	}
}

// Pair is one grid pair for BuildAll.
type Pair struct {
	Src, Dst *Grid
	Method   Method
	// Options are applied after the options passed to BuildAll.
	Options []BuildOption
}

// BuildAll builds an operator for each pair concurrently and returns them
// in the order of pairs. If any build fails, the operators already built
// are finalized and the first error is returned. Cancelling ctx stops
// pairs that have not started yet.
func BuildAll(ctx context.Context, pairs []Pair, opts ...BuildOption) ([]*Operator, error) {
	ops := make([]*Operator, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o := append(append([]BuildOption(nil), opts...), p.Options...)
			op, err := Build(p.Src, p.Dst, p.Method, o...)
			if err != nil {
				return fmt.Errorf("regrid: pair %d: %w", i, err)
			}
			ops[i] = op
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log := newBuildConfig(opts).log
		for i, op := range ops {
			if op == nil {
				continue
			}
			if ferr := op.Finalize(); ferr != nil {
				log.WithError(ferr).WithField("pair", i).Warn("regrid: releasing operator")
			}
		}
		return nil, err
	}
	return ops, nil
}
