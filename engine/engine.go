/*
Copyright (C) 2012 the InMAP authors.
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

// Package engine computes regridding weights between two meshes.
package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/regrid/mesh"
	"github.com/spatialmodel/regrid/weights"
)

var (
	// ErrNoCorners is returned when conservative weights are requested
	// for a mesh without cell corners.
	ErrNoCorners = errors.New("engine: mesh has no cell corners")

	// ErrUnmapped is returned when destination cells receive no weight
	// and the engine was asked to treat that as an error.
	ErrUnmapped = errors.New("engine: unmapped destination cells")
)

// Engine computes the sparse weight matrix that maps fields on src onto
// dst. Implementations must be safe for concurrent use with distinct
// meshes and must not modify the meshes.
type Engine interface {
	Weights(src, dst mesh.Mesh, method Method) (*weights.Matrix, error)
}

// A Keyer is an Engine that can describe its configuration. Engines with
// equal keys must compute equal weights for the same grids and method.
type Keyer interface {
	Key() string
}

// UnmappedAction controls what happens to destination cells that no
// source cell contributes to.
type UnmappedAction int

const (
	// UnmappedIgnore leaves such cells out of the matrix.
	UnmappedIgnore UnmappedAction = iota
	// UnmappedError fails the computation.
	UnmappedError
)

// Options configures a Native engine.
type Options struct {
	// Unmapped selects the handling of destination cells without source
	// contributions.
	Unmapped UnmappedAction

	// CoverLevel is the s2 cell level used to approximate cell overlaps
	// for conservative weights. Zero picks a level from the grid
	// resolution using CellsPerCell.
	CoverLevel int

	// CellsPerCell is the target number of s2 cells covering an average
	// grid cell when CoverLevel is zero.
	CellsPerCell int

	// Workers is the number of goroutines to use. Zero means GOMAXPROCS.
	Workers int

	// Log receives progress messages. Nil means the logrus standard logger.
	Log logrus.FieldLogger
}

// DefaultOptions returns the options used by NewNative(nil).
func DefaultOptions() Options {
	return Options{Unmapped: UnmappedIgnore, CellsPerCell: 256}
}

// Native is a pure-Go weight engine.
type Native struct {
	opts Options
}

// Make sure Native fulfills the interface.
var _ Engine = &Native{}

// NewNative returns an engine with the given options, or the defaults if
// opts is nil.
func NewNative(opts *Options) *Native {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if o.CellsPerCell <= 0 {
		o.CellsPerCell = DefaultOptions().CellsPerCell
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return &Native{opts: o}
}

// Key identifies the options that affect the weights e computes.
func (e *Native) Key() string {
	return fmt.Sprintf("native_unmapped%d_level%d_cells%d",
		e.opts.Unmapped, e.opts.CoverLevel, e.opts.CellsPerCell)
}

// Weights computes the weights mapping fields on src onto dst.
func (e *Native) Weights(src, dst mesh.Mesh, method Method) (*weights.Matrix, error) {
	start := time.Now()
	var m *weights.Matrix
	var err error
	switch method {
	case Bilinear:
		m = e.bilinear(src, dst)
	case Patch:
		m = e.patch(src, dst)
	case NearestS2D:
		m = e.nearestS2D(src, dst)
	case NearestD2S:
		m = e.nearestD2S(src, dst)
	case Conservative:
		m, err = e.conservative(src, dst)
	default:
		return nil, &InvalidMethodError{Method: method.String()}
	}
	if err != nil {
		return nil, err
	}
	unmapped := m.Unmapped()
	e.opts.Log.WithFields(logrus.Fields{
		"method":   method.String(),
		"nnz":      m.NNZ(),
		"unmapped": len(unmapped),
		"elapsed":  time.Since(start).String(),
	}).Debug("engine: computed weights")
	if len(unmapped) > 0 && e.opts.Unmapped == UnmappedError {
		return nil, fmt.Errorf("%w: %d of %d", ErrUnmapped, len(unmapped), m.NDst)
	}
	return m, nil
}

type triplet struct {
	row, col int
	w        float64
}

// parallel calls f for each i < n across the engine's workers and
// gathers the weights f emits into a matrix. Each worker collects its
// weights locally and merges them once it is done.
func (e *Native) parallel(nSrc, nDst, n int, f func(i int, add func(row, col int, w float64))) *weights.Matrix {
	b := weights.NewBuilder(nSrc, nDst)
	var mu sync.Mutex
	var wg sync.WaitGroup
	nprocs := e.opts.Workers
	wg.Add(nprocs)
	for procnum := 0; procnum < nprocs; procnum++ {
		go func(procnum int) {
			defer wg.Done()
			var local []triplet
			add := func(row, col int, w float64) {
				local = append(local, triplet{row: row, col: col, w: w})
			}
			for i := procnum; i < n; i += nprocs {
				f(i, add)
			}
			mu.Lock()
			for _, t := range local {
				b.Add(t.row, t.col, t.w)
			}
			mu.Unlock()
		}(procnum)
	}
	wg.Wait()
	return b.Build()
}
