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

// Package weights holds sparse regridding weight matrices and reads and
// writes them as offline weight files.
package weights

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Threshold is the magnitude below which weights are dropped.
const Threshold = 1e-13

// Matrix is a sparse mapping from source cells (columns) to destination
// cells (rows) in compressed sparse row form. Matrices are never modified
// after they are built, so they may be shared between operators.
type Matrix struct {
	NSrc, NDst int

	rowPtr []int
	col    []int
	val    []float64
}

// Builder accumulates weights for a Matrix. Weights added more than once
// for the same row and column are summed.
type Builder struct {
	nSrc, nDst int
	a          *sparse.SparseArray
}

// NewBuilder returns a builder for a matrix mapping nSrc source cells to
// nDst destination cells.
func NewBuilder(nSrc, nDst int) *Builder {
	return &Builder{nSrc: nSrc, nDst: nDst, a: sparse.ZerosSparse(nDst, nSrc)}
}

// Add adds weight w from source cell col to destination cell row.
func (b *Builder) Add(row, col int, w float64) {
	if math.Abs(w) < Threshold {
		return
	}
	b.a.AddVal(w, row, col)
}

// Sum returns the sum of all weights added so far.
func (b *Builder) Sum() float64 { return b.a.Sum() }

// Build returns the accumulated matrix.
func (b *Builder) Build() *Matrix {
	// SparseArray elements are keyed by row-major flat index.
	keys := make([]int, 0, len(b.a.Elements))
	for k, v := range b.a.Elements {
		if math.Abs(v) < Threshold {
			continue
		}
		keys = append(keys, k)
	}
	sort.Ints(keys)
	m := &Matrix{
		NSrc:   b.nSrc,
		NDst:   b.nDst,
		rowPtr: make([]int, b.nDst+1),
		col:    make([]int, len(keys)),
		val:    make([]float64, len(keys)),
	}
	for n, k := range keys {
		row, col := k/b.nSrc, k%b.nSrc
		m.rowPtr[row+1]++
		m.col[n] = col
		m.val[n] = b.a.Elements[k]
	}
	for r := 0; r < b.nDst; r++ {
		m.rowPtr[r+1] += m.rowPtr[r]
	}
	return m
}

// FromTriplets builds a matrix from parallel row, column and value slices.
func FromTriplets(nSrc, nDst int, rows, cols []int, vals []float64) (*Matrix, error) {
	if len(rows) != len(cols) || len(rows) != len(vals) {
		return nil, fmt.Errorf("weights: triplet lengths %d, %d and %d differ", len(rows), len(cols), len(vals))
	}
	b := NewBuilder(nSrc, nDst)
	for n := range rows {
		if rows[n] < 0 || rows[n] >= nDst || cols[n] < 0 || cols[n] >= nSrc {
			return nil, fmt.Errorf("weights: entry %d (row %d, col %d) is outside a %dx%d matrix",
				n, rows[n], cols[n], nDst, nSrc)
		}
		b.Add(rows[n], cols[n], vals[n])
	}
	return b.Build(), nil
}

// NNZ returns the number of stored weights.
func (m *Matrix) NNZ() int { return len(m.val) }

// Row returns the source columns and weights contributing to destination
// cell r. The returned slices must not be modified.
func (m *Matrix) Row(r int) (cols []int, vals []float64) {
	lo, hi := m.rowPtr[r], m.rowPtr[r+1]
	return m.col[lo:hi], m.val[lo:hi]
}

// Triplets returns copies of the row, column and value of every weight,
// ordered by row and then column.
func (m *Matrix) Triplets() (rows, cols []int, vals []float64) {
	rows = make([]int, 0, m.NNZ())
	for r := 0; r < m.NDst; r++ {
		for n := m.rowPtr[r]; n < m.rowPtr[r+1]; n++ {
			rows = append(rows, r)
		}
	}
	return rows, append([]int(nil), m.col...), append([]float64(nil), m.val...)
}

// Mapped reports whether destination cell r receives any weight.
func (m *Matrix) Mapped(r int) bool { return m.rowPtr[r+1] > m.rowPtr[r] }

// Unmapped returns the destination cells that receive no weight.
func (m *Matrix) Unmapped() []int {
	var out []int
	for r := 0; r < m.NDst; r++ {
		if !m.Mapped(r) {
			out = append(out, r)
		}
	}
	return out
}

// RowSums returns the total weight of each destination cell.
func (m *Matrix) RowSums() []float64 {
	out := make([]float64, m.NDst)
	for r := range out {
		_, v := m.Row(r)
		out[r] = floats.Sum(v)
	}
	return out
}

// Apply computes dst = m × src for nBatch stacked column vectors: slab b
// of src holds elements [b*NSrc, (b+1)*NSrc) and likewise for dst.
// Unmapped destination elements are left untouched.
func (m *Matrix) Apply(src, dst []float64, nBatch int) error {
	if len(src) != m.NSrc*nBatch {
		return fmt.Errorf("weights: source has %d values, expected %d", len(src), m.NSrc*nBatch)
	}
	if len(dst) != m.NDst*nBatch {
		return fmt.Errorf("weights: destination has %d values, expected %d", len(dst), m.NDst*nBatch)
	}
	for b := 0; b < nBatch; b++ {
		s := src[b*m.NSrc : (b+1)*m.NSrc]
		d := dst[b*m.NDst : (b+1)*m.NDst]
		for r := 0; r < m.NDst; r++ {
			lo, hi := m.rowPtr[r], m.rowPtr[r+1]
			if lo == hi {
				continue
			}
			var v float64
			for n := lo; n < hi; n++ {
				v += m.val[n] * s[m.col[n]]
			}
			d[r] = v
		}
	}
	return nil
}
