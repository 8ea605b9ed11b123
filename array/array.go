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

// Package array holds the n-dimensional float arrays used for grid
// coordinates and field data. Arrays remember their memory layout so that
// callers can be warned when data will have to be re-laid out before it
// reaches the weight engine, which works in column-major (Fortran) order.
package array

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// Order is the memory layout of an Array.
type Order int

const (
	// ColumnMajor (Fortran) order: the first index varies fastest.
	ColumnMajor Order = iota
	// RowMajor (C) order: the last index varies fastest.
	RowMajor
)

func (o Order) String() string {
	switch o {
	case ColumnMajor:
		return "column-major"
	case RowMajor:
		return "row-major"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Array is a dense n-dimensional array of float64 values.
type Array struct {
	Shape []int
	Data  []float64
	Order Order
}

// New returns a zero-filled array with the given order and shape.
func New(o Order, shape ...int) *Array {
	return &Array{
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, Size(shape)),
		Order: o,
	}
}

// FromSlice wraps data in an array without copying it. It returns an error
// if len(data) does not match the shape.
func FromSlice(o Order, data []float64, shape ...int) (*Array, error) {
	if n := Size(shape); n != len(data) {
		return nil, fmt.Errorf("array: shape %v holds %d elements but data has %d", shape, n, len(data))
	}
	return &Array{Shape: append([]int(nil), shape...), Data: data, Order: o}, nil
}

// FromRows builds a column-major 2-D array from nested rows, where rows[i][j]
// is the element at index (i, j).
func FromRows(rows [][]float64) (*Array, error) {
	if len(rows) == 0 {
		return New(ColumnMajor, 0, 0), nil
	}
	nj := len(rows[0])
	a := New(ColumnMajor, len(rows), nj)
	for i, r := range rows {
		if len(r) != nj {
			return nil, fmt.Errorf("array: row %d has %d values, expected %d", i, len(r), nj)
		}
		for j, v := range r {
			a.Set(v, i, j)
		}
	}
	return a, nil
}

// FromDense converts a sparse.DenseArray, which is always row-major, into an
// Array that shares its storage.
func FromDense(d *sparse.DenseArray) *Array {
	return &Array{Shape: append([]int(nil), d.Shape...), Data: d.Elements, Order: RowMajor}
}

// ToDense returns a row-major sparse.DenseArray copy of a.
func (a *Array) ToDense() *sparse.DenseArray {
	d := sparse.ZerosDense(a.Shape...)
	r := a.AsOrder(RowMajor)
	copy(d.Elements, r.Data)
	return d
}

// Size returns the number of elements in an array of the given shape.
func Size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Ndim returns the number of dimensions.
func (a *Array) Ndim() int { return len(a.Shape) }

// Len returns the total number of elements.
func (a *Array) Len() int { return len(a.Data) }

// IsFortranContiguous reports whether a's data can be handed to a
// column-major consumer without reordering. Arrays with at most one
// dimension longer than one are contiguous in both orders.
func (a *Array) IsFortranContiguous() bool {
	if a.Order == ColumnMajor {
		return true
	}
	long := 0
	for _, s := range a.Shape {
		if s > 1 {
			long++
		}
	}
	return long <= 1
}

// index returns the flat index of the element at idx.
func (a *Array) index(idx []int) int {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("array: %d indices for %d-dimensional array", len(idx), len(a.Shape)))
	}
	i := 0
	if a.Order == ColumnMajor {
		stride := 1
		for d, v := range idx {
			if v < 0 || v >= a.Shape[d] {
				panic(fmt.Sprintf("array: index %v out of range for shape %v", idx, a.Shape))
			}
			i += v * stride
			stride *= a.Shape[d]
		}
		return i
	}
	stride := 1
	for d := len(idx) - 1; d >= 0; d-- {
		v := idx[d]
		if v < 0 || v >= a.Shape[d] {
			panic(fmt.Sprintf("array: index %v out of range for shape %v", idx, a.Shape))
		}
		i += v * stride
		stride *= a.Shape[d]
	}
	return i
}

// Get returns the element at the given index.
func (a *Array) Get(idx ...int) float64 { return a.Data[a.index(idx)] }

// Set sets the element at the given index.
func (a *Array) Set(v float64, idx ...int) { a.Data[a.index(idx)] = v }

// Copy returns a deep copy of a.
func (a *Array) Copy() *Array {
	return &Array{
		Shape: append([]int(nil), a.Shape...),
		Data:  append([]float64(nil), a.Data...),
		Order: a.Order,
	}
}

// AsOrder returns a copy of a laid out in order o.
func (a *Array) AsOrder(o Order) *Array {
	out := New(o, a.Shape...)
	a.CopyInto(out)
	return out
}

// CopyInto copies the values of a into dst, which must have the same shape
// but may have a different order.
func (a *Array) CopyInto(dst *Array) {
	if !SameShape(a.Shape, dst.Shape) {
		panic(fmt.Sprintf("array: copying shape %v into shape %v", a.Shape, dst.Shape))
	}
	if a.Order == dst.Order || a.IsFortranContiguous() && dst.IsFortranContiguous() {
		copy(dst.Data, a.Data)
		return
	}
	idx := make([]int, len(a.Shape))
	for n := range a.Data {
		unravel(n, a.Shape, a.Order, idx)
		dst.Data[dst.index(idx)] = a.Data[n]
	}
}

// unravel writes into idx the multi-index of flat position n.
func unravel(n int, shape []int, o Order, idx []int) {
	if o == ColumnMajor {
		for d := 0; d < len(shape); d++ {
			idx[d] = n % shape[d]
			n /= shape[d]
		}
		return
	}
	for d := len(shape) - 1; d >= 0; d-- {
		idx[d] = n % shape[d]
		n /= shape[d]
	}
}

// SameShape reports whether two shapes are identical.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
