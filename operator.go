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
	"fmt"
	"sync"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/regrid/array"
	"github.com/spatialmodel/regrid/weights"
)

// Operator maps fields from a source grid onto a destination grid. It owns
// a source buffer of shape (NxSrc, NySrc, extra...), a destination buffer
// of shape (NxDst, NyDst, extra...) and the weight matrix between them.
type Operator struct {
	mu sync.Mutex

	method Method
	extra  []int
	fill   float64
	log    logrus.FieldLogger

	srcShape, dstShape []int
	src, dst           *array.Array
	w                  *weights.Matrix

	finalized                                bool
	srcReleased, dstReleased, mappingReleased bool
}

func newOperator(method Method, src, dst *Grid, extra []int, w *weights.Matrix, fill float64, log logrus.FieldLogger) (*Operator, error) {
	if w.NSrc != src.Len() || w.NDst != dst.Len() {
		return nil, &ShapeError{
			What: "weight matrix",
			Got:  []int{w.NDst, w.NSrc},
			Want: []int{dst.Len(), src.Len()},
		}
	}
	o := &Operator{
		method: method,
		extra:  append([]int(nil), extra...),
		fill:   fill,
		log:    log,
		w:      w,
	}
	o.srcShape = append([]int{src.nx, src.ny}, extra...)
	o.dstShape = append([]int{dst.nx, dst.ny}, extra...)
	o.src = array.New(array.ColumnMajor, o.srcShape...)
	o.dst = array.New(array.ColumnMajor, o.dstShape...)
	for i := range o.dst.Data {
		o.dst.Data[i] = fill
	}
	return o, nil
}

// nBatch is the number of spatial slabs in each buffer.
func (o *Operator) nBatch() int { return array.Size(o.extra) }

// Apply regrids in, which must have shape (NxSrc, NySrc, extra...), and
// returns a new column-major array of shape (NxDst, NyDst, extra...).
// Destination cells that no source cell maps to hold the operator's fill
// value.
func (o *Operator) Apply(in *array.Array) (*array.Array, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finalized {
		return nil, &UseAfterFinalizeError{Op: "Apply"}
	}
	if in == nil {
		return nil, &ShapeError{What: "input", Want: o.srcShape}
	}
	if !array.SameShape(in.Shape, o.srcShape) {
		return nil, &ShapeError{What: "input", Got: in.Shape, Want: o.srcShape}
	}
	if err := checkLen("input", in); err != nil {
		return nil, err
	}
	array.WarnNotContiguous(o.log, "input", in)
	in.CopyInto(o.src)
	if err := o.w.Apply(o.src.Data, o.dst.Data, o.nBatch()); err != nil {
		return nil, fmt.Errorf("regrid: %v", err)
	}
	return o.dst.Copy(), nil
}

// ApplyDense is Apply for a row-major sparse.DenseArray. The result is
// row-major as well.
func (o *Operator) ApplyDense(in *sparse.DenseArray) (*sparse.DenseArray, error) {
	if in == nil {
		return nil, &ShapeError{What: "input", Want: o.SourceShape()}
	}
	out, err := o.Apply(array.FromDense(in))
	if err != nil {
		return nil, err
	}
	return out.ToDense(), nil
}

// Finalize releases the buffers and the weight matrix. Arrays previously
// returned by Apply stay valid. Any later call that needs the released
// resources, including a second Finalize, returns a *UseAfterFinalizeError.
func (o *Operator) Finalize() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finalized {
		return &UseAfterFinalizeError{Op: "Finalize"}
	}
	o.finalized = true
	o.src = nil
	o.srcReleased = o.src == nil
	o.dst = nil
	o.dstReleased = o.dst == nil
	o.w = nil
	o.mappingReleased = o.w == nil
	if !o.srcReleased || !o.dstReleased || !o.mappingReleased {
		return fmt.Errorf("regrid: finalize did not release all resources")
	}
	return nil
}

// Finalized reports whether Finalize has been called.
func (o *Operator) Finalized() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finalized
}

// SourceReleased reports whether the source buffer has been released.
func (o *Operator) SourceReleased() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.srcReleased
}

// DestinationReleased reports whether the destination buffer has been
// released.
func (o *Operator) DestinationReleased() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dstReleased
}

// MappingReleased reports whether the weight matrix has been released.
func (o *Operator) MappingReleased() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mappingReleased
}

// Method returns the method the weights were computed with.
func (o *Operator) Method() Method { return o.method }

// ExtraDims returns the sizes of the batch dimensions.
func (o *Operator) ExtraDims() []int { return append([]int(nil), o.extra...) }

// SourceShape returns the shape Apply accepts.
func (o *Operator) SourceShape() []int { return append([]int(nil), o.srcShape...) }

// DestinationShape returns the shape Apply returns.
func (o *Operator) DestinationShape() []int { return append([]int(nil), o.dstShape...) }

// Weights returns the weight matrix. The matrix must not be modified.
func (o *Operator) Weights() (*weights.Matrix, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finalized {
		return nil, &UseAfterFinalizeError{Op: "Weights"}
	}
	return o.w, nil
}

// Unmapped returns the column-major indices of the destination cells that
// no source cell maps to.
func (o *Operator) Unmapped() ([]int, error) {
	w, err := o.Weights()
	if err != nil {
		return nil, err
	}
	return w.Unmapped(), nil
}
