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
	"errors"
	"fmt"

	"github.com/spatialmodel/regrid/engine"
)

var (
	// ErrShape is wrapped by every ShapeError.
	ErrShape = errors.New("regrid: shape mismatch")

	// ErrInvalidMethod is wrapped by every InvalidMethodError.
	ErrInvalidMethod = engine.ErrInvalidMethod

	// ErrMissingCorners is wrapped by every MissingCornersError.
	ErrMissingCorners = errors.New("regrid: grid has no cell corners")

	// ErrWeightFileExists is wrapped by every WeightFileExistsError.
	ErrWeightFileExists = errors.New("regrid: weight file already exists")

	// ErrFinalized is wrapped by every UseAfterFinalizeError.
	ErrFinalized = errors.New("regrid: operator has been finalized")

	// ErrCornersAttached is returned by AddCorners when the grid already
	// has corners.
	ErrCornersAttached = errors.New("regrid: grid already has corners")
)

// ShapeError reports arrays whose dimensions do not agree.
type ShapeError struct {
	// What names the offending array or arrays.
	What string
	// Got is the shape that was supplied.
	Got []int
	// Want is the required shape, or nil when the constraint is not a
	// single shape.
	Want []int
	// Reason describes the constraint when Want is nil.
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Want != nil {
		return fmt.Sprintf("regrid: %s has shape %v, expected %v", e.What, e.Got, e.Want)
	}
	return fmt.Sprintf("regrid: %s has shape %v: %s", e.What, e.Got, e.Reason)
}

// Unwrap returns ErrShape.
func (e *ShapeError) Unwrap() error { return ErrShape }

// InvalidMethodError reports an unrecognized regridding method. Its
// message lists every valid method.
type InvalidMethodError = engine.InvalidMethodError

// MissingCornersError reports a conservative regridding request for a grid
// without cell corners.
type MissingCornersError struct {
	// Grid is "source" or "destination".
	Grid string
}

func (e *MissingCornersError) Error() string {
	return fmt.Sprintf("regrid: conservative regridding needs cell corners, but the %s grid has none; use AddCorners", e.Grid)
}

// Unwrap returns ErrMissingCorners.
func (e *MissingCornersError) Unwrap() error { return ErrMissingCorners }

// WeightFileExistsError reports that a weight file would overwrite an
// existing file.
type WeightFileExistsError struct {
	Path string
}

func (e *WeightFileExistsError) Error() string {
	return fmt.Sprintf("regrid: weight file %s already exists", e.Path)
}

// Unwrap returns ErrWeightFileExists.
func (e *WeightFileExistsError) Unwrap() error { return ErrWeightFileExists }

// UseAfterFinalizeError reports a call on an operator that has been
// finalized.
type UseAfterFinalizeError struct {
	// Op is the attempted operation.
	Op string
}

func (e *UseAfterFinalizeError) Error() string {
	return fmt.Sprintf("regrid: %s called on finalized operator", e.Op)
}

// Unwrap returns ErrFinalized.
func (e *UseAfterFinalizeError) Unwrap() error { return ErrFinalized }
