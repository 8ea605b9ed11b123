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

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/regrid/array"
	"github.com/spatialmodel/regrid/mesh"
)

// Grid describes a curvilinear grid by the longitudes and latitudes, in
// degrees, of its cell centers and optionally of its cell corners.
//
// A Grid keeps its own column-major copy of the coordinates. It must not be
// modified (by AddCorners) while a Build that uses it is running, but
// otherwise it may be shared between goroutines.
type Grid struct {
	nx, ny     int
	lon, lat   []float64
	lonB, latB []float64
	mesh       *mesh.Curvilinear
	log        logrus.FieldLogger
}

// GridOption configures a Grid.
type GridOption func(*Grid)

// WithGridLogger sets the logger that receives the layout warnings
// emitted while the grid is built.
func WithGridLogger(log logrus.FieldLogger) GridOption {
	return func(g *Grid) { g.log = log }
}

// NewGrid creates a grid from the cell-center longitudes and latitudes.
// Both arrays must be 2-dimensional with the same shape (Nx, Ny), or a
// *ShapeError is returned. Arrays that are not column-major are accepted
// with a warning.
func NewGrid(lon, lat *array.Array, opts ...GridOption) (*Grid, error) {
	g := &Grid{log: logrus.StandardLogger()}
	for _, o := range opts {
		o(g)
	}
	if err := checkPair("lon", "lat", lon, lat); err != nil {
		return nil, err
	}
	array.WarnNotContiguous(g.log, "lon", lon)
	array.WarnNotContiguous(g.log, "lat", lat)
	g.nx, g.ny = lon.Shape[0], lon.Shape[1]
	g.lon = lon.AsOrder(array.ColumnMajor).Data
	g.lat = lat.AsOrder(array.ColumnMajor).Data
	m, err := mesh.NewCurvilinear(g.nx, g.ny, g.lon, g.lat)
	if err != nil {
		return nil, fmt.Errorf("regrid: %v", err)
	}
	g.mesh = m
	return g, nil
}

// NewGridFromDense is NewGrid for coordinates held in row-major
// sparse.DenseArrays.
func NewGridFromDense(lon, lat *sparse.DenseArray, opts ...GridOption) (*Grid, error) {
	if lon == nil || lat == nil {
		return nil, &ShapeError{What: "lon and lat", Reason: "both arrays are required"}
	}
	return NewGrid(array.FromDense(lon), array.FromDense(lat), opts...)
}

// AddCorners attaches cell-corner longitudes and latitudes to g. Both
// arrays must have shape (Nx+1, Ny+1), or a *ShapeError is returned.
// Corners can be attached only once; later calls return ErrCornersAttached
// and leave the grid unchanged.
func (g *Grid) AddCorners(lonB, latB *array.Array) error {
	if g.HasCorners() {
		return ErrCornersAttached
	}
	if err := checkPair("lon_b", "lat_b", lonB, latB); err != nil {
		return err
	}
	if want := []int{g.nx + 1, g.ny + 1}; !array.SameShape(lonB.Shape, want) {
		return &ShapeError{What: "lon_b and lat_b", Got: lonB.Shape, Want: want}
	}
	array.WarnNotContiguous(g.log, "lon_b", lonB)
	array.WarnNotContiguous(g.log, "lat_b", latB)
	b, a := lonB.AsOrder(array.ColumnMajor).Data, latB.AsOrder(array.ColumnMajor).Data
	if err := g.mesh.SetCorners(b, a); err != nil {
		return fmt.Errorf("regrid: %v", err)
	}
	g.lonB, g.latB = b, a
	return nil
}

// checkPair makes sure a and b are 2-dimensional with the same shape.
func checkPair(na, nb string, a, b *array.Array) error {
	if a == nil || b == nil {
		return &ShapeError{What: na + " and " + nb, Reason: "both arrays are required"}
	}
	if a.Ndim() != 2 {
		return &ShapeError{What: na, Got: a.Shape, Reason: "must be 2-dimensional"}
	}
	if b.Ndim() != 2 {
		return &ShapeError{What: nb, Got: b.Shape, Reason: "must be 2-dimensional"}
	}
	if !array.SameShape(a.Shape, b.Shape) {
		return &ShapeError{What: nb, Got: b.Shape, Want: a.Shape}
	}
	if err := checkLen(na, a); err != nil {
		return err
	}
	return checkLen(nb, b)
}

// checkLen makes sure a holds exactly one value per element of its shape.
func checkLen(what string, a *array.Array) error {
	if n := array.Size(a.Shape); len(a.Data) != n {
		return &ShapeError{What: what, Got: a.Shape,
			Reason: fmt.Sprintf("holds %d values for %d elements", len(a.Data), n)}
	}
	return nil
}

// Shape returns the number of cells along each dimension.
func (g *Grid) Shape() (nx, ny int) { return g.nx, g.ny }

// Len returns the number of cells.
func (g *Grid) Len() int { return g.nx * g.ny }

// HasCorners reports whether corners have been attached.
func (g *Grid) HasCorners() bool { return g.lonB != nil }

// Centers returns column-major copies of the cell-center coordinates.
func (g *Grid) Centers() (lon, lat *array.Array) {
	lon, _ = array.FromSlice(array.ColumnMajor, append([]float64(nil), g.lon...), g.nx, g.ny)
	lat, _ = array.FromSlice(array.ColumnMajor, append([]float64(nil), g.lat...), g.nx, g.ny)
	return lon, lat
}

// Corners returns column-major copies of the cell-corner coordinates, or
// nil if the grid has none.
func (g *Grid) Corners() (lonB, latB *array.Array) {
	if !g.HasCorners() {
		return nil, nil
	}
	lonB, _ = array.FromSlice(array.ColumnMajor, append([]float64(nil), g.lonB...), g.nx+1, g.ny+1)
	latB, _ = array.FromSlice(array.ColumnMajor, append([]float64(nil), g.latB...), g.nx+1, g.ny+1)
	return lonB, latB
}

// Mesh returns the spherical geometry of g.
func (g *Grid) Mesh() mesh.Mesh { return g.mesh }

// WriteToShp writes the cell outlines of g, which must have corners, to a
// shapefile called name in outdir.
func (g *Grid) WriteToShp(outdir, name string) error {
	if !g.HasCorners() {
		return ErrMissingCorners
	}
	return g.mesh.WriteToShp(outdir, name)
}
