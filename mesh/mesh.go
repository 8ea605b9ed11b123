/*
Copyright © 2019 the InMAP authors.
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

/*Package mesh describes the spherical geometry of curvilinear grids.*/
package mesh

import (
	"github.com/golang/geo/s2"
)

// Mesh describes a 2D curvilinear mesh on the sphere. Cells are indexed
// in column-major order: cell (ix, iy) has index ix + nx*iy.
type Mesh interface {
	// Shape returns the number of cells along each grid dimension.
	Shape() (nx, ny int)

	// Len is the total number of cells in this Mesh.
	Len() int

	// Center returns the center of the cell at index i (where i < Len()).
	Center(i int) s2.Point

	// CenterLonLat returns the center of cell i in degrees.
	CenterLonLat(i int) (lon, lat float64)

	// HasCorners reports whether cell boundaries are known.
	HasCorners() bool

	// Cell returns the boundary of cell i, or nil if the mesh has no
	// corners or the cell is degenerate.
	Cell(i int) *s2.Loop
}

// Index returns the flat index of cell (ix, iy) in a mesh with nx columns.
func Index(ix, iy, nx int) int { return ix + nx*iy }

// Unravel is the inverse of Index.
func Unravel(i, nx int) (ix, iy int) { return i % nx, i / nx }
