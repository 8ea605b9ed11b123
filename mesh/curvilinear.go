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

package mesh

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// Make sure our mesh fulfills the interface.
var _ Mesh = &Curvilinear{}

// Curvilinear is a Mesh defined by column-major arrays of cell-center and
// (optionally) cell-corner longitudes and latitudes in degrees.
type Curvilinear struct {
	nx, ny     int
	lon, lat   []float64
	lonB, latB []float64
	centers    []s2.Point
}

// NewCurvilinear creates a mesh with nx*ny cells. lon and lat are
// column-major arrays of shape (nx, ny). The slices are retained, so they
// must not be modified afterwards.
func NewCurvilinear(nx, ny int, lon, lat []float64) (*Curvilinear, error) {
	if nx < 0 || ny < 0 {
		return nil, fmt.Errorf("mesh: invalid shape (%d, %d)", nx, ny)
	}
	if len(lon) != nx*ny || len(lat) != nx*ny {
		return nil, fmt.Errorf("mesh: center arrays have %d and %d values, expected %d", len(lon), len(lat), nx*ny)
	}
	m := &Curvilinear{nx: nx, ny: ny, lon: lon, lat: lat}
	m.centers = make([]s2.Point, len(lon))
	for i := range lon {
		m.centers[i] = lonLatPoint(lon[i], lat[i])
	}
	return m, nil
}

// SetCorners attaches cell-corner coordinates, which are column-major
// arrays of shape (nx+1, ny+1).
func (m *Curvilinear) SetCorners(lonB, latB []float64) error {
	n := (m.nx + 1) * (m.ny + 1)
	if len(lonB) != n || len(latB) != n {
		return fmt.Errorf("mesh: corner arrays have %d and %d values, expected %d", len(lonB), len(latB), n)
	}
	m.lonB, m.latB = lonB, latB
	return nil
}

func lonLatPoint(lon, lat float64) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
}

// Shape returns the number of cells along each grid dimension.
func (m *Curvilinear) Shape() (nx, ny int) { return m.nx, m.ny }

// Len returns the number of cells.
func (m *Curvilinear) Len() int { return m.nx * m.ny }

// Center returns the center of cell i.
func (m *Curvilinear) Center(i int) s2.Point { return m.centers[i] }

// CenterLonLat returns the center of cell i in degrees.
func (m *Curvilinear) CenterLonLat(i int) (lon, lat float64) { return m.lon[i], m.lat[i] }

// HasCorners reports whether corners have been attached.
func (m *Curvilinear) HasCorners() bool { return m.lonB != nil }

// Corners returns the four corners of cell i in counter-clockwise order
// for a grid whose longitude increases with ix and latitude with iy.
func (m *Curvilinear) Corners(i int) (lon, lat [4]float64) {
	ix, iy := Unravel(i, m.nx)
	nxB := m.nx + 1
	idx := [4]int{
		Index(ix, iy, nxB),
		Index(ix+1, iy, nxB),
		Index(ix+1, iy+1, nxB),
		Index(ix, iy+1, nxB),
	}
	for k, j := range idx {
		lon[k], lat[k] = m.lonB[j], m.latB[j]
	}
	return
}

// Cell returns the boundary of cell i as a normalized loop. Repeated
// corners, such as those that collapse at a pole, are dropped; cells left
// with fewer than three distinct corners return nil.
func (m *Curvilinear) Cell(i int) *s2.Loop {
	if !m.HasCorners() {
		return nil
	}
	lon, lat := m.Corners(i)
	pts := make([]s2.Point, 0, 4)
	for k := 0; k < 4; k++ {
		p := lonLatPoint(lon[k], lat[k])
		if len(pts) > 0 && (pts[len(pts)-1].ApproxEqual(p) || pts[0].ApproxEqual(p)) {
			continue
		}
		pts = append(pts, p)
	}
	if len(pts) < 3 {
		return nil
	}
	l := s2.LoopFromPoints(pts)
	// Corner order depends on the grid orientation; make sure the loop
	// encloses the cell rather than its complement.
	l.Normalize()
	return l
}
