/*
Copyright © 2017 the InMAP authors.
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
	"math"

	"github.com/spatialmodel/regrid/array"
)

// NewRegularGrid creates a rectilinear grid, with corners, whose cells are
// dLon by dLat degrees. The cell edges run from lon0B to lon1B and from
// lat0B to lat1B; each span must be a whole number of cells.
func NewRegularGrid(lon0B, lon1B, dLon, lat0B, lat1B, dLat float64, opts ...GridOption) (*Grid, error) {
	nx, err := cellCount("longitude", lon0B, lon1B, dLon)
	if err != nil {
		return nil, err
	}
	ny, err := cellCount("latitude", lat0B, lat1B, dLat)
	if err != nil {
		return nil, err
	}
	lon := array.New(array.ColumnMajor, nx, ny)
	lat := array.New(array.ColumnMajor, nx, ny)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			lon.Set(lon0B+(float64(ix)+0.5)*dLon, ix, iy)
			lat.Set(lat0B+(float64(iy)+0.5)*dLat, ix, iy)
		}
	}
	lonB := array.New(array.ColumnMajor, nx+1, ny+1)
	latB := array.New(array.ColumnMajor, nx+1, ny+1)
	for iy := 0; iy <= ny; iy++ {
		for ix := 0; ix <= nx; ix++ {
			lonB.Set(lon0B+float64(ix)*dLon, ix, iy)
			latB.Set(lat0B+float64(iy)*dLat, ix, iy)
		}
	}
	g, err := NewGrid(lon, lat, opts...)
	if err != nil {
		return nil, err
	}
	if err := g.AddCorners(lonB, latB); err != nil {
		return nil, err
	}
	return g, nil
}

// NewGlobalGrid creates a regular grid covering the whole sphere, with
// the first cell edge at 180°W and 90°S.
func NewGlobalGrid(dLon, dLat float64, opts ...GridOption) (*Grid, error) {
	return NewRegularGrid(-180, 180, dLon, -90, 90, dLat, opts...)
}

func cellCount(what string, b0, b1, d float64) (int, error) {
	if d <= 0 || b1 <= b0 {
		return 0, fmt.Errorf("regrid: invalid %s span [%g, %g] with spacing %g", what, b0, b1, d)
	}
	n := (b1 - b0) / d
	r := math.Round(n)
	if math.Abs(n-r) > 1e-6 {
		return 0, fmt.Errorf("regrid: %s span [%g, %g] is not a multiple of %g", what, b0, b1, d)
	}
	return int(r), nil
}
