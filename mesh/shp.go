/*
Copyright (C) 2012-2014 the InMAP authors.
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
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
)

// WriteToShp writes the cell outlines of m to shapefile name.shp in
// directory outdir, with the grid indices of each cell as attributes.
// Existing files with the same name are replaced.
func (m *Curvilinear) WriteToShp(outdir, name string) error {
	if !m.HasCorners() {
		return fmt.Errorf("mesh: writing %s: cell corners are required", name)
	}
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(filepath.Join(outdir, name+ext))
	}
	fields := make([]goshp.Field, 2)
	fields[0] = goshp.NumberField("ix", 10)
	fields[1] = goshp.NumberField("iy", 10)
	shpf, err := shp.NewEncoderFromFields(filepath.Join(outdir, name+".shp"),
		goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("mesh: writing %s: %v", name, err)
	}
	defer shpf.Close()
	for i := 0; i < m.Len(); i++ {
		lon, lat := m.Corners(i)
		path := make(geom.Path, 0, 5)
		for k := 0; k < 4; k++ {
			path = append(path, geom.Point{X: lon[k], Y: lat[k]})
		}
		path = append(path, path[0])
		ix, iy := Unravel(i, m.nx)
		if err := shpf.EncodeFields(geom.Polygon([]geom.Path{path}), ix, iy); err != nil {
			return fmt.Errorf("mesh: writing %s: %v", name, err)
		}
	}
	return nil
}
