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

package main

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/regrid"
	"github.com/spatialmodel/regrid/array"
)

// netCDF lists dimensions slowest first, so a variable with dimensions
// (time, y, x) holds exactly the bytes of the column-major array of shape
// (x, y, time). The functions here rely on that to move data between files
// and column-major arrays without reordering.

// gridVars names the coordinate variables in grid files.
type gridVars struct {
	Lon, Lat, LonB, LatB string
}

func openCDF(path string) (*os.File, *cdf.File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := cdf.Open(r)
	if err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("reading %s: %v", path, err)
	}
	return r, f, nil
}

func hasVar(f *cdf.File, name string) bool {
	for _, v := range f.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// readVar reads variable name as a column-major array and returns its
// netCDF dimension names.
func readVar(f *cdf.File, name string) (*array.Array, []string, error) {
	if !hasVar(f, name) {
		return nil, nil, fmt.Errorf("missing variable %s", name)
	}
	lengths := f.Header.Lengths(name)
	n := array.Size(lengths)
	data := make([]float64, n)
	if n > 0 {
		if err := readFloats(f, name, data); err != nil {
			return nil, nil, fmt.Errorf("variable %s: %v", name, err)
		}
	}
	shape := make([]int, len(lengths))
	for i, l := range lengths {
		shape[len(lengths)-1-i] = l
	}
	a, err := array.FromSlice(array.ColumnMajor, data, shape...)
	if err != nil {
		return nil, nil, err
	}
	return a, f.Header.Dimensions(name), nil
}

// readFloats reads a floating point or integer variable into data.
func readFloats(f *cdf.File, name string, data []float64) error {
	if _, err := f.Reader(name, nil, nil).Read(data); err == nil {
		return nil
	}
	f32 := make([]float32, len(data))
	if _, err := f.Reader(name, nil, nil).Read(f32); err == nil {
		for i, v := range f32 {
			data[i] = float64(v)
		}
		return nil
	}
	i32 := make([]int32, len(data))
	if _, err := f.Reader(name, nil, nil).Read(i32); err != nil {
		return fmt.Errorf("unsupported type: %v", err)
	}
	for i, v := range i32 {
		data[i] = float64(v)
	}
	return nil
}

// coords2D reads a pair of coordinate variables. Two 1-D variables
// lon(x) and lat(y) describe a rectilinear grid and are expanded to 2-D.
func coords2D(f *cdf.File, lonName, latName string) (lon, lat *array.Array, err error) {
	lon, _, err = readVar(f, lonName)
	if err != nil {
		return nil, nil, err
	}
	lat, _, err = readVar(f, latName)
	if err != nil {
		return nil, nil, err
	}
	if lon.Ndim() != 1 || lat.Ndim() != 1 {
		return lon, lat, nil
	}
	nx, ny := lon.Shape[0], lat.Shape[0]
	lon2 := array.New(array.ColumnMajor, nx, ny)
	lat2 := array.New(array.ColumnMajor, nx, ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			lon2.Set(lon.Data[i], i, j)
			lat2.Set(lat.Data[j], i, j)
		}
	}
	return lon2, lat2, nil
}

// readGrid reads a grid, with corners if the file has them.
func readGrid(path string, names gridVars, opts ...regrid.GridOption) (*regrid.Grid, error) {
	r, f, err := openCDF(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	lon, lat, err := coords2D(f, names.Lon, names.Lat)
	if err != nil {
		return nil, fmt.Errorf("grid %s: %v", path, err)
	}
	g, err := regrid.NewGrid(lon, lat, opts...)
	if err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	if names.LonB == "" || !hasVar(f, names.LonB) || !hasVar(f, names.LatB) {
		return g, nil
	}
	lonB, latB, err := coords2D(f, names.LonB, names.LatB)
	if err != nil {
		return nil, fmt.Errorf("grid %s: %v", path, err)
	}
	if err := g.AddCorners(lonB, latB); err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	return g, nil
}

// field is a variable read from or written to a data file.
type field struct {
	name string
	// dims are the netCDF names of the non-spatial dimensions, slowest
	// first.
	dims []string
	data *array.Array
}

// readField reads a variable whose two fastest-varying dimensions are
// the grid dimensions.
func readField(f *cdf.File, name string) (field, error) {
	a, dims, err := readVar(f, name)
	if err != nil {
		return field{}, err
	}
	if a.Ndim() < 2 {
		return field{}, fmt.Errorf("variable %s has %d dimensions, need at least 2", name, a.Ndim())
	}
	return field{name: name, dims: dims[:len(dims)-2], data: a}, nil
}

// writeFields writes the destination grid's centers and the regridded
// fields to a new netCDF file at path.
func writeFields(path string, g *regrid.Grid, fields []field) error {
	nx, ny := g.Shape()
	dimLen := map[string]int{"x": nx, "y": ny}
	dimNames := []string{"x", "y"}
	for _, fl := range fields {
		extra := fl.data.Shape[2:]
		for i, d := range fl.dims {
			l := extra[len(extra)-1-i]
			if old, ok := dimLen[d]; ok && old != l {
				return fmt.Errorf("dimension %s has lengths %d and %d", d, old, l)
			} else if !ok {
				dimLen[d] = l
				dimNames = append(dimNames, d)
			}
		}
	}
	lengths := make([]int, len(dimNames))
	for i, d := range dimNames {
		lengths[i] = dimLen[d]
	}

	h := cdf.NewHeader(dimNames, lengths)
	h.AddAttribute("", "comment", "regridded data")
	h.AddVariable("lon", []string{"y", "x"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddVariable("lat", []string{"y", "x"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	for _, fl := range fields {
		h.AddVariable(fl.name, append(append([]string(nil), fl.dims...), "y", "x"), []float64{0})
	}
	h.Define()

	w, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		w.Close()
		return err
	}
	lon, lat := g.Centers()
	vars := append([]field{{name: "lon", data: lon}, {name: "lat", data: lat}}, fields...)
	for _, v := range vars {
		if v.data.Len() == 0 {
			continue
		}
		end := f.Header.Lengths(v.name)
		start := make([]int, len(end))
		if _, err := f.Writer(v.name, start, end).Write(v.data.AsOrder(array.ColumnMajor).Data); err != nil {
			w.Close()
			return fmt.Errorf("writing variable %s: %v", v.name, err)
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
