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

package weights

import (
	"errors"
	"fmt"
	"os"

	"github.com/ctessum/cdf"
)

// ErrExists is returned when a weight file would overwrite an existing file.
var ErrExists = errors.New("weights: weight file already exists")

// Meta describes the grids and method a weight file was computed for.
// Coordinates are cell centers in degrees, column-major.
type Meta struct {
	Method             string
	SrcShape, DstShape [2]int
	SrcLon, SrcLat     []float64
	DstLon, DstLat     []float64
}

// mapMethod is the human-readable method description stored in the
// map_method attribute, following the ESMF offline weight file layout.
var mapMethod = map[string]string{
	"bilinear":     "Bilinear remapping",
	"conservative": "Conservative remapping",
	"patch":        "Higher-order patch recovery",
	"nearest_s2d":  "Nearest source to destination",
	"nearest_d2s":  "Nearest destination to source",
}

// WriteFile writes m to a new netCDF weight file at path. It fails with
// ErrExists, without touching the file, if path already exists.
func WriteFile(path string, m *Matrix, meta Meta) error {
	w, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("weights: creating %s: %v", path, err)
	}
	if err = write(w, m, meta); err != nil {
		w.Close()
		os.Remove(path)
		return fmt.Errorf("weights: writing %s: %v", path, err)
	}
	return w.Close()
}

func write(w *os.File, m *Matrix, meta Meta) error {
	rows, cols, vals := m.Triplets()
	nnz := len(vals)

	h := cdf.NewHeader(
		[]string{"n_a", "n_b", "n_s", "src_grid_rank", "dst_grid_rank"},
		[]int{m.NSrc, m.NDst, nnz, 2, 2})
	h.AddAttribute("", "title", "regrid offline weights")
	h.AddAttribute("", "map_method", mapMethod[meta.Method])
	h.AddAttribute("", "regrid_method", meta.Method)
	norm := "none"
	if meta.Method == "conservative" {
		norm = "destarea"
	}
	h.AddAttribute("", "normalization", norm)
	h.AddAttribute("", "conventions", "NCAR-CSM")

	h.AddVariable("src_grid_dims", []string{"src_grid_rank"}, []int32{0})
	h.AddVariable("dst_grid_dims", []string{"dst_grid_rank"}, []int32{0})
	for _, v := range []struct{ name, dim, desc string }{
		{"xc_a", "n_a", "source cell center longitude"},
		{"yc_a", "n_a", "source cell center latitude"},
		{"xc_b", "n_b", "destination cell center longitude"},
		{"yc_b", "n_b", "destination cell center latitude"},
	} {
		h.AddVariable(v.name, []string{v.dim}, []float64{0})
		h.AddAttribute(v.name, "units", "degrees")
		h.AddAttribute(v.name, "description", v.desc)
	}
	h.AddVariable("row", []string{"n_s"}, []int32{0})
	h.AddVariable("col", []string{"n_s"}, []int32{0})
	h.AddVariable("S", []string{"n_s"}, []float64{0})
	h.AddAttribute("row", "description", "1-based destination cell index")
	h.AddAttribute("col", "description", "1-based source cell index")
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}

	row32 := make([]int32, nnz)
	col32 := make([]int32, nnz)
	for n := range rows {
		row32[n] = int32(rows[n] + 1)
		col32[n] = int32(cols[n] + 1)
	}
	data := []struct {
		name string
		v    interface{}
		n    int
	}{
		{"src_grid_dims", []int32{int32(meta.SrcShape[0]), int32(meta.SrcShape[1])}, 2},
		{"dst_grid_dims", []int32{int32(meta.DstShape[0]), int32(meta.DstShape[1])}, 2},
		{"xc_a", meta.SrcLon, len(meta.SrcLon)},
		{"yc_a", meta.SrcLat, len(meta.SrcLat)},
		{"xc_b", meta.DstLon, len(meta.DstLon)},
		{"yc_b", meta.DstLat, len(meta.DstLat)},
		{"row", row32, nnz},
		{"col", col32, nnz},
		{"S", vals, nnz},
	}
	for _, d := range data {
		if d.n == 0 {
			continue
		}
		if err := writeVar(f, d.name, d.v); err != nil {
			return fmt.Errorf("variable %s: %v", d.name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeVar(f *cdf.File, name string, data interface{}) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	_, err := f.Writer(name, start, end).Write(data)
	return err
}

// ReadFile reads a weight file written by WriteFile.
func ReadFile(path string) (*Matrix, *Meta, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("weights: %v", err)
	}
	defer r.Close()
	f, err := cdf.Open(r)
	if err != nil {
		return nil, nil, fmt.Errorf("weights: reading %s: %v", path, err)
	}
	meta := new(Meta)
	if method, ok := f.Header.GetAttribute("", "regrid_method").(string); ok {
		meta.Method = method
	}

	nSrc := f.Header.Lengths("xc_a")[0]
	nDst := f.Header.Lengths("xc_b")[0]
	nnz := f.Header.Lengths("S")[0]

	srcDims := make([]int32, 2)
	dstDims := make([]int32, 2)
	meta.SrcLon = make([]float64, nSrc)
	meta.SrcLat = make([]float64, nSrc)
	meta.DstLon = make([]float64, nDst)
	meta.DstLat = make([]float64, nDst)
	row32 := make([]int32, nnz)
	col32 := make([]int32, nnz)
	vals := make([]float64, nnz)
	for _, d := range []struct {
		name string
		buf  interface{}
		n    int
	}{
		{"src_grid_dims", srcDims, 2},
		{"dst_grid_dims", dstDims, 2},
		{"xc_a", meta.SrcLon, nSrc},
		{"yc_a", meta.SrcLat, nSrc},
		{"xc_b", meta.DstLon, nDst},
		{"yc_b", meta.DstLat, nDst},
		{"row", row32, nnz},
		{"col", col32, nnz},
		{"S", vals, nnz},
	} {
		if d.n == 0 {
			continue
		}
		if _, err := f.Reader(d.name, nil, nil).Read(d.buf); err != nil {
			return nil, nil, fmt.Errorf("weights: reading %s from %s: %v", d.name, path, err)
		}
	}
	meta.SrcShape = [2]int{int(srcDims[0]), int(srcDims[1])}
	meta.DstShape = [2]int{int(dstDims[0]), int(dstDims[1])}

	rows := make([]int, nnz)
	cols := make([]int, nnz)
	for n := range rows {
		rows[n] = int(row32[n]) - 1
		cols[n] = int(col32[n]) - 1
	}
	m, err := FromTriplets(nSrc, nDst, rows, cols, vals)
	if err != nil {
		return nil, nil, fmt.Errorf("weights: reading %s: %v", path, err)
	}
	return m, meta, nil
}
