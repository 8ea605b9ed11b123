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
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spatialmodel/regrid/array"
	"github.com/spatialmodel/regrid/engine"
	"github.com/spatialmodel/regrid/mesh"
	"github.com/spatialmodel/regrid/weights"
)

// regularGrid returns an nx by ny grid of d-degree cells whose first cell
// is centered at (lon0, lat0).
func regularGrid(t *testing.T, nx, ny int, lon0, lat0, d float64, corners bool) *Grid {
	t.Helper()
	lon := array.New(array.ColumnMajor, nx, ny)
	lat := array.New(array.ColumnMajor, nx, ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			lon.Set(lon0+float64(i)*d, i, j)
			lat.Set(lat0+float64(j)*d, i, j)
		}
	}
	g, err := NewGrid(lon, lat)
	require.NoError(t, err)
	if corners {
		lonB := array.New(array.ColumnMajor, nx+1, ny+1)
		latB := array.New(array.ColumnMajor, nx+1, ny+1)
		for i := 0; i <= nx; i++ {
			for j := 0; j <= ny; j++ {
				lonB.Set(lon0+(float64(i)-0.5)*d, i, j)
				latB.Set(lat0+(float64(j)-0.5)*d, i, j)
			}
		}
		require.NoError(t, g.AddCorners(lonB, latB))
	}
	return g
}

func TestNewGrid(t *testing.T) {
	for _, shape := range [][2]int{{1, 1}, {2, 3}, {4, 5}, {7, 2}} {
		g := regularGrid(t, shape[0], shape[1], 0, 0, 1, false)
		nx, ny := g.Shape()
		assert.Equal(t, shape, [2]int{nx, ny})
		assert.Equal(t, shape[0]*shape[1], g.Len())
		assert.False(t, g.HasCorners())
	}
}

func TestNewGridShapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat *array.Array
	}{
		{"different shapes", array.New(array.ColumnMajor, 2, 3), array.New(array.ColumnMajor, 3, 2)},
		{"1-d", array.New(array.ColumnMajor, 6), array.New(array.ColumnMajor, 6)},
		{"3-d", array.New(array.ColumnMajor, 2, 3, 1), array.New(array.ColumnMajor, 2, 3, 1)},
		{"nil", nil, array.New(array.ColumnMajor, 2, 2)},
		{"short data",
			&array.Array{Order: array.ColumnMajor, Shape: []int{2, 2}, Data: []float64{10, 11}},
			array.New(array.ColumnMajor, 2, 2)},
		{"long data", array.New(array.ColumnMajor, 2, 2),
			&array.Array{Order: array.RowMajor, Shape: []int{2, 2}, Data: make([]float64, 5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.lon, tt.lat)
			var se *ShapeError
			require.True(t, errors.As(err, &se), "%v", err)
			assert.True(t, errors.Is(err, ErrShape))
		})
	}
}

func TestNewGridRowMajorWarns(t *testing.T) {
	log, hook := test.NewNullLogger()
	lon := array.New(array.ColumnMajor, 2, 2).AsOrder(array.RowMajor)
	lat := array.New(array.ColumnMajor, 2, 2)
	lon.Set(5, 1, 0)
	g, err := NewGrid(lon, lat, WithGridLogger(log))
	require.NoError(t, err)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, array.ContiguityWarning, hook.LastEntry().Message)
	assert.Equal(t, "lon", hook.LastEntry().Data["array"])

	// The grid is stored column-major regardless.
	c, _ := g.Centers()
	assert.Equal(t, array.ColumnMajor, c.Order)
	assert.Equal(t, 5.0, c.Get(1, 0))
}

func TestNewGridCopiesInput(t *testing.T) {
	lon := array.New(array.ColumnMajor, 2, 2)
	lat := array.New(array.ColumnMajor, 2, 2)
	g, err := NewGrid(lon, lat)
	require.NoError(t, err)
	lon.Set(10, 0, 0)
	c, _ := g.Centers()
	assert.Equal(t, 0.0, c.Get(0, 0))
}

func TestNewGridFromDense(t *testing.T) {
	lon := sparse.ZerosDense(2, 3)
	lat := sparse.ZerosDense(2, 3)
	lon.Set(7, 1, 2)
	g, err := NewGridFromDense(lon, lat)
	require.NoError(t, err)
	nx, ny := g.Shape()
	assert.Equal(t, [2]int{2, 3}, [2]int{nx, ny})
	c, _ := g.Centers()
	assert.Equal(t, 7.0, c.Get(1, 2))
}

func TestAddCorners(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int
		wantErr bool
	}{
		{"(5,6)", []int{5, 6}, false},
		{"(5,5)", []int{5, 5}, true},
		{"(4,5)", []int{4, 5}, true},
		{"(6,7)", []int{6, 7}, true},
		{"3-d", []int{5, 6, 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := regularGrid(t, 4, 5, 0, 0, 1, false)
			err := g.AddCorners(array.New(array.ColumnMajor, tt.shape...), array.New(array.ColumnMajor, tt.shape...))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.True(t, g.HasCorners())
				return
			}
			var se *ShapeError
			require.True(t, errors.As(err, &se), "%v", err)
			assert.False(t, g.HasCorners())
		})
	}
}

func TestAddCornersMismatchedPair(t *testing.T) {
	g := regularGrid(t, 4, 5, 0, 0, 1, false)
	err := g.AddCorners(array.New(array.ColumnMajor, 5, 6), array.New(array.ColumnMajor, 6, 5))
	assert.True(t, errors.Is(err, ErrShape))
}

func TestAddCornersTwice(t *testing.T) {
	g := regularGrid(t, 2, 2, 0, 0, 1, true)
	before, _ := g.Corners()
	err := g.AddCorners(array.New(array.ColumnMajor, 3, 3), array.New(array.ColumnMajor, 3, 3))
	assert.True(t, errors.Is(err, ErrCornersAttached))
	after, _ := g.Corners()
	assert.Equal(t, before.Data, after.Data)
}

func TestBuildInvalidMethod(t *testing.T) {
	g := regularGrid(t, 2, 2, 0, 0, 1, false)
	_, err := BuildNamed(g, g, "not_a_method")
	var ime *InvalidMethodError
	require.True(t, errors.As(err, &ime))
	assert.Equal(t, "not_a_method", ime.Method)
	assert.Contains(t, err.Error(), "nearest_d2s")
	assert.True(t, errors.Is(err, ErrInvalidMethod))

	_, err = Build(g, g, Method(99))
	assert.True(t, errors.As(err, &ime))
}

func TestBuildMissingCorners(t *testing.T) {
	with := regularGrid(t, 2, 2, 0.5, 0.5, 1, true)
	without := regularGrid(t, 2, 2, 0.5, 0.5, 1, false)

	var mce *MissingCornersError
	_, err := Build(without, with, Conservative)
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "source", mce.Grid)

	_, err = Build(with, without, Conservative)
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "destination", mce.Grid)
	assert.True(t, errors.Is(err, ErrMissingCorners))

	// The same grids without corners are fine for point methods.
	_, err = Build(without, without, Bilinear)
	require.NoError(t, err)

	lonB, latB := with.Corners()
	require.NoError(t, without.AddCorners(lonB, latB))
	op, err := Build(without, with, Conservative)
	require.NoError(t, err)
	require.NoError(t, op.Finalize())
}

func TestBuildWeightFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.nc")
	require.NoError(t, os.WriteFile(path, []byte("do not touch"), 0644))
	g := regularGrid(t, 2, 2, 0, 0, 1, false)

	_, err := Build(g, g, Bilinear, WithWeightFile(path))
	var wfe *WeightFileExistsError
	require.True(t, errors.As(err, &wfe))
	assert.Equal(t, path, wfe.Path)
	assert.True(t, errors.Is(err, ErrWeightFileExists))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "do not touch", string(b))
}

func TestBuildExtraDimsPositive(t *testing.T) {
	g := regularGrid(t, 2, 2, 0, 0, 1, false)
	_, err := Build(g, g, Bilinear, WithExtraDims(3, 0))
	assert.True(t, errors.Is(err, ErrShape))
}

func TestBilinearScenario(t *testing.T) {
	g := regularGrid(t, 2, 2, 10, 45, 1, false)
	op, err := Build(g, g, Bilinear)
	require.NoError(t, err)
	in, err := array.FromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	out, err := op.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, out.Shape)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, in.Get(i, j), out.Get(i, j), 1e-9)
		}
	}
}

func TestApplyDataLength(t *testing.T) {
	g := regularGrid(t, 2, 2, 10, 45, 1, false)
	op, err := Build(g, g, Bilinear)
	require.NoError(t, err)
	in, err := array.FromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	_, err = op.Apply(in)
	require.NoError(t, err)

	for _, bad := range []*array.Array{
		{Order: array.ColumnMajor, Shape: []int{2, 2}, Data: []float64{9, 9, 9}},
		{Order: array.RowMajor, Shape: []int{2, 2}, Data: []float64{9, 9, 9, 9, 9}},
	} {
		out, err := op.Apply(bad)
		assert.Nil(t, out)
		var se *ShapeError
		assert.True(t, errors.As(err, &se), "%v", err)
	}
}

func TestIdentityApplyTwice(t *testing.T) {
	g := regularGrid(t, 4, 3, -20, 30, 2, false)
	in := array.New(array.ColumnMajor, 4, 3)
	for n := range in.Data {
		in.Data[n] = float64(n*n) - 3
	}
	for _, method := range []Method{Bilinear, NearestS2D, NearestD2S} {
		t.Run(method.String(), func(t *testing.T) {
			op, err := Build(g, g, method)
			require.NoError(t, err)
			defer op.Finalize()
			for k := 0; k < 2; k++ {
				out, err := op.Apply(in)
				require.NoError(t, err)
				for n := range in.Data {
					assert.InDelta(t, in.Data[n], out.Data[n], 1e-9)
				}
			}
		})
	}
}

func TestExtraDims(t *testing.T) {
	src := regularGrid(t, 3, 2, 0, 0, 1, false)
	dst := regularGrid(t, 3, 2, 0, 0, 1, false)
	op, err := Build(src, dst, NearestS2D, WithExtraDims(3, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, op.ExtraDims())

	for _, shape := range [][]int{{3, 2}, {3, 2, 3}, {3, 2, 2, 3}, {3, 2, 3, 2, 1}, {2, 3, 3, 2}} {
		_, err := op.Apply(array.New(array.ColumnMajor, shape...))
		var se *ShapeError
		require.True(t, errors.As(err, &se), "shape %v", shape)
		assert.Equal(t, []int{3, 2, 3, 2}, se.Want)
	}

	in := array.New(array.ColumnMajor, 3, 2, 3, 2)
	for n := range in.Data {
		in.Data[n] = float64(n)
	}
	out, err := op.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 3, 2}, out.Shape)
	assert.Equal(t, in.Data, out.Data)
}

func TestApplyRowMajor(t *testing.T) {
	log, hook := test.NewNullLogger()
	g := regularGrid(t, 3, 2, 0, 0, 1, false)
	op, err := Build(g, g, NearestS2D, WithExtraDims(2), WithLogger(log))
	require.NoError(t, err)
	hook.Reset()

	in := array.New(array.RowMajor, 3, 2, 2)
	in.Set(4, 2, 1, 1)
	out, err := op.Apply(in)
	require.NoError(t, err)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, array.ContiguityWarning, hook.LastEntry().Message)
	assert.Equal(t, array.ColumnMajor, out.Order)
	assert.Equal(t, 4.0, out.Get(2, 1, 1))

	hook.Reset()
	_, err = op.Apply(in.AsOrder(array.ColumnMajor))
	require.NoError(t, err)
	assert.Empty(t, hook.AllEntries())
}

func TestApplyDense(t *testing.T) {
	g := regularGrid(t, 3, 2, 0, 0, 1, false)
	op, err := Build(g, g, Bilinear)
	require.NoError(t, err)
	in := sparse.ZerosDense(3, 2)
	in.Set(2.5, 2, 0)
	out, err := op.ApplyDense(in)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, out.Shape)
	assert.InDelta(t, 2.5, out.Get(2, 0), 1e-9)
	assert.InDelta(t, 0, out.Get(0, 1), 1e-9)
}

func TestUnmappedCellsKeepFill(t *testing.T) {
	src := regularGrid(t, 2, 1, 0, 0, 3, false)
	dst := regularGrid(t, 4, 1, 0, 0, 1, false)
	in, err := array.FromRows([][]float64{{7}, {9}})
	require.NoError(t, err)

	op, err := Build(src, dst, NearestD2S)
	require.NoError(t, err)
	unmapped, err := op.Unmapped()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, unmapped)
	out, err := op.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, 7.0, out.Data[0])
	assert.True(t, math.IsNaN(out.Data[1]))
	assert.True(t, math.IsNaN(out.Data[2]))
	assert.Equal(t, 9.0, out.Data[3])

	op, err = Build(src, dst, NearestD2S, WithUnmappedFill(-999))
	require.NoError(t, err)
	out, err = op.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, -999, -999, 9}, out.Data)
}

func TestConservativeIdentity(t *testing.T) {
	g := regularGrid(t, 3, 2, 0.5, 0.5, 1, true)
	op, err := Build(g, g, Conservative)
	require.NoError(t, err)
	in := array.New(array.ColumnMajor, 3, 2)
	for n := range in.Data {
		in.Data[n] = float64(n + 1)
	}
	out, err := op.Apply(in)
	require.NoError(t, err)
	for n := range in.Data {
		assert.InDelta(t, in.Data[n], out.Data[n], 1e-9)
	}
}

func TestFinalize(t *testing.T) {
	g := regularGrid(t, 2, 2, 0, 0, 1, false)
	op, err := Build(g, g, Bilinear)
	require.NoError(t, err)
	in, err := array.FromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	out, err := op.Apply(in)
	require.NoError(t, err)
	kept := append([]float64(nil), out.Data...)

	assert.False(t, op.Finalized())
	require.NoError(t, op.Finalize())
	assert.True(t, op.Finalized())
	assert.True(t, op.SourceReleased())
	assert.True(t, op.DestinationReleased())
	assert.True(t, op.MappingReleased())

	_, err = op.Apply(in)
	var uaf *UseAfterFinalizeError
	require.True(t, errors.As(err, &uaf))
	assert.Equal(t, "Apply", uaf.Op)
	assert.True(t, errors.Is(err, ErrFinalized))

	_, err = op.Weights()
	assert.True(t, errors.Is(err, ErrFinalized))
	_, err = op.Unmapped()
	assert.True(t, errors.Is(err, ErrFinalized))
	assert.True(t, errors.Is(op.Finalize(), ErrFinalized))

	// Earlier output is a copy and survives.
	assert.Equal(t, kept, out.Data)
}

func TestWeightFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.nc")
	src := regularGrid(t, 4, 3, 0, 0, 1, false)
	dst := regularGrid(t, 3, 2, 0.5, 0.5, 1, false)
	op, err := Build(src, dst, Bilinear, WithWeightFile(path), WithExtraDims(2))
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadWeights(path, src, dst, WithExtraDims(2))
	require.NoError(t, err)
	assert.Equal(t, Bilinear, loaded.Method())

	in := array.New(array.ColumnMajor, 4, 3, 2)
	for n := range in.Data {
		in.Data[n] = math.Sin(float64(n))
	}
	want, err := op.Apply(in)
	require.NoError(t, err)
	got, err := loaded.Apply(in)
	require.NoError(t, err)
	for n := range want.Data {
		assert.InDelta(t, want.Data[n], got.Data[n], 1e-12)
	}

	_, err = LoadWeights(path, dst, src)
	assert.True(t, errors.Is(err, ErrShape))

	// A second build to the same path must not overwrite it.
	_, err = Build(src, dst, Bilinear, WithWeightFile(path))
	assert.True(t, errors.Is(err, ErrWeightFileExists))
}

func TestBuildAll(t *testing.T) {
	a := regularGrid(t, 3, 3, 0, 0, 1, false)
	b := regularGrid(t, 2, 2, 0.5, 0.5, 1, false)
	ops, err := BuildAll(context.Background(), []Pair{
		{Src: a, Dst: b, Method: Bilinear},
		{Src: a, Dst: a, Method: NearestS2D, Options: []BuildOption{WithExtraDims(2)}},
		{Src: b, Dst: a, Method: NearestD2S},
	})
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, Bilinear, ops[0].Method())
	assert.Equal(t, []int{2, 2}, ops[0].DestinationShape())
	assert.Equal(t, NearestS2D, ops[1].Method())
	assert.Equal(t, []int{3, 3, 2}, ops[1].SourceShape())
	assert.Equal(t, NearestD2S, ops[2].Method())

	_, err = BuildAll(context.Background(), []Pair{
		{Src: a, Dst: b, Method: Bilinear},
		{Src: a, Dst: b, Method: Conservative},
	})
	var mce *MissingCornersError
	assert.True(t, errors.As(err, &mce))
}

func TestWeightCache(t *testing.T) {
	c := NewWeightCache(10)
	a := regularGrid(t, 3, 3, 0, 0, 1, false)
	b := regularGrid(t, 2, 2, 0.5, 0.5, 1, false)
	b2 := regularGrid(t, 2, 2, 0.5, 0.5, 1, false)

	op1, err := Build(a, b, Bilinear, WithCache(c))
	require.NoError(t, err)
	op2, err := Build(a, b2, Bilinear, WithCache(c), WithExtraDims(4))
	require.NoError(t, err)
	op3, err := Build(a, b, NearestS2D, WithCache(c))
	require.NoError(t, err)

	w1, err := op1.Weights()
	require.NoError(t, err)
	w2, err := op2.Weights()
	require.NoError(t, err)
	w3, err := op3.Weights()
	require.NoError(t, err)
	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)

	// Finalizing one operator leaves the shared weights usable by another.
	require.NoError(t, op1.Finalize())
	_, err = op2.Apply(array.New(array.ColumnMajor, 3, 3, 4))
	require.NoError(t, err)
}

func TestWeightCacheEngineOptions(t *testing.T) {
	c := NewWeightCache(10)
	src := regularGrid(t, 3, 3, 0, 0, 1, false)
	dst := regularGrid(t, 5, 5, -1, -1, 1, false)

	op, err := Build(src, dst, Bilinear, WithCache(c))
	require.NoError(t, err)
	unmapped, err := op.Unmapped()
	require.NoError(t, err)
	assert.Len(t, unmapped, 16)

	strict := engine.NewNative(&engine.Options{Unmapped: engine.UnmappedError})
	_, err = Build(src, dst, Bilinear, WithCache(c), WithEngine(strict))
	assert.True(t, errors.Is(err, engine.ErrUnmapped), "%v", err)

	fine := engine.NewNative(&engine.Options{CoverLevel: 12})
	assert.NotEqual(t, fine.Key(), engine.NewNative(nil).Key())
}

// countingEngine counts weight computations and has no Key method.
type countingEngine struct {
	n   int32
	eng engine.Engine
}

func (e *countingEngine) Weights(src, dst mesh.Mesh, method engine.Method) (*weights.Matrix, error) {
	atomic.AddInt32(&e.n, 1)
	return e.eng.Weights(src, dst, method)
}

func TestWeightCacheSkipsUnkeyedEngines(t *testing.T) {
	c := NewWeightCache(10)
	g := regularGrid(t, 3, 3, 0, 0, 1, false)
	e := &countingEngine{eng: engine.NewNative(nil)}
	for i := 0; i < 2; i++ {
		op, err := Build(g, g, Bilinear, WithCache(c), WithEngine(e))
		require.NoError(t, err)
		require.NoError(t, op.Finalize())
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&e.n))
}

// wrongSizeEngine returns a matrix that does not fit the grids.
type wrongSizeEngine struct{}

func (wrongSizeEngine) Weights(src, dst mesh.Mesh, _ engine.Method) (*weights.Matrix, error) {
	return weights.NewBuilder(src.Len()+1, dst.Len()).Build(), nil
}

func TestBuildRejectedMatrixWritesNoFile(t *testing.T) {
	g := regularGrid(t, 2, 2, 0, 0, 1, false)
	path := filepath.Join(t.TempDir(), "w.nc")
	_, err := Build(g, g, Bilinear, WithEngine(wrongSizeEngine{}), WithWeightFile(path))
	var se *ShapeError
	require.True(t, errors.As(err, &se), "%v", err)
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "%v", err)
}

func TestNewRegularGrid(t *testing.T) {
	g, err := NewRegularGrid(10, 14, 1, -2, 2, 2)
	require.NoError(t, err)
	nx, ny := g.Shape()
	assert.Equal(t, [2]int{4, 2}, [2]int{nx, ny})
	require.True(t, g.HasCorners())
	lon, lat := g.Centers()
	assert.Equal(t, 10.5, lon.Get(0, 1))
	assert.Equal(t, 1.0, lat.Get(0, 1))
	lonB, latB := g.Corners()
	assert.Equal(t, []int{5, 3}, lonB.Shape)
	assert.Equal(t, 14.0, lonB.Get(4, 0))
	assert.Equal(t, 2.0, latB.Get(0, 2))

	_, err = NewRegularGrid(0, 3, 2, 0, 2, 1)
	assert.Error(t, err)
	_, err = NewRegularGrid(0, 2, 1, 2, 0, 1)
	assert.Error(t, err)

	global, err := NewGlobalGrid(30, 30)
	require.NoError(t, err)
	nx, ny = global.Shape()
	assert.Equal(t, [2]int{12, 6}, [2]int{nx, ny})
}

func TestConservativeCoarsening(t *testing.T) {
	fine, err := NewRegularGrid(0, 4, 1, 0, 2, 1)
	require.NoError(t, err)
	coarse, err := NewRegularGrid(0, 4, 2, 0, 2, 2)
	require.NoError(t, err)
	op, err := Build(fine, coarse, Conservative)
	require.NoError(t, err)
	w, err := op.Weights()
	require.NoError(t, err)
	for r, s := range w.RowSums() {
		assert.InDelta(t, 1, s, 1e-9, "row %d", r)
	}
	in := array.New(array.ColumnMajor, 4, 2)
	for n := range in.Data {
		in.Data[n] = 3
	}
	out, err := op.Apply(in)
	require.NoError(t, err)
	assert.InDelta(t, 3, out.Data[0], 1e-9)
	assert.InDelta(t, 3, out.Data[1], 1e-9)
}
