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
	"math"

	"github.com/ctessum/geom/index/rtree"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

// quadTol is how far outside [0, 1] a local coordinate may fall and still
// count as inside a quad.
const quadTol = 1e-9

const snapTol = 1e-12

// Quad is the quadrilateral formed by four neighbouring cell centers,
// (ix, iy), (ix+1, iy), (ix+1, iy+1) and (ix, iy+1).
type Quad struct {
	IX, IY int
	// Vertices holds the cell indices of the four centers in the order above.
	Vertices [4]int
}

// QuadIndex locates points within the quads of cell centers of a mesh.
type QuadIndex struct {
	m     Mesh
	nx    int
	tree  *rtree.Rtree
	quads []Quad
}

// NewQuadIndex indexes the center quads of m. Meshes with fewer than two
// cells along either dimension have no quads.
func NewQuadIndex(m Mesh) *QuadIndex {
	nx, ny := m.Shape()
	idx := &QuadIndex{m: m, nx: nx, tree: newTree()}
	if nx < 2 || ny < 2 {
		return idx
	}
	var lons, lats [4]float64
	for iy := 0; iy < ny-1; iy++ {
		for ix := 0; ix < nx-1; ix++ {
			q := Quad{IX: ix, IY: iy, Vertices: [4]int{
				Index(ix, iy, nx), Index(ix+1, iy, nx),
				Index(ix+1, iy+1, nx), Index(ix, iy+1, nx),
			}}
			for k, v := range q.Vertices {
				lons[k], lats[k] = m.CenterLonLat(v)
			}
			idx.tree.Insert(&boxed{b: spanBounds(lons[:], lats[:]), i: len(idx.quads)})
			idx.quads = append(idx.quads, q)
		}
	}
	return idx
}

// Locate finds the quad containing p, located at (lon, lat) degrees, and
// the local coordinates (s, t) of p within it. ok is false if no quad
// contains p.
func (idx *QuadIndex) Locate(p s2.Point, lon, lat float64) (q Quad, s, t float64, ok bool) {
	for _, i := range search(idx.tree, pointBounds(lon, lat)) {
		q = idx.quads[i]
		var v [4]s2.Point
		for k, c := range q.Vertices {
			v[k] = idx.m.Center(c)
		}
		s, t, ok = InverseBilinear(v, p)
		if ok {
			return q, s, t, true
		}
	}
	return Quad{}, 0, 0, false
}

// BilinearWeights returns the weights of the four quad vertices for local
// coordinates (s, t).
func BilinearWeights(s, t float64) [4]float64 {
	return [4]float64{(1 - s) * (1 - t), s * (1 - t), s * t, (1 - s) * t}
}

// Tangent is a gnomonic projection about a point on the sphere. Great
// circles project to straight lines.
type Tangent struct {
	c, e1, e2 r3.Vector
}

// NewTangent returns the gnomonic projection centered on c.
func NewTangent(c s2.Point) Tangent {
	cv := c.Vector.Normalize()
	ref := r3.Vector{X: 0, Y: 0, Z: 1}
	if math.Abs(cv.Dot(ref)) > 0.9 {
		ref = r3.Vector{X: 1, Y: 0, Z: 0}
	}
	e1 := ref.Cross(cv).Normalize()
	e2 := cv.Cross(e1)
	return Tangent{c: cv, e1: e1, e2: e2}
}

// Project returns the planar coordinates of p. ok is false for points on
// or beyond the horizon.
func (tp Tangent) Project(p s2.Point) (x, y float64, ok bool) {
	d := p.Vector.Dot(tp.c)
	if d <= 1e-12 {
		return 0, 0, false
	}
	return p.Vector.Dot(tp.e1) / d, p.Vector.Dot(tp.e2) / d, true
}

// InverseBilinear finds (s, t) such that the bilinear blend of the quad
// vertices v equals p, working in the gnomonic projection about the quad
// center. ok is false if p is outside the quad or the quad is degenerate.
func InverseBilinear(v [4]s2.Point, p s2.Point) (s, t float64, ok bool) {
	var c r3.Vector
	for _, vk := range v {
		c = c.Add(vk.Vector)
	}
	if c.Norm() == 0 {
		return 0, 0, false
	}
	tp := NewTangent(s2.Point{Vector: c})
	var xs, ys [4]float64
	for k, vk := range v {
		var okk bool
		xs[k], ys[k], okk = tp.Project(vk)
		if !okk {
			return 0, 0, false
		}
	}
	px, py, okp := tp.Project(p)
	if !okp {
		return 0, 0, false
	}
	s, t = 0.5, 0.5
	for iter := 0; iter < 50; iter++ {
		w := BilinearWeights(s, t)
		fx := w[0]*xs[0] + w[1]*xs[1] + w[2]*xs[2] + w[3]*xs[3] - px
		fy := w[0]*ys[0] + w[1]*ys[1] + w[2]*ys[2] + w[3]*ys[3] - py
		// Partial derivatives of the blend with respect to s and t.
		dxs := (1-t)*(xs[1]-xs[0]) + t*(xs[2]-xs[3])
		dys := (1-t)*(ys[1]-ys[0]) + t*(ys[2]-ys[3])
		dxt := (1-s)*(xs[3]-xs[0]) + s*(xs[2]-xs[1])
		dyt := (1-s)*(ys[3]-ys[0]) + s*(ys[2]-ys[1])
		det := dxs*dyt - dxt*dys
		if det == 0 || math.IsNaN(det) {
			return 0, 0, false
		}
		ds := (fx*dyt - fy*dxt) / det
		dt := (fy*dxs - fx*dys) / det
		s -= ds
		t -= dt
		if math.Abs(ds) < 1e-15 && math.Abs(dt) < 1e-15 {
			break
		}
	}
	if math.IsNaN(s) || math.IsNaN(t) {
		return 0, 0, false
	}
	if s < -quadTol || s > 1+quadTol || t < -quadTol || t > 1+quadTol {
		return 0, 0, false
	}
	return snap01(s), snap01(t), true
}

// snap01 clamps v to [0, 1] and rounds values within snapTol of either
// end to that end, so points on quad vertices get a single weight.
func snap01(v float64) float64 {
	switch {
	case v < snapTol:
		return 0
	case v > 1-snapTol:
		return 1
	}
	return v
}
