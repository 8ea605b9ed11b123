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
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	"github.com/golang/geo/s2"
)

// pad is the half-width in degrees given to point bounds so that they
// have a non-zero extent in the index.
const pad = 1e-9

// maxLevel is the finest s2 cell level.
const maxLevel = 30

// boxed is an index entry: a bounding box in degrees plus the index of
// the mesh element it belongs to.
type boxed struct {
	b *geom.Bounds
	i int
}

func (x *boxed) Bounds() *geom.Bounds                           { return x.b }
func (x *boxed) Similar(geom.Geom, float64) bool                { panic("not implemented") }
func (x *boxed) Transform(proj.Transformer) (geom.Geom, error) { panic("not implemented") }
func (x *boxed) Len() int                                       { panic("not implemented") }
func (x *boxed) Points() func() geom.Point                      { panic("not implemented") }

func newTree() *rtree.Rtree { return rtree.NewTree(25, 50) }

// search returns the sorted, de-duplicated indices of the entries in
// tree that intersect any of bs.
func search(tree *rtree.Rtree, bs ...*geom.Bounds) []int {
	seen := make(map[int]bool)
	var out []int
	for _, b := range bs {
		for _, g := range tree.SearchIntersect(b) {
			i := g.(*boxed).i
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	sort.Ints(out)
	return out
}

// normalizeLon maps a longitude in degrees onto [-180, 180).
func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func box(lonMin, latMin, lonMax, latMax float64) *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: lonMin, Y: latMin},
		Max: geom.Point{X: lonMax, Y: latMax},
	}
}

func pointBounds(lon, lat float64) *geom.Bounds {
	lon = normalizeLon(lon)
	return box(lon-pad, lat-pad, lon+pad, lat+pad)
}

// spanBounds returns the bounds of a set of coordinates. Sets that
// straddle the antimeridian get the full longitude range.
func spanBounds(lons, lats []float64) *geom.Bounds {
	lonMin, lonMax := math.Inf(1), math.Inf(-1)
	latMin, latMax := math.Inf(1), math.Inf(-1)
	for k := range lons {
		lon := normalizeLon(lons[k])
		lonMin, lonMax = math.Min(lonMin, lon), math.Max(lonMax, lon)
		latMin, latMax = math.Min(latMin, lats[k]), math.Max(latMax, lats[k])
	}
	if lonMax-lonMin > 180 {
		lonMin, lonMax = -180, 180
	}
	return box(lonMin-pad, latMin-pad, lonMax+pad, latMax+pad)
}

// rectBounds converts an s2 bounding rectangle into degree bounds.
func rectBounds(r s2.Rect) *geom.Bounds {
	latMin, latMax := r.Lo().Lat.Degrees(), r.Hi().Lat.Degrees()
	lonMin, lonMax := r.Lo().Lng.Degrees(), r.Hi().Lng.Degrees()
	if r.Lng.IsInverted() || r.Lng.IsFull() {
		lonMin, lonMax = -180, 180
	}
	return box(lonMin-pad, latMin-pad, lonMax+pad, latMax+pad)
}

// capBounds returns the bounds of all points within angular radius r
// (degrees) of (lon, lat). Ranges crossing the antimeridian are split.
func capBounds(lon, lat, r float64) []*geom.Bounds {
	latMin, latMax := lat-r, lat+r
	if latMax >= 90 || latMin <= -90 || r >= 90 {
		return []*geom.Bounds{box(-180, math.Max(latMin, -90), 180, math.Min(latMax, 90))}
	}
	s := math.Sin(r*math.Pi/180) / math.Cos(lat*math.Pi/180)
	if s >= 1 {
		return []*geom.Bounds{box(-180, latMin, 180, latMax)}
	}
	dlon := math.Asin(s) * 180 / math.Pi
	lon = normalizeLon(lon)
	lo, hi := lon-dlon, lon+dlon
	switch {
	case lo < -180:
		return []*geom.Bounds{box(-180, latMin, hi, latMax), box(lo+360, latMin, 180, latMax)}
	case hi > 180:
		return []*geom.Bounds{box(lo, latMin, 180, latMax), box(-180, latMin, hi-360, latMax)}
	default:
		return []*geom.Bounds{box(lo, latMin, hi, latMax)}
	}
}

// PointIndex finds the cell centers of a mesh closest to a query point.
type PointIndex struct {
	m    Mesh
	tree *rtree.Rtree
	r0   float64 // initial search radius, degrees
}

// NewPointIndex indexes the cell centers of m.
func NewPointIndex(m Mesh) *PointIndex {
	idx := &PointIndex{m: m, tree: newTree()}
	for i := 0; i < m.Len(); i++ {
		lon, lat := m.CenterLonLat(i)
		idx.tree.Insert(&boxed{b: pointBounds(lon, lat), i: i})
	}
	// Typical center spacing if the centers were spread over the sphere.
	idx.r0 = 2 * math.Sqrt(4*math.Pi/math.Max(float64(m.Len()), 1)) * 180 / math.Pi
	if idx.r0 > 90 {
		idx.r0 = 90
	}
	return idx
}

// Nearest returns the index of the cell center closest to p, which is
// located at (lon, lat) degrees. Ties go to the lowest index. ok is false
// only when the mesh is empty.
func (idx *PointIndex) Nearest(p s2.Point, lon, lat float64) (nearest int, ok bool) {
	if idx.m.Len() == 0 {
		return 0, false
	}
	r := idx.r0
	var cand []int
	for {
		cand = search(idx.tree, capBounds(lon, lat, r)...)
		if len(cand) > 0 || r >= 180 {
			break
		}
		r *= 2
	}
	if len(cand) == 0 {
		return 0, false
	}
	best, bestD := idx.closest(p, cand)
	// A closer center may sit outside the box that found the first
	// candidate, so search again out to the best distance found.
	cand = search(idx.tree, capBounds(lon, lat, bestD+2*pad)...)
	if len(cand) > 0 {
		if b, d := idx.closest(p, cand); d < bestD || d == bestD && b < best {
			best = b
		}
	}
	return best, true
}

func (idx *PointIndex) closest(p s2.Point, cand []int) (best int, bestD float64) {
	bestD = math.Inf(1)
	for _, i := range cand {
		d := p.Distance(idx.m.Center(i)).Degrees()
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

// CellIndex holds fixed-level s2 coverings of the cells of a mesh so that
// overlap areas between meshes can be computed.
type CellIndex struct {
	m      Mesh
	level  int
	tree   *rtree.Rtree
	covers []s2.CellUnion
}

// NewCellIndex covers every cell of m with s2 cells at the given level.
// m must have corners.
func NewCellIndex(m Mesh, level int) *CellIndex {
	idx := &CellIndex{m: m, level: level, tree: newTree(), covers: make([]s2.CellUnion, m.Len())}
	for i := 0; i < m.Len(); i++ {
		cu := Cover(m.Cell(i), level)
		idx.covers[i] = cu
		if len(cu) == 0 {
			continue
		}
		idx.tree.Insert(&boxed{b: rectBounds(cu.RectBound()), i: i})
	}
	return idx
}

// Cover returns the s2 cells at the given level whose centers fall inside
// loop. Coverings built this way partition the sphere between adjacent
// cells, so the overlap of two coverings approximates the overlap of the
// cells themselves.
func Cover(loop *s2.Loop, level int) s2.CellUnion {
	if loop == nil || loop.IsEmpty() {
		return nil
	}
	rc := &s2.RegionCoverer{MinLevel: level, MaxLevel: level, MaxCells: math.MaxInt32}
	var out s2.CellUnion
	for _, id := range rc.Covering(loop) {
		if loop.ContainsPoint(id.Point()) {
			out = append(out, id)
		}
	}
	out.Normalize()
	return out
}

// Covering returns the covering of cell i.
func (idx *CellIndex) Covering(i int) s2.CellUnion { return idx.covers[i] }

// Area returns the area of the covering of cell i in steradians.
func (idx *CellIndex) Area(i int) float64 { return idx.covers[i].ExactArea() }

// Overlaps returns the cells that overlap cu and the area of each
// overlap in steradians.
func (idx *CellIndex) Overlaps(cu s2.CellUnion) (cells []int, areas []float64) {
	if len(cu) == 0 {
		return nil, nil
	}
	for _, i := range search(idx.tree, rectBounds(cu.RectBound())) {
		isect := s2.CellUnionFromIntersection(idx.covers[i], cu)
		if len(isect) == 0 {
			continue
		}
		cells = append(cells, i)
		areas = append(areas, isect.ExactArea())
	}
	return cells, areas
}

// CoverLevel picks the s2 level at which an average cell of m is covered
// by roughly perCell s2 cells. It returns 0 if m has no usable cells.
func CoverLevel(m Mesh, perCell int) int {
	var area float64
	var n int
	for i := 0; i < m.Len(); i++ {
		if l := m.Cell(i); l != nil {
			area += l.Area()
			n++
		}
	}
	if n == 0 || area == 0 {
		return 0
	}
	mean := area / float64(n)
	// The average s2 cell at level k has area 4π / (6 * 4^k).
	k := math.Log(4*math.Pi/(6*mean/float64(perCell))) / math.Log(4)
	level := int(math.Ceil(k))
	if level < 1 {
		level = 1
	}
	if level > maxLevel {
		level = maxLevel
	}
	return level
}
