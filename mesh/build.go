package mesh

import (
	"errors"
	"math"

	"github.com/soypat/remesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// FromTriangles builds a mesh from a triangle soup such as the contents of
// an STL file. Vertices closer than tol are welded into a single vertex.
// tol should be of the order of 1/1000th of the smallest triangle side.
// If set to 0 then it is inferred from the shortest side.
func FromTriangles(model []r3.Triangle, tol float64) (*Mesh, error) {
	if len(model) == 0 {
		return nil, errors.New("empty triangle slice")
	}
	if tol <= 0 {
		minDist2 := math.MaxFloat64
		for _, tri := range model {
			for j := range tri {
				if d := d3.Dist2(tri[j], tri[(j+1)%3]); d > 0 {
					minDist2 = math.Min(minDist2, d)
				}
			}
		}
		tol = math.Sqrt(minDist2) / 256
	}
	var points []r3.Vec
	faces := make([][3]int, 0, len(model))
	cache := make(map[[3]int64]int)
	htol := 0.5 * tol
	for _, tri := range model {
		var face [3]int
		for j, v := range tri {
			key := d3.Floor(r3.Add(v, d3.Elem(htol)), tol)
			idx, ok := cache[key]
			if !ok {
				idx = len(points)
				cache[key] = idx
				points = append(points, v)
			}
			face[j] = idx
		}
		if face[0] == face[1] || face[1] == face[2] || face[2] == face[0] {
			continue // Collapsed by welding.
		}
		faces = append(faces, face)
	}
	return New(points, faces)
}

// Bounds returns the bounding box of the live vertices of m.
func (m *Mesh) Bounds() r3.Box {
	bb := d3.EmptyBox()
	for _, v := range m.Vertices() {
		bb = bb.Include(m.pos[v])
	}
	return r3.Box(bb)
}

// AverageEdgeLength returns the mean length of the live edges of m
// or 0 if m has no edges.
func (m *Mesh) AverageEdgeLength() float64 {
	if m.ne == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range m.Edges() {
		h := m.EdgeHalfedge(e)
		sum += r3.Norm(r3.Sub(m.pos[m.Target(h)], m.pos[m.Source(h)]))
	}
	return sum / float64(m.ne)
}
