// Package nearest answers closest point queries against the faces of a mesh.
package nearest

import (
	"math"
	"sort"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Query returns the closest point on a surface to p and the face it lies on.
// Queries on an empty surface return p and mesh.NullFace.
type Query interface {
	Closest(p r3.Vec) (r3.Vec, mesh.Face)
}

// ClosestOnTriangle returns the point of the solid triangle t closest to p.
func ClosestOnTriangle(p r3.Vec, t r3.Triangle) r3.Vec { return d3.Closest(p, t) }

const (
	leaf = iota
	xClip
	yClip
	zClip
)

// Leaves hold at most this many triangles.
const leafSize = 4

type bihNode struct {
	// Clipping axis in the lower two bits, index of the left child in the
	// remaining bits. Right child follows the left.
	flags int
	// Clipping planes of the left and right children or, for leaves,
	// the range of triangles in the leaf.
	left, right float64
	start, end  int
}

func (n *bihNode) isLeaf() bool { return n.flags&3 == leaf }
func (n *bihNode) child() int   { return n.flags >> 2 }

// BIH is a bounding interval hierarchy over the faces of a mesh. Queries
// are exact. The mesh must not be edited while the BIH is in use.
type BIH struct {
	faces []mesh.Face
	tris  []r3.Triangle
	nodes []bihNode
	bb    r3.Box
}

var _ Query = (*BIH)(nil)

// NewBIH builds a hierarchy over all faces of m.
func NewBIH(m *mesh.Mesh) *BIH { return NewBIHFaces(m, m.Faces()) }

// NewBIHFaces builds a hierarchy over the given faces of m.
func NewBIHFaces(m *mesh.Mesh, faces []mesh.Face) *BIH {
	b := &BIH{
		faces: append([]mesh.Face(nil), faces...),
		tris:  make([]r3.Triangle, len(faces)),
		bb:    r3.Box(d3.EmptyBox()),
	}
	if len(faces) == 0 {
		return b
	}
	centroids := make([]r3.Vec, len(faces))
	for i, f := range faces {
		b.tris[i] = m.Triangle(f)
		centroids[i] = d3.Centroid(b.tris[i])
	}
	b.bb = triBounds(b.tris)
	order := make([]int, len(faces))
	for i := range order {
		order[i] = i
	}
	b.nodes = make([]bihNode, 1, 2*len(faces)/leafSize+1)
	b.subdivide(0, 0, order, centroids, b.bb)
	// Reorder triangles so leaves address contiguous ranges.
	tris := make([]r3.Triangle, len(order))
	fs := make([]mesh.Face, len(order))
	for i, j := range order {
		tris[i], fs[i] = b.tris[j], b.faces[j]
	}
	b.tris, b.faces = tris, fs
	return b
}

func (b *BIH) subdivide(node, offset int, order []int, centroids []r3.Vec, bb r3.Box) {
	if len(order) <= leafSize {
		b.nodes[node] = bihNode{flags: leaf, start: offset, end: offset + len(order)}
		return
	}
	// Longest axis, median centroid as pivot.
	dims := r3.Sub(bb.Max, bb.Min)
	clip := zClip
	if dims.X >= dims.Y && dims.X >= dims.Z {
		clip = xClip
	} else if dims.Y >= dims.Z {
		clip = yClip
	}
	sort.Slice(order, func(i, j int) bool {
		return elem(centroids[order[i]], clip-1) < elem(centroids[order[j]], clip-1)
	})
	half := len(order) / 2
	leftBB := b.boundsOf(order[:half])
	rightBB := b.boundsOf(order[half:])

	children := len(b.nodes)
	b.nodes = append(b.nodes, bihNode{}, bihNode{})
	b.subdivide(children, offset, order[:half], centroids, leftBB)
	b.subdivide(children+1, offset+half, order[half:], centroids, rightBB)
	b.nodes[node] = bihNode{
		flags: children<<2 | clip,
		left:  elem(leftBB.Max, clip-1),
		right: elem(rightBB.Min, clip-1),
	}
}

func (b *BIH) boundsOf(idx []int) r3.Box {
	bb := d3.EmptyBox()
	for _, i := range idx {
		for _, v := range b.tris[i] {
			bb = bb.Include(v)
		}
	}
	return r3.Box(bb)
}

// Closest returns the closest point to p on the faces of b.
func (b *BIH) Closest(p r3.Vec) (r3.Vec, mesh.Face) {
	if len(b.nodes) == 0 {
		return p, mesh.NullFace
	}
	best := result{d2: math.Inf(1), idx: -1}
	b.search(p, 0, b.bb, &best)
	return best.q, b.faces[best.idx]
}

// Bounds returns the bounding box of the faces of b.
func (b *BIH) Bounds() r3.Box { return b.bb }

type result struct {
	q   r3.Vec
	d2  float64
	idx int
}

func (b *BIH) search(p r3.Vec, node int, bb r3.Box, best *result) {
	n := &b.nodes[node]
	if n.isLeaf() {
		for i := n.start; i < n.end; i++ {
			q := d3.Closest(p, b.tris[i])
			if d2 := d3.Dist2(p, q); d2 < best.d2 {
				*best = result{q: q, d2: d2, idx: i}
			}
		}
		return
	}
	leftBB, rightBB := bb, bb
	switch n.flags & 3 {
	case xClip:
		leftBB.Max.X, rightBB.Min.X = n.left, n.right
	case yClip:
		leftBB.Max.Y, rightBB.Min.Y = n.left, n.right
	case zClip:
		leftBB.Max.Z, rightBB.Min.Z = n.left, n.right
	}
	ld := d3.Box(leftBB).MinDist2(p)
	rd := d3.Box(rightBB).MinDist2(p)
	left, right := n.child(), n.child()+1
	// Visit the closer child first.
	if rd < ld {
		left, right = right, left
		ld, rd = rd, ld
		leftBB, rightBB = rightBB, leftBB
	}
	if ld <= best.d2 {
		b.search(p, left, leftBB, best)
	}
	if rd <= best.d2 {
		b.search(p, right, rightBB, best)
	}
}

func triBounds(tris []r3.Triangle) r3.Box {
	bb := d3.EmptyBox()
	for _, t := range tris {
		for _, v := range t {
			bb = bb.Include(v)
		}
	}
	return r3.Box(bb)
}

func elem(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic("bad axis")
}
