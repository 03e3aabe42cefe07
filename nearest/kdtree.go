package nearest

import (
	"math"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// KDTree finds closest points by searching a kd-tree of triangle centroids
// with the point to triangle distance. Pruning is done on centroids so the
// result may not be the exact closest point when triangle sizes vary a lot.
type KDTree struct {
	tree kdtree.Tree
	n    int
}

var _ Query = (*KDTree)(nil)

// NewKDTree builds a kd-tree over all faces of m.
func NewKDTree(m *mesh.Mesh) *KDTree {
	faces := m.Faces()
	list := make(kdTriangles, len(faces))
	for i, f := range faces {
		t := m.Triangle(f)
		list[i] = kdTriangle{C: d3.Centroid(t), tri: t, face: f}
	}
	kd := &KDTree{n: len(list)}
	if len(list) > 0 {
		kd.tree = *kdtree.New(list, false)
	}
	return kd
}

// Closest returns the point closest to p on the triangle found nearest.
func (kd *KDTree) Closest(p r3.Vec) (r3.Vec, mesh.Face) {
	if kd.n == 0 {
		return p, mesh.NullFace
	}
	got, _ := kd.tree.Nearest(&kdTriangle{C: p, face: mesh.NullFace})
	t := got.(*kdTriangle)
	return d3.Closest(p, t.tri), t.face
}

// kdTriangle is a mesh triangle keyed by its centroid C. A kdTriangle with
// a null face is a query point.
type kdTriangle struct {
	C    r3.Vec
	tri  r3.Triangle
	face mesh.Face
}

func (t *kdTriangle) isPoint() bool { return t.face == mesh.NullFace }

func (t *kdTriangle) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*kdTriangle)
	switch d {
	case 0:
		return t.C.X - q.C.X
	case 1:
		return t.C.Y - q.C.Y
	case 2:
		return t.C.Z - q.C.Z
	}
	panic("unreachable")
}

func (t *kdTriangle) Dims() int { return 3 }

// Distance returns the squared distance between a point and a triangle.
func (t *kdTriangle) Distance(c kdtree.Comparable) float64 {
	other := c.(*kdTriangle)
	if t.isPoint() {
		if other.isPoint() {
			return d3.Dist2(t.C, other.C)
		}
		t, other = other, t // make sure t is the triangle.
	}
	if !other.isPoint() {
		return d3.Dist2(t.C, other.C)
	}
	return d3.Dist2(other.C, d3.Closest(other.C, t.tri))
}

type kdTriangles []kdTriangle

func (l kdTriangles) Index(i int) kdtree.Comparable { return &l[i] }
func (l kdTriangles) Len() int                      { return len(l) }
func (l kdTriangles) Slice(start, end int) kdtree.Interface {
	return l[start:end]
}

// Pivot partitions the list along dimension d.
func (l kdTriangles) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: d, triangles: l}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

type kdPlane struct {
	dim       kdtree.Dim
	triangles kdTriangles
}

func (p kdPlane) Less(i, j int) bool {
	return p.triangles[i].Compare(&p.triangles[j], p.dim) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.triangles[i], p.triangles[j] = p.triangles[j], p.triangles[i]
}
func (p kdPlane) Len() int { return len(p.triangles) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.triangles = p.triangles[start:end]
	return p
}

// Brute is an exhaustive query over a set of triangles.
type Brute struct {
	faces []mesh.Face
	tris  []r3.Triangle
}

var _ Query = (*Brute)(nil)

// NewBrute copies the geometry of the given faces of m.
func NewBrute(m *mesh.Mesh, faces []mesh.Face) *Brute {
	b := &Brute{faces: append([]mesh.Face(nil), faces...), tris: make([]r3.Triangle, len(faces))}
	for i, f := range faces {
		b.tris[i] = m.Triangle(f)
	}
	return b
}

// Closest returns the exact closest point to p.
func (b *Brute) Closest(p r3.Vec) (r3.Vec, mesh.Face) {
	best, bestFace, d2 := p, mesh.NullFace, math.Inf(1)
	for i, t := range b.tris {
		q := d3.Closest(p, t)
		if d := d3.Dist2(p, q); d < d2 {
			best, bestFace, d2 = q, b.faces[i], d
		}
	}
	return best, bestFace
}
