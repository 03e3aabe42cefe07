package remesh

import (
	"fmt"
	"math"

	"github.com/soypat/remesh/attr"
	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/link"
	"github.com/soypat/remesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Unset is the maximum squared error of a face without links.
// It is distinct from zero, which is a measured exact match.
const Unset = -1.0

// Tag classifies an element for feature preservation.
type Tag uint8

const (
	TagSmooth Tag = iota
	TagCrease
	TagFeature
)

func (t Tag) String() string {
	switch t {
	case TagSmooth:
		return "smooth"
	case TagCrease:
		return "crease"
	case TagFeature:
		return "feature"
	}
	return fmt.Sprintf("Tag(%d)", t)
}

// Orphan is an in-link reference whose face was destroyed by an edit.
type Orphan struct {
	Category link.Category
	Ref      link.Ref
}

// Properties holds the attribute tables of one mesh. Every table only holds
// entries for live elements: entries of destroyed elements are erased
// through the mesh observer registered by NewProperties.
//
// In-link references (FaceIn, EdgeIn, VertexIn) address links stored in the
// out-link tables of the reference surface.
type Properties struct {
	m *mesh.Mesh

	// Face attributes.
	Normal   *attr.Table[mesh.Face, r3.Vec]
	MaxError *attr.Table[mesh.Face, float64]
	FaceTag  *attr.Table[mesh.Face, Tag]
	FaceIn   *attr.Table[mesh.Face, []link.Ref]
	EdgeIn   *attr.Table[mesh.Face, []link.Ref]
	VertexIn *attr.Table[mesh.Face, []link.Ref]
	FaceOut  *attr.Table[mesh.Face, []link.Link]

	// Half-edge attributes. Edge out-links are stored on the canonical
	// half-edge of each edge, the one not flagged Opposite.
	Dihedral *attr.Table[mesh.Halfedge, float64]
	Crease   *attr.Table[mesh.Halfedge, bool]
	EdgeTag  *attr.Table[mesh.Halfedge, Tag]
	Opposite *attr.Table[mesh.Halfedge, bool]
	EdgeOut  *attr.Table[mesh.Halfedge, []link.Link]

	// Vertex attributes.
	VertexTag   *attr.Table[mesh.Vertex, Tag]
	MaxDihedral *attr.Table[mesh.Vertex, float64]
	Curvature   *attr.Table[mesh.Vertex, float64]
	VertexOut   *attr.Table[mesh.Vertex, link.Link]

	orphans []Orphan
}

// NewProperties creates empty tables for m and registers them as an
// observer of m.
func NewProperties(m *mesh.Mesh) *Properties {
	p := &Properties{
		m:           m,
		Normal:      attr.New[mesh.Face](r3.Vec{}),
		MaxError:    attr.New[mesh.Face](Unset),
		FaceTag:     attr.New[mesh.Face](TagSmooth),
		FaceIn:      attr.New[mesh.Face, []link.Ref](nil),
		EdgeIn:      attr.New[mesh.Face, []link.Ref](nil),
		VertexIn:    attr.New[mesh.Face, []link.Ref](nil),
		FaceOut:     attr.New[mesh.Face, []link.Link](nil),
		Dihedral:    attr.New[mesh.Halfedge](0.0),
		Crease:      attr.New[mesh.Halfedge](false),
		EdgeTag:     attr.New[mesh.Halfedge](TagSmooth),
		Opposite:    attr.New[mesh.Halfedge](false),
		EdgeOut:     attr.New[mesh.Halfedge, []link.Link](nil),
		VertexTag:   attr.New[mesh.Vertex](TagSmooth),
		MaxDihedral: attr.New[mesh.Vertex](0.0),
		Curvature:   attr.New[mesh.Vertex](0.0),
		VertexOut:   attr.New[mesh.Vertex](link.Link{}),
	}
	m.Observe(p)
	return p
}

// Added implements mesh.Observer. New elements read table defaults.
func (p *Properties) Added(k mesh.Kind, idx int) {}

// Removed implements mesh.Observer.
func (p *Properties) Removed(k mesh.Kind, idx int) {
	switch k {
	case mesh.KindFace:
		f := mesh.Face(idx)
		p.orphan(link.FaceIn, p.FaceIn.Get(f))
		p.orphan(link.EdgeIn, p.EdgeIn.Get(f))
		p.orphan(link.VertexIn, p.VertexIn.Get(f))
		p.Normal.Erase(f)
		p.MaxError.Erase(f)
		p.FaceTag.Erase(f)
		p.FaceIn.Erase(f)
		p.EdgeIn.Erase(f)
		p.VertexIn.Erase(f)
		p.FaceOut.Erase(f)
	case mesh.KindHalfedge:
		h := mesh.Halfedge(idx)
		p.Dihedral.Erase(h)
		p.Crease.Erase(h)
		p.EdgeTag.Erase(h)
		p.Opposite.Erase(h)
		p.EdgeOut.Erase(h)
	case mesh.KindVertex:
		v := mesh.Vertex(idx)
		p.VertexTag.Erase(v)
		p.MaxDihedral.Erase(v)
		p.Curvature.Erase(v)
		p.VertexOut.Erase(v)
	}
}

func (p *Properties) orphan(c link.Category, refs []link.Ref) {
	for _, r := range refs {
		p.orphans = append(p.orphans, Orphan{Category: c, Ref: r})
	}
}

// TakeOrphans returns the in-link references of faces destroyed since the
// last call and forgets them.
func (p *Properties) TakeOrphans() []Orphan {
	o := p.orphans
	p.orphans = nil
	return o
}

// Detach unregisters p from its mesh.
func (p *Properties) Detach() { p.m.Unobserve(p) }

// ComputeNormals sets the normal of every face.
func (p *Properties) ComputeNormals() {
	p.ComputeLocalNormals(p.m.Faces())
}

// ComputeLocalNormals sets the normal of the given faces.
func (p *Properties) ComputeLocalNormals(faces []mesh.Face) {
	for _, f := range faces {
		p.Normal.Put(f, d3.Normal(p.m.Triangle(f)))
	}
}

// CanonicalHalfedge returns the half-edge of the edge of h that owns the
// edge attributes.
func (p *Properties) CanonicalHalfedge(h mesh.Halfedge) mesh.Halfedge {
	if p.Opposite.Get(h) {
		return h ^ 1
	}
	return h
}

// ClassifyFeatures computes dihedral angles, crease flags, curvatures and
// tags of the whole mesh. Face normals must be up to date.
// Edges whose dihedral angle exceeds creaseAngle (radians) and border edges
// are creases. Vertices away from creases whose angle deficit magnitude
// exceeds cornerDeficit are features.
func (p *Properties) ClassifyFeatures(creaseAngle, cornerDeficit float64) {
	for _, e := range p.m.Edges() {
		p.classifyEdge(p.m.EdgeHalfedge(e), creaseAngle)
	}
	for _, v := range p.m.Vertices() {
		p.classifyVertex(v, cornerDeficit)
	}
	for _, f := range p.m.Faces() {
		p.classifyFace(f)
	}
}

// ClassifyLocalFeatures reclassifies the edges and vertices of faces and
// the faces around those vertices.
func (p *Properties) ClassifyLocalFeatures(faces []mesh.Face, creaseAngle, cornerDeficit float64) {
	for _, f := range faces {
		for _, h := range p.m.FaceHalfedges(f) {
			p.classifyEdge(h, creaseAngle)
		}
	}
	ring := p.vertexRing(faces)
	for _, v := range ring {
		p.classifyVertex(v, cornerDeficit)
	}
	for _, f := range p.faceRing(ring) {
		p.classifyFace(f)
	}
}

func (p *Properties) classifyEdge(h mesh.Halfedge, creaseAngle float64) {
	canon, other := h, h^1
	if p.m.IsBorder(canon) {
		canon, other = other, canon
	}
	angle := 0.0
	crease := p.m.IsBorderEdge(h)
	if !crease {
		n0 := p.Normal.Get(p.m.Face(canon))
		n1 := p.Normal.Get(p.m.Face(other))
		angle = math.Acos(math.Max(-1, math.Min(1, r3.Dot(n0, n1))))
		crease = angle > creaseAngle
	}
	tag := TagSmooth
	if crease {
		tag = TagCrease
	}
	// Non-canonical half-edges carry dihedral -1.
	p.Dihedral.Put(canon, angle)
	p.Dihedral.Put(other, -1)
	p.Opposite.Put(canon, false)
	p.Opposite.Put(other, true)
	p.Crease.Put(canon, crease)
	p.Crease.Put(other, crease)
	p.EdgeTag.Put(canon, tag)
	p.EdgeTag.Put(other, tag)
	if links := p.EdgeOut.Get(other); links != nil {
		p.EdgeOut.Erase(other)
		p.EdgeOut.Put(canon, append(p.EdgeOut.Get(canon), links...))
	}
}

func (p *Properties) classifyVertex(v mesh.Vertex, cornerDeficit float64) {
	creases := 0
	maxDihedral := 0.0
	angleSum := 0.0
	border := false
	for _, h := range p.m.HalfedgesAroundTarget(v) {
		c := p.CanonicalHalfedge(h)
		maxDihedral = math.Max(maxDihedral, p.Dihedral.Get(c))
		if p.Crease.Get(c) {
			creases++
		}
		if p.m.IsBorder(h) {
			border = true
			continue
		}
		// Interior angle at the target of h.
		f := p.m.Face(h)
		for i, u := range p.m.FaceVertices(f) {
			if u == v {
				angleSum += d3.Angle(p.m.Triangle(f), i)
				break
			}
		}
	}
	deficit := 2*math.Pi - angleSum
	if border {
		deficit = math.Pi - angleSum
	}
	tag := TagFeature
	switch {
	case creases == 0 && math.Abs(deficit) <= cornerDeficit:
		tag = TagSmooth
	case creases == 2:
		tag = TagCrease
	}
	p.VertexTag.Put(v, tag)
	p.MaxDihedral.Put(v, maxDihedral)
	p.Curvature.Put(v, deficit)
}

func (p *Properties) classifyFace(f mesh.Face) {
	tag := TagSmooth
	for _, h := range p.m.FaceHalfedges(f) {
		if p.Crease.Get(h) {
			tag = TagCrease
			break
		}
	}
	p.FaceTag.Put(f, tag)
}

// vertexRing returns the distinct vertices of faces.
func (p *Properties) vertexRing(faces []mesh.Face) []mesh.Vertex {
	seen := make(map[mesh.Vertex]bool)
	var vs []mesh.Vertex
	for _, f := range faces {
		for _, v := range p.m.FaceVertices(f) {
			if !seen[v] {
				seen[v] = true
				vs = append(vs, v)
			}
		}
	}
	return vs
}

// faceRing returns the distinct faces incident to vs.
func (p *Properties) faceRing(vs []mesh.Vertex) []mesh.Face {
	seen := make(map[mesh.Face]bool)
	var fs []mesh.Face
	for _, v := range vs {
		for _, f := range p.m.FacesAroundVertex(v) {
			if !seen[f] {
				seen[f] = true
				fs = append(fs, f)
			}
		}
	}
	return fs
}

// ClearLinks removes all links and in-link references.
func (p *Properties) ClearLinks() {
	p.FaceIn.Reset()
	p.EdgeIn.Reset()
	p.VertexIn.Reset()
	p.FaceOut.Reset()
	p.EdgeOut.Reset()
	p.VertexOut.Reset()
	p.orphans = nil
}

// NumLinks returns the number of out-links and in-link references held.
func (p *Properties) NumLinks() (out, in int) {
	p.FaceOut.Range(func(_ mesh.Face, l []link.Link) bool { out += len(l); return true })
	p.EdgeOut.Range(func(_ mesh.Halfedge, l []link.Link) bool { out += len(l); return true })
	out += p.VertexOut.Len()
	for _, t := range [...]*attr.Table[mesh.Face, []link.Ref]{p.FaceIn, p.EdgeIn, p.VertexIn} {
		t.Range(func(_ mesh.Face, r []link.Ref) bool { in += len(r); return true })
	}
	return out, in
}

// AverageEdgeLength returns the mean edge length of the mesh.
func (p *Properties) AverageEdgeLength() float64 { return p.m.AverageEdgeLength() }
