package remesh

import (
	"fmt"
	"math"

	"github.com/soypat/remesh/link"
	"github.com/soypat/remesh/mesh"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Surface is a mesh and its attribute tables.
type Surface struct {
	Mesh  *mesh.Mesh
	Props *Properties
}

// NewSurface attaches a fresh set of attribute tables to m and computes
// its face normals.
func NewSurface(m *mesh.Mesh) *Surface {
	s := &Surface{Mesh: m, Props: NewProperties(m)}
	s.Props.ComputeNormals()
	return s
}

// inLink resolves a reference held by a face of the working surface into
// the link stored on the reference surface s.
func (s *Surface) inLink(c link.Category, r link.Ref) link.Link {
	var links []link.Link
	switch c {
	case link.FaceIn:
		links = s.Props.FaceOut.Get(mesh.Face(r.Owner))
	case link.EdgeIn:
		links = s.Props.EdgeOut.Get(mesh.Halfedge(r.Owner))
	case link.VertexIn:
		v := mesh.Vertex(r.Owner)
		if r.Index != 0 || !s.Props.VertexOut.Has(v) {
			panic(fmt.Sprintf("bug: stale vertex in-link reference %v", r))
		}
		return s.Props.VertexOut.Get(v)
	default:
		panic("bug: not an in-link category: " + c.String())
	}
	if int(r.Index) >= len(links) || r.Index < 0 {
		panic(fmt.Sprintf("bug: stale %s reference %v", c, r))
	}
	return links[r.Index]
}

// setInLink replaces the link addressed by r on the reference surface s.
func (s *Surface) setInLink(c link.Category, r link.Ref, l link.Link) {
	switch c {
	case link.FaceIn:
		s.Props.FaceOut.Get(mesh.Face(r.Owner))[r.Index] = l
	case link.EdgeIn:
		s.Props.EdgeOut.Get(mesh.Halfedge(r.Owner))[r.Index] = l
	case link.VertexIn:
		s.Props.VertexOut.Put(mesh.Vertex(r.Owner), l)
	default:
		panic("bug: not an in-link category: " + c.String())
	}
}

func (p *Properties) refs(c link.Category, f mesh.Face) []link.Ref {
	switch c {
	case link.FaceIn:
		return p.FaceIn.Get(f)
	case link.EdgeIn:
		return p.EdgeIn.Get(f)
	case link.VertexIn:
		return p.VertexIn.Get(f)
	}
	panic("bug: not an in-link category: " + c.String())
}

func (p *Properties) addRef(c link.Category, f mesh.Face, r link.Ref) {
	switch c {
	case link.FaceIn:
		p.FaceIn.Put(f, append(p.FaceIn.Get(f), r))
	case link.EdgeIn:
		p.EdgeIn.Put(f, append(p.EdgeIn.Get(f), r))
	case link.VertexIn:
		p.VertexIn.Put(f, append(p.VertexIn.Get(f), r))
	default:
		panic("bug: not an in-link category: " + c.String())
	}
}

// raise sets the maximum error of f to se if se is larger.
func (p *Properties) raise(f mesh.Face, se float64) {
	if se > p.MaxError.Get(f) {
		p.MaxError.Put(f, se)
	}
}

// ComputeMaxErrors resets the maximum squared error of every face of work
// to Unset and sweeps each of the six link categories once. ref is the
// surface owning the links referenced by the in-link tables of work.
func ComputeMaxErrors(work, ref *Surface) {
	wp := work.Props
	wp.MaxError.Reset()
	faces := work.Mesh.Faces()
	for _, c := range [...]link.Category{link.FaceIn, link.EdgeIn, link.VertexIn} {
		for _, f := range faces {
			for _, r := range wp.refs(c, f) {
				wp.raise(f, ref.inLink(c, r).SquaredError)
			}
		}
	}
	wp.FaceOut.Range(func(f mesh.Face, links []link.Link) bool {
		for _, l := range links {
			wp.raise(f, l.SquaredError)
		}
		return true
	})
	wp.EdgeOut.Range(func(h mesh.Halfedge, links []link.Link) bool {
		if len(links) == 0 {
			return true
		}
		se := maxSquaredError(links)
		if work.Mesh.IsBorder(h) {
			panic(fmt.Sprintf("bug: edge out-links stored on border half-edge %d", h))
		}
		wp.raise(work.Mesh.Face(h), se)
		if !work.Mesh.IsBorder(h ^ 1) {
			wp.raise(work.Mesh.Face(h^1), se)
		}
		return true
	})
	wp.VertexOut.Range(func(v mesh.Vertex, l link.Link) bool {
		for _, f := range work.Mesh.FacesAroundVertex(v) {
			wp.raise(f, l.SquaredError)
		}
		return true
	})
}

// UpdateMaxErrors recomputes the maximum squared error of the given faces
// from their current links. Links are not regenerated. Dead faces are
// skipped.
func UpdateMaxErrors(work, ref *Surface, faces []mesh.Face) {
	for _, f := range faces {
		if !work.Mesh.IsFaceAlive(f) {
			continue
		}
		se := faceMaxError(work, ref, f)
		if se == Unset {
			work.Props.MaxError.Erase(f)
		} else {
			work.Props.MaxError.Put(f, se)
		}
	}
}

func faceMaxError(work, ref *Surface, f mesh.Face) float64 {
	wp := work.Props
	m := work.Mesh
	se := Unset
	for _, c := range [...]link.Category{link.FaceIn, link.EdgeIn, link.VertexIn} {
		for _, r := range wp.refs(c, f) {
			se = math.Max(se, ref.inLink(c, r).SquaredError)
		}
	}
	for _, l := range wp.FaceOut.Get(f) {
		se = math.Max(se, l.SquaredError)
	}
	for _, h := range m.FaceHalfedges(f) {
		if links := wp.EdgeOut.Get(wp.CanonicalHalfedge(h)); len(links) > 0 {
			se = math.Max(se, maxSquaredError(links))
		}
	}
	for _, v := range m.FaceVertices(f) {
		if wp.VertexOut.Has(v) {
			se = math.Max(se, wp.VertexOut.Get(v).SquaredError)
		}
	}
	return se
}

func maxSquaredError(links []link.Link) float64 {
	se := 0.0
	for _, l := range links {
		se = math.Max(se, l.SquaredError)
	}
	return se
}

// FaceMaxError returns the maximum squared error of f or Unset.
func (s *Surface) FaceMaxError(f mesh.Face) float64 { return s.Props.MaxError.Get(f) }

// MaxErrorFace returns the face with the largest maximum squared error.
// Ties resolve to the lowest face handle. If no face has a measured error
// it returns NullFace and Unset.
func (s *Surface) MaxErrorFace() (mesh.Face, float64) {
	worst, se := mesh.NullFace, Unset
	for _, f := range s.Mesh.Faces() {
		if e := s.Props.MaxError.Get(f); e > se {
			worst, se = f, e
		}
	}
	return worst, se
}

// Summary describes the distribution of per-face maximum errors.
// Distances are square roots of squared errors.
type Summary struct {
	Faces    int
	Measured int
	Max      float64
	Mean     float64
	RMS      float64
	Median   float64
	P90      float64
}

// Summarize returns statistics over the faces of s with a measured error.
func (s *Surface) Summarize() Summary {
	sum := Summary{Faces: s.Mesh.NumFaces()}
	var sq []float64
	for _, f := range s.Mesh.Faces() {
		if e := s.Props.MaxError.Get(f); e != Unset {
			sq = append(sq, e)
		}
	}
	sum.Measured = len(sq)
	if len(sq) == 0 {
		return sum
	}
	floats.Argsort(sq, make([]int, len(sq)))
	dist := make([]float64, len(sq))
	for i, e := range sq {
		dist[i] = math.Sqrt(e)
	}
	sum.Max = floats.Max(dist)
	sum.Mean = stat.Mean(dist, nil)
	sum.RMS = math.Sqrt(stat.Mean(sq, nil))
	sum.Median = stat.Quantile(0.5, stat.Empirical, dist, nil)
	sum.P90 = stat.Quantile(0.9, stat.Empirical, dist, nil)
	return sum
}

// Values returns the measured maximum errors of s as distances in face
// handle order.
func (s *Surface) Values() []float64 {
	var v []float64
	for _, f := range s.Mesh.Faces() {
		if e := s.Props.MaxError.Get(f); e != Unset {
			v = append(v, math.Sqrt(e))
		}
	}
	return v
}
