package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

func (m *Mesh) Next(h Halfedge) Halfedge     { return m.next[h] }
func (m *Mesh) Prev(h Halfedge) Halfedge     { return m.prev[h] }
func (m *Mesh) Opposite(h Halfedge) Halfedge { return h ^ 1 }
func (m *Mesh) Target(h Halfedge) Vertex     { return m.target[h] }
func (m *Mesh) Source(h Halfedge) Vertex     { return m.target[h^1] }

// Face returns the face incident to h or NullFace if h is a border half-edge.
func (m *Mesh) Face(h Halfedge) Face { return m.hface[h] }

// IsBorder returns true if h has no incident face.
func (m *Mesh) IsBorder(h Halfedge) bool { return m.hface[h] == NullFace }

// IsBorderEdge returns true if either half-edge of h is a border half-edge.
func (m *Mesh) IsBorderEdge(h Halfedge) bool { return m.IsBorder(h) || m.IsBorder(h^1) }

// IsBorderVertex returns true if v lies on a border.
func (m *Mesh) IsBorderVertex(v Vertex) bool {
	h := m.vhe[v]
	return h != NullHalfedge && m.IsBorder(h)
}

// Halfedge returns a half-edge of f.
func (m *Mesh) Halfedge(f Face) Halfedge { return m.fhe[f] }

// VertexHalfedge returns a half-edge whose target is v. For border
// vertices it is the border half-edge. Isolated vertices return NullHalfedge.
func (m *Mesh) VertexHalfedge(v Vertex) Halfedge { return m.vhe[v] }

// EdgeHalfedge returns the even half-edge of e.
func (m *Mesh) EdgeHalfedge(e Edge) Halfedge { return Halfedge(2 * e) }

// EdgeOf returns the edge h belongs to.
func (m *Mesh) EdgeOf(h Halfedge) Edge { return Edge(h / 2) }

func (m *Mesh) Point(v Vertex) r3.Vec        { return m.pos[v] }
func (m *Mesh) SetPoint(v Vertex, p r3.Vec) { m.pos[v] = p }

// IsVertexAlive, IsEdgeAlive and IsFaceAlive report whether a handle
// refers to a live element.
func (m *Mesh) IsVertexAlive(v Vertex) bool {
	return v >= 0 && int(v) < len(m.vdead) && !m.vdead[v]
}

func (m *Mesh) IsEdgeAlive(e Edge) bool {
	return e >= 0 && int(e) < len(m.edead) && !m.edead[e]
}

func (m *Mesh) IsFaceAlive(f Face) bool {
	return f >= 0 && int(f) < len(m.fdead) && !m.fdead[f]
}

// FaceHalfedges returns the three half-edges of f starting at Halfedge(f).
func (m *Mesh) FaceHalfedges(f Face) [3]Halfedge {
	h := m.fhe[f]
	return [3]Halfedge{h, m.next[h], m.prev[h]}
}

// FaceVertices returns the targets of FaceHalfedges(f).
func (m *Mesh) FaceVertices(f Face) [3]Vertex {
	hs := m.FaceHalfedges(f)
	return [3]Vertex{m.target[hs[0]], m.target[hs[1]], m.target[hs[2]]}
}

// Triangle returns the geometry of f with vertices in FaceVertices order.
func (m *Mesh) Triangle(f Face) r3.Triangle {
	vs := m.FaceVertices(f)
	return r3.Triangle{m.pos[vs[0]], m.pos[vs[1]], m.pos[vs[2]]}
}

// HalfedgesAroundTarget returns all half-edges whose target is v,
// starting at VertexHalfedge(v).
func (m *Mesh) HalfedgesAroundTarget(v Vertex) []Halfedge {
	h0 := m.vhe[v]
	if h0 == NullHalfedge {
		return nil
	}
	var hs []Halfedge
	h := h0
	for {
		hs = append(hs, h)
		h = m.next[h] ^ 1
		if h == h0 {
			break
		}
		if len(hs) > len(m.next) {
			panic(fmt.Sprintf("bug: half-edge cycle around vertex %d does not close", v))
		}
	}
	return hs
}

// FacesAroundVertex returns the faces incident to v.
func (m *Mesh) FacesAroundVertex(v Vertex) []Face {
	hs := m.HalfedgesAroundTarget(v)
	fs := make([]Face, 0, len(hs))
	for _, h := range hs {
		if f := m.hface[h]; f != NullFace {
			fs = append(fs, f)
		}
	}
	return fs
}

// Neighbors returns the vertices sharing an edge with v.
func (m *Mesh) Neighbors(v Vertex) []Vertex {
	hs := m.HalfedgesAroundTarget(v)
	vs := make([]Vertex, len(hs))
	for i, h := range hs {
		vs[i] = m.Source(h)
	}
	return vs
}

// Faces returns the live faces in increasing handle order.
func (m *Mesh) Faces() []Face {
	fs := make([]Face, 0, m.nf)
	for i, dead := range m.fdead {
		if !dead {
			fs = append(fs, Face(i))
		}
	}
	return fs
}

// Vertices returns the live vertices in increasing handle order.
func (m *Mesh) Vertices() []Vertex {
	vs := make([]Vertex, 0, m.nv)
	for i, dead := range m.vdead {
		if !dead {
			vs = append(vs, Vertex(i))
		}
	}
	return vs
}

// Edges returns the live edges in increasing handle order.
func (m *Mesh) Edges() []Edge {
	es := make([]Edge, 0, m.ne)
	for i, dead := range m.edead {
		if !dead {
			es = append(es, Edge(i))
		}
	}
	return es
}

// Check verifies the connectivity invariants of m. It is meant for tests
// and for validating meshes built from untrusted input.
func (m *Mesh) Check() error {
	for _, e := range m.Edges() {
		for _, h := range [2]Halfedge{m.EdgeHalfedge(e), m.EdgeHalfedge(e) + 1} {
			n := m.next[h]
			if n == NullHalfedge || m.prev[n] != h {
				return fmt.Errorf("half-edge %d: next/prev mismatch", h)
			}
			if m.edead[n/2] {
				return fmt.Errorf("half-edge %d: next %d is dead", h, n)
			}
			if m.Source(n) != m.target[h] {
				return fmt.Errorf("half-edge %d: next %d does not leave its target", h, n)
			}
			if m.hface[n] != m.hface[h] {
				return fmt.Errorf("half-edge %d: next %d lies on another face", h, n)
			}
			if !m.IsVertexAlive(m.target[h]) {
				return fmt.Errorf("half-edge %d: dead target %d", h, m.target[h])
			}
			if f := m.hface[h]; f != NullFace {
				if !m.IsFaceAlive(f) {
					return fmt.Errorf("half-edge %d: dead face %d", h, f)
				}
				if m.next[m.next[m.next[h]]] != h {
					return fmt.Errorf("half-edge %d: face %d is not a triangle", h, f)
				}
			}
		}
		if m.IsBorder(m.EdgeHalfedge(e)) && m.IsBorder(m.EdgeHalfedge(e)+1) {
			return fmt.Errorf("edge %d has no incident face", e)
		}
	}
	for _, f := range m.Faces() {
		h := m.fhe[f]
		if h == NullHalfedge || m.hface[h] != f {
			return fmt.Errorf("face %d: half-edge %d does not point back", f, h)
		}
	}
	for _, v := range m.Vertices() {
		h := m.vhe[v]
		if h == NullHalfedge {
			continue
		}
		if m.target[h] != v {
			return fmt.Errorf("vertex %d: half-edge %d does not target it", v, h)
		}
		borders := 0
		for _, hi := range m.HalfedgesAroundTarget(v) {
			if m.IsBorder(hi) {
				borders++
			}
		}
		if borders > 1 || (borders == 1 && !m.IsBorder(h)) {
			return fmt.Errorf("vertex %d: %w", v, ErrNonManifold)
		}
	}
	return nil
}
