// Package mesh implements an index based half-edge triangle mesh.
//
// Elements are addressed by stable integer handles that stay valid until
// the element is destroyed by an edit. Slots of destroyed elements are
// recycled by later edits, so holders of per-element data must register
// an Observer to erase their entries on destruction.
package mesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type (
	Vertex   int
	Halfedge int
	Edge     int
	Face     int
)

// Null handles. A half-edge on the border has face NullFace.
const (
	NullVertex   Vertex   = -1
	NullHalfedge Halfedge = -1
	NullFace     Face     = -1
)

// Kind distinguishes element kinds in Observer notifications.
type Kind uint8

const (
	KindVertex Kind = iota
	KindHalfedge
	KindFace
)

func (k Kind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindHalfedge:
		return "halfedge"
	case KindFace:
		return "face"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Observer is notified when elements are created or destroyed.
// Removed is called before the slot is recycled so observers may still
// read their data for that handle.
type Observer interface {
	Added(k Kind, idx int)
	Removed(k Kind, idx int)
}

var (
	ErrNonManifold   = errors.New("mesh: non-manifold edge")
	ErrBorder        = errors.New("mesh: operation not allowed on border")
	ErrLinkCondition = errors.New("mesh: collapse violates link condition")
	ErrFlip          = errors.New("mesh: flip would create existing or degenerate edge")
	ErrDeadElement   = errors.New("mesh: element was removed")
)

// Mesh is a manifold (possibly bordered) triangle mesh.
// Half-edges come in pairs: the opposite of h is h^1, and edge e owns
// half-edges 2e and 2e+1.
type Mesh struct {
	pos   []r3.Vec
	vhe   []Halfedge // a half-edge whose target is the vertex. Border half-edge for border vertices.
	vdead []bool

	next   []Halfedge
	prev   []Halfedge
	target []Vertex
	hface  []Face
	edead  []bool // indexed by edge.

	fhe   []Halfedge
	fdead []bool

	freeV []Vertex
	freeE []Edge
	freeF []Face

	nv, ne, nf int
	observers  []Observer
}

// New builds a mesh from vertex positions and counter-clockwise oriented
// triangles indexing into points. Isolated points are kept as vertices
// without half-edge and are ignored by traversal.
func New(points []r3.Vec, faces [][3]int) (*Mesh, error) {
	m := &Mesh{}
	for _, p := range points {
		m.newVertex(p)
	}
	directed := make(map[[2]int]Halfedge, 3*len(faces))
	for fi, tri := range faces {
		for j := range tri {
			if tri[j] < 0 || tri[j] >= len(points) {
				return nil, fmt.Errorf("face %d references vertex %d out of range", fi, tri[j])
			}
			if tri[j] == tri[(j+1)%3] {
				return nil, fmt.Errorf("face %d is degenerate", fi)
			}
		}
		f := m.newFace()
		var hs [3]Halfedge
		for j := range tri {
			src, dst := tri[j], tri[(j+1)%3]
			if _, ok := directed[[2]int{src, dst}]; ok {
				return nil, fmt.Errorf("face %d edge (%d,%d): %w", fi, src, dst, ErrNonManifold)
			}
			h, ok := directed[[2]int{dst, src}]
			if ok {
				h ^= 1 // the opposite was created by a neighbor face.
			} else {
				h = m.newEdge()
			}
			directed[[2]int{src, dst}] = h
			hs[j] = h
			m.target[h] = Vertex(dst)
			m.target[h^1] = Vertex(src)
			m.hface[h] = f
		}
		for j := range hs {
			m.link(hs[j], hs[(j+1)%3])
			m.vhe[tri[(j+1)%3]] = hs[j]
		}
		m.fhe[f] = hs[0]
	}
	// Connect border half-edges. Each border half-edge targeting v is followed
	// by the border half-edge leaving v.
	leaving := make(map[Vertex]Halfedge)
	for key, h := range directed {
		o := h ^ 1
		if _, ok := directed[[2]int{key[1], key[0]}]; ok {
			continue
		}
		m.hface[o] = NullFace
		src := m.target[h] // o leaves the target of h.
		if _, ok := leaving[src]; ok {
			return nil, fmt.Errorf("vertex %d has more than one border fan: %w", src, ErrNonManifold)
		}
		leaving[src] = o
	}
	for _, o := range leaving {
		n, ok := leaving[m.target[o]]
		if !ok {
			return nil, fmt.Errorf("open border at vertex %d: %w", m.target[o], ErrNonManifold)
		}
		m.link(o, n)
		m.vhe[m.target[o]] = o
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// Observe registers an observer for element creation and destruction.
func (m *Mesh) Observe(o Observer) {
	m.observers = append(m.observers, o)
}

// Unobserve removes an observer registered with Observe.
func (m *Mesh) Unobserve(o Observer) {
	for i := range m.observers {
		if m.observers[i] == o {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of m without observers.
func (m *Mesh) Clone() *Mesh {
	c := *m
	c.pos = append([]r3.Vec(nil), m.pos...)
	c.vhe = append([]Halfedge(nil), m.vhe...)
	c.vdead = append([]bool(nil), m.vdead...)
	c.next = append([]Halfedge(nil), m.next...)
	c.prev = append([]Halfedge(nil), m.prev...)
	c.target = append([]Vertex(nil), m.target...)
	c.hface = append([]Face(nil), m.hface...)
	c.edead = append([]bool(nil), m.edead...)
	c.fhe = append([]Halfedge(nil), m.fhe...)
	c.fdead = append([]bool(nil), m.fdead...)
	c.freeV = append([]Vertex(nil), m.freeV...)
	c.freeE = append([]Edge(nil), m.freeE...)
	c.freeF = append([]Face(nil), m.freeF...)
	c.observers = nil
	return &c
}

// NumVertices returns the number of live vertices.
func (m *Mesh) NumVertices() int { return m.nv }

// NumEdges returns the number of live edges.
func (m *Mesh) NumEdges() int { return m.ne }

// NumFaces returns the number of live faces.
func (m *Mesh) NumFaces() int { return m.nf }

// VertexCap, HalfedgeCap and FaceCap return one past the largest handle
// ever allocated for each element kind.
func (m *Mesh) VertexCap() int   { return len(m.pos) }
func (m *Mesh) HalfedgeCap() int { return len(m.next) }
func (m *Mesh) FaceCap() int     { return len(m.fhe) }

func (m *Mesh) link(h, n Halfedge) {
	m.next[h] = n
	m.prev[n] = h
}

func (m *Mesh) notifyAdded(k Kind, idx int) {
	for _, o := range m.observers {
		o.Added(k, idx)
	}
}

func (m *Mesh) notifyRemoved(k Kind, idx int) {
	for _, o := range m.observers {
		o.Removed(k, idx)
	}
}

func (m *Mesh) newVertex(p r3.Vec) Vertex {
	var v Vertex
	if n := len(m.freeV); n > 0 {
		v = m.freeV[n-1]
		m.freeV = m.freeV[:n-1]
		m.pos[v] = p
		m.vhe[v] = NullHalfedge
		m.vdead[v] = false
	} else {
		v = Vertex(len(m.pos))
		m.pos = append(m.pos, p)
		m.vhe = append(m.vhe, NullHalfedge)
		m.vdead = append(m.vdead, false)
	}
	m.nv++
	m.notifyAdded(KindVertex, int(v))
	return v
}

// newEdge allocates a half-edge pair and returns the even half-edge.
func (m *Mesh) newEdge() Halfedge {
	var e Edge
	if n := len(m.freeE); n > 0 {
		e = m.freeE[n-1]
		m.freeE = m.freeE[:n-1]
		m.edead[e] = false
	} else {
		e = Edge(len(m.edead))
		m.edead = append(m.edead, false)
		m.next = append(m.next, NullHalfedge, NullHalfedge)
		m.prev = append(m.prev, NullHalfedge, NullHalfedge)
		m.target = append(m.target, NullVertex, NullVertex)
		m.hface = append(m.hface, NullFace, NullFace)
	}
	h := Halfedge(2 * e)
	for _, hi := range [2]Halfedge{h, h + 1} {
		m.next[hi], m.prev[hi] = NullHalfedge, NullHalfedge
		m.target[hi], m.hface[hi] = NullVertex, NullFace
	}
	m.ne++
	m.notifyAdded(KindHalfedge, int(h))
	m.notifyAdded(KindHalfedge, int(h+1))
	return h
}

func (m *Mesh) newFace() Face {
	var f Face
	if n := len(m.freeF); n > 0 {
		f = m.freeF[n-1]
		m.freeF = m.freeF[:n-1]
		m.fdead[f] = false
		m.fhe[f] = NullHalfedge
	} else {
		f = Face(len(m.fhe))
		m.fhe = append(m.fhe, NullHalfedge)
		m.fdead = append(m.fdead, false)
	}
	m.nf++
	m.notifyAdded(KindFace, int(f))
	return f
}

func (m *Mesh) removeVertex(v Vertex) {
	m.notifyRemoved(KindVertex, int(v))
	m.vdead[v] = true
	m.vhe[v] = NullHalfedge
	m.freeV = append(m.freeV, v)
	m.nv--
}

func (m *Mesh) removeEdge(h Halfedge) {
	h &^= 1
	m.notifyRemoved(KindHalfedge, int(h))
	m.notifyRemoved(KindHalfedge, int(h+1))
	e := Edge(h / 2)
	m.edead[e] = true
	m.freeE = append(m.freeE, e)
	m.ne--
}

func (m *Mesh) removeFace(f Face) {
	m.notifyRemoved(KindFace, int(f))
	m.fdead[f] = true
	m.fhe[f] = NullHalfedge
	m.freeF = append(m.freeF, f)
	m.nf--
}
