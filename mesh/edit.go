package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// FlipEdge replaces the diagonal of the two triangles sharing the edge of h
// with the other diagonal. Handles of the edge and both faces are kept.
// It returns the two faces incident to the flipped edge.
func (m *Mesh) FlipEdge(h Halfedge) ([]Face, error) {
	if err := m.checkEdge(h); err != nil {
		return nil, err
	}
	if m.IsBorderEdge(h) {
		return nil, ErrBorder
	}
	o := h ^ 1
	hn, hp := m.next[h], m.prev[h]
	on, op := m.next[o], m.prev[o]
	a, b := m.target[o], m.target[h]
	c, d := m.target[hn], m.target[on]
	if c == d || m.connected(c, d) {
		return nil, ErrFlip
	}
	f0, f1 := m.hface[h], m.hface[o]

	// f0: d->c, c->a, a->d.  f1: c->d, d->b, b->c.
	m.target[h], m.target[o] = c, d
	m.link(h, hp)
	m.link(hp, on)
	m.link(on, h)
	m.link(o, op)
	m.link(op, hn)
	m.link(hn, o)
	m.hface[on], m.hface[hn] = f0, f1
	m.fhe[f0], m.fhe[f1] = h, o
	if m.vhe[a] == o {
		m.vhe[a] = hp
	}
	if m.vhe[b] == h {
		m.vhe[b] = op
	}
	return []Face{f0, f1}, nil
}

// SplitEdge inserts a new vertex at p on the edge of h and connects it to
// the opposite vertices of the incident triangles. The returned faces are
// all the faces incident to the new vertex.
func (m *Mesh) SplitEdge(h Halfedge, p r3.Vec) (Vertex, []Face, error) {
	if err := m.checkEdge(h); err != nil {
		return NullVertex, nil, err
	}
	o := h ^ 1
	b := m.target[h]
	hNext, oPrev := m.next[h], m.prev[o]

	v := m.newVertex(p)
	n := m.newEdge() // n: v->b, n^1: b->v.
	no := n ^ 1
	m.target[h] = v
	m.target[n] = b
	m.target[no] = v
	m.hface[n] = m.hface[h]
	m.hface[no] = m.hface[o]
	m.link(h, n)
	m.link(n, hNext)
	m.link(oPrev, no)
	m.link(no, o)
	if m.vhe[b] == h {
		m.vhe[b] = n
	}
	if m.IsBorder(no) {
		m.vhe[v] = no
	} else {
		m.vhe[v] = h
	}
	if !m.IsBorder(h) {
		m.splitQuad(h)
	}
	if !m.IsBorder(no) {
		m.splitQuad(no)
	}
	return v, m.FacesAroundVertex(v), nil
}

// splitQuad splits the quadrilateral face of h, whose target is the
// vertex created by SplitEdge, with an edge from that vertex to the
// vertex two half-edges ahead.
func (m *Mesh) splitQuad(h Halfedge) {
	f := m.hface[h]
	v := m.target[h]
	x := m.next[h] // v->q1
	y := m.next[x] // q1->q2
	z := m.next[y] // q2->q3
	q2 := m.target[y]
	// Triangles: (h, k^1, z) keeps f and (x, y, k) gets a new face.
	k := m.newEdge() // k: q2->v, k^1: v->q2.
	m.target[k] = v
	m.target[k^1] = q2
	g := m.newFace()
	m.link(z, h)
	m.link(h, k^1)
	m.link(k^1, z)
	m.hface[k^1] = f
	m.link(x, y)
	m.link(y, k)
	m.link(k, x)
	m.hface[x], m.hface[y], m.hface[k] = g, g, g
	m.fhe[f] = h
	m.fhe[g] = x
}

// CollapseEdge merges the source of h into its target, which is moved to p.
// The source vertex, the two incident faces and three edges are destroyed.
// It returns the faces incident to the surviving vertex.
func (m *Mesh) CollapseEdge(h Halfedge, p r3.Vec) (Vertex, []Face, error) {
	if err := m.checkEdge(h); err != nil {
		return NullVertex, nil, err
	}
	if m.IsBorderEdge(h) {
		return NullVertex, nil, ErrBorder
	}
	o := h ^ 1
	a, b := m.target[o], m.target[h]
	hn, hp := m.next[h], m.prev[h] // b->c, c->a
	on, op := m.next[o], m.prev[o] // a->d, d->b
	c, d := m.target[hn], m.target[on]
	if m.IsBorderVertex(a) && m.IsBorderVertex(b) {
		return NullVertex, nil, fmt.Errorf("both endpoints on border: %w", ErrLinkCondition)
	}
	if m.nv <= 4 {
		return NullVertex, nil, fmt.Errorf("mesh too small: %w", ErrLinkCondition)
	}
	common := 0
	nb := m.Neighbors(b)
	for _, va := range m.Neighbors(a) {
		for _, vb := range nb {
			if va == vb {
				common++
				if va != c && va != d {
					return NullVertex, nil, ErrLinkCondition
				}
			}
		}
	}
	if common != 2 {
		return NullVertex, nil, ErrLinkCondition
	}

	hpo, ono := hp^1, on^1 // a->c, d->a
	incoming := m.HalfedgesAroundTarget(a)
	vheA := m.vhe[a]
	f0, f1 := m.hface[h], m.hface[o]

	// hn takes the place of a->c; op takes the place of d->a.
	m.replace(hpo, hn)
	m.replace(ono, op)
	for _, hi := range incoming {
		m.target[hi] = b
	}
	switch {
	case m.IsBorder(vheA) && vheA == ono:
		m.vhe[b] = op
	case m.IsBorder(vheA):
		m.vhe[b] = vheA
	case m.vhe[b] == h:
		m.vhe[b] = hn ^ 1
	}
	if m.vhe[c] == hpo {
		m.vhe[c] = hn
	}
	if m.vhe[d] == on {
		m.vhe[d] = op ^ 1
	}
	m.pos[b] = p

	m.removeFace(f0)
	m.removeFace(f1)
	m.removeEdge(h)
	m.removeEdge(hp)
	m.removeEdge(on)
	m.removeVertex(a)
	return b, m.FacesAroundVertex(b), nil
}

// replace puts half-edge r in the face cycle position of old.
func (m *Mesh) replace(old, r Halfedge) {
	pv, nx := m.prev[old], m.next[old]
	m.link(pv, r)
	m.link(r, nx)
	f := m.hface[old]
	m.hface[r] = f
	if f != NullFace && m.fhe[f] == old {
		m.fhe[f] = r
	}
}

func (m *Mesh) connected(u, v Vertex) bool {
	for _, w := range m.Neighbors(u) {
		if w == v {
			return true
		}
	}
	return false
}

func (m *Mesh) checkEdge(h Halfedge) error {
	if h < 0 || int(h) >= len(m.next) || !m.IsEdgeAlive(m.EdgeOf(h)) {
		return fmt.Errorf("half-edge %d: %w", h, ErrDeadElement)
	}
	return nil
}
