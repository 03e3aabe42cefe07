package remesh

import (
	"fmt"
	"math"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// SplitEdge splits the edge of h at p and refreshes the faces around the
// new vertex.
func (s *Session) SplitEdge(h mesh.Halfedge, p r3.Vec) (mesh.Vertex, []mesh.Face, error) {
	m := s.work.Mesh
	if m.NumFaces() >= s.cfg.MaxMeshComplexity {
		return mesh.NullVertex, nil, ErrComplexity
	}
	v, faces, err := m.SplitEdge(h, p)
	if err != nil {
		s.log.Debug("split rejected", zap.Int("halfedge", int(h)), zap.Error(err))
		return mesh.NullVertex, nil, err
	}
	s.Refresh(faces)
	return v, faces, nil
}

// FlipEdge flips the edge of h and refreshes both incident faces.
func (s *Session) FlipEdge(h mesh.Halfedge) ([]mesh.Face, error) {
	faces, err := s.work.Mesh.FlipEdge(h)
	if err != nil {
		s.log.Debug("flip rejected", zap.Int("halfedge", int(h)), zap.Error(err))
		return nil, err
	}
	s.Refresh(faces)
	return faces, nil
}

// CollapseEdge merges the source of h into its target placed at p. The
// removed point is recorded in the history at the maximum error around it,
// unless no face around it has a measured error. A collapse that would remove a recorded point again at the same or a
// lower error level is refused with ErrRepeatedCollapse.
func (s *Session) CollapseEdge(h mesh.Halfedge, p r3.Vec) (mesh.Vertex, []mesh.Face, error) {
	m := s.work.Mesh
	if h < 0 || int(h) >= m.HalfedgeCap() || !m.IsEdgeAlive(m.EdgeOf(h)) {
		return mesh.NullVertex, nil, fmt.Errorf("half-edge %d: %w", h, mesh.ErrDeadElement)
	}
	src := m.Source(h)
	removed := m.Point(src)
	level := s.VertexMaxError(src)
	// Removals without a measured error are not tracked.
	measured := level != Unset
	if measured && s.hist.Repeats(removed, level) {
		s.log.Debug("collapse repeats history", zap.Int("halfedge", int(h)), zap.Float64("level", level))
		return mesh.NullVertex, nil, ErrRepeatedCollapse
	}
	v, faces, err := m.CollapseEdge(h, p)
	if err != nil {
		s.log.Debug("collapse rejected", zap.Int("halfedge", int(h)), zap.Error(err))
		return mesh.NullVertex, nil, err
	}
	if measured {
		s.hist.Record(removed, level)
	}
	s.Refresh(faces)
	return v, faces, nil
}

// VertexMaxError returns the largest maximum squared error of the faces
// around v, or Unset.
func (s *Session) VertexMaxError(v mesh.Vertex) float64 {
	se := Unset
	for _, f := range s.work.Mesh.FacesAroundVertex(v) {
		se = math.Max(se, s.work.FaceMaxError(f))
	}
	return se
}

// RelocateVertex moves v to the position given by the relocation strategy
// projected onto the input surface and refreshes the faces around it.
// Border and feature vertices are pinned.
func (s *Session) RelocateVertex(v mesh.Vertex) (r3.Vec, error) {
	m, wp := s.work.Mesh, s.work.Props
	if v < 0 || int(v) >= m.VertexCap() || !m.IsVertexAlive(v) {
		return r3.Vec{}, fmt.Errorf("vertex %d: %w", v, mesh.ErrDeadElement)
	}
	old := m.Point(v)
	if m.IsBorderVertex(v) || wp.VertexTag.Get(v) == TagFeature {
		return old, ErrPinned
	}
	p, _ := s.inQuery.Closest(s.relocation(v))
	faces := m.FacesAroundVertex(v)
	m.SetPoint(v, p)
	if s.cfg.KeepVertexInOneRing {
		for _, f := range faces {
			if r3.Dot(d3.Normal(m.Triangle(f)), wp.Normal.Get(f)) <= 0 {
				m.SetPoint(v, old)
				return old, ErrFoldover
			}
		}
	}
	s.Refresh(faces)
	return p, nil
}

// relocation returns the unprojected target position of v.
func (s *Session) relocation(v mesh.Vertex) r3.Vec {
	m := s.work.Mesh
	if s.cfg.RelocateStrategy == RelocateCVTBarycenter {
		var c r3.Vec
		total := 0.0
		for _, f := range m.FacesAroundVertex(v) {
			t := m.Triangle(f)
			a := d3.Area(t)
			c = r3.Add(c, r3.Scale(a, d3.Centroid(t)))
			total += a
		}
		if total > 0 {
			return r3.Scale(1/total, c)
		}
	}
	nb := m.Neighbors(v)
	set := make(d3.Set, len(nb))
	for i, u := range nb {
		set[i] = m.Point(u)
	}
	return set.Mean()
}

// FlipImproves reports whether flipping the edge of h improves the mesh
// under the configured edge flip strategy. Border, crease and unflippable
// edges never improve.
func (s *Session) FlipImproves(h mesh.Halfedge) bool {
	m := s.work.Mesh
	if h < 0 || int(h) >= m.HalfedgeCap() || !m.IsEdgeAlive(m.EdgeOf(h)) || m.IsBorderEdge(h) {
		return false
	}
	if s.work.Props.Crease.Get(h) {
		return false
	}
	a, b := m.Source(h), m.Target(h)
	c, d := m.Target(m.Next(h)), m.Target(m.Next(h^1))
	if c == d {
		return false
	}
	for _, u := range m.Neighbors(c) {
		if u == d {
			return false
		}
	}
	pa, pb, pc, pd := m.Point(a), m.Point(b), m.Point(c), m.Point(d)
	before := [2]r3.Triangle{{pa, pb, pc}, {pb, pa, pd}}
	after := [2]r3.Triangle{{pd, pc, pa}, {pc, pd, pb}}
	up := r3.Add(d3.Normal(before[0]), d3.Normal(before[1]))
	if r3.Dot(d3.Normal(after[0]), up) <= 0 || r3.Dot(d3.Normal(after[1]), up) <= 0 {
		return false
	}
	if s.cfg.EdgeFlipStrategy == FlipImproveValence {
		dev := func(v mesh.Vertex, delta int) int {
			target := 6
			if m.IsBorderVertex(v) {
				target = 4
			}
			x := len(m.Neighbors(v)) + delta - target
			return x * x
		}
		return dev(a, -1)+dev(b, -1)+dev(c, 1)+dev(d, 1) < dev(a, 0)+dev(b, 0)+dev(c, 0)+dev(d, 0)
	}
	minAngle := func(ts [2]r3.Triangle) float64 {
		return math.Min(d3.MinAngle(ts[0]), d3.MinAngle(ts[1]))
	}
	return minAngle(after) > minAngle(before)
}

// NonConforming returns the faces whose maximum squared error exceeds
// ErrorBound, in face order.
func (s *Session) NonConforming() ([]mesh.Face, error) {
	if !s.linked {
		return nil, ErrNoLinks
	}
	var fs []mesh.Face
	for _, f := range s.work.Mesh.Faces() {
		if s.work.FaceMaxError(f) > s.bound {
			fs = append(fs, f)
		}
	}
	return fs, nil
}

// SmallAngleFaces returns the faces with an interior angle below
// MinAngleThreshold, in face order.
func (s *Session) SmallAngleFaces() []mesh.Face {
	limit := s.cfg.MinAngleThreshold * math.Pi / 180
	var fs []mesh.Face
	for _, f := range s.work.Mesh.Faces() {
		if d3.MinAngle(s.work.Mesh.Triangle(f)) < limit {
			fs = append(fs, f)
		}
	}
	return fs
}
