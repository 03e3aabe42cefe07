package remesh

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/link"
	"github.com/soypat/remesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// bumpy returns an n×n grid with a smooth bump in the middle.
func bumpy(n int) *mesh.Mesh {
	m := mesh.Grid(n, 1)
	for _, v := range m.Vertices() {
		p := m.Point(v)
		p.Z = 0.05 * math.Cos(math.Pi*p.X) * math.Cos(math.Pi*p.Y)
		m.SetPoint(v, p)
	}
	return m
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VerboseProgress = false
	cfg.SamplesPerFacetIn = 4
	cfg.SamplesPerFacetOut = 4
	return cfg
}

func newTestSession(t *testing.T, cfg Config, input *mesh.Mesh) *Session {
	t.Helper()
	s, err := NewSession(cfg, input)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewSessionErrors(t *testing.T) {
	if _, err := NewSession(DefaultConfig(), nil); !errors.Is(err, ErrEmptyMesh) {
		t.Fatalf("nil mesh: got %v", err)
	}
	cfg := DefaultConfig()
	cfg.MaxErrorThreshold = -1
	if _, err := NewSession(cfg, mesh.Grid(1, 1)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("invalid config: got %v", err)
	}
}

func TestGenerateLinksIdentical(t *testing.T) {
	s := newTestSession(t, testConfig(), bumpy(6))
	if _, err := s.NonConforming(); !errors.Is(err, ErrNoLinks) {
		t.Fatalf("expected ErrNoLinks before linking, got %v", err)
	}
	s.GenerateLinks()
	work := s.Remesh()
	for _, f := range work.Mesh.Faces() {
		se := work.FaceMaxError(f)
		if se == Unset || se > 1e-20 {
			t.Fatalf("face %d: error %g on identical surfaces", f, se)
		}
	}
	out, in := work.Props.NumLinks()
	if out == 0 || in == 0 {
		t.Fatalf("got %d out-links and %d in-link references", out, in)
	}
	inLinks, _ := s.Input().Props.NumLinks()
	if inLinks != in {
		t.Fatalf("%d in-links but %d references", inLinks, in)
	}
	if fs, err := s.NonConforming(); err != nil || len(fs) != 0 {
		t.Fatalf("identical surfaces non-conforming: %v %v", fs, err)
	}
	checkSession(t, s)
}

func TestGenerateLinksDeterministic(t *testing.T) {
	a := newTestSession(t, testConfig(), bumpy(5))
	b := newTestSession(t, testConfig(), bumpy(5))
	flat := mesh.Grid(5, 1)
	if err := a.UseRemesh(flat); err != nil {
		t.Fatal(err)
	}
	if err := b.UseRemesh(flat.Clone()); err != nil {
		t.Fatal(err)
	}
	a.GenerateLinks()
	b.GenerateLinks()
	for _, f := range flat.Faces() {
		if a.MaxError(f) != b.MaxError(f) {
			t.Fatalf("face %d: %g != %g", f, a.MaxError(f), b.MaxError(f))
		}
	}
	_, worst := a.Remesh().MaxErrorFace()
	if worst <= 0 || worst > 0.05*0.05+1e-12 {
		t.Fatalf("flat against bump: worst error %g", worst)
	}
	fs, err := a.NonConforming()
	if err != nil || len(fs) == 0 {
		t.Fatalf("flat surface conforms to bump: %v", err)
	}
	for _, f := range fs {
		if a.MaxError(f) <= a.ErrorBound() {
			t.Fatalf("face %d reported with error %g under bound %g", f, a.MaxError(f), a.ErrorBound())
		}
	}
	checkSession(t, a)
}

func TestClearLinksUnset(t *testing.T) {
	s := newTestSession(t, testConfig(), bumpy(4))
	s.GenerateLinks()
	s.ClearLinks()
	if s.Linked() {
		t.Fatal("still linked after ClearLinks")
	}
	for _, f := range s.Remesh().Mesh.Faces() {
		if got := s.MaxError(f); got != Unset {
			t.Fatalf("face %d: got %g, want Unset", f, got)
		}
	}
}

func TestOptimizeTypeGatesSampling(t *testing.T) {
	cfg := testConfig()
	cfg.FacetOptimizeType = OptimizeNone
	cfg.EdgeOptimizeType = OptimizeInputToRemesh
	cfg.VertexOptimizeType = OptimizeRemeshToInput
	s := newTestSession(t, cfg, bumpy(4))
	s.GenerateLinks()
	wp, ip := s.Remesh().Props, s.Input().Props
	if wp.FaceOut.Len() != 0 || ip.FaceOut.Len() != 0 || wp.EdgeOut.Len() != 0 || ip.VertexOut.Len() != 0 {
		t.Fatal("links sampled for disabled directions")
	}
	if ip.EdgeOut.Len() != s.Input().Mesh.NumEdges() || wp.VertexOut.Len() != s.Remesh().Mesh.NumVertices() {
		t.Fatal("links missing for enabled directions")
	}
}

func TestRefreshAfterEdits(t *testing.T) {
	for _, test := range []struct {
		name  string
		local bool
		query NearestQuery
	}{
		{name: "local", local: true, query: NearestBIH},
		{name: "global", local: false, query: NearestBIH},
		{name: "kdtree", local: false, query: NearestKDTree},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.UseLocalAABBTree = test.local
			cfg.NearestQuery = test.query
			s := newTestSession(t, cfg, bumpy(6))
			s.GenerateLinks()
			m := s.Remesh().Mesh

			h := interiorEdge(t, m)
			mid := d3.Lerp(m.Point(m.Source(h)), m.Point(m.Target(h)), 0.5)
			v, faces, err := s.SplitEdge(h, r3.Add(mid, r3.Vec{Z: 0.02}))
			if err != nil {
				t.Fatal(err)
			}
			if len(faces) != 4 || m.Point(v).Z != mid.Z+0.02 {
				t.Fatalf("split: %d faces", len(faces))
			}
			checkSession(t, s)
			if s.VertexMaxError(v) < 0.01*0.01 {
				t.Fatalf("raised vertex error %g too small", s.VertexMaxError(v))
			}

			flipped := false
			for _, e := range m.Edges() {
				if _, err := s.FlipEdge(m.EdgeHalfedge(e)); err == nil {
					flipped = true
					break
				}
			}
			if !flipped {
				t.Fatal("no edge could be flipped")
			}
			checkSession(t, s)

			collapsed := false
			for _, e := range m.Edges() {
				h := m.EdgeHalfedge(e)
				if m.IsBorderVertex(m.Source(h)) || m.IsBorderVertex(m.Target(h)) {
					continue
				}
				if _, _, err := s.CollapseEdge(h, m.Point(m.Target(h))); err == nil {
					collapsed = true
					break
				}
			}
			if !collapsed {
				t.Fatal("no edge could be collapsed")
			}
			if s.History().Len() != 1 {
				t.Fatalf("history holds %d entries after one collapse", s.History().Len())
			}
			checkSession(t, s)

			relocated := false
			for _, v := range m.Vertices() {
				if _, err := s.RelocateVertex(v); err == nil {
					relocated = true
					break
				}
			}
			if !relocated {
				t.Fatal("no vertex could be relocated")
			}
			checkSession(t, s)
			if err := m.Check(); err != nil {
				t.Fatal(err)
			}

			s.GenerateLinks()
			if s.History().Len() != 0 {
				t.Fatal("history survives link generation")
			}
		})
	}
}

// checkSession verifies that incremental errors match a full recompute and
// that every link lies on the element it is attributed to.
func checkSession(t *testing.T, s *Session) {
	t.Helper()
	work, in := s.Remesh(), s.Input()
	m, wp := work.Mesh, work.Props
	incremental := make(map[mesh.Face]float64)
	for _, f := range m.Faces() {
		incremental[f] = work.FaceMaxError(f)
	}
	ComputeMaxErrors(work, in)
	for f, want := range incremental {
		if got := work.FaceMaxError(f); got != want {
			t.Fatalf("face %d: incremental %g, full %g", f, want, got)
		}
	}
	const tol = 1e-18
	for _, f := range m.Faces() {
		tri := m.Triangle(f)
		for _, c := range [...]link.Category{link.FaceIn, link.EdgeIn, link.VertexIn} {
			for _, r := range wp.refs(c, f) {
				l := in.inLink(c, r)
				if !l.Valid() {
					t.Fatalf("face %d: invalid %s link %v", f, c, l)
				}
				if d := d3.Dist2(d3.Closest(l.Matched, tri), l.Matched); d > tol {
					t.Fatalf("face %d: %s link matched %g off its face", f, c, d)
				}
			}
		}
		for _, l := range wp.FaceOut.Get(f) {
			if !l.Valid() || d3.Dist2(d3.Closest(l.Source, tri), l.Source) > tol {
				t.Fatalf("face %d: out-link %v not on face", f, l)
			}
		}
	}
	wp.EdgeOut.Range(func(h mesh.Halfedge, links []link.Link) bool {
		if wp.CanonicalHalfedge(h) != h {
			t.Fatalf("edge out-links on non-canonical half-edge %d", h)
		}
		a, b := m.Point(m.Source(h)), m.Point(m.Target(h))
		for _, l := range links {
			if !l.Valid() || d3.Dist2(d3.ClosestOnSegment(l.Source, a, b), l.Source) > tol {
				t.Fatalf("half-edge %d: out-link %v not on edge", h, l)
			}
		}
		return true
	})
	wp.VertexOut.Range(func(v mesh.Vertex, l link.Link) bool {
		if !l.Valid() || l.Source != m.Point(v) {
			t.Fatalf("vertex %d: out-link %v", v, l)
		}
		return true
	})
}

func TestCollapseRefusedByHistory(t *testing.T) {
	s := newTestSession(t, testConfig(), bumpy(4))
	s.GenerateLinks()
	m := s.Remesh().Mesh
	h := interiorEdge(t, m)
	s.History().Record(m.Point(m.Source(h)), math.Inf(1))
	nf := m.NumFaces()
	if _, _, err := s.CollapseEdge(h, m.Point(m.Target(h))); !errors.Is(err, ErrRepeatedCollapse) {
		t.Fatalf("got %v, want ErrRepeatedCollapse", err)
	}
	if m.NumFaces() != nf {
		t.Fatal("refused collapse changed the mesh")
	}
	if _, _, err := s.CollapseEdge(-3, r3.Vec{}); !errors.Is(err, mesh.ErrDeadElement) {
		t.Fatalf("got %v, want ErrDeadElement", err)
	}
}

func TestCollapseUnmeasuredSkipsHistory(t *testing.T) {
	s := newTestSession(t, testConfig(), bumpy(4))
	m := s.Remesh().Mesh
	h := interiorEdge(t, m)
	if _, _, err := s.CollapseEdge(h, m.Point(m.Target(h))); err != nil {
		t.Fatal(err)
	}
	if s.History().Len() != 0 {
		t.Fatalf("unlinked collapse recorded %d history entries", s.History().Len())
	}
	s = newTestSession(t, testConfig(), bumpy(4))
	m = s.Remesh().Mesh
	h = interiorEdge(t, m)
	s.History().Record(m.Point(m.Source(h)), math.Inf(1))
	if _, _, err := s.CollapseEdge(h, m.Point(m.Target(h))); err != nil {
		t.Fatalf("unmeasured collapse gated by history: %v", err)
	}
	if s.History().Len() != 1 {
		t.Fatalf("history holds %d entries, want 1", s.History().Len())
	}
}

func TestSplitComplexityLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMeshComplexity = 1
	s := newTestSession(t, cfg, mesh.Grid(2, 1))
	if _, _, err := s.SplitEdge(0, r3.Vec{}); !errors.Is(err, ErrComplexity) {
		t.Fatalf("got %v, want ErrComplexity", err)
	}
}

func TestRelocatePinned(t *testing.T) {
	s := newTestSession(t, testConfig(), mesh.Grid(3, 1))
	m := s.Remesh().Mesh
	for _, v := range m.Vertices() {
		if !m.IsBorderVertex(v) {
			continue
		}
		p := m.Point(v)
		if _, err := s.RelocateVertex(v); !errors.Is(err, ErrPinned) {
			t.Fatalf("border vertex %d: got %v", v, err)
		}
		if m.Point(v) != p {
			t.Fatal("pinned vertex moved")
		}
	}
}

func TestRelocateTargets(t *testing.T) {
	for _, strategy := range []RelocateStrategy{RelocateBarycenter, RelocateCVTBarycenter} {
		cfg := testConfig()
		cfg.RelocateStrategy = strategy
		s := newTestSession(t, cfg, mesh.Grid(2, 2))
		m := s.Remesh().Mesh
		center := mesh.NullVertex
		for _, v := range m.Vertices() {
			if !m.IsBorderVertex(v) {
				center = v
			}
		}
		m.SetPoint(center, r3.Vec{X: 0.3, Y: 0.1})
		p, err := s.RelocateVertex(center)
		if err != nil {
			t.Fatal(err)
		}
		// The grid is symmetric about its center so both targets are the origin.
		if !d3.EqualWithin(p, r3.Vec{}, 1e-12) && strategy == RelocateBarycenter {
			t.Fatalf("%v: relocated to %v", strategy, p)
		}
		if p.Z != 0 || m.Point(center) != p {
			t.Fatalf("%v: relocated off the input surface to %v", strategy, p)
		}
	}
}

func TestFlipImproves(t *testing.T) {
	in := mesh.Grid(1, 1)
	in.SetPoint(3, r3.Vec{X: 2, Y: 2})
	diag, border := mesh.NullHalfedge, mesh.NullHalfedge
	for _, e := range in.Edges() {
		if h := in.EdgeHalfedge(e); in.IsBorderEdge(h) {
			border = h
		} else {
			diag = h
		}
	}
	cfg := testConfig()
	cfg.EdgeFlipStrategy = FlipImproveAngle
	s := newTestSession(t, cfg, in)
	if !s.FlipImproves(diag) {
		t.Fatal("flipping a sliver diagonal does not improve angles")
	}
	if s.FlipImproves(border) {
		t.Fatal("border edge reported as improving")
	}
	cfg.EdgeFlipStrategy = FlipImproveValence
	s = newTestSession(t, cfg, in)
	if s.FlipImproves(diag) {
		t.Fatal("flip with equal valence deviation reported as improving")
	}
}

func TestSmallAngleFaces(t *testing.T) {
	cfg := testConfig()
	s := newTestSession(t, cfg, mesh.Grid(2, 1))
	if fs := s.SmallAngleFaces(); len(fs) != 0 {
		t.Fatalf("right isosceles faces below 30 degrees: %v", fs)
	}
	cfg.MinAngleThreshold = 50
	s = newTestSession(t, cfg, mesh.Grid(2, 1))
	if fs := s.SmallAngleFaces(); len(fs) != 8 {
		t.Fatalf("got %d faces below 50 degrees, want 8", len(fs))
	}
}
