package remesh

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/soypat/remesh/history"
	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/link"
	"github.com/soypat/remesh/mesh"
	"github.com/soypat/remesh/nearest"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrEmptyMesh        = errors.New("remesh: mesh has no faces")
	ErrComplexity       = errors.New("remesh: mesh complexity limit reached")
	ErrRepeatedCollapse = errors.New("remesh: collapse repeats a recorded removal")
	ErrPinned           = errors.New("remesh: vertex pinned by feature or border")
	ErrFoldover         = errors.New("remesh: relocation folds the one-ring")
	ErrNoLinks          = errors.New("remesh: links not generated")
)

// Below this many faces local queries are answered exhaustively.
const bruteFaces = 16

// Session holds an input surface and a working surface derived from it,
// the links between the two and the decimation history. The input mesh
// must not be edited while a session uses it.
type Session struct {
	id  uuid.UUID
	cfg Config
	log *zap.Logger

	input   *Surface
	work    *Surface
	inQuery nearest.Query
	hist    *history.History
	smp     *sampler
	out     budget // out-link sample policy fixed at link generation.
	linked  bool
	bound   float64 // squared error bound.
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger of the session. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// NewSession validates cfg and starts a session whose working surface is a
// copy of input. Links are not generated.
func NewSession(cfg Config, input *mesh.Mesh, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if input == nil || input.NumFaces() == 0 {
		return nil, ErrEmptyMesh
	}
	s := &Session{
		id:   uuid.New(),
		cfg:  cfg,
		log:  zap.NewNop(),
		hist: history.New(cfg.CollapsedListSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.Stringer("session", s.id))
	s.input = NewSurface(input)
	s.input.Props.ClassifyFeatures(cfg.DihedralTheta, cfg.SumTheta)
	s.inQuery = s.query(input)
	diag := r3.Norm(d3.Box(input.Bounds()).Size())
	s.bound = math.Pow(cfg.MaxErrorThreshold/100*diag, 2)
	s.ResetFromInput()
	s.log.Debug("session created",
		zap.Int("vertices", input.NumVertices()),
		zap.Int("faces", input.NumFaces()),
		zap.Float64("diagonal", diag),
	)
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Config returns the options of the session.
func (s *Session) Config() Config { return s.cfg }

// Input returns the input surface. Its out-link tables hold the in-links of
// the working surface.
func (s *Session) Input() *Surface { return s.input }

// Remesh returns the working surface.
func (s *Session) Remesh() *Surface { return s.work }

// History returns the decimation history.
func (s *Session) History() *history.History { return s.hist }

// Linked reports whether links were generated since the last reset.
func (s *Session) Linked() bool { return s.linked }

// ErrorBound returns the largest conforming squared error: the square of
// MaxErrorThreshold percent of the input bounding box diagonal.
func (s *Session) ErrorBound() float64 { return s.bound }

// MaxError returns the maximum squared error of f of the working surface,
// or Unset.
func (s *Session) MaxError(f mesh.Face) float64 { return s.work.FaceMaxError(f) }

// ResetFromInput replaces the working surface with a fresh copy of the
// input. Links and history are cleared.
func (s *Session) ResetFromInput() {
	s.setWork(s.input.Mesh.Clone())
}

// UseRemesh replaces the working surface with m, for example a surface
// produced by another tool. Links and history are cleared.
func (s *Session) UseRemesh(m *mesh.Mesh) error {
	if m == nil || m.NumFaces() == 0 {
		return ErrEmptyMesh
	}
	s.setWork(m)
	return nil
}

func (s *Session) setWork(m *mesh.Mesh) {
	if s.work != nil {
		s.work.Props.Detach()
	}
	s.work = NewSurface(m)
	s.work.Props.ClassifyFeatures(s.cfg.DihedralTheta, s.cfg.SumTheta)
	s.input.Props.ClearLinks()
	s.hist.Clear()
	s.linked = false
}

// ClearLinks removes every link of both surfaces. Every face of the
// working surface is left with an Unset maximum error.
func (s *Session) ClearLinks() {
	s.input.Props.ClearLinks()
	s.work.Props.ClearLinks()
	ComputeMaxErrors(s.work, s.input)
	s.linked = false
}

// GenerateLinks samples both surfaces as configured, links every sample to
// its closest point on the other surface and computes the maximum error of
// every face. The decimation history is cleared.
func (s *Session) GenerateLinks() {
	start := time.Now()
	s.input.Props.ClearLinks()
	s.work.Props.ClearLinks()
	s.hist.Clear()
	s.smp = newSampler(s.cfg.Seed, s.cfg.UseStratifiedSampling)
	inFaces := s.input.Mesh.NumFaces()
	s.out = newBudget(s.cfg, s.work, s.cfg.SamplesPerFacetOut, inFaces)

	wm := s.work.Mesh
	s.sampleOut(wm.Faces(), s.work.canonicalEdges(wm.Faces()), wm.Vertices())
	if s.cfg.FacetOptimizeType.InputToRemesh() || s.cfg.EdgeOptimizeType.InputToRemesh() ||
		s.cfg.VertexOptimizeType.InputToRemesh() {
		s.sampleIn(s.query(wm))
	}
	ComputeMaxErrors(s.work, s.input)
	s.linked = true

	out, _ := s.work.Props.NumLinks()
	in, _ := s.input.Props.NumLinks()
	log := s.log.Debug
	if s.cfg.VerboseProgress {
		log = s.log.Info
	}
	log("links generated",
		zap.Int("out", out),
		zap.Int("in", in),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// sampleOut replaces the out-links of the given faces, canonical
// half-edges and vertices of the working surface.
func (s *Session) sampleOut(faces []mesh.Face, edges []mesh.Halfedge, verts []mesh.Vertex) {
	m, wp := s.work.Mesh, s.work.Props
	var pts []r3.Vec
	if s.cfg.FacetOptimizeType.RemeshToInput() {
		for _, f := range faces {
			t := m.Triangle(f)
			pts = pts[:0]
			if !d3.Degenerate(t, link.Tolerance) {
				pts = s.smp.triangle(pts, t, s.out.faceSamples(d3.Area(t)))
			}
			putLinks(wp.FaceOut.Put, wp.FaceOut.Erase, f, match(s.inQuery, pts))
		}
	}
	if s.cfg.EdgeOptimizeType.RemeshToInput() {
		for _, h := range edges {
			a, b := m.Point(m.Source(h)), m.Point(m.Target(h))
			pts = pts[:0]
			if !link.Equal(a, b) {
				pts = s.smp.segment(pts, a, b, s.out.edgeSamples(r3.Norm(r3.Sub(b, a))))
			}
			wp.EdgeOut.Erase(h ^ 1)
			putLinks(wp.EdgeOut.Put, wp.EdgeOut.Erase, h, match(s.inQuery, pts))
		}
	}
	if s.cfg.VertexOptimizeType.RemeshToInput() {
		for _, v := range verts {
			p := m.Point(v)
			c, _ := s.inQuery.Closest(p)
			wp.VertexOut.Put(v, link.New(p, c))
		}
	}
}

func putLinks[H ~int](put func(H, []link.Link), erase func(H), h H, links []link.Link) {
	if len(links) == 0 {
		erase(h)
		return
	}
	put(h, links)
}

// sampleIn samples the input surface, links the samples to q and records
// references to them on the working faces they matched.
func (s *Session) sampleIn(q nearest.Query) {
	m, ip := s.input.Mesh, s.input.Props
	b := newBudget(s.cfg, s.input, s.cfg.SamplesPerFacetIn, m.NumFaces())
	var pts []r3.Vec
	if s.cfg.FacetOptimizeType.InputToRemesh() {
		for _, f := range m.Faces() {
			t := m.Triangle(f)
			if d3.Degenerate(t, link.Tolerance) {
				continue
			}
			pts = s.smp.triangle(pts[:0], t, b.faceSamples(d3.Area(t)))
			if links := s.linkIn(link.FaceIn, int32(f), pts, q); len(links) > 0 {
				ip.FaceOut.Put(f, links)
			}
		}
	}
	if s.cfg.EdgeOptimizeType.InputToRemesh() {
		for _, h := range s.input.canonicalEdges(m.Faces()) {
			a, c := m.Point(m.Source(h)), m.Point(m.Target(h))
			if link.Equal(a, c) {
				continue
			}
			pts = s.smp.segment(pts[:0], a, c, b.edgeSamples(r3.Norm(r3.Sub(c, a))))
			if links := s.linkIn(link.EdgeIn, int32(h), pts, q); len(links) > 0 {
				ip.EdgeOut.Put(h, links)
			}
		}
	}
	if s.cfg.VertexOptimizeType.InputToRemesh() {
		for _, v := range m.Vertices() {
			links := s.linkIn(link.VertexIn, int32(v), []r3.Vec{m.Point(v)}, q)
			ip.VertexOut.Put(v, links[0])
		}
	}
}

// linkIn matches input samples owned by owner against q and references
// each resulting link from the working face it matched.
func (s *Session) linkIn(c link.Category, owner int32, pts []r3.Vec, q nearest.Query) []link.Link {
	links := make([]link.Link, len(pts))
	for i, p := range pts {
		matched, f := q.Closest(p)
		links[i] = link.New(p, matched)
		if f != mesh.NullFace {
			s.work.Props.addRef(c, f, link.Ref{Owner: owner, Index: int32(i)})
		}
	}
	return links
}

// canonicalEdges returns the canonical half-edge of each distinct edge of
// faces.
func (s *Surface) canonicalEdges(faces []mesh.Face) []mesh.Halfedge {
	seen := make(map[mesh.Edge]bool)
	var hs []mesh.Halfedge
	for _, f := range faces {
		for _, h := range s.Mesh.FaceHalfedges(f) {
			e := s.Mesh.EdgeOf(h)
			if !seen[e] {
				seen[e] = true
				hs = append(hs, s.Props.CanonicalHalfedge(h))
			}
		}
	}
	return hs
}

// query returns the closest point query over all faces of m.
func (s *Session) query(m *mesh.Mesh) nearest.Query {
	if s.cfg.NearestQuery == NearestKDTree {
		return nearest.NewKDTree(m)
	}
	return nearest.NewBIH(m)
}

// localQuery returns a closest point query restricted to faces, or over the
// whole working surface when local trees are disabled. The global query is
// rebuilt on every call since each edit changes the working surface.
func (s *Session) localQuery(faces []mesh.Face) nearest.Query {
	switch {
	case !s.cfg.UseLocalAABBTree:
		return s.query(s.work.Mesh)
	case len(faces) <= bruteFaces:
		return nearest.NewBrute(s.work.Mesh, faces)
	}
	return nearest.NewBIHFaces(s.work.Mesh, faces)
}

// Refresh brings the working surface up to date after its faces changed
// geometry or connectivity: normals and feature tags are recomputed, the
// out-links of the faces, their edges and their vertices are resampled,
// in-links of the faces and of destroyed faces are matched again against
// the surrounding faces and the maximum error of every face whose links
// changed is recomputed. Dead faces are ignored.
func (s *Session) Refresh(faces []mesh.Face) {
	m, wp := s.work.Mesh, s.work.Props
	live := faces[:0:0]
	for _, f := range faces {
		if m.IsFaceAlive(f) {
			live = append(live, f)
		}
	}
	faces = live
	wp.ComputeLocalNormals(faces)
	wp.ClassifyLocalFeatures(faces, s.cfg.DihedralTheta, s.cfg.SumTheta)
	pending := wp.TakeOrphans()
	if !s.linked {
		return
	}
	start := time.Now()
	for _, f := range faces {
		for _, c := range [...]link.Category{link.FaceIn, link.EdgeIn, link.VertexIn} {
			for _, r := range wp.refs(c, f) {
				pending = append(pending, Orphan{Category: c, Ref: r})
			}
		}
		wp.FaceIn.Erase(f)
		wp.EdgeIn.Erase(f)
		wp.VertexIn.Erase(f)
	}
	verts := wp.vertexRing(faces)
	ring := wp.faceRing(verts)
	s.sampleOut(faces, s.work.canonicalEdges(faces), verts)

	touched := ring
	if len(pending) > 0 && len(ring) > 0 {
		seen := make(map[mesh.Face]bool, len(ring))
		for _, f := range ring {
			seen[f] = true
		}
		q := s.localQuery(ring)
		for _, o := range pending {
			l := s.input.inLink(o.Category, o.Ref)
			matched, f := q.Closest(l.Source)
			s.input.setInLink(o.Category, o.Ref, l.Rematch(matched))
			if f == mesh.NullFace {
				continue
			}
			wp.addRef(o.Category, f, o.Ref)
			if !seen[f] {
				seen[f] = true
				touched = append(touched, f)
			}
		}
	}
	UpdateMaxErrors(s.work, s.input, touched)
	s.log.Debug("refreshed",
		zap.Int("faces", len(faces)),
		zap.Int("rematched", len(pending)),
		zap.Int("updated", len(touched)),
		zap.Duration("elapsed", time.Since(start)),
	)
}
