package remesh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/soypat/remesh/link"
	"github.com/soypat/remesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func triangleSurface(t *testing.T) *Surface {
	t.Helper()
	m, err := mesh.New([]r3.Vec{{}, {X: 1}, {Y: 1}}, [][3]int{{0, 1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	s := NewSurface(m)
	s.Props.ClassifyFeatures(1, 1)
	return s
}

func TestAggregateThreeCategories(t *testing.T) {
	work, in := triangleSurface(t), triangleSurface(t)
	h := in.Mesh.Halfedge(0)
	in.Props.FaceOut.Put(0, []link.Link{link.New(r3.Vec{}, r3.Vec{Z: 0.1})})
	in.Props.EdgeOut.Put(h, []link.Link{link.New(r3.Vec{X: 0.5}, r3.Vec{X: 0.5, Z: 0.2})})
	work.Props.addRef(link.FaceIn, 0, link.Ref{Owner: 0, Index: 0})
	work.Props.addRef(link.EdgeIn, 0, link.Ref{Owner: int32(h), Index: 0})
	work.Props.VertexOut.Put(0, link.New(r3.Vec{}, r3.Vec{Z: math.Sqrt(0.02)}))

	ComputeMaxErrors(work, in)
	if got := work.FaceMaxError(0); math.Abs(got-0.04) > 1e-15 {
		t.Fatalf("full: got %g, want 0.04", got)
	}
	work.Props.MaxError.Reset()
	UpdateMaxErrors(work, in, []mesh.Face{0})
	if got := work.FaceMaxError(0); math.Abs(got-0.04) > 1e-15 {
		t.Fatalf("incremental: got %g, want 0.04", got)
	}
}

func TestAggregateNoLinksUnset(t *testing.T) {
	work, in := NewSurface(mesh.Grid(3, 1)), NewSurface(mesh.Grid(3, 1))
	work.Props.MaxError.Put(0, 0.5)
	ComputeMaxErrors(work, in)
	for _, f := range work.Mesh.Faces() {
		if got := work.FaceMaxError(f); got != Unset {
			t.Fatalf("face %d: got %g, want Unset", f, got)
		}
	}
	if f, se := work.MaxErrorFace(); f != mesh.NullFace || se != Unset {
		t.Fatalf("MaxErrorFace on unmeasured surface: %d %g", f, se)
	}
	if sum := work.Summarize(); sum.Measured != 0 || sum.Faces != 18 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestAggregateZeroIsNotUnset(t *testing.T) {
	work, in := triangleSurface(t), triangleSurface(t)
	work.Props.FaceOut.Put(0, []link.Link{link.New(r3.Vec{X: 0.2, Y: 0.2}, r3.Vec{X: 0.2, Y: 0.2})})
	ComputeMaxErrors(work, in)
	if got := work.FaceMaxError(0); got != 0 {
		t.Fatalf("exact match: got %g, want 0", got)
	}
	work.Props.ClearLinks()
	ComputeMaxErrors(work, in)
	if got := work.FaceMaxError(0); got != Unset {
		t.Fatalf("cleared links: got %g, want Unset", got)
	}
}

// randomLinks fills every link category of work and in with random links.
// Some elements are left without links.
func randomLinks(rng *rand.Rand, work, in *Surface) {
	rl := func() link.Link {
		p := r3.Vec{X: rng.Float64(), Y: rng.Float64()}
		return link.New(p, r3.Add(p, r3.Vec{Z: rng.Float64() * 0.1}))
	}
	list := func() []link.Link {
		l := make([]link.Link, rng.Intn(3))
		for i := range l {
			l[i] = rl()
		}
		return l
	}
	for _, f := range in.Mesh.Faces() {
		in.Props.FaceOut.Put(f, list())
	}
	for _, h := range in.canonicalEdges(in.Mesh.Faces()) {
		in.Props.EdgeOut.Put(h, list())
	}
	for _, v := range in.Mesh.Vertices() {
		in.Props.VertexOut.Put(v, rl())
	}
	faces := work.Mesh.Faces()
	pick := func() mesh.Face { return faces[rng.Intn(len(faces))] }
	in.Props.FaceOut.Range(func(f mesh.Face, l []link.Link) bool {
		for i := range l {
			work.Props.addRef(link.FaceIn, pick(), link.Ref{Owner: int32(f), Index: int32(i)})
		}
		return true
	})
	in.Props.EdgeOut.Range(func(h mesh.Halfedge, l []link.Link) bool {
		for i := range l {
			work.Props.addRef(link.EdgeIn, pick(), link.Ref{Owner: int32(h), Index: int32(i)})
		}
		return true
	})
	for _, v := range in.Mesh.Vertices() {
		if rng.Intn(3) == 0 {
			work.Props.addRef(link.VertexIn, pick(), link.Ref{Owner: int32(v)})
		}
	}
	for _, f := range faces {
		if rng.Intn(4) == 0 {
			work.Props.FaceOut.Put(f, list())
		}
	}
	for _, h := range work.canonicalEdges(faces) {
		if rng.Intn(4) == 0 {
			work.Props.EdgeOut.Put(h, list())
		}
	}
	for _, v := range work.Mesh.Vertices() {
		if rng.Intn(8) == 0 {
			work.Props.VertexOut.Put(v, rl())
		}
	}
}

func TestAggregateFullEqualsIncremental(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		work, in := NewSurface(mesh.Grid(5, 1)), NewSurface(mesh.Grid(3, 1))
		work.Props.ClassifyFeatures(1, 1)
		in.Props.ClassifyFeatures(1, 1)
		randomLinks(rng, work, in)
		ComputeMaxErrors(work, in)
		full := make(map[mesh.Face]float64)
		for _, f := range work.Mesh.Faces() {
			full[f] = work.FaceMaxError(f)
		}
		// Incremental over a subset leaves the others untouched.
		faces := work.Mesh.Faces()
		subset := faces[:len(faces)/2]
		for _, f := range subset {
			work.Props.MaxError.Put(f, 123)
		}
		UpdateMaxErrors(work, in, subset)
		for f, want := range full {
			if got := work.FaceMaxError(f); got != want {
				t.Fatalf("trial %d face %d: incremental %g, full %g", trial, f, got, want)
			}
		}
	}
}

func TestMaxErrorFaceTies(t *testing.T) {
	s := NewSurface(mesh.Grid(2, 1))
	s.Props.MaxError.Put(5, 0.3)
	s.Props.MaxError.Put(2, 0.3)
	s.Props.MaxError.Put(1, 0.1)
	if f, se := s.MaxErrorFace(); f != 2 || se != 0.3 {
		t.Fatalf("got face %d error %g, want face 2 error 0.3", f, se)
	}
}

func TestSummarize(t *testing.T) {
	s := NewSurface(mesh.Grid(2, 1))
	for i, d := range []float64{1, 2, 3, 4} {
		s.Props.MaxError.Put(mesh.Face(i), d*d)
	}
	sum := s.Summarize()
	if sum.Faces != 8 || sum.Measured != 4 {
		t.Fatalf("counts: %+v", sum)
	}
	if sum.Max != 4 || sum.Mean != 2.5 {
		t.Fatalf("max/mean: %+v", sum)
	}
	if want := math.Sqrt(30.0 / 4); math.Abs(sum.RMS-want) > 1e-12 {
		t.Fatalf("rms: got %g, want %g", sum.RMS, want)
	}
	if sum.Median != 2 || sum.P90 != 4 {
		t.Fatalf("quantiles: %+v", sum)
	}
	if v := s.Values(); len(v) != 4 || v[3] != 4 {
		t.Fatalf("values: %v", v)
	}
}

func TestSummarizeUnordered(t *testing.T) {
	s := NewSurface(mesh.Grid(2, 1))
	for i, d := range []float64{4, 1, 3, 2} {
		s.Props.MaxError.Put(mesh.Face(i), d*d)
	}
	sum := s.Summarize()
	if sum.Max != 4 || sum.Median != 2 || sum.P90 != 4 {
		t.Fatalf("unordered errors: %+v", sum)
	}
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestStaleInLinkPanics(t *testing.T) {
	work, in := triangleSurface(t), triangleSurface(t)
	in.Props.FaceOut.Put(0, []link.Link{link.New(r3.Vec{}, r3.Vec{Z: 0.1})})
	work.Props.addRef(link.FaceIn, 0, link.Ref{Owner: 0, Index: 3})
	mustPanic(t, "index out of range", func() { ComputeMaxErrors(work, in) })

	work, in = triangleSurface(t), triangleSurface(t)
	work.Props.addRef(link.VertexIn, 0, link.Ref{Owner: 1, Index: 0})
	mustPanic(t, "vertex without out-link", func() { ComputeMaxErrors(work, in) })

	work, in = triangleSurface(t), triangleSurface(t)
	work.Props.addRef(link.EdgeIn, 0, link.Ref{Owner: int32(in.Mesh.Halfedge(0)), Index: -1})
	mustPanic(t, "negative index", func() { ComputeMaxErrors(work, in) })
}
