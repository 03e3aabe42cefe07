package nearest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func randVec(rng *rand.Rand, scale float64) r3.Vec {
	return r3.Vec{
		X: scale * (2*rng.Float64() - 1),
		Y: scale * (2*rng.Float64() - 1),
		Z: scale * (2*rng.Float64() - 1),
	}
}

func TestClosestOnTriangle(t *testing.T) {
	tri := r3.Triangle{{}, {X: 1}, {Y: 1}}
	for _, test := range []struct {
		p, want r3.Vec
	}{
		{p: r3.Vec{X: 0.25, Y: 0.25, Z: 3}, want: r3.Vec{X: 0.25, Y: 0.25}},
		{p: r3.Vec{X: -1, Y: -1, Z: 0}, want: r3.Vec{}},
		{p: r3.Vec{X: 2, Y: -0.5, Z: 1}, want: r3.Vec{X: 1}},
		{p: r3.Vec{X: 1, Y: 1, Z: 0}, want: r3.Vec{X: 0.5, Y: 0.5}},
		{p: r3.Vec{X: 0.5, Y: -2, Z: 0}, want: r3.Vec{X: 0.5}},
	} {
		got := ClosestOnTriangle(test.p, tri)
		if !d3.EqualWithin(got, test.want, 1e-12) {
			t.Errorf("closest to %v: got %v, want %v", test.p, got, test.want)
		}
	}
}

func TestBIHMatchesBrute(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, m := range []*mesh.Mesh{mesh.Octahedron(1), mesh.Grid(12, 2)} {
		bih := NewBIH(m)
		brute := NewBrute(m, m.Faces())
		for i := 0; i < 500; i++ {
			p := randVec(rng, 1.5)
			q1, f1 := bih.Closest(p)
			q2, _ := brute.Closest(p)
			d1, d2 := d3.Dist2(p, q1), d3.Dist2(p, q2)
			if math.Abs(d1-d2) > 1e-12 {
				t.Fatalf("point %v: bih distance %g, brute distance %g", p, d1, d2)
			}
			if on := ClosestOnTriangle(q1, m.Triangle(f1)); d3.Dist2(on, q1) > 1e-20 {
				t.Fatalf("point %v: closest point not on returned face %d", p, f1)
			}
		}
	}
}

func TestBIHFacesSubset(t *testing.T) {
	m := mesh.Grid(4, 1)
	faces := m.Faces()[:3]
	bih := NewBIHFaces(m, faces)
	_, f := bih.Closest(r3.Vec{X: 10, Y: 10})
	if f != faces[0] && f != faces[1] && f != faces[2] {
		t.Fatalf("face %d outside queried subset", f)
	}
	empty := NewBIHFaces(m, nil)
	if q, f := empty.Closest(r3.Vec{X: 1}); f != mesh.NullFace || q != (r3.Vec{X: 1}) {
		t.Fatal("empty hierarchy returned a face")
	}
}

func TestKDTreeCloseToExact(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	m := mesh.Grid(10, 1)
	kd := NewKDTree(m)
	brute := NewBrute(m, m.Faces())
	for i := 0; i < 200; i++ {
		p := randVec(rng, 0.5)
		q1, f1 := kd.Closest(p)
		q2, _ := brute.Closest(p)
		d1, d2 := math.Sqrt(d3.Dist2(p, q1)), math.Sqrt(d3.Dist2(p, q2))
		if d1 < d2-1e-12 || d1 > d2+1.5 {
			t.Fatalf("point %v: kd distance %g, exact %g", p, d1, d2)
		}
		if on := ClosestOnTriangle(q1, m.Triangle(f1)); d3.Dist2(on, q1) > 1e-20 {
			t.Fatalf("point %v: closest point not on returned face %d", p, f1)
		}
	}
	// Points on the surface are found exactly.
	for _, f := range m.Faces() {
		c := d3.Centroid(m.Triangle(f))
		if q, _ := kd.Closest(c); d3.Dist2(q, c) > 1e-20 {
			t.Fatalf("centroid of face %d not on surface: %v", f, q)
		}
	}
}
