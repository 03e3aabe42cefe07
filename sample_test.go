package remesh

import (
	"math"
	"testing"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBudgetFaceSamples(t *testing.T) {
	s := NewSurface(mesh.Grid(2, 1)) // 8 faces of area 1/8.
	for _, test := range []struct {
		name     string
		number   SampleNumberStrategy
		strategy SampleStrategy
		area     float64
		inFaces  int
		maxArea  int
		min      int
		want     int
	}{
		{name: "adaptive fixed", number: SampleNumberFixed, strategy: SampleAdaptive, area: 0.125, inFaces: 100, maxArea: 10000, want: 10},
		{name: "adaptive variable", number: SampleNumberVariable, strategy: SampleAdaptive, area: 0.125, inFaces: 16, maxArea: 10000, want: 20},
		{name: "uniform large face", number: SampleNumberFixed, strategy: SampleUniform, area: 0.25, inFaces: 8, maxArea: 10000, want: 20},
		{name: "area cap", number: SampleNumberFixed, strategy: SampleAdaptive, area: 0.125, inFaces: 8, maxArea: 16, want: 2},
		{name: "minimum", number: SampleNumberFixed, strategy: SampleUniform, area: 1e-6, inFaces: 8, maxArea: 10000, min: 3, want: 3},
	} {
		cfg := DefaultConfig()
		cfg.SampleNumberStrategy = test.number
		cfg.SampleStrategy = test.strategy
		cfg.MaxSamplesPerArea = test.maxArea
		cfg.MinSamplesPerTriangle = test.min
		b := newBudget(cfg, s, 10, test.inFaces)
		if got := b.faceSamples(test.area); got != test.want {
			t.Errorf("%s: got %d samples, want %d", test.name, got, test.want)
		}
	}
	b := newBudget(DefaultConfig(), s, 0, 8)
	if b.faceSamples(1) != 0 || b.edgeSamples(1) != 0 {
		t.Error("zero samples per facet still samples")
	}
}

func TestBudgetEdgeSamples(t *testing.T) {
	s := NewSurface(mesh.Grid(1, 1))
	b := newBudget(DefaultConfig(), s, 9, 2)
	avg := s.Mesh.AverageEdgeLength()
	if got := b.edgeSamples(avg); got != 3 {
		t.Errorf("average edge: got %d, want 3", got)
	}
	if got := b.edgeSamples(avg / 100); got != 1 {
		t.Errorf("short edge: got %d, want 1", got)
	}
	if got := b.edgeSamples(2 * avg); got != 6 {
		t.Errorf("long edge: got %d, want 6", got)
	}
}

func TestSamplerPointsInside(t *testing.T) {
	tri := r3.Triangle{{}, {X: 2}, {Y: 1, Z: 1}}
	for _, stratified := range []bool{false, true} {
		smp := newSampler(7, stratified)
		pts := smp.triangle(nil, tri, 200)
		if len(pts) != 200 {
			t.Fatalf("got %d points", len(pts))
		}
		var mean r3.Vec
		for _, p := range pts {
			if d3.Dist2(d3.Closest(p, tri), p) > 1e-24 {
				t.Fatalf("point %v off triangle", p)
			}
			mean = r3.Add(mean, r3.Scale(1./200, p))
		}
		if c := d3.Centroid(tri); math.Sqrt(d3.Dist2(mean, c)) > 0.2 {
			t.Errorf("stratified=%v: sample mean %v far from centroid %v", stratified, mean, c)
		}
		seg := smp.segment(nil, r3.Vec{}, r3.Vec{X: 1}, 5)
		for _, p := range seg {
			if p.X <= 0 || p.X >= 1 || p.Y != 0 {
				t.Fatalf("segment sample %v not inside", p)
			}
		}
	}
	a := newSampler(3, false).triangle(nil, tri, 5)
	b := newSampler(3, false).triangle(nil, tri, 5)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same seed gave different samples")
		}
	}
	s := newSampler(1, true)
	if got := s.segment(nil, r3.Vec{}, r3.Vec{X: 1}, 3); got[0].X != 0.25 || got[2].X != 0.75 {
		t.Fatalf("stratified segment samples %v", got)
	}
}
