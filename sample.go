package remesh

import (
	"math"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/link"
	"github.com/soypat/remesh/nearest"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// Constants of the R2 low discrepancy sequence, the inverses of the
// plastic number and of its square.
const (
	r2a1 = 1 / 1.32471795724474602596
	r2a2 = 1 / (1.32471795724474602596 * 1.32471795724474602596)
)

// budget is the sample count policy for one surface in one direction.
type budget struct {
	perFacet   int
	total      float64 // samples over all faces.
	totalArea  float64
	faces      int
	avgEdge    float64
	maxPerArea int
	minPerTri  int
	strategy   SampleStrategy
}

// newBudget returns the budget for sampling s with perFacet samples per
// facet. inputFaces is the face count of the input surface.
func newBudget(cfg Config, s *Surface, perFacet, inputFaces int) budget {
	b := budget{
		perFacet:   perFacet,
		faces:      s.Mesh.NumFaces(),
		avgEdge:    s.Mesh.AverageEdgeLength(),
		maxPerArea: cfg.MaxSamplesPerArea,
		minPerTri:  cfg.MinSamplesPerTriangle,
		strategy:   cfg.SampleStrategy,
	}
	for _, f := range s.Mesh.Faces() {
		b.totalArea += d3.Area(s.Mesh.Triangle(f))
	}
	switch cfg.SampleNumberStrategy {
	case SampleNumberVariable:
		b.total = float64(perFacet * inputFaces)
	default:
		b.total = float64(perFacet * b.faces)
	}
	return b
}

// faceSamples returns the number of samples for a face of the given area.
func (b budget) faceSamples(area float64) int {
	if b.perFacet == 0 || b.faces == 0 {
		return 0
	}
	var n float64
	switch b.strategy {
	case SampleUniform:
		if b.totalArea > 0 {
			n = b.total * area / b.totalArea
		}
	default:
		n = b.total / float64(b.faces)
	}
	count := int(math.Round(n))
	if limit := int(math.Ceil(float64(b.maxPerArea) * area)); count > limit {
		count = limit
	}
	if count < b.minPerTri {
		count = b.minPerTri
	}
	return count
}

// edgeSamples returns the number of samples for an edge of the given length.
func (b budget) edgeSamples(length float64) int {
	if b.perFacet == 0 || b.avgEdge == 0 {
		return 0
	}
	n := math.Round(math.Sqrt(float64(b.perFacet)) * length / b.avgEdge)
	return int(math.Max(1, n))
}

// sampler places sample points on triangles and edges. Stratified sampling
// uses the R2 sequence restarted on every element; otherwise points are
// drawn from a seeded generator.
type sampler struct {
	rng        *rand.Rand
	stratified bool
}

func newSampler(seed uint64, stratified bool) *sampler {
	return &sampler{rng: rand.New(rand.NewSource(seed)), stratified: stratified}
}

// triangle appends n points of t to dst.
func (s *sampler) triangle(dst []r3.Vec, t r3.Triangle, n int) []r3.Vec {
	for i := 0; i < n; i++ {
		var u, v float64
		if s.stratified {
			u = frac(0.5 + float64(i+1)*r2a1)
			v = frac(0.5 + float64(i+1)*r2a2)
		} else {
			u, v = s.rng.Float64(), s.rng.Float64()
		}
		if u+v > 1 {
			u, v = 1-u, 1-v
		}
		dst = append(dst, d3.Barycentric(t, u, v))
	}
	return dst
}

// segment appends n points strictly inside segment ab to dst.
func (s *sampler) segment(dst []r3.Vec, a, b r3.Vec, n int) []r3.Vec {
	for i := 0; i < n; i++ {
		t := float64(i+1) / float64(n+1)
		if !s.stratified {
			t = s.rng.Float64()
			for t == 0 {
				t = s.rng.Float64()
			}
		}
		dst = append(dst, d3.Lerp(a, b, t))
	}
	return dst
}

func frac(x float64) float64 { return x - math.Floor(x) }

// match links every point of src to its closest point on q.
func match(q nearest.Query, src []r3.Vec) []link.Link {
	if len(src) == 0 {
		return nil
	}
	links := make([]link.Link, len(src))
	for i, p := range src {
		c, _ := q.Closest(p)
		links[i] = link.New(p, c)
	}
	return links
}
