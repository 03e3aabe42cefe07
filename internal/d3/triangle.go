package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Normal returns the unit normal of t following the right hand rule.
// Degenerate triangles return the zero vector.
func Normal(t r3.Triangle) r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	norm := r3.Norm(n)
	if norm == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/norm, n)
}

// Area returns the area of t.
func Area(t r3.Triangle) float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

// Centroid returns the average of the triangle vertices.
func Centroid(t r3.Triangle) r3.Vec {
	return r3.Scale(1./3., r3.Add(r3.Add(t[0], t[1]), t[2]))
}

// Degenerate returns true if two vertices of t are within tol of each other.
func Degenerate(t r3.Triangle, tol float64) bool {
	return EqualWithin(t[0], t[1], tol) ||
		EqualWithin(t[1], t[2], tol) ||
		EqualWithin(t[2], t[0], tol)
}

// Angle returns the interior angle of t at vertex i in radians.
func Angle(t r3.Triangle, i int) float64 {
	a := t[i]
	s1, s2 := r3.Sub(t[(i+1)%3], a), r3.Sub(t[(i+2)%3], a)
	n1, n2 := r3.Norm(s1), r3.Norm(s2)
	if n1 == 0 || n2 == 0 {
		return 0
	}
	c := r3.Dot(s1, s2) / (n1 * n2)
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// MinAngle returns the smallest interior angle of t in radians.
func MinAngle(t r3.Triangle) float64 {
	return math.Min(Angle(t, 0), math.Min(Angle(t, 1), Angle(t, 2)))
}

// Barycentric returns the point of t with barycentric coordinates (1-u-v, u, v).
func Barycentric(t r3.Triangle, u, v float64) r3.Vec {
	e0 := r3.Sub(t[1], t[0])
	e1 := r3.Sub(t[2], t[0])
	return r3.Add(t[0], r3.Add(r3.Scale(u, e0), r3.Scale(v, e1)))
}

// Closest returns closest point on the triangle to argument point p.
//
// Based on Geometric Tool's algorithm for distance between a point
// and a solid triangle, licensed under the Boost Software License.
func Closest(p r3.Vec, t r3.Triangle) r3.Vec {
	diff := r3.Sub(p, t[0])
	edge0 := r3.Sub(t[1], t[0])
	edge1 := r3.Sub(t[2], t[0])
	if r3.Norm2(r3.Cross(edge0, edge1)) < 1e-24 {
		// Degenerate triangles have no interior.
		return closestOnEdges(p, t)
	}

	a00 := r3.Dot(edge0, edge0)
	a01 := r3.Dot(edge0, edge1)
	a11 := r3.Dot(edge1, edge1)
	b0 := -r3.Dot(diff, edge0)
	b1 := -r3.Dot(diff, edge1)

	f00 := b0
	f10 := b0 + a00
	f01 := b0 + a01

	var p0, p1, uv [2]float64
	var dt1, h0, h1 float64
	switch {
	case f00 >= 0:
		if f01 >= 0 {
			uv = minEdge02(a11, b1)
			break
		}
		p0 = [2]float64{0, f00 / (f00 - f01)}
		p1[0] = f01 / (f01 - f10)
		p1[1] = 1 - p1[0]
		dt1 = p1[1] - p0[1]
		h0 = dt1 * (a11*p0[1] + b1)
		if h0 >= 0 {
			uv = minEdge02(a11, b1)
			break
		}
		h1 = dt1 * (a01*p1[0] + a11*p1[1] + b1)
		if h1 <= 0 {
			uv = minEdge12(a01, a11, b1, f10, f01)
		} else {
			uv = minInterior(p0, h0, p1, h1)
		}

	case f01 <= 0:
		if f10 <= 0 {
			uv = minEdge12(a01, a11, b1, f10, f01)
			break
		}
		p0 = [2]float64{f00 / (f00 - f10), 0}
		p1[0] = f01 / (f01 - f10)
		p1[1] = 1 - p1[0]
		h0 = p1[1] * (a01*p0[0] + b1)
		if h0 >= 0 {
			uv = p0
			break
		}
		h1 = p1[1] * (a01*p1[0] + a11*p1[1] + b1)
		if h1 <= 0 {
			uv = minEdge12(a01, a11, b1, f10, f01)
		} else {
			uv = minInterior(p0, h0, p1, h1)
		}

	case f10 <= 0:
		p0 = [2]float64{0, f00 / (f00 - f01)}
		p1[0] = f01 / (f01 - f10)
		p1[1] = 1 - p1[0]
		dt1 = p1[1] - p0[1]
		h0 = dt1 * (a11*p0[1] + b1)
		if h0 >= 0 {
			uv = minEdge02(a11, b1)
			break
		}
		h1 = dt1 * (a01*p1[0] + a11*p1[1] + b1)
		if h1 <= 0 {
			uv = minEdge12(a01, a11, b1, f10, f01)
		} else {
			uv = minInterior(p0, h0, p1, h1)
		}

	default:
		p0 = [2]float64{f00 / (f00 - f10), 0}
		p1 = [2]float64{0, f00 / (f00 - f01)}
		h0 = p1[1] * (a01*p0[0] + b1)
		if h0 >= 0 {
			uv = p0
			break
		}
		h1 = p1[1] * (a11*p1[1] + b1)
		if h1 <= 0 {
			uv = minEdge02(a11, b1)
		} else {
			uv = minInterior(p0, h0, p1, h1)
		}
	}
	return Barycentric(t, uv[0], uv[1])
}

func minEdge02(a11, b1 float64) (p [2]float64) {
	switch {
	case b1 >= 0:
		p[1] = 0
	case a11+b1 <= 0:
		p[1] = 1
	default:
		p[1] = -b1 / a11
	}
	return p
}

func minEdge12(a01, a11, b1, f10, f01 float64) (p [2]float64) {
	h0 := a01 + b1 - f10
	if h0 >= 0 {
		p[1] = 0
	} else {
		h1 := a11 + b1 - f01
		if h1 <= 0 {
			p[1] = 1
		} else {
			p[1] = h0 / (h0 - h1)
		}
	}
	p[0] = 1 - p[1]
	return p
}

func minInterior(p0 [2]float64, h0 float64, p1 [2]float64, h1 float64) (p [2]float64) {
	z := h0 / (h0 - h1)
	omz := 1 - z
	p[0] = omz*p0[0] + z*p1[0]
	p[1] = omz*p0[1] + z*p1[1]
	return p
}

// ClosestOnSegment returns the point of segment ab closest to p.
func ClosestOnSegment(p, a, b r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	l2 := r3.Norm2(ab)
	if l2 == 0 {
		return a
	}
	s := r3.Dot(r3.Sub(p, a), ab) / l2
	s = math.Max(0, math.Min(1, s))
	return r3.Add(a, r3.Scale(s, ab))
}

func closestOnEdges(p r3.Vec, t r3.Triangle) r3.Vec {
	best := t[0]
	bestDist := math.Inf(1)
	for i := range t {
		c := ClosestOnSegment(p, t[i], t[(i+1)%3])
		if d := Dist2(p, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
