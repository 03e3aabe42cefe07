// Package link defines sample correspondences between two surfaces and the
// tolerant point comparison shared by everything that needs point identity.
package link

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Tolerance is the distance below which two points are the same point.
	Tolerance = 1e-4
	// SquaredTolerance is Tolerance squared.
	SquaredTolerance = Tolerance * Tolerance
)

// Link is a sample point on one surface and its closest point on the other.
// SquaredError is always the squared distance between Source and Matched.
type Link struct {
	SquaredError float64
	Source       r3.Vec
	Matched      r3.Vec
}

// New returns the link from src to matched with its error computed.
func New(src, matched r3.Vec) Link {
	return Link{
		SquaredError: r3.Norm2(r3.Sub(matched, src)),
		Source:       src,
		Matched:      matched,
	}
}

// Rematch returns l with a new matched point and the error updated.
func (l Link) Rematch(matched r3.Vec) Link { return New(l.Source, matched) }

// Valid reports whether the cached error agrees with the endpoints.
func (l Link) Valid() bool {
	d := r3.Norm2(r3.Sub(l.Matched, l.Source))
	return l.SquaredError >= 0 && withinRel(d, l.SquaredError)
}

func (l Link) String() string {
	return fmt.Sprintf("%v->%v (%g)", l.Source, l.Matched, l.SquaredError)
}

func withinRel(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	scale := a
	if b > scale {
		scale = b
	}
	return diff <= 1e-12*scale+1e-300
}

// Equal returns true if a and b are closer than Tolerance.
func Equal(a, b r3.Vec) bool {
	return r3.Norm2(r3.Sub(a, b)) < SquaredTolerance
}

// Compare orders points lexicographically by X, Y, Z. Points that are Equal
// compare as 0.
func Compare(a, b r3.Vec) int {
	if Equal(a, b) {
		return 0
	}
	switch {
	case a.X < b.X:
		return -1
	case a.X > b.X:
		return 1
	case a.Y < b.Y:
		return -1
	case a.Y > b.Y:
		return 1
	case a.Z < b.Z:
		return -1
	case a.Z > b.Z:
		return 1
	}
	return 0
}

// Category distinguishes the six link collections.
type Category uint8

const (
	FaceIn Category = iota
	EdgeIn
	VertexIn
	FaceOut
	EdgeOut
	VertexOut
)

// Categories lists all categories in sweep order.
var Categories = [...]Category{FaceIn, EdgeIn, VertexIn, FaceOut, EdgeOut, VertexOut}

// In reports whether links of c have their source on the reference surface.
func (c Category) In() bool { return c <= VertexIn }

func (c Category) String() string {
	switch c {
	case FaceIn:
		return "face-in"
	case EdgeIn:
		return "edge-in"
	case VertexIn:
		return "vertex-in"
	case FaceOut:
		return "face-out"
	case EdgeOut:
		return "edge-out"
	case VertexOut:
		return "vertex-out"
	}
	return fmt.Sprintf("Category(%d)", c)
}

// Ref addresses a link owned by an element of another surface:
// the Index'th link of element Owner.
type Ref struct {
	Owner int32
	Index int32
}
