package remesh

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SampleNumberStrategy selects how many samples a surface receives.
type SampleNumberStrategy uint8

const (
	// SampleNumberFixed keeps the number of samples per facet roughly fixed.
	SampleNumberFixed SampleNumberStrategy = iota
	// SampleNumberVariable keeps the total number of samples fixed to that
	// of the input surface so samples per facet vary with the facet count.
	SampleNumberVariable
)

// SampleStrategy selects how samples are distributed over facets.
type SampleStrategy uint8

const (
	// SampleUniform gives each facet a number of samples proportional to its area.
	SampleUniform SampleStrategy = iota
	// SampleAdaptive gives each facet roughly the same number of samples.
	SampleAdaptive
)

// OptimizeType selects which link directions drive optimization of an
// element kind.
type OptimizeType uint8

const (
	OptimizeNone OptimizeType = iota
	OptimizeInputToRemesh
	OptimizeRemeshToInput
	OptimizeBoth
)

// InputToRemesh reports whether links sampled on the input are used.
func (o OptimizeType) InputToRemesh() bool { return o == OptimizeInputToRemesh || o == OptimizeBoth }

// RemeshToInput reports whether links sampled on the remesh are used.
func (o OptimizeType) RemeshToInput() bool { return o == OptimizeRemeshToInput || o == OptimizeBoth }

type OptimizeStrategy uint8

const (
	OptimizeApproximation OptimizeStrategy = iota
	OptimizeInterpolation
)

// EdgeFlipStrategy is the objective used to decide whether an edge flip
// improves the mesh.
type EdgeFlipStrategy uint8

const (
	FlipImproveValence EdgeFlipStrategy = iota
	FlipImproveAngle
)

// RelocateStrategy is the target used when relocating a vertex.
type RelocateStrategy uint8

const (
	// RelocateBarycenter moves a vertex to the mean of its neighbors.
	RelocateBarycenter RelocateStrategy = iota
	// RelocateCVTBarycenter moves a vertex to the area weighted mean of the
	// centroids of its incident faces.
	RelocateCVTBarycenter
)

// NearestQuery selects the closest point structure built over surfaces.
type NearestQuery uint8

const (
	// NearestBIH is an exact bounding interval hierarchy.
	NearestBIH NearestQuery = iota
	// NearestKDTree searches triangles by centroid. Faster to build, may
	// miss the closest triangle when triangle sizes vary a lot.
	NearestKDTree
)

var (
	sampleNumberNames = []string{"fixed", "variable"}
	sampleNames       = []string{"uniform", "adaptive"}
	optimizeTypeNames = []string{"none", "input_to_remesh", "remesh_to_input", "both"}
	optimizeNames     = []string{"approximation", "interpolation"}
	flipNames         = []string{"improve_valence", "improve_angle"}
	relocateNames     = []string{"barycenter", "cvt_barycenter"}
	nearestNames      = []string{"bih", "kdtree"}
)

func (s SampleNumberStrategy) String() string { return enumString(sampleNumberNames, s) }
func (s SampleStrategy) String() string       { return enumString(sampleNames, s) }
func (o OptimizeType) String() string         { return enumString(optimizeTypeNames, o) }
func (o OptimizeStrategy) String() string     { return enumString(optimizeNames, o) }
func (e EdgeFlipStrategy) String() string     { return enumString(flipNames, e) }
func (r RelocateStrategy) String() string     { return enumString(relocateNames, r) }
func (n NearestQuery) String() string         { return enumString(nearestNames, n) }

func (s SampleNumberStrategy) valid() bool { return int(s) < len(sampleNumberNames) }
func (s SampleStrategy) valid() bool       { return int(s) < len(sampleNames) }
func (o OptimizeType) valid() bool         { return int(o) < len(optimizeTypeNames) }
func (o OptimizeStrategy) valid() bool     { return int(o) < len(optimizeNames) }
func (e EdgeFlipStrategy) valid() bool     { return int(e) < len(flipNames) }
func (r RelocateStrategy) valid() bool     { return int(r) < len(relocateNames) }
func (n NearestQuery) valid() bool         { return int(n) < len(nearestNames) }

func (s SampleNumberStrategy) MarshalYAML() (any, error) { return s.String(), nil }
func (s SampleStrategy) MarshalYAML() (any, error)       { return s.String(), nil }
func (o OptimizeType) MarshalYAML() (any, error)         { return o.String(), nil }
func (o OptimizeStrategy) MarshalYAML() (any, error)     { return o.String(), nil }
func (e EdgeFlipStrategy) MarshalYAML() (any, error)     { return e.String(), nil }
func (r RelocateStrategy) MarshalYAML() (any, error)     { return r.String(), nil }
func (n NearestQuery) MarshalYAML() (any, error)         { return n.String(), nil }

func (s *SampleNumberStrategy) UnmarshalYAML(n *yaml.Node) error {
	return unmarshalEnum(n, sampleNumberNames, s)
}

func (s *SampleStrategy) UnmarshalYAML(n *yaml.Node) error {
	return unmarshalEnum(n, sampleNames, s)
}

func (o *OptimizeType) UnmarshalYAML(n *yaml.Node) error {
	return unmarshalEnum(n, optimizeTypeNames, o)
}

func (o *OptimizeStrategy) UnmarshalYAML(n *yaml.Node) error {
	return unmarshalEnum(n, optimizeNames, o)
}

func (e *EdgeFlipStrategy) UnmarshalYAML(n *yaml.Node) error {
	return unmarshalEnum(n, flipNames, e)
}

func (r *RelocateStrategy) UnmarshalYAML(n *yaml.Node) error {
	return unmarshalEnum(n, relocateNames, r)
}

func (q *NearestQuery) UnmarshalYAML(n *yaml.Node) error {
	return unmarshalEnum(n, nearestNames, q)
}

// ParseOptimizeType returns the optimize type named s or with list index s.
func ParseOptimizeType(s string) (OptimizeType, error) {
	var o OptimizeType
	err := parseEnum(s, optimizeTypeNames, &o)
	return o, err
}

func enumString[E ~uint8](names []string, e E) string {
	if int(e) < len(names) {
		return names[e]
	}
	return "invalid(" + strconv.Itoa(int(e)) + ")"
}

// unmarshalEnum accepts either the option name or its list index.
func unmarshalEnum[E ~uint8](n *yaml.Node, names []string, dst *E) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected scalar enum value", n.Line)
	}
	if err := parseEnum(n.Value, names, dst); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	return nil
}

func parseEnum[E ~uint8](s string, names []string, dst *E) error {
	for i, name := range names {
		if s == name {
			*dst = E(i)
			return nil
		}
	}
	if i, err := strconv.Atoi(s); err == nil && i >= 0 && i < len(names) {
		*dst = E(i)
		return nil
	}
	return fmt.Errorf("unknown value %q, want one of %v", s, names)
}
