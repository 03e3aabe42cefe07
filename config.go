package remesh

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every remeshing option. The zero value is not valid; start
// from DefaultConfig.
type Config struct {
	// General.
	MaxErrorThreshold              float64          `yaml:"max_error_threshold"`
	MinAngleThreshold              float64          `yaml:"min_angle_threshold"` // degrees
	MaxMeshComplexity              int              `yaml:"max_mesh_complexity"`
	SmoothAngleDelta               float64          `yaml:"smooth_angle_delta"`
	ApplyEdgeFlip                  bool             `yaml:"apply_edge_flip"`
	EdgeFlipStrategy               EdgeFlipStrategy `yaml:"edge_flip_strategy"`
	FlipAfterSplitAndCollapse      bool             `yaml:"flip_after_split_and_collapse"`
	RelocateAfterLocalOperations   bool             `yaml:"relocate_after_local_operations"`
	RelocateStrategy               RelocateStrategy `yaml:"relocate_strategy"`
	KeepVertexInOneRing            bool             `yaml:"keep_vertex_in_one_ring"`
	UseLocalAABBTree               bool             `yaml:"use_local_aabb_tree"`
	CollapsedListSize              int              `yaml:"collapsed_list_size"`
	DecreaseMaxErrors              bool             `yaml:"decrease_max_errors"`
	VerboseProgress                bool             `yaml:"verbose_progress"`
	ApplyInitialMeshSimplification bool             `yaml:"apply_initial_mesh_simplification"`
	ApplyFinalVertexRelocation     bool             `yaml:"apply_final_vertex_relocation"`

	// Sampling.
	SamplesPerFacetIn     int                  `yaml:"samples_per_facet_in"`
	SamplesPerFacetOut    int                  `yaml:"samples_per_facet_out"`
	MaxSamplesPerArea     int                  `yaml:"max_samples_per_area"`
	MinSamplesPerTriangle int                  `yaml:"min_samples_per_triangle"`
	BVDIterationCount     int                  `yaml:"bvd_iteration_count"`
	SampleNumberStrategy  SampleNumberStrategy `yaml:"sample_number_strategy"`
	SampleStrategy        SampleStrategy       `yaml:"sample_strategy"`
	UseStratifiedSampling bool                 `yaml:"use_stratified_sampling"`
	Seed                  uint64               `yaml:"seed"`
	NearestQuery          NearestQuery         `yaml:"nearest_query"`

	// Feature detection. Angles in radians.
	SumTheta                   float64 `yaml:"sum_theta"`
	SumDelta                   float64 `yaml:"sum_delta"`
	DihedralTheta              float64 `yaml:"dihedral_theta"`
	DihedralDelta              float64 `yaml:"dihedral_delta"`
	FeatureDifferenceDelta     float64 `yaml:"feature_difference_delta"`
	FeatureControlDelta        float64 `yaml:"feature_control_delta"`
	InheritElementTypes        bool    `yaml:"inherit_element_types"`
	UseFeatureIntensityWeights bool    `yaml:"use_feature_intensity_weights"`

	// Vertex optimization.
	VertexOptimizeCount          int              `yaml:"vertex_optimize_count"`
	VertexOptimizeRatio          float64          `yaml:"vertex_optimize_ratio"`
	StencilRingSize              int              `yaml:"stencil_ring_size"`
	OptimizeStrategy             OptimizeStrategy `yaml:"optimize_strategy"`
	FacetOptimizeType            OptimizeType     `yaml:"facet_optimize_type"`
	EdgeOptimizeType             OptimizeType     `yaml:"edge_optimize_type"`
	VertexOptimizeType           OptimizeType     `yaml:"vertex_optimize_type"`
	OptimizeAfterLocalOperations bool             `yaml:"optimize_after_local_operations"`
}

// DefaultConfig returns the default options.
func DefaultConfig() Config {
	return Config{
		MaxErrorThreshold:              0.2,
		MinAngleThreshold:              30,
		MaxMeshComplexity:              100000000,
		SmoothAngleDelta:               0.1,
		ApplyEdgeFlip:                  true,
		EdgeFlipStrategy:               FlipImproveAngle,
		FlipAfterSplitAndCollapse:      true,
		RelocateAfterLocalOperations:   true,
		RelocateStrategy:               RelocateCVTBarycenter,
		KeepVertexInOneRing:            false,
		UseLocalAABBTree:               true,
		CollapsedListSize:              10,
		DecreaseMaxErrors:              true,
		VerboseProgress:                true,
		ApplyInitialMeshSimplification: true,
		ApplyFinalVertexRelocation:     true,

		SamplesPerFacetIn:     10,
		SamplesPerFacetOut:    10,
		MaxSamplesPerArea:     10000,
		MinSamplesPerTriangle: 1,
		BVDIterationCount:     1,
		SampleNumberStrategy:  SampleNumberFixed,
		SampleStrategy:        SampleAdaptive,
		UseStratifiedSampling: false,
		Seed:                  1,
		NearestQuery:          NearestBIH,

		SumTheta:                   1.0,
		SumDelta:                   0.5,
		DihedralTheta:              1.0,
		DihedralDelta:              0.5,
		FeatureDifferenceDelta:     0.15,
		FeatureControlDelta:        0.5,
		InheritElementTypes:        false,
		UseFeatureIntensityWeights: false,

		VertexOptimizeCount:          2,
		VertexOptimizeRatio:          0.9,
		StencilRingSize:              1,
		OptimizeStrategy:             OptimizeApproximation,
		FacetOptimizeType:            OptimizeBoth,
		EdgeOptimizeType:             OptimizeBoth,
		VertexOptimizeType:           OptimizeBoth,
		OptimizeAfterLocalOperations: true,
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks option ranges.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}
	check(c.MaxErrorThreshold > 0, "max_error_threshold must be positive, got %g", c.MaxErrorThreshold)
	check(c.MinAngleThreshold >= 0 && c.MinAngleThreshold < 60, "min_angle_threshold must be in [0, 60), got %g", c.MinAngleThreshold)
	check(c.MaxMeshComplexity > 0, "max_mesh_complexity must be positive, got %d", c.MaxMeshComplexity)
	check(c.CollapsedListSize >= 0, "collapsed_list_size must not be negative, got %d", c.CollapsedListSize)
	check(c.SamplesPerFacetIn >= 0, "samples_per_facet_in must not be negative, got %d", c.SamplesPerFacetIn)
	check(c.SamplesPerFacetOut >= 0, "samples_per_facet_out must not be negative, got %d", c.SamplesPerFacetOut)
	check(c.MinSamplesPerTriangle >= 0, "min_samples_per_triangle must not be negative, got %d", c.MinSamplesPerTriangle)
	check(c.MaxSamplesPerArea >= c.MinSamplesPerTriangle, "max_samples_per_area (%d) below min_samples_per_triangle (%d)", c.MaxSamplesPerArea, c.MinSamplesPerTriangle)
	check(c.DihedralTheta > 0 && c.DihedralTheta <= math.Pi, "dihedral_theta must be in (0, pi], got %g", c.DihedralTheta)
	check(c.SumTheta > 0, "sum_theta must be positive, got %g", c.SumTheta)
	check(c.VertexOptimizeRatio >= 0 && c.VertexOptimizeRatio <= 1, "vertex_optimize_ratio must be in [0, 1], got %g", c.VertexOptimizeRatio)
	check(c.StencilRingSize >= 1, "stencil_ring_size must be at least 1, got %d", c.StencilRingSize)
	check(c.EdgeFlipStrategy.valid(), "unknown edge_flip_strategy %d", c.EdgeFlipStrategy)
	check(c.RelocateStrategy.valid(), "unknown relocate_strategy %d", c.RelocateStrategy)
	check(c.SampleNumberStrategy.valid(), "unknown sample_number_strategy %d", c.SampleNumberStrategy)
	check(c.SampleStrategy.valid(), "unknown sample_strategy %d", c.SampleStrategy)
	check(c.NearestQuery.valid(), "unknown nearest_query %d", c.NearestQuery)
	check(c.OptimizeStrategy.valid(), "unknown optimize_strategy %d", c.OptimizeStrategy)
	check(c.FacetOptimizeType.valid(), "unknown facet_optimize_type %d", c.FacetOptimizeType)
	check(c.EdgeOptimizeType.valid(), "unknown edge_optimize_type %d", c.EdgeOptimizeType)
	check(c.VertexOptimizeType.valid(), "unknown vertex_optimize_type %d", c.VertexOptimizeType)
	return errors.Join(errs...)
}

// ParseConfig reads YAML from r over the default options. Options absent
// from r keep their default.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file over the default options.
func LoadConfig(path string) (Config, error) {
	fp, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer fp.Close()
	cfg, err := ParseConfig(fp)
	if err != nil {
		return Config{}, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}

// WriteConfig encodes c as YAML.
func WriteConfig(w io.Writer, c Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
