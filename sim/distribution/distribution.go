// Package distribution provides the duration samplers used by role processes.
// Distributions are configuration: the engine only requires that a sampler
// returns a number of hours for each draw.
package distribution

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// Supported distribution types.
const (
	TypeUniform     = "uniform"
	TypeExponential = "exponential"
	TypeNormal      = "normal"
	TypeConstant    = "constant"
)

// DistSpec names a distribution and its parameters.
//
//	uniform:     min, max
//	exponential: mean
//	normal:      mean, std_dev, min, max (samples are clamped to [min, max])
//	constant:    value
type DistSpec struct {
	Type   string             `yaml:"type" json:"type"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
}

// Uniform returns a uniform(min, max) spec.
func Uniform(min, max float64) DistSpec {
	return DistSpec{Type: TypeUniform, Params: map[string]float64{"min": min, "max": max}}
}

// Exponential returns an exponential spec with the given mean.
func Exponential(mean float64) DistSpec {
	return DistSpec{Type: TypeExponential, Params: map[string]float64{"mean": mean}}
}

// Normal returns a clamped normal spec.
func Normal(mean, stdDev, clampMin, clampMax float64) DistSpec {
	return DistSpec{Type: TypeNormal, Params: map[string]float64{
		"mean": mean, "std_dev": stdDev, "min": clampMin, "max": clampMax,
	}}
}

// Constant returns a spec that always samples value.
func Constant(value float64) DistSpec {
	return DistSpec{Type: TypeConstant, Params: map[string]float64{"value": value}}
}

func (d DistSpec) String() string {
	keys := make([]string, 0, len(d.Params))
	for k := range d.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, d.Params[k]))
	}
	return fmt.Sprintf("%s(%s)", d.Type, strings.Join(parts, ", "))
}

// Sampler draws durations in hours.
type Sampler interface {
	// Sample returns one draw. Negative draws are possible when the distribution allows
	// them; the scheduler rejects them.
	Sample(rng *rand.Rand) float64
}

// UniformSampler draws from [min, max).
type UniformSampler struct {
	min, max float64
}

func (s *UniformSampler) Sample(rng *rand.Rand) float64 {
	if s.min == s.max {
		return s.min
	}
	return s.min + rng.Float64()*(s.max-s.min)
}

// ExponentialSampler draws exponentially distributed durations.
type ExponentialSampler struct {
	mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() * s.mean
}

// NormalSampler produces clamped Gaussian durations.
type NormalSampler struct {
	mean, stdDev float64
	min, max     float64
}

func (s *NormalSampler) Sample(rng *rand.Rand) float64 {
	if s.min == s.max {
		return s.min
	}
	val := rng.NormFloat64()*s.stdDev + s.mean
	return math.Min(s.max, math.Max(s.min, val))
}

// ConstantSampler always returns the same fixed value and consumes no randomness.
type ConstantSampler struct {
	value float64
}

func (s *ConstantSampler) Sample(_ *rand.Rand) float64 {
	return s.value
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

// NewSampler creates a Sampler from a DistSpec.
func NewSampler(spec DistSpec) (Sampler, error) {
	switch spec.Type {
	case TypeUniform:
		if err := requireParam(spec.Params, "min", "max"); err != nil {
			return nil, err
		}
		lo, hi := spec.Params["min"], spec.Params["max"]
		if lo > hi {
			return nil, fmt.Errorf("uniform min %g exceeds max %g", lo, hi)
		}
		return &UniformSampler{min: lo, max: hi}, nil

	case TypeExponential:
		if err := requireParam(spec.Params, "mean"); err != nil {
			return nil, err
		}
		if spec.Params["mean"] < 0 {
			return nil, fmt.Errorf("exponential mean must be >= 0, got %g", spec.Params["mean"])
		}
		return &ExponentialSampler{mean: spec.Params["mean"]}, nil

	case TypeNormal:
		if err := requireParam(spec.Params, "mean", "std_dev", "min", "max"); err != nil {
			return nil, err
		}
		if spec.Params["std_dev"] < 0 {
			return nil, fmt.Errorf("normal std_dev must be >= 0, got %g", spec.Params["std_dev"])
		}
		if spec.Params["min"] > spec.Params["max"] {
			return nil, fmt.Errorf("normal clamp min %g exceeds max %g", spec.Params["min"], spec.Params["max"])
		}
		return &NormalSampler{
			mean:   spec.Params["mean"],
			stdDev: spec.Params["std_dev"],
			min:    spec.Params["min"],
			max:    spec.Params["max"],
		}, nil

	case TypeConstant:
		if err := requireParam(spec.Params, "value"); err != nil {
			return nil, err
		}
		return &ConstantSampler{value: spec.Params["value"]}, nil

	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}
