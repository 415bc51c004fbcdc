package distribution

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformSampler_StaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s, err := NewSampler(Uniform(8, 16))
	require.NoError(t, err)
	sum := 0.0
	n := 10000
	for i := 0; i < n; i++ {
		v := s.Sample(rng)
		if v < 8 || v >= 16 {
			t.Fatalf("sample %d: %v outside [8, 16)", i, v)
		}
		sum += v
	}
	assert.InDelta(t, 12.0, sum/float64(n), 0.2)
}

func TestUniformSampler_DegenerateRange(t *testing.T) {
	s, err := NewSampler(Uniform(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.Sample(rand.New(rand.NewSource(1))))
}

func TestExponentialSampler_MeanMatchesParam(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s, err := NewSampler(Exponential(3))
	require.NoError(t, err)
	n := 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		v := s.Sample(rng)
		if v < 0 {
			t.Fatalf("sample %d: %v is negative", i, v)
		}
		sum += v
	}
	mean := sum / float64(n)
	if math.Abs(mean-3)/3 > 0.05 {
		t.Errorf("exponential mean = %.3f, want ≈ 3 (within 5%%)", mean)
	}
}

func TestNormalSampler_ClampedToRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s, err := NewSampler(Normal(2, 5, 0.5, 4))
	require.NoError(t, err)
	for i := 0; i < 10000; i++ {
		v := s.Sample(rng)
		if v < 0.5 || v > 4 {
			t.Fatalf("sample %d: %v outside [0.5, 4]", i, v)
		}
	}
}

func TestConstantSampler_ConsumesNoRandomness(t *testing.T) {
	rngA := rand.New(rand.NewSource(9))
	rngB := rand.New(rand.NewSource(9))
	s, err := NewSampler(Constant(2))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.Equal(t, 2.0, s.Sample(rngA))
	}
	assert.Equal(t, rngB.Int63(), rngA.Int63())
}

func TestNewSampler_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec DistSpec
	}{
		{"unknown type", DistSpec{Type: "weibull", Params: map[string]float64{"k": 1}}},
		{"uniform missing max", DistSpec{Type: TypeUniform, Params: map[string]float64{"min": 1}}},
		{"uniform inverted", Uniform(3, 1)},
		{"exponential negative mean", Exponential(-1)},
		{"normal negative stddev", Normal(1, -1, 0, 2)},
		{"normal inverted clamp", Normal(1, 1, 3, 2)},
		{"constant missing value", DistSpec{Type: TypeConstant}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSampler(tt.spec)
			assert.Error(t, err)
		})
	}
}

func TestDistSpec_String(t *testing.T) {
	assert.Equal(t, "uniform(max=4, min=2)", Uniform(2, 4).String())
	assert.Equal(t, "constant(value=1.5)", Constant(1.5).String())
}
