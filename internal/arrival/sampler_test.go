package arrival

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/akshitanchan/fpp-arrivals/internal/axis"
	"github.com/akshitanchan/fpp-arrivals/internal/rate"
)

func tenSteps() []float64 {
	return []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func members(times []float64) map[float64]bool {
	m := make(map[float64]bool, len(times))
	for _, t := range times {
		m[t] = true
	}
	return m
}

func TestSameShapeScenario(t *testing.T) {
	times := tenSteps()
	s := NewSampler(rand.NewSource(42), WithSameShape(true))

	out, err := s.InhomogeneousPoisson(rate.Array(constant(10, 5)), times, 5)
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.True(t, sort.Float64sAreSorted(out))

	valid := members(times)
	for _, v := range out {
		assert.True(t, valid[v], "%g is not on the time axis", v)
	}
}

func TestOutputLengthAndOrder(t *testing.T) {
	times, err := axis.Uniform(0, 100, 1001)
	require.NoError(t, err)

	specs := map[string]rate.Spec{
		"array":    rate.Array(constant(2002, 0.5)),
		"sinusoid": rate.Func(rate.Sinusoid, rate.Params{"mean": 1, "amplitude": 0.8, "period": 25}),
		"burst":    rate.Func(rate.Burst, nil),
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			for _, pulses := range []int{1, 7, 250, 5000} {
				s := NewSampler(rand.NewSource(uint64(pulses)))
				out, err := s.InhomogeneousPoisson(spec, times, pulses)
				require.NoError(t, err)
				require.Len(t, out, pulses)
				assert.True(t, sort.Float64sAreSorted(out))
			}
		})
	}
}

func TestArrayPathMembership(t *testing.T) {
	times, err := axis.Uniform(0, 10, 101)
	require.NoError(t, err)
	values := make([]float64, 303)
	for i := range values {
		values[i] = float64(i%7) / 10
	}

	s := NewSampler(rand.NewSource(3))
	out, err := s.InhomogeneousPoisson(rate.Array(values), times, 400)
	require.NoError(t, err)

	valid := members(times)
	for _, v := range out {
		assert.True(t, valid[v], "%g is not on the time axis", v)
	}
}

func TestDeterministicUnderSeed(t *testing.T) {
	times := tenSteps()
	spec := rate.Array(constant(20, 0.3))

	a, err := NewSampler(rand.NewSource(99)).InhomogeneousPoisson(spec, times, 50)
	require.NoError(t, err)
	b, err := NewSampler(rand.NewSource(99)).InhomogeneousPoisson(spec, times, 50)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewSampler(rand.NewSource(100)).InhomogeneousPoisson(spec, times, 50)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

// countingSource records how many values have been drawn.
type countingSource struct {
	rand.Source
	draws int
}

func (c *countingSource) Uint64() uint64 {
	c.draws++
	return c.Source.Uint64()
}

func TestNegativeRateRejectedBeforeSampling(t *testing.T) {
	src := &countingSource{Source: rand.NewSource(1)}
	s := NewSampler(src, WithSameShape(true))

	values := constant(10, 1)
	values[4] = -0.1
	_, err := s.InhomogeneousPoisson(rate.Array(values), tenSteps(), 5)
	require.ErrorIs(t, err, ErrInvalidRate)
	assert.Zero(t, src.draws)
}

func TestArgumentValidation(t *testing.T) {
	s := NewSampler(rand.NewSource(1))
	good := rate.Array(constant(20, 1))

	tests := []struct {
		name   string
		spec   rate.Spec
		times  []float64
		pulses int
		want   error
	}{
		{"zero spec", rate.Spec{}, tenSteps(), 5, ErrTypeMismatch},
		{"short axis", good, []float64{0}, 5, ErrTypeMismatch},
		{"uneven axis", good, []float64{0, 1, 3, 4}, 5, ErrTypeMismatch},
		{"zero pulses", good, tenSteps(), 0, ErrTypeMismatch},
		{"negative pulses", good, tenSteps(), -3, ErrTypeMismatch},
		{"rate shorter than axis", rate.Array(constant(5, 1)), tenSteps(), 5, ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.InhomogeneousPoisson(tt.spec, tt.times, tt.pulses)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := s.InhomogeneousPoisson(good, []float64{0, 1, 3, 4}, 5)
	assert.ErrorIs(t, err, axis.ErrNotUniform)
}

func TestSameShapeLengthMismatch(t *testing.T) {
	s := NewSampler(rand.NewSource(1), WithSameShape(true))
	_, err := s.InhomogeneousPoisson(rate.Array(constant(20, 1)), tenSteps(), 5)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestZeroRateDoesNotHang(t *testing.T) {
	s := NewSampler(rand.NewSource(1), WithSameShape(true))
	_, err := s.InhomogeneousPoisson(rate.Array(constant(10, 0)), tenSteps(), 3)
	assert.ErrorIs(t, err, ErrZeroRate)

	zero := rate.Func(rate.Constant, rate.Params{"level": 0})
	s = NewSampler(rand.NewSource(1), WithMaxRounds(25))
	_, err = s.InhomogeneousPoisson(zero, tenSteps(), 3)
	assert.ErrorIs(t, err, ErrMaxRounds)
}

func TestRateFunctionErrorsSurface(t *testing.T) {
	bad := rate.Func(func(times []float64, _ rate.Params) ([]float64, error) {
		out := constant(len(times), 1)
		out[0] = -1
		return out, nil
	}, nil)
	_, err := NewSampler(rand.NewSource(1)).InhomogeneousPoisson(bad, tenSteps(), 3)
	assert.ErrorIs(t, err, ErrInvalidRate)

	boom := errors.New("boom")
	failing := rate.Func(func([]float64, rate.Params) ([]float64, error) { return nil, boom }, nil)
	_, err = NewSampler(rand.NewSource(1)).InhomogeneousPoisson(failing, tenSteps(), 3)
	assert.ErrorIs(t, err, boom)
}

func TestRateFunctionSeesShiftedAxisAndParams(t *testing.T) {
	var calls [][]float64
	fn := func(times []float64, p rate.Params) ([]float64, error) {
		calls = append(calls, append([]float64(nil), times...))
		assert.Equal(t, 2.0, p["level"])
		return constant(len(times), p["level"]), nil
	}
	times := []float64{0, 0.5, 1}
	_, err := NewSampler(rand.NewSource(5)).InhomogeneousPoisson(rate.Func(fn, rate.Params{"level": 2}), times, 1)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, times, calls[0])
	assert.Equal(t, []float64{0.5, 1, 1.5}, calls[1])
}

func TestRoundsAccumulateUntilEnoughCandidates(t *testing.T) {
	var rounds []RoundStats
	s := NewSampler(rand.NewSource(8), WithSameShape(true), WithRoundObserver(func(r RoundStats) {
		rounds = append(rounds, r)
	}))

	// A low rate over 10 steps accepts about one sample per round, so 40
	// pulses take many rounds and the pool repeats axis values.
	out, err := s.InhomogeneousPoisson(rate.Array(constant(10, 0.1)), tenSteps(), 40)
	require.NoError(t, err)
	require.Len(t, out, 40)
	require.Greater(t, len(rounds), 1)

	pool := 0
	for i, r := range rounds {
		assert.Equal(t, i+1, r.Round)
		pool += r.Accepted
		assert.Equal(t, pool, r.PoolSize)
	}
	last := rounds[len(rounds)-1]
	assert.GreaterOrEqual(t, last.PoolSize, 40)
	assert.Less(t, rounds[len(rounds)-2].PoolSize, 40)
}

func TestAcceptanceRateMatchesThinningFormula(t *testing.T) {
	const (
		r     = 0.7
		steps = 200
	)
	times, err := axis.Uniform(0, 49.75, steps)
	require.NoError(t, err)
	delta := axis.Step(times)

	var accepted, rounds int
	s := NewSampler(rand.NewSource(2024), WithSameShape(true), WithRoundObserver(func(rs RoundStats) {
		accepted += rs.Accepted
		rounds++
	}))
	// Ask for far more pulses than one round yields so that many rounds run.
	_, err = s.InhomogeneousPoisson(rate.Array(constant(steps, r)), times, 30_000)
	require.NoError(t, err)
	require.Greater(t, rounds, 100)

	want := 1 - math.Exp(-r*delta)
	got := float64(accepted) / float64(steps*rounds)
	assert.InDelta(t, want, got, 0.01)
}

func TestMidpointAveraging(t *testing.T) {
	s := NewSampler(nil, WithAveraging(Midpoint))
	assert.Equal(t, []float64{1.5, 2.5, 3}, s.averageArray([]float64{1, 2, 3}))

	raw := NewSampler(nil)
	assert.Equal(t, []float64{1, 2, 3}, raw.averageArray([]float64{1, 2, 3}))
}

func TestMidpointAveragingSamples(t *testing.T) {
	s := NewSampler(rand.NewSource(4), WithSameShape(true), WithAveraging(Midpoint))
	out, err := s.InhomogeneousPoisson(rate.Array(constant(10, 2)), tenSteps(), 12)
	require.NoError(t, err)
	assert.Len(t, out, 12)
}

func TestParseAveraging(t *testing.T) {
	a, err := ParseAveraging("midpoint")
	require.NoError(t, err)
	assert.Equal(t, Midpoint, a)
	a, err = ParseAveraging("")
	require.NoError(t, err)
	assert.Equal(t, Raw, a)
	_, err = ParseAveraging("trapezoid")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestStepRates(t *testing.T) {
	s := NewSampler(nil)
	got, err := s.StepRates(rate.Array(constant(20, 1)), tenSteps())
	require.NoError(t, err)
	assert.Equal(t, constant(10, 2), got)

	got, err = s.StepRates(rate.Func(rate.Sinusoid, rate.Params{"mean": 1, "amplitude": 1, "period": 4}), []float64{0, 1, 2})
	require.NoError(t, err)
	// Averages of f(0),f(1); f(1),f(2); f(2),f(3) for f = 1+sin(pi*t/2).
	assert.InDeltaSlice(t, []float64{1.5, 1.5, 0.5}, got, 1e-12)

	_, err = s.StepRates(rate.Spec{}, tenSteps())
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestStepProbabilities(t *testing.T) {
	s := NewSampler(nil, WithSameShape(true))
	got, err := s.StepProbabilities(rate.Array([]float64{0, 1, 2}), []float64{0, 0.5, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1 - math.Exp(-0.5), 1 - math.Exp(-1)}, got, 1e-12)
}
