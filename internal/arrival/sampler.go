// Package arrival converts rate processes into arrival times.
//
// The main entry point is Sampler.InhomogeneousPoisson, which thins each
// step of a uniform time axis with the discretized Poisson acceptance
// probability 1-exp(-rate*dt), repeats whole-axis rounds until enough
// candidates have been accepted, and then draws the requested number of
// arrivals from the candidate pool.
package arrival

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/akshitanchan/fpp-arrivals/internal/axis"
	"github.com/akshitanchan/fpp-arrivals/internal/rate"
)

// DefaultMaxRounds bounds the accumulation loop of InhomogeneousPoisson.
const DefaultMaxRounds = 10_000

var (
	ErrInvalidRate  = rate.ErrInvalidRate
	ErrTypeMismatch = rate.ErrTypeMismatch

	// ErrNotImplemented is returned by sampling methods that exist only as
	// placeholders.
	ErrNotImplemented = errors.New("not implemented")
	// ErrMaxRounds is returned when the accumulation loop hits its round
	// limit before collecting enough candidates.
	ErrMaxRounds = errors.New("round limit reached before enough arrivals were accepted")
	// ErrZeroRate is returned for a rate array that is zero everywhere, which
	// can never produce an arrival.
	ErrZeroRate = errors.New("rate is zero everywhere")
)

// Averaging selects how a rate array is turned into a per-step rate.
type Averaging int8

const (
	// Raw uses each aligned rate value as the rate of its step.
	Raw Averaging = iota
	// Midpoint averages each value with the next one; the last value is held.
	Midpoint
)

func (a Averaging) String() string {
	if a == Midpoint {
		return "midpoint"
	}
	return "raw"
}

// ParseAveraging parses "raw" or "midpoint". The empty string is Raw.
func ParseAveraging(s string) (Averaging, error) {
	switch s {
	case "", "raw":
		return Raw, nil
	case "midpoint":
		return Midpoint, nil
	default:
		return Raw, fmt.Errorf("unknown averaging %q: %w", s, ErrTypeMismatch)
	}
}

// RoundStats describes one accumulation round.
type RoundStats struct {
	Round    int
	Accepted int
	PoolSize int
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithSameShape declares whether rate arrays already have one value per
// time sample. Unset, InhomogeneousPoisson assumes false and Cumsum true.
func WithSameShape(same bool) Option {
	return func(s *Sampler) { s.sameShape = &same }
}

// WithAveraging sets the per-step averaging for rate arrays.
func WithAveraging(a Averaging) Option {
	return func(s *Sampler) { s.averaging = a }
}

// WithMaxRounds sets the round limit. n <= 0 removes the limit, in which
// case a rate that never accepts makes InhomogeneousPoisson loop forever.
func WithMaxRounds(n int) Option {
	return func(s *Sampler) { s.maxRounds = n }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// WithRoundObserver registers fn to be called after every accumulation round.
func WithRoundObserver(fn func(RoundStats)) Option {
	return func(s *Sampler) { s.observe = fn }
}

// Sampler draws arrival times from rate processes. It is not safe for
// concurrent use; give each goroutine its own Sampler and source.
type Sampler struct {
	uniform distuv.Uniform
	intn    func(int) int

	sameShape *bool
	averaging Averaging
	maxRounds int
	logger    *slog.Logger
	observe   func(RoundStats)
}

// NewSampler creates a sampler drawing from src. A nil src uses the shared
// package-level source of golang.org/x/exp/rand.
func NewSampler(src rand.Source, opts ...Option) *Sampler {
	s := &Sampler{
		uniform:   distuv.Uniform{Min: 0, Max: 1, Src: src},
		intn:      rand.Intn,
		maxRounds: DefaultMaxRounds,
		logger:    slog.Default(),
	}
	if src != nil {
		s.intn = rand.New(src).Intn
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sampler) sameShapeOr(def bool) bool {
	if s.sameShape == nil {
		return def
	}
	return *s.sameShape
}

// InhomogeneousPoisson samples totalPulses ascending arrival times from the
// rate process spec over times.
//
// Rate arrays are aligned onto times first (see rate.Align). Each round
// draws one uniform per time sample and accepts the samples whose draw is
// below 1-exp(-rate*dt); accepted times accumulate in a pool, duplicates
// included, until the pool holds at least totalPulses values. The result
// is totalPulses draws with replacement from the pool, sorted.
//
// Arguments are validated before any randomness is consumed.
func (s *Sampler) InhomogeneousPoisson(spec rate.Spec, times []float64, totalPulses int) ([]float64, error) {
	if err := checkArgs(spec, times, totalPulses); err != nil {
		return nil, err
	}
	delta := axis.Step(times)

	var probs []float64
	var shifted []float64
	if spec.Kind() == rate.KindArray {
		avg, err := s.arrayStepRates(spec, times)
		if err != nil {
			return nil, err
		}
		if rate.AllZero(avg) {
			return nil, ErrZeroRate
		}
		probs = acceptance(avg, delta)
	} else {
		shifted = axis.Shift(times, delta)
	}

	pool := make([]float64, 0, totalPulses)
	for round := 1; len(pool) < totalPulses; round++ {
		if s.maxRounds > 0 && round > s.maxRounds {
			return nil, fmt.Errorf("%d of %d candidates after %d rounds: %w",
				len(pool), totalPulses, s.maxRounds, ErrMaxRounds)
		}
		if spec.Kind() == rate.KindFunc {
			avg, err := averageFunc(spec, times, shifted)
			if err != nil {
				return nil, err
			}
			probs = acceptance(avg, delta)
		}

		before := len(pool)
		for i, p := range probs {
			if s.uniform.Rand() < p {
				pool = append(pool, times[i])
			}
		}

		stats := RoundStats{Round: round, Accepted: len(pool) - before, PoolSize: len(pool)}
		s.logger.Debug("arrival round", "round", stats.Round, "accepted", stats.Accepted, "pool", stats.PoolSize)
		if s.observe != nil {
			s.observe(stats)
		}
	}

	out := make([]float64, totalPulses)
	for i := range out {
		out[i] = pool[s.intn(len(pool))]
	}
	sort.Float64s(out)
	return out, nil
}

// StepRates returns the per-step rate InhomogeneousPoisson thins with: the
// aligned and averaged array, or one evaluation of the two-point average
// of a rate function.
func (s *Sampler) StepRates(spec rate.Spec, times []float64) ([]float64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := axis.Validate(times); err != nil {
		return nil, fmt.Errorf("times: %w: %w", ErrTypeMismatch, err)
	}
	if spec.Kind() == rate.KindArray {
		return s.arrayStepRates(spec, times)
	}
	return averageFunc(spec, times, axis.Shift(times, axis.Step(times)))
}

// StepProbabilities returns the per-step acceptance probabilities that
// go with StepRates.
func (s *Sampler) StepProbabilities(spec rate.Spec, times []float64) ([]float64, error) {
	avg, err := s.StepRates(spec, times)
	if err != nil {
		return nil, err
	}
	return acceptance(avg, axis.Step(times)), nil
}

func (s *Sampler) arrayStepRates(spec rate.Spec, times []float64) ([]float64, error) {
	aligned, err := rate.Align(spec.Values(), len(times), s.sameShapeOr(false))
	if err != nil {
		return nil, err
	}
	return s.averageArray(aligned), nil
}

func (s *Sampler) averageArray(aligned []float64) []float64 {
	if s.averaging != Midpoint {
		return aligned
	}
	avg := make([]float64, len(aligned))
	last := len(aligned) - 1
	for i := 0; i < last; i++ {
		avg[i] = (aligned[i] + aligned[i+1]) / 2
	}
	avg[last] = aligned[last]
	return avg
}

// averageFunc approximates the rate over each step by averaging the rate
// function at both ends of the step.
func averageFunc(spec rate.Spec, times, shifted []float64) ([]float64, error) {
	lo, err := spec.Eval(times)
	if err != nil {
		return nil, err
	}
	hi, err := spec.Eval(shifted)
	if err != nil {
		return nil, err
	}
	avg := make([]float64, len(lo))
	for i := range avg {
		avg[i] = (lo[i] + hi[i]) / 2
	}
	return avg, nil
}

// acceptance converts per-step rates into the probability of at least one
// event in a step of length delta.
func acceptance(avg []float64, delta float64) []float64 {
	probs := make([]float64, len(avg))
	for i, r := range avg {
		probs[i] = -math.Expm1(-r * delta)
	}
	return probs
}

func checkArgs(spec rate.Spec, times []float64, totalPulses int) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if err := axis.Validate(times); err != nil {
		return fmt.Errorf("times: %w: %w", ErrTypeMismatch, err)
	}
	if totalPulses <= 0 {
		return fmt.Errorf("total pulses must be positive, got %d: %w", totalPulses, ErrTypeMismatch)
	}
	return nil
}
