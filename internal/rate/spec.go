// Package rate defines rate processes: the time-varying event intensity
// (the intermittency parameter of a forced point process) that arrival
// times are sampled from.
//
// A rate is given either as a precomputed array of non-negative values or
// as a function of time. Both are carried by Spec.
package rate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidRate reports a negative or NaN rate value.
	ErrInvalidRate = errors.New("invalid rate")
	// ErrTypeMismatch reports arguments of the wrong kind or shape.
	ErrTypeMismatch = errors.New("type mismatch")
)

// Params are the named parameters forwarded to a rate function on every
// evaluation.
type Params map[string]float64

// Get returns the named parameter, or def when it is not set.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// RateFunc evaluates a rate process at every sample of times. It must
// return one non-negative value per sample.
type RateFunc func(times []float64, params Params) ([]float64, error)

// Kind identifies which branch of a Spec is populated.
type Kind int8

const (
	KindNone Kind = iota
	KindArray
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindFunc:
		return "func"
	default:
		return "none"
	}
}

// Spec is either a rate array or a rate function with its parameters.
// The zero Spec is neither and fails validation.
type Spec struct {
	kind   Kind
	values []float64
	fn     RateFunc
	params Params
}

// Array wraps precomputed rate values. The slice is not copied and must not
// be modified while the Spec is in use.
func Array(values []float64) Spec {
	return Spec{kind: KindArray, values: values}
}

// Func wraps a rate function. params may be nil.
func Func(fn RateFunc, params Params) Spec {
	if fn == nil {
		return Spec{}
	}
	return Spec{kind: KindFunc, fn: fn, params: params}
}

// Kind reports which branch is populated.
func (s Spec) Kind() Kind { return s.kind }

// Values returns the rate array, or nil for a function spec.
func (s Spec) Values() []float64 { return s.values }

// Validate checks the spec is populated and, for arrays, that every value
// is a valid rate.
func (s Spec) Validate() error {
	switch s.kind {
	case KindArray:
		return CheckValues(s.values)
	case KindFunc:
		return nil
	default:
		return fmt.Errorf("rate must be an array or a function: %w", ErrTypeMismatch)
	}
}

// Eval evaluates a function spec at times and checks the result.
func (s Spec) Eval(times []float64) ([]float64, error) {
	if s.kind != KindFunc {
		return nil, fmt.Errorf("eval on %s rate: %w", s.kind, ErrTypeMismatch)
	}
	out, err := s.fn(times, s.params)
	if err != nil {
		return nil, fmt.Errorf("evaluate rate: %w", err)
	}
	if len(out) != len(times) {
		return nil, fmt.Errorf("rate function returned %d values for %d times: %w",
			len(out), len(times), ErrTypeMismatch)
	}
	if err := CheckValues(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Realize returns one rate value per time sample: a copy of the array, or
// the function evaluated at times.
func (s Spec) Realize(times []float64) ([]float64, error) {
	switch s.kind {
	case KindArray:
		out := make([]float64, len(s.values))
		copy(out, s.values)
		return out, nil
	case KindFunc:
		return s.Eval(times)
	default:
		return nil, fmt.Errorf("rate must be an array or a function: %w", ErrTypeMismatch)
	}
}

// CheckValues returns ErrInvalidRate for the first negative or NaN value.
func CheckValues(values []float64) error {
	for i, v := range values {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("rate must be non-negative, found %g at index %d: %w", v, i, ErrInvalidRate)
		}
	}
	return nil
}

// Align maps a rate array onto n time samples.
//
// With sameShape the array must already have n values and is returned as is.
// Otherwise the array is split into n contiguous blocks of
// floor(len(values)/n) values, trailing values are dropped, and each block
// is collapsed to its sum.
func Align(values []float64, n int, sameShape bool) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("align onto %d samples: %w", n, ErrTypeMismatch)
	}
	if sameShape {
		if len(values) != n {
			return nil, fmt.Errorf("rate has %d values, time axis has %d: %w", len(values), n, ErrTypeMismatch)
		}
		return values, nil
	}
	block := len(values) / n
	if block == 0 {
		return nil, fmt.Errorf("rate has %d values, shorter than time axis of %d: %w", len(values), n, ErrTypeMismatch)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = floats.Sum(values[i*block : (i+1)*block])
	}
	return out, nil
}

// AllZero reports whether every value is zero.
func AllZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}
