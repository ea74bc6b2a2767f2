// Package axis builds and validates the uniform time axes that rate
// processes and arrival times are defined on.
package axis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tolerances for the uniform spacing check: relative to the axis magnitude,
// capped relative to the step, plus a few ulps of the largest sample.
const (
	spacingTolerance = 1e-9
	stepTolerance    = 1e-6
	spacingUlps      = 4
)

var (
	ErrTooShort      = errors.New("time axis needs at least two samples")
	ErrNotIncreasing = errors.New("time axis must be strictly increasing")
	ErrNotUniform    = errors.New("time axis must be uniformly spaced")
)

// Uniform returns n evenly spaced samples from start to end inclusive.
func Uniform(start, end float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("uniform axis with %d samples: %w", n, ErrTooShort)
	}
	if !(end > start) {
		return nil, fmt.Errorf("uniform axis [%g, %g]: %w", start, end, ErrNotIncreasing)
	}
	return floats.Span(make([]float64, n), start, end), nil
}

// Step returns the sampling step of the axis. The axis must have at least
// two samples.
func Step(times []float64) float64 {
	return times[1] - times[0]
}

// Validate checks the assumptions the arrival samplers make about a time axis.
func Validate(times []float64) error {
	if len(times) < 2 {
		return fmt.Errorf("got %d samples: %w", len(times), ErrTooShort)
	}
	step := Step(times)
	if !(step > 0) {
		return fmt.Errorf("step %g: %w", step, ErrNotIncreasing)
	}
	tol := spacingTol(times, step)
	for i := 1; i < len(times); i++ {
		d := times[i] - times[i-1]
		if !(d > 0) {
			return fmt.Errorf("sample %d (%g after %g): %w", i, times[i], times[i-1], ErrNotIncreasing)
		}
		if math.Abs(d-step) > tol {
			return fmt.Errorf("sample %d: step %g differs from %g: %w", i, d, step, ErrNotUniform)
		}
	}
	return nil
}

func spacingTol(times []float64, step float64) float64 {
	mag := math.Max(math.Abs(times[0]), math.Abs(times[len(times)-1]))
	ulp := math.Nextafter(mag, math.Inf(1)) - mag
	return math.Min(spacingTolerance*math.Max(1, mag), stepTolerance*step) + spacingUlps*ulp
}

// Shift returns a copy of times with delta added to every sample.
func Shift(times []float64, delta float64) []float64 {
	out := make([]float64, len(times))
	copy(out, times)
	floats.AddConst(delta, out)
	return out
}
