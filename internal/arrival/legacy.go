package arrival

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/akshitanchan/fpp-arrivals/internal/rate"
)

// Cumsum places arrivals at the normalized cumulative sum of the rate,
// scaled to end at the last time sample.
//
// Deprecated: known incorrect, kept for compatibility. A high rate yields
// widely spaced arrivals, the opposite of what a rate means. Use
// InhomogeneousPoisson.
//
// The rate is realized on times (arrays are used as is). Without same
// shape, every k-th value is kept, k = max(len/totalPulses, 1), truncated
// to totalPulses values. The realized rate must then hold exactly
// totalPulses values.
func (s *Sampler) Cumsum(spec rate.Spec, times []float64, totalPulses int) ([]float64, error) {
	if err := checkArgs(spec, times, totalPulses); err != nil {
		return nil, err
	}
	s.logger.Warn("cumulative-sum arrival times are not correct and only kept as a placeholder; use the inhomogeneous Poisson sampler")

	realized, err := spec.Realize(times)
	if err != nil {
		return nil, err
	}
	if !s.sameShapeOr(true) {
		stride := max(len(realized)/totalPulses, 1)
		picked := make([]float64, 0, totalPulses)
		for i := 0; i < len(realized) && len(picked) < totalPulses; i += stride {
			picked = append(picked, realized[i])
		}
		realized = picked
	}
	if len(realized) != totalPulses {
		return nil, fmt.Errorf("rate has %d values, want %d total pulses: %w",
			len(realized), totalPulses, ErrTypeMismatch)
	}
	sum := floats.Sum(realized)
	if sum == 0 {
		return nil, ErrZeroRate
	}
	out := floats.CumSum(make([]float64, len(realized)), realized)
	floats.Scale(times[len(times)-1]/sum, out)
	return out, nil
}

// CoxProcess would sample arrivals from a doubly stochastic Poisson process
// with mean rate mu. It has no implementation.
func (s *Sampler) CoxProcess(spec rate.Spec, times []float64, mu float64) ([]float64, error) {
	return nil, fmt.Errorf("cox process arrival times: %w", ErrNotImplemented)
}

// Method names a sampling method for Bind.
type Method int8

const (
	MethodPoisson Method = iota
	MethodCumsum
	MethodCox
)

func (m Method) String() string {
	switch m {
	case MethodPoisson:
		return "poisson"
	case MethodCumsum:
		return "cumsum"
	case MethodCox:
		return "cox"
	default:
		return "unknown"
	}
}

// ParseMethod parses a method name as printed by Method.String.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "poisson":
		return MethodPoisson, nil
	case "cumsum":
		return MethodCumsum, nil
	case "cox":
		return MethodCox, nil
	default:
		return MethodPoisson, fmt.Errorf("unknown method %q: %w", s, ErrTypeMismatch)
	}
}

// BoundFunc produces arrival times for a fixed rate process.
type BoundFunc func(times []float64, totalPulses int) ([]float64, error)

// Bind fixes the rate process and method so that a pulse generator only
// has to supply the time axis and pulse count.
func (s *Sampler) Bind(m Method, spec rate.Spec) BoundFunc {
	return func(times []float64, totalPulses int) ([]float64, error) {
		switch m {
		case MethodPoisson:
			return s.InhomogeneousPoisson(spec, times, totalPulses)
		case MethodCumsum:
			return s.Cumsum(spec, times, totalPulses)
		case MethodCox:
			return s.CoxProcess(spec, times, float64(totalPulses))
		default:
			return nil, fmt.Errorf("method %d: %w", m, ErrTypeMismatch)
		}
	}
}
