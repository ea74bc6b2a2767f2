package rate

import (
	"fmt"
	"math"
)

// Constant is a rate function returning params["level"] (default 1)
// everywhere.
func Constant(times []float64, params Params) ([]float64, error) {
	level := params.Get("level", 1)
	if level < 0 {
		return nil, fmt.Errorf("constant level %g: %w", level, ErrInvalidRate)
	}
	out := make([]float64, len(times))
	for i := range out {
		out[i] = level
	}
	return out, nil
}

// Sinusoid is a periodically modulated rate,
// mean + amplitude*sin(2*pi*t/period + phase), clipped at zero.
// Defaults: mean 1, amplitude 0.5, period 1, phase 0.
func Sinusoid(times []float64, params Params) ([]float64, error) {
	mean := params.Get("mean", 1)
	amplitude := params.Get("amplitude", 0.5)
	period := params.Get("period", 1)
	phase := params.Get("phase", 0)
	if !(period > 0) {
		return nil, fmt.Errorf("sinusoid period %g must be positive: %w", period, ErrTypeMismatch)
	}
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = math.Max(0, mean+amplitude*math.Sin(2*math.Pi*t/period+phase))
	}
	return out, nil
}

// Burst is a piecewise constant rate: peak inside the windows
// [k*interval, k*interval+window) for k >= 1, base elsewhere.
// Defaults: base 1, peak 4, interval 10, window 2.
func Burst(times []float64, params Params) ([]float64, error) {
	base := params.Get("base", 1)
	peak := params.Get("peak", 4)
	interval := params.Get("interval", 10)
	window := params.Get("window", 2)
	if base < 0 || peak < 0 {
		return nil, fmt.Errorf("burst base %g, peak %g: %w", base, peak, ErrInvalidRate)
	}
	if !(interval > 0) || window < 0 {
		return nil, fmt.Errorf("burst interval %g, window %g: %w", interval, window, ErrTypeMismatch)
	}
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = base
		if t < interval {
			continue
		}
		if math.Mod(t, interval) < window {
			out[i] = peak
		}
	}
	return out, nil
}

// Named returns a built-in rate function by name: "constant", "sinusoid"
// or "burst".
func Named(name string) (RateFunc, error) {
	switch name {
	case "constant", "const":
		return Constant, nil
	case "sinusoid", "sin":
		return Sinusoid, nil
	case "burst":
		return Burst, nil
	default:
		return nil, fmt.Errorf("unknown rate function %q: %w", name, ErrTypeMismatch)
	}
}
