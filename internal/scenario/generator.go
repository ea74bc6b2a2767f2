package scenario

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/akshitanchan/fpp-arrivals/internal/rate"
)

// RateLength returns the number of values an array rate is realized with.
func (c *Config) RateLength() int {
	if c.SameShape {
		return c.Steps
	}
	return c.Steps * c.Rate.Oversample
}

// BuildRate constructs the rate process for a config. Random realizations
// draw from src.
func BuildRate(c *Config, src rand.Source) (rate.Spec, error) {
	p := c.Rate
	switch p.Kind {
	case "constant":
		values := make([]float64, c.RateLength())
		for i := range values {
			values[i] = p.Level
		}
		return rate.Array(values), nil

	case "lognormal":
		values, err := rate.LogNormalRealization(c.RateLength(), p.Mu, p.Sigma, src)
		if err != nil {
			return rate.Spec{}, err
		}
		return rate.Array(values), nil

	case "gamma":
		values, err := rate.GammaRealization(c.RateLength(), p.Shape, p.Scale, src)
		if err != nil {
			return rate.Spec{}, err
		}
		return rate.Array(values), nil

	case "sinusoid":
		return rate.Func(rate.Sinusoid, setParams(map[string]*float64{
			"mean":      p.Mean,
			"amplitude": p.Amplitude,
			"period":    p.Period,
			"phase":     p.Phase,
		})), nil

	case "burst":
		return rate.Func(rate.Burst, setParams(map[string]*float64{
			"base":     p.Base,
			"peak":     p.Peak,
			"interval": p.Interval,
			"window":   p.Window,
		})), nil

	default:
		return rate.Spec{}, fmt.Errorf("unknown rate kind %q: %w", p.Kind, rate.ErrTypeMismatch)
	}
}

// setParams keeps the parameters that are set, leaving the rest to the
// rate function's defaults.
func setParams(named map[string]*float64) rate.Params {
	params := make(rate.Params, len(named))
	for name, v := range named {
		if v != nil {
			params[name] = *v
		}
	}
	return params
}

// samplerStream is xored into the run seed so that a run's sampler stream
// is not the rate stream of a nearby seed.
const samplerStream = 0x9e3779b97f4a7c15

// RateSeed and SamplerSeed derive independent streams from the run seed.
func RateSeed(c *Config) uint64    { return uint64(c.Seed) }
func SamplerSeed(c *Config) uint64 { return uint64(c.Seed) ^ samplerStream }
