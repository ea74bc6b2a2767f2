// Package scenario defines run configurations: the time axis, pulse count,
// sampling method and the rate process arrivals are drawn from.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/akshitanchan/fpp-arrivals/internal/arrival"
)

// Config holds all parameters for a run
type Config struct {
	Name        string  `json:"name" yaml:"name"`
	Seed        int64   `json:"seed" yaml:"seed"`
	Duration    float64 `json:"duration" yaml:"duration"`         // time axis runs over [0, Duration]
	Steps       int     `json:"steps" yaml:"steps"`               // time axis samples
	TotalPulses int     `json:"total_pulses" yaml:"total_pulses"` // arrivals to draw

	Method    string `json:"method" yaml:"method"`                           // poisson, cumsum or cox
	SameShape bool   `json:"same_shape" yaml:"same_shape"`                   // rate arrays already match the axis
	Averaging string `json:"averaging,omitempty" yaml:"averaging,omitempty"` // raw or midpoint
	MaxRounds int    `json:"max_rounds,omitempty" yaml:"max_rounds,omitempty"`

	Rate RateParams `json:"rate" yaml:"rate"`
}

// RateParams describes the rate process.
//
// Array kinds (constant, lognormal, gamma) are realized up front with
// Oversample values per time step unless SameShape is set. Function kinds
// (sinusoid, burst) are evaluated by the sampler; their fields are optional
// and an omitted one takes the default of rate.Sinusoid or rate.Burst.
type RateParams struct {
	Kind       string `json:"kind" yaml:"kind"`
	Oversample int    `json:"oversample,omitempty" yaml:"oversample,omitempty"`

	// constant
	Level float64 `json:"level,omitempty" yaml:"level,omitempty"`

	// lognormal
	Mu    float64 `json:"mu,omitempty" yaml:"mu,omitempty"`
	Sigma float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`

	// gamma
	Shape float64 `json:"shape,omitempty" yaml:"shape,omitempty"`
	Scale float64 `json:"scale,omitempty" yaml:"scale,omitempty"`

	// sinusoid
	Mean      *float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Amplitude *float64 `json:"amplitude,omitempty" yaml:"amplitude,omitempty"`
	Period    *float64 `json:"period,omitempty" yaml:"period,omitempty"`
	Phase     *float64 `json:"phase,omitempty" yaml:"phase,omitempty"`

	// burst
	Base     *float64 `json:"base,omitempty" yaml:"base,omitempty"`
	Peak     *float64 `json:"peak,omitempty" yaml:"peak,omitempty"`
	Interval *float64 `json:"interval,omitempty" yaml:"interval,omitempty"`
	Window   *float64 `json:"window,omitempty" yaml:"window,omitempty"`
}

// Float returns a pointer to v, for the optional rate fields.
func Float(v float64) *float64 { return &v }

// Names lists the built-in scenarios in demo order
var Names = []string{"calm", "thin", "spike", "wave"}

// DefaultCalm returns a steady constant rate given as an oversampled array
func DefaultCalm(seed int64) *Config {
	return &Config{
		Name:        "calm",
		Seed:        seed,
		Duration:    100,
		Steps:       1000,
		TotalPulses: 200,
		Method:      "poisson",
		Rate: RateParams{
			Kind:       "constant",
			Oversample: 4,
			Level:      0.5, // four sub-samples sum to a rate of 2 per step
		},
	}
}

// DefaultThin returns a sparse, noisy intermittency realization
func DefaultThin(seed int64) *Config {
	return &Config{
		Name:        "thin",
		Seed:        seed,
		Duration:    100,
		Steps:       1000,
		TotalPulses: 100,
		Method:      "poisson",
		Rate: RateParams{
			Kind:       "lognormal",
			Oversample: 2,
			Mu:         -3,
			Sigma:      1,
		},
	}
}

// DefaultSpike returns a base rate with periodic burst windows
func DefaultSpike(seed int64) *Config {
	return &Config{
		Name:        "spike",
		Seed:        seed,
		Duration:    100,
		Steps:       1000,
		TotalPulses: 300,
		Method:      "poisson",
		Rate: RateParams{
			Kind:     "burst",
			Base:     Float(0.5),
			Peak:     Float(4),
			Interval: Float(20),
			Window:   Float(5),
		},
	}
}

// DefaultWave returns a sinusoidally modulated rate
func DefaultWave(seed int64) *Config {
	return &Config{
		Name:        "wave",
		Seed:        seed,
		Duration:    100,
		Steps:       1000,
		TotalPulses: 250,
		Method:      "poisson",
		Rate: RateParams{
			Kind:      "sinusoid",
			Mean:      Float(1),
			Amplitude: Float(0.9),
			Period:    Float(25),
		},
	}
}

// GetConfig returns the default config for a named scenario
func GetConfig(name string, seed int64) *Config {
	switch name {
	case "calm":
		return DefaultCalm(seed)
	case "thin":
		return DefaultThin(seed)
	case "spike":
		return DefaultSpike(seed)
	case "wave":
		return DefaultWave(seed)
	default:
		return nil
	}
}

// LoadConfig reads a YAML scenario file. Unknown fields are rejected so
// that typos surface instead of silently falling back to zero values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required fields are present and consistent.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !(c.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	if c.Steps < 2 {
		return fmt.Errorf("steps must be at least 2, got %d", c.Steps)
	}
	if c.TotalPulses <= 0 {
		return fmt.Errorf("total_pulses must be positive, got %d", c.TotalPulses)
	}
	if _, err := arrival.ParseMethod(c.Method); err != nil {
		return err
	}
	if _, err := arrival.ParseAveraging(c.Averaging); err != nil {
		return err
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must not be negative, got %d", c.MaxRounds)
	}
	switch c.Rate.Kind {
	case "constant", "lognormal", "gamma":
		if !c.SameShape && c.Rate.Oversample < 1 {
			return fmt.Errorf("rate.oversample must be at least 1 for %s rates", c.Rate.Kind)
		}
	case "sinusoid", "burst":
	case "":
		return fmt.Errorf("rate.kind is required")
	default:
		return fmt.Errorf("unknown rate kind %q", c.Rate.Kind)
	}
	return nil
}
