// Package config loads process-level settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds settings that apply to every command.
type Env struct {
	RunsDir     string `env:"FPPSIM_RUNS_DIR" envDefault:"runs"`
	MaxRounds   int    `env:"FPPSIM_MAX_ROUNDS" envDefault:"10000"`
	DefaultSeed int64  `env:"FPPSIM_DEFAULT_SEED" envDefault:"42"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Env and checks its values.
func Load() (Env, error) {
	var cfg Env
	if err := ParseEnv(&cfg); err != nil {
		return Env{}, err
	}
	if cfg.RunsDir == "" {
		return Env{}, fmt.Errorf("FPPSIM_RUNS_DIR must not be empty")
	}
	if cfg.MaxRounds < 1 {
		return Env{}, fmt.Errorf("FPPSIM_MAX_ROUNDS must be at least 1, got %d", cfg.MaxRounds)
	}
	return cfg, nil
}
