// Package sim wires together the time axis, rate process, arrival sampler,
// event loop and event log into a complete run.
package sim

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/akshitanchan/fpp-arrivals/internal/arrival"
	"github.com/akshitanchan/fpp-arrivals/internal/axis"
	"github.com/akshitanchan/fpp-arrivals/internal/domain"
	"github.com/akshitanchan/fpp-arrivals/internal/engine"
	"github.com/akshitanchan/fpp-arrivals/internal/eventlog"
	"github.com/akshitanchan/fpp-arrivals/internal/rate"
	"github.com/akshitanchan/fpp-arrivals/internal/scenario"
)

// RunResult holds the output of a run.
type RunResult struct {
	RunID        string           `json:"run_id"`
	InvocationID string           `json:"invocation_id"`
	Config       *scenario.Config `json:"config"`
	EventCount   uint64           `json:"event_count"`
	Rounds       int              `json:"rounds"`
	PoolSize     int              `json:"pool_size"`
	Arrivals     int              `json:"arrivals"`
	Duration     time.Duration    `json:"wall_duration"`
	LogPath      string           `json:"log_path"`
	LogHash      string           `json:"log_hash"`
	OutputDir    string           `json:"output_dir"`

	// Axis samples and acceptance probabilities the sampler thinned with.
	StepTimes []float64 `json:"-"`
	StepProbs []float64 `json:"-"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for the runner and its sampler.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithDefaultMaxRounds sets the round limit used when the config leaves
// max_rounds unset. n < 1 keeps arrival.DefaultMaxRounds.
func WithDefaultMaxRounds(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.defaultMaxRounds = n
		}
	}
}

// WithInvocationID overrides the generated invocation identifier.
func WithInvocationID(id string) Option {
	return func(r *Runner) { r.invocationID = id }
}

// Runner executes one scenario.
type Runner struct {
	cfg       *scenario.Config
	loop      *engine.EventLoop
	logWriter *eventlog.Writer
	writeErr  error

	logger           *slog.Logger
	defaultMaxRounds int
	invocationID     string

	rounds []arrival.RoundStats

	outputDir string
}

// NewRunner creates a runner writing into baseOutputDir/<name>_seed<seed>.
func NewRunner(cfg *scenario.Config, baseOutputDir string, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	runID := fmt.Sprintf("%s_seed%d", cfg.Name, cfg.Seed)
	outputDir := filepath.Join(baseOutputDir, runID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	r := &Runner{
		cfg:              cfg,
		outputDir:        outputDir,
		logger:           slog.Default(),
		defaultMaxRounds: arrival.DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.invocationID == "" {
		r.invocationID = uuid.NewString()
	}
	r.logger = r.logger.With("run_id", runID, "invocation_id", r.invocationID)

	logWriter, err := eventlog.NewWriter(filepath.Join(outputDir, "events.jsonl"))
	if err != nil {
		return nil, err
	}
	r.logWriter = logWriter
	r.loop = engine.NewEventLoop(r.handleEvent)
	return r, nil
}

// Run samples the arrival times, logs them and writes the run metadata.
func (r *Runner) Run() (*RunResult, error) {
	startWall := time.Now()
	cfg := r.cfg

	times, spec, sampler, err := r.prepare()
	if err != nil {
		r.logWriter.Close()
		return nil, err
	}

	method, err := arrival.ParseMethod(cfg.Method)
	if err != nil {
		r.logWriter.Close()
		return nil, err
	}
	r.logger.Info("sampling arrivals", "method", method, "rate", cfg.Rate.Kind, "pulses", cfg.TotalPulses)

	arrivals, err := sampler.Bind(method, spec)(times, cfg.TotalPulses)
	if err != nil {
		r.logWriter.Close()
		return nil, fmt.Errorf("sample arrivals: %w", err)
	}

	probs, err := sampler.StepProbabilities(spec, times)
	if err != nil {
		r.logWriter.Close()
		return nil, fmt.Errorf("step probabilities: %w", err)
	}

	end := times[len(times)-1]
	r.loop.Schedule(&domain.Event{
		Timestamp: 0,
		Type:      domain.EventSimStart,
		Run: &domain.RunInfo{
			Scenario:    cfg.Name,
			Seed:        cfg.Seed,
			Method:      method.String(),
			TotalPulses: cfg.TotalPulses,
			Steps:       len(times),
			Step:        axis.Step(times),
			End:         end,
		},
	})
	for _, rs := range r.rounds {
		r.loop.Schedule(&domain.Event{
			Timestamp: end,
			Type:      domain.EventRound,
			Round:     &domain.Round{Number: rs.Round, Accepted: rs.Accepted, PoolSize: rs.PoolSize},
		})
	}
	for i, t := range arrivals {
		r.loop.Schedule(&domain.Event{
			Timestamp: t,
			Type:      domain.EventArrival,
			Arrival:   &domain.Arrival{Index: i, Time: t},
		})
	}
	r.loop.Schedule(&domain.Event{
		Timestamp: end,
		Type:      domain.EventSimEnd,
	})

	r.loop.Run()

	if err := r.logWriter.Close(); err != nil {
		return nil, fmt.Errorf("close event log: %w", err)
	}
	if r.writeErr != nil {
		return nil, r.writeErr
	}

	logPath := filepath.Join(r.outputDir, "events.jsonl")
	hash, err := HashFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("hash log: %w", err)
	}

	result := &RunResult{
		RunID:        filepath.Base(r.outputDir),
		InvocationID: r.invocationID,
		Config:       cfg,
		EventCount:   r.loop.EventsProcessed,
		Rounds:       len(r.rounds),
		Arrivals:     len(arrivals),
		Duration:     time.Since(startWall),
		LogPath:      logPath,
		LogHash:      hash,
		OutputDir:    r.outputDir,
		StepTimes:    times,
		StepProbs:    probs,
	}
	if n := len(r.rounds); n > 0 {
		result.PoolSize = r.rounds[n-1].PoolSize
	}

	if err := writeJSON(filepath.Join(r.outputDir, "config.json"), cfg); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(r.outputDir, "run.json"), result); err != nil {
		return nil, err
	}
	lastRunPath := filepath.Join(filepath.Dir(r.outputDir), "last-run")
	if err := os.WriteFile(lastRunPath, []byte(r.outputDir), 0644); err != nil {
		return nil, fmt.Errorf("write last-run: %w", err)
	}

	r.logger.Info("run complete", "events", result.EventCount, "rounds", result.Rounds, "hash", hash[:16])
	return result, nil
}

// prepare builds the time axis, the rate process and the sampler. The rate
// and the sampler draw from separate streams derived from the run seed.
func (r *Runner) prepare() ([]float64, rate.Spec, *arrival.Sampler, error) {
	times, spec, err := Build(r.cfg)
	if err != nil {
		return nil, rate.Spec{}, nil, err
	}
	sampler, err := newSampler(r.cfg, r.maxRounds(), r.logger, func(rs arrival.RoundStats) {
		r.rounds = append(r.rounds, rs)
	})
	if err != nil {
		return nil, rate.Spec{}, nil, err
	}
	return times, spec, sampler, nil
}

func (r *Runner) maxRounds() int {
	if r.cfg.MaxRounds > 0 {
		return r.cfg.MaxRounds
	}
	return r.defaultMaxRounds
}

// Build returns the time axis and rate process of a config.
func Build(cfg *scenario.Config) ([]float64, rate.Spec, error) {
	times, err := axis.Uniform(0, cfg.Duration, cfg.Steps)
	if err != nil {
		return nil, rate.Spec{}, fmt.Errorf("time axis: %w", err)
	}
	spec, err := scenario.BuildRate(cfg, rand.NewSource(scenario.RateSeed(cfg)))
	if err != nil {
		return nil, rate.Spec{}, fmt.Errorf("rate: %w", err)
	}
	return times, spec, nil
}

// ExpectedProbabilities recomputes the per-step acceptance probabilities
// of a config without sampling, for metrics read back from a log.
func ExpectedProbabilities(cfg *scenario.Config) (times, probs []float64, err error) {
	times, spec, err := Build(cfg)
	if err != nil {
		return nil, nil, err
	}
	sampler, err := newSampler(cfg, 0, slog.Default(), nil)
	if err != nil {
		return nil, nil, err
	}
	probs, err = sampler.StepProbabilities(spec, times)
	if err != nil {
		return nil, nil, err
	}
	return times, probs, nil
}

func newSampler(cfg *scenario.Config, maxRounds int, logger *slog.Logger, observe func(arrival.RoundStats)) (*arrival.Sampler, error) {
	averaging, err := arrival.ParseAveraging(cfg.Averaging)
	if err != nil {
		return nil, err
	}
	opts := []arrival.Option{
		arrival.WithSameShape(cfg.SameShape),
		arrival.WithAveraging(averaging),
		arrival.WithMaxRounds(maxRounds),
		arrival.WithLogger(logger),
	}
	if observe != nil {
		opts = append(opts, arrival.WithRoundObserver(observe))
	}
	return arrival.NewSampler(rand.NewSource(scenario.SamplerSeed(cfg)), opts...), nil
}

// handleEvent logs every event in dispatch order. The first write error
// is kept and returned by Run.
func (r *Runner) handleEvent(event *domain.Event) []*domain.Event {
	if r.writeErr != nil {
		return nil
	}
	if err := r.logWriter.Write(event); err != nil {
		r.writeErr = fmt.Errorf("write event log: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// HashFile returns the hex sha256 of a file.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h), nil
}
