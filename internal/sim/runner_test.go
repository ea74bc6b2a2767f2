package sim

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshitanchan/fpp-arrivals/internal/arrival"
	"github.com/akshitanchan/fpp-arrivals/internal/domain"
	"github.com/akshitanchan/fpp-arrivals/internal/eventlog"
	"github.com/akshitanchan/fpp-arrivals/internal/metrics"
	"github.com/akshitanchan/fpp-arrivals/internal/report"
	"github.com/akshitanchan/fpp-arrivals/internal/scenario"
)

func runScenario(t *testing.T, cfg *scenario.Config) *RunResult {
	t.Helper()
	runner, err := NewRunner(cfg, t.TempDir(), WithInvocationID("test"))
	require.NoError(t, err)
	result, err := runner.Run()
	require.NoError(t, err)
	return result
}

// TestDeterminism verifies that the same seed and config produce identical
// event logs, metrics and reports across two runs.
func TestDeterminism(t *testing.T) {
	for _, name := range scenario.Names {
		t.Run(name, func(t *testing.T) {
			var logHashes, reportHashes, metricsHashes []string
			for i := 0; i < 2; i++ {
				cfg := scenario.GetConfig(name, 12345)
				result := runScenario(t, cfg)

				m, err := metrics.ComputeFromLog(result.LogPath)
				require.NoError(t, err)
				m.AttachExpected(result.StepTimes, result.StepProbs)
				require.NoError(t, report.NewReport(cfg, m, result.OutputDir).Generate())

				logHashes = append(logHashes, result.LogHash)
				reportHashes = append(reportHashes, hashFileT(t, filepath.Join(result.OutputDir, "report.md")))
				metricsHashes = append(metricsHashes, hashFileT(t, filepath.Join(result.OutputDir, "metrics.json")))
			}
			assert.Equal(t, logHashes[0], logHashes[1], "event log")
			assert.Equal(t, reportHashes[0], reportHashes[1], "report.md")
			assert.Equal(t, metricsHashes[0], metricsHashes[1], "metrics.json")
		})
	}
}

func TestSeedChangesArrivals(t *testing.T) {
	a := runScenario(t, scenario.DefaultWave(1))
	b := runScenario(t, scenario.DefaultWave(2))
	assert.NotEqual(t, a.LogHash, b.LogHash)
}

func TestIntegrationAllScenarios(t *testing.T) {
	for _, name := range scenario.Names {
		t.Run(name, func(t *testing.T) {
			cfg := scenario.GetConfig(name, 42)
			result := runScenario(t, cfg)

			assert.Equal(t, cfg.TotalPulses, result.Arrivals)
			assert.GreaterOrEqual(t, result.Rounds, 1)
			assert.GreaterOrEqual(t, result.PoolSize, cfg.TotalPulses)
			assert.Equal(t, uint64(cfg.TotalPulses+result.Rounds+2), result.EventCount)
			assert.Len(t, result.StepProbs, cfg.Steps)

			events, err := eventlog.ReadFile(result.LogPath)
			require.NoError(t, err)
			require.NotEmpty(t, events)
			assert.Equal(t, domain.EventSimStart, events[0].Type)
			assert.Equal(t, domain.EventSimEnd, events[len(events)-1].Type)
			for i := 1; i < len(events); i++ {
				assert.LessOrEqual(t, events[i-1].Timestamp, events[i].Timestamp)
			}

			m := metrics.ComputeFromEvents(events)
			assert.Equal(t, cfg.TotalPulses, m.Arrivals)
			assert.Equal(t, result.Rounds, m.Rounds)
			assert.True(t, m.Sorted)
			assert.GreaterOrEqual(t, m.FirstArrival, 0.0)
			assert.LessOrEqual(t, m.LastArrival, cfg.Duration)
		})
	}
}

func TestRunWritesMetadata(t *testing.T) {
	base := t.TempDir()
	cfg := scenario.DefaultCalm(3)
	runner, err := NewRunner(cfg, base, WithInvocationID("abc"))
	require.NoError(t, err)
	result, err := runner.Run()
	require.NoError(t, err)

	assert.Equal(t, "calm_seed3", result.RunID)
	assert.Equal(t, filepath.Join(base, "calm_seed3"), result.OutputDir)

	lastRun, err := os.ReadFile(filepath.Join(base, "last-run"))
	require.NoError(t, err)
	assert.Equal(t, result.OutputDir, string(lastRun))

	data, err := os.ReadFile(filepath.Join(result.OutputDir, "config.json"))
	require.NoError(t, err)
	var saved scenario.Config
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, *cfg, saved)

	data, err = os.ReadFile(filepath.Join(result.OutputDir, "run.json"))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "abc", meta["invocation_id"])
	assert.Equal(t, result.LogHash, meta["log_hash"])
}

func TestCumsumRun(t *testing.T) {
	cfg := scenario.DefaultCalm(5)
	cfg.Method = "cumsum"
	result := runScenario(t, cfg)

	assert.Zero(t, result.Rounds)
	assert.Equal(t, cfg.TotalPulses, result.Arrivals)

	events, err := eventlog.ReadFile(result.LogPath)
	require.NoError(t, err)
	times := domain.ArrivalTimes(events)
	require.Len(t, times, cfg.TotalPulses)
	assert.InDelta(t, cfg.Duration, times[len(times)-1], 1e-9)
}

func TestCoxRunFails(t *testing.T) {
	cfg := scenario.DefaultSpike(1)
	cfg.Method = "cox"
	runner, err := NewRunner(cfg, t.TempDir())
	require.NoError(t, err)
	_, err = runner.Run()
	assert.ErrorIs(t, err, arrival.ErrNotImplemented)
}

func TestRoundLimit(t *testing.T) {
	cfg := scenario.DefaultThin(1)
	cfg.MaxRounds = 1
	runner, err := NewRunner(cfg, t.TempDir())
	require.NoError(t, err)
	_, err = runner.Run()
	assert.ErrorIs(t, err, arrival.ErrMaxRounds)
}

func TestDefaultRoundLimitApplies(t *testing.T) {
	cfg := scenario.DefaultThin(1)
	runner, err := NewRunner(cfg, t.TempDir(), WithDefaultMaxRounds(1))
	require.NoError(t, err)
	_, err = runner.Run()
	assert.ErrorIs(t, err, arrival.ErrMaxRounds)
}

func TestZeroRateRun(t *testing.T) {
	cfg := scenario.DefaultCalm(1)
	cfg.Rate.Level = 0
	runner, err := NewRunner(cfg, t.TempDir())
	require.NoError(t, err)
	_, err = runner.Run()
	assert.ErrorIs(t, err, arrival.ErrZeroRate)
}

func TestZeroRateFunctionStopsAtDefaultRoundLimit(t *testing.T) {
	cfg := scenario.DefaultWave(1)
	cfg.Steps = 11
	cfg.TotalPulses = 3
	cfg.Rate = scenario.RateParams{
		Kind:      "sinusoid",
		Mean:      scenario.Float(0),
		Amplitude: scenario.Float(0),
		Period:    scenario.Float(1),
	}

	runner, err := NewRunner(cfg, t.TempDir(), WithDefaultMaxRounds(0))
	require.NoError(t, err)
	_, err = runner.Run()
	require.ErrorIs(t, err, arrival.ErrMaxRounds)
	assert.Len(t, runner.rounds, arrival.DefaultMaxRounds)
}

func TestNewRunnerValidates(t *testing.T) {
	cfg := scenario.DefaultCalm(1)
	cfg.Steps = 1
	_, err := NewRunner(cfg, t.TempDir())
	assert.Error(t, err)
}

func TestExpectedProbabilitiesMatchRun(t *testing.T) {
	cfg := scenario.DefaultThin(8)
	result := runScenario(t, cfg)

	times, probs, err := ExpectedProbabilities(cfg)
	require.NoError(t, err)
	assert.Equal(t, result.StepTimes, times)
	assert.Equal(t, result.StepProbs, probs)
}

func hashFileT(t *testing.T, path string) string {
	t.Helper()
	h, err := HashFile(path)
	require.NoError(t, err)
	return h
}
