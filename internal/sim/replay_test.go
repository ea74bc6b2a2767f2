package sim

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshitanchan/fpp-arrivals/internal/domain"
	"github.com/akshitanchan/fpp-arrivals/internal/eventlog"
	"github.com/akshitanchan/fpp-arrivals/internal/scenario"
)

func TestReplayMatchesLogOrder(t *testing.T) {
	result := runScenario(t, scenario.DefaultSpike(4))

	logged, err := eventlog.ReadFile(result.LogPath)
	require.NoError(t, err)
	replayed, err := Replay(result.LogPath)
	require.NoError(t, err)

	require.Len(t, replayed, len(logged))
	assert.Equal(t, result.EventCount, uint64(len(replayed)))
	for i := range logged {
		assert.Equal(t, logged[i].SeqNo, replayed[i].SeqNo)
	}
	assert.Equal(t, domain.EventSimStart, replayed[0].Type)
	assert.Equal(t, domain.EventSimEnd, replayed[len(replayed)-1].Type)
}

func TestReplayRejectsReorderedLog(t *testing.T) {
	result := runScenario(t, scenario.DefaultCalm(4))

	data, err := os.ReadFile(result.LogPath)
	require.NoError(t, err)
	lines := strings.SplitAfter(string(data), "\n")
	lines[0], lines[1] = lines[1], lines[0]
	require.NoError(t, os.WriteFile(result.LogPath, []byte(strings.Join(lines, "")), 0644))

	_, err = Replay(result.LogPath)
	assert.ErrorIs(t, err, ErrLogOrder)
}

func TestReplayMissingLog(t *testing.T) {
	_, err := Replay("does-not-exist.jsonl")
	assert.Error(t, err)
}
