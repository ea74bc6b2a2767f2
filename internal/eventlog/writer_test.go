package eventlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshitanchan/fpp-arrivals/internal/domain"
)

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	w, err := NewWriter(path)
	require.NoError(t, err)

	events := []*domain.Event{
		{SeqNo: 1, Timestamp: 0, Type: domain.EventSimStart, Run: &domain.RunInfo{Scenario: "calm", Seed: 7, TotalPulses: 2}},
		{SeqNo: 2, Timestamp: 9.5, Type: domain.EventRound, Round: &domain.Round{Number: 1, Accepted: 3, PoolSize: 3}},
		{SeqNo: 3, Timestamp: 1.25, Type: domain.EventArrival, Arrival: &domain.Arrival{Index: 0, Time: 1.25}},
		{SeqNo: 4, Timestamp: 1.25, Type: domain.EventArrival, Arrival: &domain.Arrival{Index: 1, Time: 1.25}},
		{SeqNo: 5, Timestamp: 9.5, Type: domain.EventSimEnd},
	}
	for _, e := range events {
		require.NoError(t, w.Write(e))
	}
	assert.Equal(t, uint64(5), w.Count())
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, len(events))
	assert.Equal(t, events, got)
	assert.Equal(t, []float64{1.25, 1.25}, domain.ArrivalTimes(got))
}

func TestEventTypesAreWrittenAsNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(&domain.Event{SeqNo: 1, Type: domain.EventRound, Round: &domain.Round{Number: 1}}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"ROUND"`)
}

func TestReaderReportsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"seq_no\":1,\"type\":\"ARRIVAL\"}\nnot json\n"), 0644))

	events, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Len(t, events, 1)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
