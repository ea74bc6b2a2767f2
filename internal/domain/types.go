// Package domain defines the core types shared by a run: arrival records,
// sampling rounds, and the events that carry them through the event loop
// and event log.
package domain

import (
	"fmt"
	"strings"
)

// --- Enums ---

type EventType int8

const (
	EventArrival EventType = iota
	EventRound
	EventSimStart
	EventSimEnd
)

func (e EventType) String() string {
	switch e {
	case EventArrival:
		return "ARRIVAL"
	case EventRound:
		return "ROUND"
	case EventSimStart:
		return "SIM_START"
	case EventSimEnd:
		return "SIM_END"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes EventType as a human-readable string
func (e EventType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + e.String() + `"`), nil
}

// UnmarshalJSON deserializes EventType from a string or integer
func (e *EventType) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	switch str {
	case "ARRIVAL", "0":
		*e = EventArrival
	case "ROUND", "1":
		*e = EventRound
	case "SIM_START", "2":
		*e = EventSimStart
	case "SIM_END", "3":
		*e = EventSimEnd
	default:
		return fmt.Errorf("unknown EventType: %s", str)
	}
	return nil
}

// --- Core structures ---

// Arrival is one sampled arrival time
type Arrival struct {
	Index int     `json:"index"` // position in the sorted arrival set
	Time  float64 `json:"time"`
}

// Round summarizes one accumulation round of the sampler
type Round struct {
	Number   int `json:"number"`
	Accepted int `json:"accepted"`
	PoolSize int `json:"pool_size"`
}

// RunInfo is attached to the start event
type RunInfo struct {
	Scenario    string  `json:"scenario"`
	Seed        int64   `json:"seed"`
	Method      string  `json:"method"`
	TotalPulses int     `json:"total_pulses"`
	Steps       int     `json:"steps"`
	Step        float64 `json:"step"`
	End         float64 `json:"end"` // last time axis sample; the axis starts at 0
}

// Event is the core unit in the event loop and event log
type Event struct {
	SeqNo     uint64    `json:"seq_no"`
	Timestamp float64   `json:"timestamp"`
	Type      EventType `json:"type"`

	// At most one of these is set depending on Type
	Arrival *Arrival `json:"arrival,omitempty"`
	Round   *Round   `json:"round,omitempty"`
	Run     *RunInfo `json:"run,omitempty"`
}

// ArrivalTimes extracts arrival times from events in the order given
func ArrivalTimes(events []*Event) []float64 {
	var out []float64
	for _, e := range events {
		if e.Type == EventArrival && e.Arrival != nil {
			out = append(out, e.Arrival.Time)
		}
	}
	return out
}
