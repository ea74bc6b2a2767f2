package sim

import (
	"errors"
	"fmt"

	"github.com/akshitanchan/fpp-arrivals/internal/domain"
	"github.com/akshitanchan/fpp-arrivals/internal/engine"
	"github.com/akshitanchan/fpp-arrivals/internal/eventlog"
)

// ErrLogOrder is returned when an event log was not written in dispatch order.
var ErrLogOrder = errors.New("event log is out of dispatch order")

// Replay reads an event log and dispatches its events through an event loop
// under their recorded sequence numbers. The events are returned in
// dispatch order, which for an intact log is the order they were written in.
func Replay(logPath string) ([]*domain.Event, error) {
	events, err := eventlog.ReadFile(logPath)
	if err != nil {
		return nil, err
	}

	replayed := make([]*domain.Event, 0, len(events))
	loop := engine.NewEventLoop(func(event *domain.Event) []*domain.Event {
		replayed = append(replayed, event)
		return nil
	})
	for _, e := range events {
		loop.ScheduleWithSeqNo(e)
	}
	loop.Run()

	for i := range events {
		if replayed[i] != events[i] {
			return replayed, fmt.Errorf("line %d holds seq %d at t=%g, dispatch order puts seq %d there: %w",
				i+1, events[i].SeqNo, events[i].Timestamp, replayed[i].SeqNo, ErrLogOrder)
		}
	}
	return replayed, nil
}
