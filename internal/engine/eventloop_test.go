package engine

import (
	"testing"

	"github.com/akshitanchan/fpp-arrivals/internal/domain"
)

func arrivalAt(ts float64, index int) *domain.Event {
	return &domain.Event{
		Timestamp: ts,
		Type:      domain.EventArrival,
		Arrival:   &domain.Arrival{Index: index, Time: ts},
	}
}

func TestEventLoopOrdering(t *testing.T) {
	var processed []uint64

	handler := func(event *domain.Event) []*domain.Event {
		processed = append(processed, event.SeqNo)
		return nil
	}

	el := NewEventLoop(handler)

	// Schedule events out of order.
	el.Schedule(arrivalAt(3.0, 0))
	el.Schedule(arrivalAt(1.0, 1))
	el.Schedule(arrivalAt(2.5, 2))

	el.Run()

	if len(processed) != 3 {
		t.Fatalf("expected 3 events, got %d", len(processed))
	}

	// SeqNos are assigned 1,2,3. Timestamps are 3.0,1.0,2.5.
	expectedSeqs := []uint64{2, 3, 1}
	for i, seq := range expectedSeqs {
		if processed[i] != seq {
			t.Errorf("event %d: expected seq %d, got %d", i, seq, processed[i])
		}
	}
	if el.CurrentTime != 3.0 {
		t.Errorf("expected current time 3.0, got %g", el.CurrentTime)
	}
}

func TestEventLoopDuplicateTimestampsFIFO(t *testing.T) {
	var processed []int

	handler := func(event *domain.Event) []*domain.Event {
		if event.Arrival != nil {
			processed = append(processed, event.Arrival.Index)
		}
		return nil
	}

	el := NewEventLoop(handler)

	// Resampling with replacement produces repeated arrival times.
	el.Schedule(arrivalAt(4.0, 10))
	el.Schedule(arrivalAt(4.0, 20))
	el.Schedule(arrivalAt(4.0, 30))

	el.Run()

	expected := []int{10, 20, 30}
	for i, idx := range expected {
		if processed[i] != idx {
			t.Errorf("event %d: expected arrival %d, got %d", i, idx, processed[i])
		}
	}
}

func TestEventLoopHandlerEnqueuesNewEvents(t *testing.T) {
	var count int

	handler := func(event *domain.Event) []*domain.Event {
		count++
		if event.Type == domain.EventSimStart {
			return []*domain.Event{arrivalAt(0.5, 0), arrivalAt(1.5, 1)}
		}
		return nil
	}

	el := NewEventLoop(handler)
	el.Schedule(&domain.Event{Timestamp: 0, Type: domain.EventSimStart})
	el.Run()

	if count != 3 {
		t.Errorf("expected 3 events processed, got %d", count)
	}
}

func TestScheduleWithSeqNoKeepsLogOrder(t *testing.T) {
	var processed []uint64
	el := NewEventLoop(func(event *domain.Event) []*domain.Event {
		processed = append(processed, event.SeqNo)
		return nil
	})

	for _, seq := range []uint64{7, 5, 6} {
		e := arrivalAt(1, int(seq))
		e.SeqNo = seq
		el.ScheduleWithSeqNo(e)
	}
	el.Schedule(arrivalAt(1, 99))
	el.Run()

	expected := []uint64{5, 6, 7, 8}
	for i, seq := range expected {
		if processed[i] != seq {
			t.Errorf("event %d: expected seq %d, got %d", i, seq, processed[i])
		}
	}
}
