// Package engine provides a deterministic discrete-event loop
package engine

import (
	"container/heap"

	"github.com/akshitanchan/fpp-arrivals/internal/domain"
)

// EventHandler processes an event and may return new events to enqueue
type EventHandler func(event *domain.Event) []*domain.Event

// eventHeap is a min-heap of events ordered by (Timestamp, SeqNo)
type eventHeap []*domain.Event

func (h eventHeap) Len() int      { return len(h) }
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Timestamp != h[j].Timestamp {
		return h[i].Timestamp < h[j].Timestamp
	}
	return h[i].SeqNo < h[j].SeqNo
}

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*domain.Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// EventLoop dispatches scheduled events in time order. Events sharing a
// timestamp, such as repeated arrivals at one time sample, keep the order
// they were scheduled in.
type EventLoop struct {
	queue   eventHeap
	seqNo   uint64
	handler EventHandler

	// Stats
	EventsProcessed uint64
	CurrentTime     float64
}

// NewEventLoop creates a new event loop with the given handler
func NewEventLoop(handler EventHandler) *EventLoop {
	el := &EventLoop{
		handler: handler,
	}
	heap.Init(&el.queue)
	return el
}

// Schedule adds an event to the priority queue.
// The event's SeqNo is set automatically for deterministic ordering.
func (el *EventLoop) Schedule(event *domain.Event) {
	el.seqNo++
	event.SeqNo = el.seqNo
	heap.Push(&el.queue, event)
}

// ScheduleWithSeqNo adds an event with a pre-assigned SeqNo, as read back
// from an event log.
func (el *EventLoop) ScheduleWithSeqNo(event *domain.Event) {
	if event.SeqNo > el.seqNo {
		el.seqNo = event.SeqNo
	}
	heap.Push(&el.queue, event)
}

// Run processes events until the queue is empty
func (el *EventLoop) Run() {
	for el.queue.Len() > 0 {
		el.step()
	}
}

func (el *EventLoop) step() {
	event := heap.Pop(&el.queue).(*domain.Event)
	el.CurrentTime = event.Timestamp
	el.EventsProcessed++

	for _, e := range el.handler(event) {
		el.Schedule(e)
	}
}
