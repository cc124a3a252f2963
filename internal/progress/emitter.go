package progress

import (
	"sync"
	"sync/atomic"

	"glitzhit/internal/metrics"
)

// DefaultBuffer is the channel capacity used when none is configured.
const DefaultBuffer = 32

// Emitter relays events from one producer to one consumer.
type Emitter struct {
	events     chan Event
	detached   chan struct{}
	detachOnce sync.Once
	finished   atomic.Bool
}

// NewEmitter creates an emitter whose channel holds up to buffer events.
func NewEmitter(buffer int) *Emitter {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Emitter{
		events:   make(chan Event, buffer),
		detached: make(chan struct{}),
	}
}

// Events is the consumer side. It is closed after the terminal event.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Progress sends a percentage update, blocking while the buffer is full.
// It returns false when the event was discarded because the consumer
// detached or the stream already finished.
func (e *Emitter) Progress(percent int) bool {
	if e.finished.Load() {
		return false
	}
	select {
	case <-e.detached:
		metrics.ProgressEventsDroppedTotal.Inc()
		return false
	default:
	}

	select {
	case e.events <- Event{Kind: KindProgress, Percent: percent}:
		return true
	case <-e.detached:
		metrics.ProgressEventsDroppedTotal.Inc()
		return false
	}
}

// Finish delivers ev, which must be terminal, and closes the channel. Only
// the first call has any effect. It blocks until the consumer has room for the event
// or detaches.
func (e *Emitter) Finish(ev Event) {
	if e.finished.Swap(true) {
		return
	}

	select {
	case e.events <- ev:
	case <-e.detached:
	}
	close(e.events)
}

// Detach tells the producer that nobody is reading any more. It is safe to
// call more than once and from any goroutine.
func (e *Emitter) Detach() {
	e.detachOnce.Do(func() {
		close(e.detached)
	})
}

// Finished reports whether the terminal event has been produced.
func (e *Emitter) Finished() bool {
	return e.finished.Load()
}
