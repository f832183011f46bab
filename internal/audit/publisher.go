package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Sink persists or forwards audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures audit events without blocking the caller. Events are
// queued in a bounded buffer and drained by a Worker; when the buffer is full
// new events are dropped and counted.
type Publisher struct {
	queue   chan Event
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{queue: make(chan Event, buffer), logger: logger}
}

// Emit enqueues base. It never blocks; a full buffer drops the event.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	select {
	case p.queue <- base:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.logger.WarnContext(ctx, "audit buffer full, dropping events",
				"action", base.Action,
				"dropped_total", n,
			)
		}
	}
	return nil
}

// Dropped returns how many events were discarded because the buffer was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Events exposes the queue for the Worker.
func (p *Publisher) Events() <-chan Event {
	return p.queue
}
