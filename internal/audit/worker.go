package audit

import (
	"context"
	"log/slog"
	"time"
)

// Worker drains published events into a Sink. Sink failures are logged and
// the event is dropped; audit delivery is best-effort.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run processes events until ctx is cancelled, then drains what is already
// buffered with a short grace period.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.append(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.append(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, event Event) {
	if err := w.sink.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to append audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

// LogSink writes audit events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit",
		"action", event.Action,
		"email", event.Email,
		"purpose", event.Purpose,
		"outcome", event.Outcome,
		"reason", event.Reason,
		"request_id", event.RequestID,
		"client_ip", event.ClientIP,
		"user_agent", event.UserAgent,
		"timestamp", event.Timestamp,
	)
	return nil
}
