package audit

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/metrics"
)

// ChannelSink is a Store that hands events to a background Worker through a
// bounded channel. Append never blocks the caller; when the buffer is full
// the event is dropped and counted. Pair it with a Worker draining Events.
type ChannelSink struct {
	ch      chan Event
	dropped atomic.Int64
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// SinkOption configures a ChannelSink.
type SinkOption func(*ChannelSink)

// WithSinkLogger sets the structured logger.
func WithSinkLogger(l *slog.Logger) SinkOption {
	return func(s *ChannelSink) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSinkMetrics sets the metrics sink.
func WithSinkMetrics(m *metrics.Metrics) SinkOption {
	return func(s *ChannelSink) {
		s.metrics = m
	}
}

// NewChannelSink builds a sink with the given buffer capacity.
func NewChannelSink(buffer int, opts ...SinkOption) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	s := &ChannelSink{
		ch:     make(chan Event, buffer),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append enqueues the event without blocking.
func (s *ChannelSink) Append(ctx context.Context, event Event) error {
	select {
	case s.ch <- event:
		return nil
	default:
		s.dropped.Add(1)
		s.metrics.IncAuditDropped()
		s.logger.WarnContext(ctx, "audit buffer full, event dropped",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
		)
		return nil
	}
}

// Events exposes the inbox for a Worker.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Dropped reports how many events the sink has discarded.
func (s *ChannelSink) Dropped() int64 {
	return s.dropped.Load()
}

// Worker consumes audit events from a channel and persists them. Append
// errors are logged and counted, not fatal; losing the worker over one bad
// write would drop everything behind it.
type Worker struct {
	store   Store
	inbox   <-chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the structured logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWorkerMetrics sets the metrics sink.
func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

// NewWorker builds a worker persisting events from inbox into store.
func NewWorker(store Store, inbox <-chan Event, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:  store,
		inbox:  inbox,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes events until ctx is cancelled, then drains whatever is
// already buffered before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case event := <-w.inbox:
			w.append(ctx, event)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
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
	if err := w.store.Append(ctx, event); err != nil {
		w.metrics.IncAuditWriteFailure()
		w.logger.ErrorContext(ctx, "audit append failed",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()),
		)
	}
}
