package audit

import (
	"context"
	"log/slog"
)

const queueSize = 256

// Recorder is the producer side handed to the rest of the portal.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Worker buffers events and drains them to the store and the Kafka sink on
// its own goroutine, so mutations never block on audit I/O. A full queue
// drops the event with a warning; the trail is best-effort.
type Worker struct {
	store  Store
	sink   *KafkaSink
	logger *slog.Logger
	queue  chan Event
}

func NewWorker(store Store, sink *KafkaSink, logger *slog.Logger) *Worker {
	return &Worker{
		store:  store,
		sink:   sink,
		logger: logger,
		queue:  make(chan Event, queueSize),
	}
}

// Record enqueues an event without blocking the caller.
func (w *Worker) Record(ctx context.Context, e Event) {
	select {
	case w.queue <- e:
	default:
		w.logger.WarnContext(ctx, "audit queue full, event dropped",
			"action", e.Action,
			"entity_id", e.EntityID,
		)
	}
}

// Run drains the queue until ctx is cancelled, then flushes whatever is
// still buffered.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case e := <-w.queue:
			w.persist(ctx, e)
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		}
	}
}

func (w *Worker) flush() {
	ctx := context.Background()
	for {
		select {
		case e := <-w.queue:
			w.persist(ctx, e)
		default:
			return
		}
	}
}

func (w *Worker) persist(ctx context.Context, e Event) {
	if err := w.store.Insert(ctx, e); err != nil {
		w.logger.ErrorContext(ctx, "audit event not persisted",
			"action", e.Action,
			"error", err,
		)
	}
	if w.sink != nil {
		w.sink.Publish(ctx, e)
	}
}

// Discard is a Recorder that drops everything; used where an audit trail is
// not configured.
type Discard struct{}

func (Discard) Record(context.Context, Event) {}
