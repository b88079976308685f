package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"careledger/internal/platform/metrics"
)

// WorkerState tracks the drain worker's lifecycle for health checks and tests.
type WorkerState int32

const (
	WorkerStarting WorkerState = iota
	WorkerDraining
	WorkerShuttingDown
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerStarting:
		return "starting"
	case WorkerDraining:
		return "draining"
	case WorkerShuttingDown:
		return "shutting_down"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Sink receives events after successful persistence for best-effort fan-out
// (e.g. a Kafka mirror feeding SIEM). Sink failures never affect the pipeline.
type Sink interface {
	Publish(ctx context.Context, events []Event) error
}

// Worker is the sole consumer of the queue. It runs for the lifetime of the
// process, persisting drained batches and isolating storage failures so a
// backend fault never terminates the loop or back-pressures producers.
type Worker struct {
	queue   *Queue
	store   Store
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	batchSize     int
	shutdownGrace time.Duration
	state         atomic.Int32
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithBatchSize sets how many events one drain iteration may persist.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithShutdownGrace bounds the final flush after cancellation.
func WithShutdownGrace(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.shutdownGrace = d
		}
	}
}

// WithSink attaches a best-effort fan-out sink for persisted events.
func WithSink(s Sink) WorkerOption {
	return func(w *Worker) { w.sink = s }
}

// WithWorkerMetrics attaches pipeline metrics.
func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker builds a drain worker over the given queue and store.
func NewWorker(queue *Queue, st Store, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:         queue,
		store:         st,
		logger:        logger,
		batchSize:     64,
		shutdownGrace: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Run drains the queue until ctx is cancelled, then performs one bounded
// best-effort flush of whatever remains buffered and stops. It always returns
// nil: storage failures are logged and counted, never fatal.
func (w *Worker) Run(ctx context.Context) error {
	w.state.Store(int32(WorkerDraining))
	defer w.state.Store(int32(WorkerStopped))

	for {
		batch := w.queue.DequeueBatch(ctx, w.batchSize)
		if ctx.Err() != nil {
			w.finalFlush(batch)
			return nil
		}
		if len(batch) > 0 {
			w.persist(ctx, batch)
		}
	}
}

// finalFlush persists the already-dequeued batch and whatever remains
// buffered, bounded by the shutdown grace period. Appends run on a detached
// context so they complete or time out individually instead of being
// hard-aborted by the cancelled run context.
func (w *Worker) finalFlush(pending []Event) {
	w.state.Store(int32(WorkerShuttingDown))

	flushCtx, cancel := context.WithTimeout(context.Background(), w.shutdownGrace)
	defer cancel()

	for {
		batch := pending
		pending = nil
		if len(batch) == 0 {
			batch = w.queue.takeUpTo(w.batchSize)
		}
		if len(batch) == 0 {
			return
		}
		w.persist(flushCtx, batch)
		if flushCtx.Err() != nil {
			w.logger.Warn("audit shutdown flush exceeded grace period",
				"remaining", w.queue.Len(),
			)
			return
		}
	}
}

// persist appends each event of the batch, discarding failed items. The batch
// is not retried: an unavailable backend must not grow an unbounded backlog,
// and administrators observe the gap through metrics rather than errors.
func (w *Worker) persist(ctx context.Context, batch []Event) {
	start := time.Now()
	persisted := batch[:0:0]
	for _, event := range batch {
		if err := w.store.Append(ctx, event); err != nil {
			w.metrics.IncPersistFailures(1)
			w.logger.ErrorContext(ctx, "audit event persist failed, discarding",
				"error", err,
				"event_id", event.ID,
				"action", event.ActionName,
			)
			continue
		}
		w.metrics.IncPersisted(1)
		persisted = append(persisted, event)
	}
	w.metrics.ObserveDrainBatch(time.Since(start))
	w.metrics.SetQueueDepth(w.queue.Len())

	if w.sink != nil && len(persisted) > 0 {
		if err := w.sink.Publish(ctx, persisted); err != nil {
			w.logger.WarnContext(ctx, "audit mirror sink publish failed",
				"error", err,
				"events", len(persisted),
			)
		}
	}
}
