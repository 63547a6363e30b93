package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Handler runs one job's logic. It receives the raw JSON args; handlers
// decode their own expected shape.
type Handler func(ctx context.Context, args []byte) error

// Registry maps job names to handlers. Concurrent registration and lookup
// are both safe.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Worker polls the queue, claims eligible jobs, dispatches them to the
// registry, and records the outcome. Throughput scales by running several
// independent Workers over the same Registry and Queue: SKIP LOCKED keeps
// them from contending on the same row.
type Worker struct {
	queue    *Queue
	registry *Registry
	log      *slog.Logger
}

func NewWorker(queue *Queue, registry *Registry, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{queue: queue, registry: registry, log: log}
}

// Run polls until ctx is canceled. Callers should run RescheduleAbandoned
// once at process startup, before the first Worker starts, to salvage
// jobs left claimed by a crashed worker. The poll loop sleeps up to one
// second after a run with no claimable job, minus the time already spent
// that iteration, so the effective poll interval stays near 1s even when
// the claim query itself is slow. After a successful run it loops
// immediately.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		iterStart := time.Now()
		claimed, err := w.tick(ctx)
		if err != nil {
			w.log.Error("job worker tick failed", "error", err)
		}

		if claimed {
			continue
		}

		elapsed := time.Since(iterStart)
		sleep := time.Second - elapsed
		if sleep <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
}

// tick claims and runs at most one job. It returns claimed=true whenever a
// job was found, regardless of whether it succeeded, so the caller's poll
// loop can skip its sleep and immediately try for more work.
func (w *Worker) tick(ctx context.Context) (claimed bool, err error) {
	r, err := w.queue.Next(ctx)
	if err != nil {
		return false, err
	}
	if r == nil {
		return false, nil
	}

	w.dispatch(ctx, r)
	return true, nil
}

// dispatch looks up the job's handler and runs it in an isolated goroutine
// so a panic in handler code cannot crash the worker. Handler lookups that
// miss are logged and left claimed-but-orphaned for manual intervention,
// per the job system's contract.
func (w *Worker) dispatch(ctx context.Context, r *Row) {
	handler, ok := w.registry.lookup(r.Name)
	if !ok {
		w.log.Warn("no handler registered for job", "job_name", r.Name, "job_id", r.ID)
		return
	}

	start := time.Now()
	runErr := w.runIsolated(ctx, handler, r.Args)
	elapsed := time.Since(start)

	if runErr == nil {
		w.log.Info("job completed", "job_name", r.Name, "job_id", r.ID, "elapsed_ms", elapsed.Milliseconds())
		if err := w.queue.Complete(ctx, r.ID); err != nil {
			w.log.Error("failed to mark job completed", "job_id", r.ID, "error", err)
		}
		return
	}

	w.log.Warn("job failed", "job_name", r.Name, "job_id", r.ID, "elapsed_ms", elapsed.Milliseconds(), "error", runErr)
	if err := w.queue.Fail(ctx, r, runErr.Error()); err != nil {
		w.log.Error("failed to mark job failed", "job_id", r.ID, "error", err)
	}
}

// runIsolated recovers a panicking handler and converts it to an error, so
// the worker's own goroutine is never at risk.
func (w *Worker) runIsolated(ctx context.Context, h Handler, args []byte) (err error) {
	done := make(chan struct{})
	go func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("job handler panicked: %v", p)
			}
			close(done)
		}()
		err = h(ctx, args)
	}()
	<-done
	return err
}
