package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/statusrole/internal/concurrency"
	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/errors"
	"github.com/harunnryd/statusrole/internal/ingress"
	"github.com/harunnryd/statusrole/internal/logger"
)

// Processor handles one queued event.
type Processor interface {
	Process(ctx context.Context, evt *ingress.Event) error
}

type RuntimeConfig struct {
	ShutdownTimeout time.Duration
}

// Worker consumes a single ingress lane.
type Worker struct {
	mu      sync.RWMutex
	started bool
	quit    chan struct{}
	wg      sync.WaitGroup

	lane   int
	events <-chan *ingress.Event
	proc   Processor
	locks  *concurrency.KeyedLocker

	shutdownTimeout time.Duration
}

func NewWorker(lane int, events <-chan *ingress.Event, proc Processor, locks *concurrency.KeyedLocker, runtimeCfg RuntimeConfig) *Worker {
	if runtimeCfg.ShutdownTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultWorkerShutdownTimeout)
		if err == nil {
			runtimeCfg.ShutdownTimeout = d
		}
	}

	return &Worker{
		lane:   lane,
		events: events,
		proc:   proc,
		locks:  locks,

		shutdownTimeout: runtimeCfg.ShutdownTimeout,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return errors.Conflict(fmt.Sprintf("worker for lane %d already started", w.lane))
	}
	if w.proc == nil {
		return errors.InvalidInput("processor not configured")
	}

	w.started = true
	w.quit = make(chan struct{})

	workerCtx, cancel := context.WithCancel(ctx)

	w.wg.Add(1)
	concurrency.SafeGo(func() {
		defer w.wg.Done()
		defer cancel()

		slog.Debug("Worker started", "lane", w.lane)
		w.eventLoop(workerCtx)
		slog.Debug("Worker stopped", "lane", w.lane)
	}, nil)

	return nil
}

func (w *Worker) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			w.drain(ctx)
			return
		case evt, ok := <-w.events:
			if !ok {
				return
			}
			w.process(ctx, evt)
		}
	}
}

// drain processes whatever is already buffered on the lane.
func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				return
			}
			w.process(ctx, evt)
		default:
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, evt *ingress.Event) {
	if evt == nil {
		return
	}
	defer evt.Done()

	start := time.Now()
	ctx = logger.WithTraceID(ctx, evt.ID)
	ctx = logger.WithMemberID(ctx, evt.Member.ID)

	if w.locks != nil {
		w.locks.Lock(evt.Member.ID)
		defer w.locks.Unlock(evt.Member.ID)
	}

	// A panic in one event must not take the lane down with it.
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Event processing panicked", "event_id", evt.ID, "lane", w.lane, "panic", r)
			}
		}()
		if err := w.proc.Process(ctx, evt); err != nil {
			slog.Error("Event processing failed", "event_id", evt.ID, "kind", evt.Kind, "lane", w.lane, "error", err)
			return
		}
		slog.Debug("Event processed", "event_id", evt.ID, "kind", evt.Kind, "lane", w.lane, "duration", time.Since(start))
	}()
}

func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil
	}

	close(w.quit)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(w.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		w.started = false
		return nil
	case <-timer.C:
		slog.Warn("Worker shutdown timeout, force stopping", "lane", w.lane)
		w.started = false
		return errors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) Health(ctx context.Context) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.started {
		return errors.Internal("worker not started")
	}
	if w.events == nil {
		return errors.Internal("event channel not initialized")
	}
	return nil
}

// Pool runs one worker per ingress lane.
type Pool struct {
	workers []*Worker
}

func NewPool(in *ingress.Ingress, proc Processor, runtimeCfg RuntimeConfig) *Pool {
	locks := concurrency.NewKeyedLocker()
	lanes := in.Lanes()
	workers := make([]*Worker, len(lanes))
	for i, ch := range lanes {
		workers[i] = NewWorker(i, ch, proc, locks, runtimeCfg)
	}
	return &Pool{workers: workers}
}

func (p *Pool) Start(ctx context.Context) error {
	for _, w := range p.workers {
		if err := w.Start(ctx); err != nil {
			return err
		}
	}
	slog.Info("Worker pool started", "lanes", len(p.workers))
	return nil
}

func (p *Pool) Stop(ctx context.Context) error {
	var firstErr error
	for _, w := range p.workers {
		if err := w.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Pool) Health(ctx context.Context) error {
	for _, w := range p.workers {
		if err := w.Health(ctx); err != nil {
			return fmt.Errorf("lane %d: %w", w.lane, err)
		}
	}
	return nil
}

func (p *Pool) Size() int {
	return len(p.workers)
}
