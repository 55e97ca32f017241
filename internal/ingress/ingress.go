package ingress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/harunnryd/statusrole/internal/concurrency"
	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/errors"
	"github.com/harunnryd/statusrole/internal/member"
	"github.com/harunnryd/statusrole/internal/metrics"
)

type RuntimeConfig struct {
	Lanes             int
	QueueSize         int
	SubmitTimeout     time.Duration
	DrainTimeout      time.Duration
	DrainPollInterval time.Duration
}

// Ingress fans events out onto a fixed set of lanes. A member always hashes to the
// same lane, so one member's events keep their submission order.
type Ingress struct {
	mu      sync.RWMutex
	closed  bool
	closing chan struct{}
	once    sync.Once
	lanes   []chan *Event

	submitTimeout     time.Duration
	drainTimeout      time.Duration
	drainPollInterval time.Duration

	metrics *metrics.Metrics
}

func NewIngress(runtimeCfg RuntimeConfig, m *metrics.Metrics) *Ingress {
	if runtimeCfg.Lanes <= 0 {
		runtimeCfg.Lanes = config.DefaultEngineLanes
	}
	if runtimeCfg.QueueSize <= 0 {
		runtimeCfg.QueueSize = config.DefaultEngineQueueSize
	}
	if runtimeCfg.SubmitTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultEngineSubmitTimeout)
		if err == nil {
			runtimeCfg.SubmitTimeout = d
		}
	}
	if runtimeCfg.DrainTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultEngineDrainTimeout)
		if err == nil {
			runtimeCfg.DrainTimeout = d
		}
	}
	if runtimeCfg.DrainPollInterval <= 0 {
		runtimeCfg.DrainPollInterval = 50 * time.Millisecond
	}

	lanes := make([]chan *Event, runtimeCfg.Lanes)
	for i := range lanes {
		lanes[i] = make(chan *Event, runtimeCfg.QueueSize)
	}

	return &Ingress{
		lanes:             lanes,
		closing:           make(chan struct{}),
		submitTimeout:     runtimeCfg.SubmitTimeout,
		drainTimeout:      runtimeCfg.DrainTimeout,
		drainPollInterval: runtimeCfg.DrainPollInterval,
		metrics:           m,
	}
}

// LaneFor returns the lane index for a member ID.
func (i *Ingress) LaneFor(memberID string) int {
	return int(xxhash.Sum64String(memberID) % uint64(len(i.lanes)))
}

// Lanes returns the receive side of every lane, in index order.
func (i *Ingress) Lanes() []<-chan *Event {
	out := make([]<-chan *Event, len(i.lanes))
	for idx, ch := range i.lanes {
		out[idx] = ch
	}
	return out
}

// Submit queues evt on its member's lane. A full lane is waited on for the submit
// timeout; after that the event is dropped with ErrTransient. Dropped events are
// marked done.
func (i *Ingress) Submit(ctx context.Context, evt *Event) error {
	timer := time.NewTimer(i.submitTimeout)
	defer timer.Stop()
	return i.enqueue(ctx, evt, timer.C)
}

// SubmitWait queues evt like Submit but waits on a full lane until ctx is done or
// ingress closes.
func (i *Ingress) SubmitWait(ctx context.Context, evt *Event) error {
	return i.enqueue(ctx, evt, nil)
}

// enqueue sends evt to its lane. A nil expire channel never fires.
func (i *Ingress) enqueue(ctx context.Context, evt *Event, expire <-chan time.Time) error {
	if evt == nil {
		return errors.InvalidInput("event is nil")
	}
	if evt.Member.ID == "" {
		evt.Done()
		return errors.InvalidInput("event has no member id")
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return i.drop(evt, "closed", fmt.Errorf("ingress closed: %w", errors.ErrTransient))
	}

	lane := i.LaneFor(evt.Member.ID)
	select {
	case i.lanes[lane] <- evt:
		slog.Debug("Event queued", "event_id", evt.ID, "kind", evt.Kind, "member_id", evt.Member.ID, "lane", lane)
		return nil
	default:
	}

	select {
	case i.lanes[lane] <- evt:
		slog.Debug("Event queued after wait", "event_id", evt.ID, "kind", evt.Kind, "member_id", evt.Member.ID, "lane", lane)
		return nil
	case <-expire:
		slog.Warn("Lane full, dropping event", "event_id", evt.ID, "kind", evt.Kind, "member_id", evt.Member.ID, "lane", lane)
		return i.drop(evt, "lane_full", fmt.Errorf("lane %d full: %w", lane, errors.ErrTransient))
	case <-i.closing:
		return i.drop(evt, "closed", fmt.Errorf("ingress closed: %w", errors.ErrTransient))
	case <-ctx.Done():
		return i.drop(evt, "cancelled", ctx.Err())
	}
}

func (i *Ingress) drop(evt *Event, reason string, err error) error {
	evt.Done()
	i.metrics.ObserveDropped(reason)
	return err
}

// SubmitBatch queues one event of kind per member and calls onComplete once every
// event has been processed or dropped. Full lanes are waited on without a timeout,
// so every member is queued unless ctx ends or ingress closes first. It returns the
// number of events queued.
func (i *Ingress) SubmitBatch(ctx context.Context, kind Kind, members []member.Snapshot, onComplete func(queued int)) int {
	var wg sync.WaitGroup
	queued := 0
	for _, m := range members {
		wg.Add(1)
		evt := NewEvent(kind, m).OnDone(wg.Done)
		if err := i.SubmitWait(ctx, evt); err != nil {
			slog.Warn("Failed to queue member", "kind", kind, "member_id", m.ID, "error", err)
			continue
		}
		queued++
	}

	concurrency.SafeGo(func() {
		wg.Wait()
		if onComplete != nil {
			onComplete(queued)
		}
	}, nil)
	return queued
}

// Close stops accepting events, waits for the lanes to drain up to the drain timeout,
// then closes them. Events still buffered stay readable by workers until the channel
// is empty.
func (i *Ingress) Close() error {
	slog.Info("Ingress shutting down, draining lanes")

	// Waiting submitters hold the read lock; release them before taking the write lock.
	i.once.Do(func() { close(i.closing) })

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()

	deadline := time.Now().Add(i.drainTimeout)
	for time.Now().Before(deadline) {
		if i.pending() == 0 {
			break
		}
		time.Sleep(i.drainPollInterval)
	}
	if remaining := i.pending(); remaining > 0 {
		slog.Warn("Lane drain incomplete", "remaining", remaining)
	}

	for _, ch := range i.lanes {
		close(ch)
	}
	slog.Info("Ingress shutdown complete")
	return nil
}

func (i *Ingress) pending() int {
	n := 0
	for _, ch := range i.lanes {
		n += len(ch)
	}
	return n
}

// Health fails when ingress is closed or any lane is nearly full.
func (i *Ingress) Health(ctx context.Context) error {
	i.mu.RLock()
	closed := i.closed
	i.mu.RUnlock()
	if closed {
		return errors.Internal("ingress closed")
	}
	if len(i.lanes) == 0 {
		return errors.Internal("lanes not initialized")
	}

	for idx, ch := range i.lanes {
		usage := float64(len(ch)) / float64(cap(ch))
		if usage > 0.9 {
			slog.Debug("Lane nearly full", "lane", idx, "len", len(ch), "cap", cap(ch))
			return errors.Transient(fmt.Sprintf("lane %d nearly full", idx))
		}
	}
	return nil
}
