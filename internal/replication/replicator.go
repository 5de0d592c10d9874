// Package replication keeps processes converged on one board by pushing the
// whole state to a shared store after every change and adopting whatever the
// store announces.  The last write to land wins in full; there is no merge.
package replication

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/clock"
	"github.com/iliyamo/clinic-treatment-board/internal/metrics"
	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// Snapshot is the unit exchanged through the remote store.  Origin names the
// writing process so it can ignore its own announcements.
type Snapshot struct {
	Origin string          `json:"origin"`
	At     time.Time       `json:"at"`
	State  model.RootState `json:"state"`
}

// Remote is the shared store at one fixed path.
type Remote interface {
	Write(ctx context.Context, snap Snapshot) error
	Subscribe(ctx context.Context) (<-chan Snapshot, error)
}

// Applier installs an inbound state.
type Applier interface {
	ApplyRemote(s model.RootState)
}

// Config tunes a Replicator.
type Config struct {
	Origin      string
	EchoWindow  time.Duration
	PushTimeout time.Duration
}

// Status is what the sync endpoint reports.
type Status struct {
	Mode   string `json:"mode"`
	Synced bool   `json:"synced"`
	Origin string `json:"origin,omitempty"`
}

// LocalStatus is reported when no remote store is configured.
var LocalStatus = Status{Mode: "local", Synced: false}

// Replicator pushes local states and applies remote ones.
type Replicator struct {
	remote  Remote
	origin  string
	window  time.Duration
	timeout time.Duration
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *zap.Logger

	mu            sync.Mutex
	suppressUntil time.Time
	synced        atomic.Bool
	pending       chan model.RootState
}

// New builds a Replicator.  Call Run to start pushing and subscribing.
func New(remote Remote, cfg Config, clk clock.Clock, m *metrics.Metrics, log *zap.Logger) *Replicator {
	if cfg.EchoWindow <= 0 {
		cfg.EchoWindow = 100 * time.Millisecond
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 2 * time.Second
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Replicator{
		remote:  remote,
		origin:  cfg.Origin,
		window:  cfg.EchoWindow,
		timeout: cfg.PushTimeout,
		clock:   clk,
		metrics: m,
		log:     log,
		pending: make(chan model.RootState, 1),
	}
}

// Status reports the replication mode and whether the last exchange with the
// store succeeded.
func (r *Replicator) Status() Status {
	return Status{Mode: "remote", Synced: r.synced.Load(), Origin: r.origin}
}

func (r *Replicator) suppressed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.Now().Before(r.suppressUntil)
}

// Push queues s for the store unless an inbound snapshot arrived within the
// echo window.  Only the newest queued state is written.
func (r *Replicator) Push(s model.RootState) bool {
	if r.suppressed() {
		r.metrics.Push("suppressed")
		return false
	}
	for {
		select {
		case r.pending <- s:
			return true
		default:
		}
		select {
		case <-r.pending:
		default:
		}
	}
}

// Accept applies an inbound snapshot written by another process and opens
// the echo window.  Snapshots carrying this process's origin are ignored.
func (r *Replicator) Accept(snap Snapshot, apply Applier) bool {
	if snap.Origin == r.origin {
		return false
	}
	r.mu.Lock()
	r.suppressUntil = r.clock.Now().Add(r.window)
	r.mu.Unlock()

	// anything still queued is older than what the store now holds
	select {
	case <-r.pending:
	default:
	}
	apply.ApplyRemote(snap.State)
	r.synced.Store(true)
	return true
}

// Run writes queued states and follows the store until ctx is done.
func (r *Replicator) Run(ctx context.Context, apply Applier) {
	go r.pushLoop(ctx)
	r.subscribeLoop(ctx, apply)
}

func (r *Replicator) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-r.pending:
			r.write(ctx, s)
		}
	}
}

func (r *Replicator) write(ctx context.Context, s model.RootState) {
	wctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	err := r.remote.Write(wctx, Snapshot{Origin: r.origin, At: r.clock.Now().UTC(), State: s})
	if err != nil {
		if r.synced.Swap(false) {
			r.log.Warn("remote push failed, continuing locally", zap.Error(err))
		}
		r.metrics.Push("error")
		return
	}
	r.synced.Store(true)
	r.metrics.Push("ok")
}

// subscribeLoop keeps a subscription open, reconnecting with exponential
// backoff while the store is unreachable.
func (r *Replicator) subscribeLoop(ctx context.Context, apply Applier) {
	backoff := time.Second
	for ctx.Err() == nil {
		snaps, err := r.remote.Subscribe(ctx)
		if err != nil {
			r.synced.Store(false)
			r.log.Warn("remote subscribe failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful subscribe

		for snap := range snaps {
			r.Accept(snap, apply)
		}
		if ctx.Err() == nil {
			r.synced.Store(false)
			r.log.Warn("remote subscription ended, resubscribing")
			if !sleep(ctx, 2*time.Second) {
				return
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
