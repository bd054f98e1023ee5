package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Fetcher is the slice of the backend API the poller needs.
// Implemented by api.Client.
type Fetcher interface {
	PipelineStatus(ctx context.Context) (Status, error)
	StartPipeline(ctx context.Context) error
}

// Poller mirrors backend pipeline state and auto-manages a fixed-interval
// polling loop. The loop runs if and only if the poller is enabled and
// the pipeline is active; every status change re-evaluates that gate.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	status  Status
	steps   []Step
	enabled bool
	stopCh  chan struct{}
}

// NewPoller creates an enabled Poller. If interval is <= 0, it defaults
// to 60s. The loop does not start until the pipeline becomes active or
// StartPolling is called.
func NewPoller(fetcher Fetcher, interval time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		log:      log,
		enabled:  true,
		steps:    DeriveSteps(Status{}),
	}
}

// Status returns the last fetched job state.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Steps returns a copy of the derived progress steps.
func (p *Poller) Steps() []Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// IsActive reports whether the last fetched status was "running".
func (p *Poller) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.IsActive()
}

// IsPolling reports whether the polling loop is currently running.
func (p *Poller) IsPolling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCh != nil
}

// SetEnabled flips the master polling switch and re-evaluates the loop
// gate. Disabling stops the loop; enabling starts it if the pipeline is
// active.
func (p *Poller) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
	p.reconcileLocked()
}

// FetchStatus fetches the current job state. On success it stores the
// state, recomputes the derived steps, re-evaluates the polling gate,
// and returns the new status. On failure it logs, leaves prior state
// untouched, and returns nil; the loop keeps its fixed-interval cadence.
func (p *Poller) FetchStatus(ctx context.Context) *Status {
	st, err := p.fetcher.PipelineStatus(ctx)
	if err != nil {
		p.log.Warn("fetching pipeline status failed", "error", err)
		return nil
	}

	p.mu.Lock()
	p.status = st
	p.steps = DeriveSteps(st)
	if ShouldStop(st) {
		p.stopLocked()
	} else {
		p.reconcileLocked()
	}
	p.mu.Unlock()

	return &st
}

// StartPipeline asks the backend to start a run and, on success,
// immediately fetches the new state instead of waiting for the next
// poll tick.
func (p *Poller) StartPipeline(ctx context.Context) bool {
	if err := p.fetcher.StartPipeline(ctx); err != nil {
		p.log.Warn("starting pipeline failed", "error", err)
		return false
	}
	p.FetchStatus(ctx)
	return true
}

// StartPolling starts the loop. Calling it while the loop is already
// running is a no-op.
func (p *Poller) StartPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

// StopPolling stops the loop and clears any pending timer. A fetch
// already in flight still completes and applies its state update.
func (p *Poller) StopPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) startLocked() {
	if p.stopCh != nil {
		return
	}
	stopCh := make(chan struct{})
	p.stopCh = stopCh
	go p.loop(stopCh)
}

func (p *Poller) stopLocked() {
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
}

// reconcileLocked enforces the gating invariant: loop running iff
// enabled && active.
func (p *Poller) reconcileLocked() {
	if p.enabled && p.status.IsActive() {
		p.startLocked()
	} else {
		p.stopLocked()
	}
}

func (p *Poller) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.FetchStatus(context.Background())
		}
	}
}
