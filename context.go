package xddgo

import (
	"sync"
	"time"

	"github.com/ehrlich-b/xddgo/internal/barrier"
	"github.com/ehrlich-b/xddgo/internal/interfaces"
	"github.com/ehrlich-b/xddgo/internal/ticker"
)

// RunOptions configures a run of the engine across one or more targets.
// It is the caller-facing equivalent of the teacher's DeviceParams: a
// flat struct handed to a constructor that produces the live, threaded
// RunContext.
type RunOptions struct {
	// Runtime is the wall-clock deadline for the whole run, measured from
	// NewRunContext. Zero means run until every target's passes complete
	// with no deadline.
	Runtime time.Duration

	// Logger receives structured run-level log lines; nil disables
	// logging (every component treats a nil Logger as a no-op).
	Logger interfaces.Logger

	// Observer receives per-op metrics from every Worker Agent across
	// every target; nil disables metrics collection.
	Observer interfaces.Observer
}

// RunContext is the single value threaded by pointer through every
// component of a run, replacing the module-level globals a C port of
// this engine would otherwise reach for. It carries the shared Barrier
// Registry, the monotonic Ticker every target's passes are timed
// against, and the run-wide cancellation/deadline state checked at op
// and pass boundaries.
type RunContext struct {
	Registry *barrier.Registry
	Ticker   *ticker.Ticker
	Logger   interfaces.Logger
	Observer interfaces.Observer

	deadline ticker.Tick
	hasDL    bool

	mu       sync.Mutex
	canceled bool
}

// NewRunContext builds a RunContext from RunOptions, stamping the
// deadline (if any) against a fresh Ticker the way the teacher's
// DefaultParams stamps defaults against a fresh Device.
func NewRunContext(opts RunOptions) *RunContext {
	rc := &RunContext{
		Registry: barrier.NewRegistry(),
		Ticker:   ticker.New(),
		Logger:   opts.Logger,
		Observer: opts.Observer,
	}
	if opts.Runtime > 0 {
		rc.deadline = rc.Ticker.Deadline(opts.Runtime)
		rc.hasDL = true
	}
	return rc
}

// DeadlineExceeded reports whether the run's configured Runtime has
// elapsed. Components check this at op/pass boundaries instead of
// installing a signal-driven alarm (§9 redesign: ticker-compared
// deadline, not SIGALRM).
func (rc *RunContext) DeadlineExceeded() bool {
	if !rc.hasDL {
		return false
	}
	return rc.Ticker.Now() >= rc.deadline
}

// Cancel raises the run-wide cancellation flag. Controller.Run checks it
// (through ShouldStop) before starting each pass; Target Threads do not
// read it. Barrier release on cancellation comes from the Controller,
// which cancels each Target Thread and destroys the Registry.
func (rc *RunContext) Cancel() {
	rc.mu.Lock()
	rc.canceled = true
	rc.mu.Unlock()
}

// Canceled reports whether Cancel has been called.
func (rc *RunContext) Canceled() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.canceled
}

// ShouldStop reports whether the run should stop at the next checkpoint,
// either because it was canceled or because its deadline has passed.
func (rc *RunContext) ShouldStop() bool {
	return rc.Canceled() || rc.DeadlineExceeded()
}
