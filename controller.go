package xddgo

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ehrlich-b/xddgo/internal/target"
)

const (
	startPassBarrierName = "run/start-pass"
	resultsBarrierName   = "run/results"
)

// HeartbeatFunc is an optional periodic callback the Run Controller
// invokes with a live Snapshot while a run is in progress, grounded on
// the teacher's periodic status-line pattern.
type HeartbeatFunc func(Snapshot)

// Snapshot is the live state handed to a HeartbeatFunc.
type Snapshot struct {
	Elapsed    time.Duration
	PassNumber int
	Results    []TargetPassResult
}

// TargetPassResult pairs a target's name with its completed pass result,
// the unit a ResultsSink consumes per pass-completion hand-off.
type TargetPassResult struct {
	TargetName string
	Result     target.PassResult
}

// ResultsSink receives one callback per target per completed pass. The
// human-readable printer/CSV writer implementing this interface is out
// of scope (§1); this is the hand-off seam the teacher's info_display.c
// analog would plug into.
type ResultsSink interface {
	OnPassComplete(result TargetPassResult)
}

// TargetEntry binds a name to the Params used to build its Target
// Thread; Controller pre-creates the cross-target barriers with the
// correct party size before any thread enters them.
type TargetEntry struct {
	Name   string
	Params target.Params
	Passes int
}

// Controller is the Run Controller (§4.M): it builds one Target Thread
// per configured target, drives them through lockstep passes via the
// shared barriers, applies the run-wide deadline and SIGINT/SIGTERM
// cancellation, and drains per-pass results to an optional ResultsSink.
type Controller struct {
	rc      *RunContext
	threads []*target.Thread
	names   []string
	passes  []int

	Heartbeat         HeartbeatFunc
	HeartbeatInterval time.Duration
	Sink              ResultsSink
}

// NewController wires up one Target Thread per entry, pre-creating the
// start-pass and results barriers with a party size matching the number
// of targets so no thread races to create them with the wrong N.
func NewController(rc *RunContext, entries []TargetEntry) *Controller {
	n := len(entries)
	rc.Registry.Create(startPassBarrierName, n)
	rc.Registry.Create(resultsBarrierName, n)

	c := &Controller{rc: rc}
	for _, e := range entries {
		p := e.Params
		p.Registry = rc.Registry
		p.Ticker = rc.Ticker
		if p.Logger == nil {
			p.Logger = rc.Logger
		}
		if p.Observer == nil {
			p.Observer = rc.Observer
		}
		p.StartPassBarrierName = startPassBarrierName
		p.ResultsBarrierName = resultsBarrierName

		th := target.New(p)
		c.threads = append(c.threads, th)
		c.names = append(c.names, e.Name)
		c.passes = append(c.passes, e.Passes)
	}
	return c
}

// Run starts every Target Thread's worker pool and drives passes in
// lockstep until every target has completed its configured Passes, the
// run's deadline elapses, or SIGINT/SIGTERM arrives. It returns the
// full per-target, per-pass result log.
func (c *Controller) Run() []TargetPassResult {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	stopSignals := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			c.cancelAll()
		case <-stopSignals:
		}
	}()
	defer close(stopSignals)

	for _, th := range c.threads {
		th.StartWorkers()
	}

	var heartbeatStop chan struct{}
	if c.Heartbeat != nil {
		heartbeatStop = c.startHeartbeat()
		defer close(heartbeatStop)
	}

	var all []TargetPassResult
	maxPasses := 0
	for _, p := range c.passes {
		if p > maxPasses {
			maxPasses = p
		}
	}

	runStart := c.rc.Ticker.Now()
	for pass := 0; pass < maxPasses; pass++ {
		if c.rc.ShouldStop() {
			break
		}

		results := c.runOnePass(pass)
		all = append(all, results...)

		if c.Sink != nil {
			for _, r := range results {
				c.Sink.OnPassComplete(r)
			}
		}

		if c.Heartbeat != nil {
			c.Heartbeat(Snapshot{
				Elapsed:    c.rc.Ticker.Sub(c.rc.Ticker.Now(), runStart),
				PassNumber: pass,
				Results:    results,
			})
		}
	}

	return all
}

// runOnePass runs pass index `pass` on every target whose Passes count
// still covers it, concurrently, and waits for all of them to finish.
func (c *Controller) runOnePass(pass int) []TargetPassResult {
	var wg sync.WaitGroup
	results := make([]TargetPassResult, len(c.threads))

	for i, th := range c.threads {
		if pass >= c.passes[i] {
			results[i] = TargetPassResult{TargetName: c.names[i]}
			continue
		}
		wg.Add(1)
		go func(i int, th *target.Thread) {
			defer wg.Done()
			r := th.RunPass(pass)
			results[i] = TargetPassResult{TargetName: c.names[i], Result: r}
			if r.AbortedEarly || r.StopOnError {
				c.rc.Cancel()
			}
		}(i, th)
	}

	wg.Wait()
	return results
}

// cancelAll raises the run-wide cancellation flag and every thread's own
// cancellation flag, so a thread parked in a barrier releases itself
// instead of stranding its peers (§5 cancellation semantics).
func (c *Controller) cancelAll() {
	c.rc.Cancel()
	for _, th := range c.threads {
		th.Cancel()
	}
	c.rc.Registry.DestroyAll()
}

func (c *Controller) startHeartbeat() chan struct{} {
	stop := make(chan struct{})
	interval := c.HeartbeatInterval
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		start := c.rc.Ticker.Now()
		for {
			select {
			case <-ticker.C:
				c.Heartbeat(Snapshot{Elapsed: c.rc.Ticker.Sub(c.rc.Ticker.Now(), start)})
			case <-stop:
				return
			}
		}
	}()
	return stop
}
