// Package target implements the Target Thread: the per-target pass
// scheduler that builds each pass's seek list, hands tasks out to its
// pool of Worker Agents under the configured ordering regime, and
// coordinates pass boundaries through the shared Barrier Registry
// (§4.G, §4.H).
package target

import (
	"sync"
	"time"

	"github.com/ehrlich-b/xddgo/internal/barrier"
	"github.com/ehrlich-b/xddgo/internal/constants"
	"github.com/ehrlich-b/xddgo/internal/interfaces"
	"github.com/ehrlich-b/xddgo/internal/pattern"
	"github.com/ehrlich-b/xddgo/internal/seeklist"
	"github.com/ehrlich-b/xddgo/internal/throttle"
	"github.com/ehrlich-b/xddgo/internal/ticker"
	"github.com/ehrlich-b/xddgo/internal/trigger"
	"github.com/ehrlich-b/xddgo/internal/tsring"
	"github.com/ehrlich-b/xddgo/internal/worker"
)

// Params configures one Target Thread.
type Params struct {
	Name          string
	QueueDepth    int
	Ordering      worker.Ordering
	SeekParams    seeklist.Params
	Pattern       pattern.Spec
	Backend       interfaces.Backend
	BufferSize    int
	Throttle      throttle.Spec
	ErrorCeiling  uint64
	ContinueOnErr bool
	PassDelay     time.Duration
	Passes        int

	Registry *barrier.Registry
	Ticker   *ticker.Ticker
	Ring     *tsring.Ring
	Trigger  *trigger.Fabric
	Logger   interfaces.Logger
	Observer interfaces.Observer

	// StartPassBarrierName is the cross-target lockstep barrier every
	// target enters before beginning a pass (§4.G step 3).
	StartPassBarrierName string
	// ResultsBarrierName is the run-level results-collection barrier
	// entered at the end of every pass (§4.G step 7).
	ResultsBarrierName string
}

// PassResult summarizes one completed pass for the Results Collector.
type PassResult struct {
	Pass          int
	OpsCompleted  uint64
	BytesXfered   uint64
	ErrorCount    uint64
	Elapsed       time.Duration
	StopOnError   bool
	AbortedEarly  bool
}

// Thread is one Target's pass scheduler and worker pool.
type Thread struct {
	params  Params
	workers []*worker.Agent

	cursor int // round-robin cursor for loose/strict worker selection

	mu            sync.Mutex
	abort         bool
	canceled      bool
	opCount       int64
	bytesThisPass int64
}

// New constructs a Target Thread and its Worker Agent pool, wiring the
// ordering ring when Ordering is loose or strict.
func New(params Params) *Thread {
	if n := params.SeekParams.OpCount(); n > 0 && int64(params.QueueDepth) > n {
		if params.Logger != nil {
			params.Logger.Warnf("target %s: queue depth %d exceeds pass op count %d, clamping", params.Name, params.QueueDepth, n)
		}
		params.QueueDepth = int(n)
	}

	t := &Thread{params: params}
	t.workers = make([]*worker.Agent, params.QueueDepth)
	for w := 0; w < params.QueueDepth; w++ {
		t.workers[w] = worker.New(w, params.Ordering, params.BufferSize, worker.Hooks{
			Backend:     params.Backend,
			Pattern:     params.Pattern,
			Ring:        params.Ring,
			Ticker:      params.Ticker,
			Trigger:     params.Trigger,
			Logger:      params.Logger,
			Observer:    params.Observer,
			ThresholdNs: 0,
		})
	}
	if params.Ordering != worker.OrderingUnordered {
		for w := 0; w < len(t.workers)-1; w++ {
			t.workers[w].LinkRing(t.workers[w+1])
		}
	}
	return t
}

// Abort raises this target's abort flag, checked before each op handoff
// and while waiting for a worker (§5 "a per-Target abort flag").
func (t *Thread) Abort() {
	t.mu.Lock()
	t.abort = true
	t.mu.Unlock()
}

// Cancel raises this target's cancellation flag, checked at the same
// points as Abort (§5 cancellation semantics). It does not touch
// barriers: a thread parked in one is released by Registry.DestroyAll,
// which the Run Controller calls when it cancels the run.
func (t *Thread) Cancel() {
	t.mu.Lock()
	t.canceled = true
	t.mu.Unlock()
}

func (t *Thread) shouldStop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.abort || t.canceled
}

// errorCeilingReached sums ErrorCount across every worker in the pool and
// compares against the target's configured ceiling; a ceiling is a
// Target-wide budget, not a per-worker one, so no single worker's own
// count is sufficient to trip it.
func (t *Thread) errorCeilingReached() bool {
	if t.params.ErrorCeiling == 0 {
		return false
	}
	var total uint64
	for _, w := range t.workers {
		total += w.Counters().ErrorCount
	}
	return total >= t.params.ErrorCeiling
}

// StartWorkers launches every Worker Agent's Run loop in its own
// goroutine, the Go-native equivalent of the teacher's per-queue thread
// spawn.
func (t *Thread) StartWorkers() {
	for _, w := range t.workers {
		go w.Run(t.progress)
	}
}

func (t *Thread) progress() trigger.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return trigger.Progress{
		OpNumber: t.opCount,
		Bytes:    t.bytesThisPass,
	}
}

// RunPass runs one pass and returns the pass result: it builds the seek
// list, enters the start-pass barrier, hands each entry to a worker under
// the throttle, sends END_OF_PASS to every worker, enters the
// pass-complete barrier, totals the worker counters and enters the
// results barrier. It applies no inter-pass offset delta to the seek
// list and does not sleep Params.PassDelay.
func (t *Thread) RunPass(pass int) PassResult {
	start := t.params.Ticker.Now()

	entries := seeklist.Build(t.params.SeekParams)

	if t.params.Registry != nil && t.params.StartPassBarrierName != "" {
		b := t.params.Registry.Create(t.params.StartPassBarrierName, barrierPartySize(t.params))
		if err := b.Enter(barrier.Occupant{Name: t.params.Name, Kind: "start-pass"}); err != nil {
			return PassResult{Pass: pass, AbortedEarly: true}
		}
	}

	gov := throttle.New(t.params.Throttle)
	result := PassResult{Pass: pass}

	for i, entry := range entries {
		if t.shouldStop() {
			result.AbortedEarly = true
			break
		}

		w := t.selectWorker()
		if w == nil {
			result.AbortedEarly = true
			break
		}

		gov.WaitForNext(entry.Length)

		w.Assign(worker.Task{
			Kind:   worker.TaskIO,
			Offset: entry.Offset,
			Length: entry.Length,
			IsRead: entry.Kind == seeklist.KindRead,
			Pass:   pass,
			OpNum:  int64(i),
		})

		t.mu.Lock()
		t.opCount++
		t.bytesThisPass += entry.Length
		t.mu.Unlock()

		if t.errorCeilingReached() {
			result.StopOnError = true
			break
		}
	}

	// End-of-pass: drain every worker with an END_OF_PASS task so all Q
	// workers have been notified before the pass-complete barrier.
	for _, w := range t.workers {
		for !w.Available() && !w.PassComplete() {
			time.Sleep(constants.WorkerSelectPollInterval)
		}
		w.Assign(worker.Task{Kind: worker.TaskEndOfPass})
	}

	if t.params.Registry != nil {
		passCompleteName := t.params.Name + "/pass-complete"
		b := t.params.Registry.Create(passCompleteName, len(t.workers)+1)
		_ = b.Enter(barrier.Occupant{Name: t.params.Name, Kind: "pass-complete"})
	}

	for _, w := range t.workers {
		c := w.Counters()
		result.OpsCompleted += c.OpsCompleted
		result.BytesXfered += c.BytesXfered
		result.ErrorCount += c.ErrorCount
	}

	if t.params.Registry != nil && t.params.ResultsBarrierName != "" {
		b := t.params.Registry.Create(t.params.ResultsBarrierName, barrierPartySize(t.params))
		_ = b.Enter(barrier.Occupant{Name: t.params.Name, Kind: "results"})
	}

	result.Elapsed = t.params.Ticker.Sub(t.params.Ticker.Now(), start)
	return result
}

// barrierPartySize is a placeholder party size for single-target test
// harnesses and simple plans; a multi-target Run Controller overrides
// this by pre-creating the barrier with the correct N before any Target
// Thread enters it (Registry.Create is idempotent — the first caller's N
// wins).
func barrierPartySize(p Params) int {
	return 1
}

// selectWorker implements §4.G step 4a: unordered uses a linear scan for
// any available, non-pass-complete worker; loose/strict walk a
// round-robin cursor and block on that specific worker's availability.
func (t *Thread) selectWorker() *worker.Agent {
	if t.params.Ordering == worker.OrderingUnordered {
		for {
			for _, w := range t.workers {
				if w.Available() && !w.PassComplete() && !w.ErrorBreak() {
					return w
				}
			}
			if t.shouldStop() {
				return nil
			}
			time.Sleep(constants.WorkerSelectPollInterval)
		}
	}

	for {
		w := t.workers[t.cursor%len(t.workers)]
		t.cursor++
		deadline := time.Now().Add(constants.WorkerSelectTimeout)
		for !w.Available() {
			if t.shouldStop() || time.Now().After(deadline) {
				return nil
			}
			time.Sleep(constants.WorkerSelectPollInterval)
		}
		if w.ErrorBreak() {
			continue
		}
		return w
	}
}

// Workers exposes the underlying pool for diagnostics and tests.
func (t *Thread) Workers() []*worker.Agent { return t.workers }
