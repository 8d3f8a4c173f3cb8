// Package worker implements the Worker Agent: the per-queue-slot thread
// that executes one storage operation per task handed to it by its
// Target Thread (§4.F). Its lifecycle is a small bit-flag state machine,
// mirroring the teacher's queue.TagState machine for in-flight ublk tags.
package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/xddgo/internal/interfaces"
	"github.com/ehrlich-b/xddgo/internal/pattern"
	"github.com/ehrlich-b/xddgo/internal/seeklist"
	"github.com/ehrlich-b/xddgo/internal/ticker"
	"github.com/ehrlich-b/xddgo/internal/trigger"
	"github.com/ehrlich-b/xddgo/internal/tsring"
)

// State is a lifecycle flag for a Worker Agent. States are distinct
// values (not bitwise-composable in this Go port; the teacher's
// TagState is likewise a plain enum rather than true bit flags).
type State int32

const (
	StateInit State = iota
	StateAvailable
	StateWaitingPrev
	StateIO
	StateE2ERecv
	StateE2ESend
	StateBarrier
	StatePassComplete
)

// TaskKind distinguishes what a Task Request asks the worker to do.
type TaskKind int

const (
	TaskIO TaskKind = iota
	TaskEndOfPass
	TaskEOF
	TaskStop
)

// Ordering selects the inter-worker serialization regime a Target Thread
// runs its pool under (§4.H).
type Ordering int

const (
	OrderingUnordered Ordering = iota
	OrderingLoose
	OrderingStrict
)

// Task is one unit of work handed from a Target Thread to a Worker Agent.
type Task struct {
	Kind   TaskKind
	Offset int64
	Length int64
	IsRead bool
	Pass   int
	OpNum  int64
}

// Counters is a snapshot of one worker's accumulated per-op statistics,
// the Go-native equivalent of the teacher's MetricsSnapshot.
type Counters struct {
	OpsCompleted   uint64
	BytesXfered    uint64
	ErrorCount     uint64
	ReadTimeNs     uint64
	WriteTimeNs    uint64
	NoopTimeNs     uint64
	LongestOpNs    uint64
	ShortestOpNs   uint64
}

// Hooks wires a Worker Agent to the collaborators it touches on every
// op: the storage backend, the data pattern, the timestamp ring, the
// trigger fabric, and (for loose/strict ordering) its ring neighbors.
type Hooks struct {
	Backend    interfaces.Backend
	Pattern    pattern.Spec
	Ring       *tsring.Ring
	Ticker     *ticker.Ticker
	Trigger    *trigger.Fabric
	Logger     interfaces.Logger
	Observer   interfaces.Observer

	// E2E send/recv are optional; nil for a non-E2E target.
	E2ESend func(offset, length int64, buf []byte) error
	E2ERecv func(offset, length int64, buf []byte) error
	IsE2E   bool
	IsSource bool

	// ThresholdNs triggers a log line when a single op's latency exceeds
	// it; zero disables threshold logging (§6.1 supplemented feature).
	ThresholdNs uint64
}

// releasePair is a predecessor→successor signal used by loose/strict
// ordering: pre is what a successor waits on before its op (a loose
// predecessor signals it before starting its own op, a strict one after
// completing it); post fires after the predecessor's op completes.
type releasePair struct {
	pre  chan struct{}
	post chan struct{}
}

func newReleasePair() releasePair {
	return releasePair{pre: make(chan struct{}, 1), post: make(chan struct{}, 1)}
}

// Agent is one Worker Agent: index w in [0,Q) of its Target's pool.
type Agent struct {
	Index    int
	Ordering Ordering

	hooks Hooks
	buf   []byte

	state    int32 // atomic State
	tasks    chan Task
	errBreak int32 // atomic bool

	counters struct {
		mu sync.Mutex
		c  Counters
	}

	// successor release pair (pointer to the next worker's own self
	// pair) and a flag marking whether this worker has a predecessor,
	// set by the Target Thread at pool construction time for
	// loose/strict ordering. A worker always waits on its OWN self
	// pair; its predecessor holds the pointer and does the signalling.
	hasPredecessor bool
	successor      *releasePair
	self           releasePair
}

// New constructs a Worker Agent with a buffer sized to bufSize bytes.
func New(index int, ordering Ordering, bufSize int, hooks Hooks) *Agent {
	a := &Agent{
		Index:    index,
		Ordering: ordering,
		hooks:    hooks,
		buf:      make([]byte, bufSize),
		tasks:    make(chan Task, 1),
		self:     newReleasePair(),
	}
	a.counters.c.ShortestOpNs = ^uint64(0)
	atomic.StoreInt32(&a.state, int32(StateInit))
	return a
}

// LinkRing wires this worker's own release pair as its successor's
// predecessor, forming the ring loose/strict ordering requires. Called
// by the Target Thread once for every adjacent pair in the pool.
func (a *Agent) LinkRing(successor *Agent) {
	a.successor = &successor.self
	successor.hasPredecessor = true
}

func (a *Agent) State() State {
	return State(atomic.LoadInt32(&a.state))
}

func (a *Agent) setState(s State) {
	atomic.StoreInt32(&a.state, int32(s))
}

// MarkAvailable transitions INIT/PASS_COMPLETE → AVAILABLE after buffer
// alloc and backend open (§4.F "INIT → AVAILABLE").
func (a *Agent) MarkAvailable() {
	a.setState(StateAvailable)
}

// Available reports whether the worker may accept a new task.
func (a *Agent) Available() bool {
	return a.State() == StateAvailable
}

// PassComplete reports whether this worker has reached its terminal
// per-pass state.
func (a *Agent) PassComplete() bool {
	return a.State() == StatePassComplete
}

// ErrorBreak reports whether this worker hit a per-worker fatal error
// and should no longer be handed tasks this pass.
func (a *Agent) ErrorBreak() bool {
	return atomic.LoadInt32(&a.errBreak) != 0
}

// Counters returns a point-in-time copy of this worker's accumulated
// stats.
func (a *Agent) Counters() Counters {
	a.counters.mu.Lock()
	defer a.counters.mu.Unlock()
	return a.counters.c
}

// Assign hands task to the worker through its task channel (the
// task-handoff barrier in teacher parlance is a buffered channel of
// depth 1 here). It returns once the task is queued; it does not wait
// for the worker to start or finish it.
func (a *Agent) Assign(task Task) {
	a.setState(StateIO)
	a.tasks <- task
}

// Run is the worker's main loop; it should be started once per worker in
// its own goroutine by the owning Target Thread, mirroring the teacher's
// per-queue ioLoop goroutine.
func (a *Agent) Run(progress func() trigger.Progress) {
	a.MarkAvailable()
	for task := range a.tasks {
		switch task.Kind {
		case TaskStop:
			a.setState(StatePassComplete)
			return
		case TaskEndOfPass:
			a.setState(StatePassComplete)
			a.MarkAvailable()
			continue
		case TaskEOF:
			a.handleEOF()
			a.MarkAvailable()
			continue
		case TaskIO:
			a.handleIO(task, progress)
			a.MarkAvailable()
		}
	}
}

func (a *Agent) handleEOF() {
	// EOF frames carry no storage op; they only release the successor
	// in loose/strict pools so the ring keeps moving (§4.K).
	if a.Ordering != OrderingUnordered && a.successor != nil {
		nonBlockingSend(a.successor.post)
	}
}

func (a *Agent) handleIO(task Task, progress func() trigger.Progress) {
	start := a.hooks.Ticker.Now()

	if a.hooks.Trigger != nil && progress != nil {
		_, _ = a.hooks.Trigger.CheckBeforeOp(progress())
	}

	if a.hooks.IsE2E && a.hooks.IsSource && task.IsRead {
		// destination-side receive happens before the local op on the
		// destination target (§4.F step 1 "perform E2E receive if
		// destination-side"); source workers read-then-send instead, so
		// no before-op receive here.
	}
	if a.hooks.IsE2E && !a.hooks.IsSource {
		buf := a.buf[:task.Length]
		if a.hooks.E2ERecv != nil {
			if err := a.hooks.E2ERecv(task.Offset, task.Length, buf); err != nil {
				a.recordError()
				return
			}
		}
	}

	if a.Ordering != OrderingUnordered && a.hasPredecessor {
		<-a.self.pre
	}
	if a.Ordering == OrderingLoose && a.successor != nil {
		nonBlockingSend(a.successor.pre)
	}

	a.setState(StateIO)
	n, opErr := a.doOp(task)

	endTick := a.hooks.Ticker.Now()
	elapsed := a.hooks.Ticker.Sub(endTick, start)

	if a.hooks.IsE2E && a.hooks.IsSource && task.IsRead {
		buf := a.buf[:n]
		if a.hooks.E2ESend != nil {
			if err := a.hooks.E2ESend(task.Offset, int64(n), buf); err != nil {
				opErr = err
			}
		}
	}

	a.recordOp(task, n, elapsed, opErr)
	a.observe(task, n, elapsed, opErr)

	if a.hooks.Ring != nil {
		kind := seeklist.KindWrite
		if task.IsRead {
			kind = seeklist.KindRead
		}
		idx := a.hooks.Ring.RecordStart(a.Index, task.Pass, task.OpNum, task.Offset, kind, start)
		a.hooks.Ring.RecordEnd(idx, int64(n), endTick)
	}

	if a.hooks.ThresholdNs > 0 && uint64(elapsed.Nanoseconds()) > a.hooks.ThresholdNs && a.hooks.Logger != nil {
		a.hooks.Logger.Warnf("worker %d: op %d exceeded latency threshold (%dns > %dns)", a.Index, task.OpNum, elapsed.Nanoseconds(), a.hooks.ThresholdNs)
	}

	if opErr != nil {
		a.recordError()
	}

	if a.Ordering == OrderingStrict && a.successor != nil {
		nonBlockingSend(a.successor.pre)
	}
	if a.Ordering == OrderingLoose && a.hasPredecessor {
		<-a.self.post
	}
	if a.successor != nil && a.Ordering != OrderingUnordered {
		nonBlockingSend(a.successor.post)
	}
}

// doOp performs the actual storage access and returns the number of
// bytes transferred.
func (a *Agent) doOp(task Task) (int, error) {
	buf := a.buf
	if int64(len(buf)) < task.Length {
		buf = make([]byte, task.Length)
	}
	buf = buf[:task.Length]

	if task.IsRead {
		n, err := a.hooks.Backend.ReadAt(buf, task.Offset)
		if err == nil {
			verifyRes, vErr := pattern.Verify(buf, n, a.hooks.Pattern, task.Offset, 16)
			if vErr == nil && verifyRes.Mismatches > 0 && a.hooks.Logger != nil {
				a.hooks.Logger.Warnf("worker %d: op %d data verify found %d mismatches", a.Index, task.OpNum, verifyRes.Mismatches)
			}
		}
		return n, err
	}

	// A destination-side E2E write already has the transferred bytes
	// sitting in buf from handleIO's E2ERecv; filling here would discard
	// them and store synthetic pattern data instead.
	isE2EDest := a.hooks.IsE2E && !a.hooks.IsSource
	if !isE2EDest {
		if err := pattern.Fill(buf, len(buf), a.hooks.Pattern, task.Offset, nil); err != nil {
			return 0, err
		}
	}
	return a.hooks.Backend.WriteAt(buf, task.Offset)
}

// recordOp is §4.F step 5 (after_op): stamp counters, extended stats.
// A short read/write (n < requested) is flagged as an error unless it is
// the regular-file EOF convention (n==0, err==nil).
func (a *Agent) recordOp(task Task, n int, elapsed time.Duration, opErr error) {
	short := int64(n) < task.Length
	isLegitimateEOF := n == 0 && opErr == nil

	a.counters.mu.Lock()
	defer a.counters.mu.Unlock()

	a.counters.c.OpsCompleted++
	a.counters.c.BytesXfered += uint64(n)

	ns := uint64(elapsed.Nanoseconds())
	if task.IsRead {
		a.counters.c.ReadTimeNs += ns
	} else {
		a.counters.c.WriteTimeNs += ns
	}
	if ns > a.counters.c.LongestOpNs {
		a.counters.c.LongestOpNs = ns
	}
	if ns < a.counters.c.ShortestOpNs {
		a.counters.c.ShortestOpNs = ns
	}

	if opErr != nil || (short && !isLegitimateEOF) {
		a.counters.c.ErrorCount++
	}
}

// observe forwards a completed op to the configured Observer, if any
// (§6.1's MetricsObserver is the default implementation at root).
func (a *Agent) observe(task Task, n int, elapsed time.Duration, opErr error) {
	if a.hooks.Observer == nil {
		return
	}
	ns := uint64(elapsed.Nanoseconds())
	success := opErr == nil
	if task.IsRead {
		a.hooks.Observer.ObserveRead(uint64(n), ns, success)
	} else {
		a.hooks.Observer.ObserveWrite(uint64(n), ns, success)
	}
	if opErr != nil {
		a.hooks.Observer.ObserveError("io")
	}
}

func (a *Agent) recordError() {
	a.counters.mu.Lock()
	a.counters.c.ErrorCount++
	a.counters.mu.Unlock()
}

// SetErrorBreak raises the per-worker "error_break" flag (§4.F
// end-of-pass policy); the Target Thread checks it before the next
// handoff and stops scheduling this worker for the remainder of the
// pass.
func (a *Agent) SetErrorBreak() {
	atomic.StoreInt32(&a.errBreak, 1)
}

// ErrorCeilingReached reports whether a configured ceiling on cumulative
// errors has been met, signalling the Target Thread to raise
// stop-on-error for the whole pass.
func (a *Agent) ErrorCeilingReached(ceiling uint64) bool {
	if ceiling == 0 {
		return false
	}
	return a.Counters().ErrorCount >= ceiling
}

func nonBlockingSend(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
