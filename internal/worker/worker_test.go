package worker

import (
	"testing"
	"time"

	"github.com/ehrlich-b/xddgo/internal/backend"
	"github.com/ehrlich-b/xddgo/internal/pattern"
	"github.com/ehrlich-b/xddgo/internal/ticker"
	"github.com/ehrlich-b/xddgo/internal/tsring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAgent(t *testing.T, ordering Ordering) (*Agent, *backend.Memory) {
	t.Helper()
	mem := backend.NewMemory(1 << 20)
	hooks := Hooks{
		Backend: mem,
		Pattern: pattern.Spec{Kind: pattern.KindSequenced},
		Ring:    tsring.New(64, tsring.PolicyWrap),
		Ticker:  ticker.New(),
	}
	return New(0, ordering, 4096, hooks), mem
}

func TestAgentStartsInitThenAvailable(t *testing.T) {
	a, _ := newTestAgent(t, OrderingUnordered)
	assert.Equal(t, StateInit, a.State())
	go a.Run(nil)
	require.Eventually(t, a.Available, time.Second, time.Millisecond)
}

func TestAgentExecutesWriteThenRead(t *testing.T) {
	a, mem := newTestAgent(t, OrderingUnordered)
	go a.Run(nil)
	require.Eventually(t, a.Available, time.Second, time.Millisecond)

	a.Assign(Task{Kind: TaskIO, Offset: 0, Length: 64, IsRead: false, Pass: 0, OpNum: 0})
	require.Eventually(t, a.Available, time.Second, time.Millisecond)

	a.Assign(Task{Kind: TaskIO, Offset: 0, Length: 64, IsRead: true, Pass: 0, OpNum: 1})
	require.Eventually(t, a.Available, time.Second, time.Millisecond)

	counters := a.Counters()
	assert.Equal(t, uint64(2), counters.OpsCompleted)
	assert.Equal(t, uint64(128), counters.BytesXfered)
	assert.Zero(t, counters.ErrorCount)

	out := make([]byte, 64)
	_, err := mem.ReadAt(out, 0)
	require.NoError(t, err)
}

type spyObserver struct {
	reads, writes, errors int
}

func (o *spyObserver) ObserveRead(bytes uint64, latencyNs uint64, success bool) { o.reads++ }
func (o *spyObserver) ObserveWrite(bytes uint64, latencyNs uint64, success bool) { o.writes++ }
func (o *spyObserver) ObserveNoop(latencyNs uint64)                              {}
func (o *spyObserver) ObserveError(kind string)                                  { o.errors++ }
func (o *spyObserver) ObserveQueueDepth(depth uint32)                            {}

func TestAgentForwardsOpsToObserver(t *testing.T) {
	mem := backend.NewMemory(1 << 20)
	obs := &spyObserver{}
	a := New(0, OrderingUnordered, 4096, Hooks{
		Backend:  mem,
		Pattern:  pattern.Spec{Kind: pattern.KindSequenced},
		Ring:     tsring.New(64, tsring.PolicyWrap),
		Ticker:   ticker.New(),
		Observer: obs,
	})
	go a.Run(nil)
	require.Eventually(t, a.Available, time.Second, time.Millisecond)

	a.Assign(Task{Kind: TaskIO, Offset: 0, Length: 64, IsRead: false})
	require.Eventually(t, a.Available, time.Second, time.Millisecond)
	a.Assign(Task{Kind: TaskIO, Offset: 0, Length: 64, IsRead: true})
	require.Eventually(t, a.Available, time.Second, time.Millisecond)

	assert.Equal(t, 1, obs.writes)
	assert.Equal(t, 1, obs.reads)
	assert.Zero(t, obs.errors)
}

func TestAgentStopTaskTerminatesRun(t *testing.T) {
	a, _ := newTestAgent(t, OrderingUnordered)
	done := make(chan struct{})
	go func() {
		a.Run(nil)
		close(done)
	}()
	require.Eventually(t, a.Available, time.Second, time.Millisecond)

	a.Assign(Task{Kind: TaskStop})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit on TaskStop")
	}
	assert.Equal(t, StatePassComplete, a.State())
}

func TestAgentEndOfPassReturnsToAvailable(t *testing.T) {
	a, _ := newTestAgent(t, OrderingUnordered)
	go a.Run(nil)
	require.Eventually(t, a.Available, time.Second, time.Millisecond)

	a.Assign(Task{Kind: TaskEndOfPass})
	require.Eventually(t, a.Available, time.Second, time.Millisecond)
}

func TestStrictOrderingReleasesSuccessorOnlyAfterOp(t *testing.T) {
	a0, mem := newTestAgent(t, OrderingStrict)
	a1 := New(1, OrderingStrict, 4096, Hooks{
		Backend: mem,
		Pattern: pattern.Spec{Kind: pattern.KindSequenced},
		Ring:    tsring.New(64, tsring.PolicyWrap),
		Ticker:  ticker.New(),
	})
	a0.LinkRing(a1)

	go a0.Run(nil)
	go a1.Run(nil)
	require.Eventually(t, a0.Available, time.Second, time.Millisecond)
	require.Eventually(t, a1.Available, time.Second, time.Millisecond)

	// a1 waits on its predecessor (a0) before issuing its op. Assign only
	// queues the task, so a1done closes once a1 has completed its op.
	a1done := make(chan struct{})
	go func() {
		a1.Assign(Task{Kind: TaskIO, Offset: 4096, Length: 64, Pass: 0, OpNum: 1})
		for a1.Counters().OpsCompleted == 0 {
			time.Sleep(time.Millisecond)
		}
		close(a1done)
	}()

	select {
	case <-a1done:
		t.Fatal("successor proceeded before predecessor released it")
	case <-time.After(50 * time.Millisecond):
	}

	a0.Assign(Task{Kind: TaskIO, Offset: 0, Length: 64, Pass: 0, OpNum: 0})

	select {
	case <-a1done:
	case <-time.After(time.Second):
		t.Fatal("successor never proceeded after predecessor released it")
	}
}

func TestErrorBreakFlag(t *testing.T) {
	a, _ := newTestAgent(t, OrderingUnordered)
	assert.False(t, a.ErrorBreak())
	a.SetErrorBreak()
	assert.True(t, a.ErrorBreak())
}

func TestErrorCeilingReached(t *testing.T) {
	a, _ := newTestAgent(t, OrderingUnordered)
	assert.False(t, a.ErrorCeilingReached(0))
	a.recordError()
	a.recordError()
	assert.True(t, a.ErrorCeilingReached(2))
	assert.False(t, a.ErrorCeilingReached(3))
}
