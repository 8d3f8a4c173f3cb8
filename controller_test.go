package xddgo

import (
	"sync"
	"testing"
	"time"

	"github.com/ehrlich-b/xddgo/internal/backend"
	"github.com/ehrlich-b/xddgo/internal/pattern"
	"github.com/ehrlich-b/xddgo/internal/seeklist"
	"github.com/ehrlich-b/xddgo/internal/target"
	"github.com/ehrlich-b/xddgo/internal/throttle"
	"github.com/ehrlich-b/xddgo/internal/worker"
	"github.com/stretchr/testify/require"
)

func targetParams(mem *backend.Memory) target.Params {
	return target.Params{
		QueueDepth: 2,
		Ordering:   worker.OrderingUnordered,
		SeekParams: seeklist.Params{
			Pattern:    seeklist.PatternSequential,
			BlockSize:  4096,
			ReqBlocks:  1,
			TotalBytes: 4096 * 8,
			AllWrites:  true,
		},
		Pattern:    pattern.Spec{Kind: pattern.KindSequenced},
		Backend:    mem,
		BufferSize: 4096,
		Throttle:   throttle.Spec{Mode: throttle.ModeNone},
	}
}

type recordingSink struct {
	mu      sync.Mutex
	results []TargetPassResult
}

func (s *recordingSink) OnPassComplete(r TargetPassResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func TestControllerRunsTwoTargetsInLockstep(t *testing.T) {
	rc := NewRunContext(RunOptions{})

	memA := backend.NewMemory(1 << 20)
	memB := backend.NewMemory(1 << 20)

	entries := []TargetEntry{
		{Name: "t0", Params: targetParams(memA), Passes: 2},
		{Name: "t1", Params: targetParams(memB), Passes: 2},
	}

	sink := &recordingSink{}
	c := NewController(rc, entries)
	c.Sink = sink

	results := c.Run()

	require.Len(t, results, 4) // 2 targets * 2 passes
	require.Len(t, sink.results, 4)

	for _, r := range results {
		require.Equal(t, uint64(8), r.Result.OpsCompleted)
		require.False(t, r.Result.AbortedEarly)
	}
}

func TestControllerHonorsDeadline(t *testing.T) {
	rc := NewRunContext(RunOptions{Runtime: 1 * time.Nanosecond})
	time.Sleep(time.Millisecond)

	mem := backend.NewMemory(1 << 20)
	entries := []TargetEntry{{Name: "t0", Params: targetParams(mem), Passes: 5}}

	c := NewController(rc, entries)
	results := c.Run()

	require.Empty(t, results)
}

func TestControllerInvokesHeartbeat(t *testing.T) {
	rc := NewRunContext(RunOptions{})
	mem := backend.NewMemory(1 << 20)
	entries := []TargetEntry{{Name: "t0", Params: targetParams(mem), Passes: 3}}

	var mu sync.Mutex
	var calls int
	c := NewController(rc, entries)
	c.Heartbeat = func(Snapshot) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	c.Run()

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, calls, 3)
}

func TestControllerCancelStopsRemainingPasses(t *testing.T) {
	rc := NewRunContext(RunOptions{})
	mem := backend.NewMemory(1 << 20)
	entries := []TargetEntry{{Name: "t0", Params: targetParams(mem), Passes: 100}}

	c := NewController(rc, entries)
	c.Heartbeat = func(s Snapshot) {
		if s.PassNumber >= 1 {
			c.cancelAll()
		}
	}

	results := c.Run()
	require.Less(t, len(results), 100)
}
