package target

import (
	"testing"
	"time"

	"github.com/ehrlich-b/xddgo/internal/backend"
	"github.com/ehrlich-b/xddgo/internal/barrier"
	"github.com/ehrlich-b/xddgo/internal/pattern"
	"github.com/ehrlich-b/xddgo/internal/seeklist"
	"github.com/ehrlich-b/xddgo/internal/throttle"
	"github.com/ehrlich-b/xddgo/internal/ticker"
	"github.com/ehrlich-b/xddgo/internal/tsring"
	"github.com/ehrlich-b/xddgo/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseParams(mem *backend.Memory, ordering worker.Ordering) Params {
	return Params{
		Name:       "t0",
		QueueDepth: 4,
		Ordering:   ordering,
		SeekParams: seeklist.Params{
			Pattern:    seeklist.PatternSequential,
			BlockSize:  4096,
			ReqBlocks:  1,
			TotalBytes: 4096 * 16,
			AllWrites:  true,
		},
		Pattern:    pattern.Spec{Kind: pattern.KindSequenced},
		Backend:    mem,
		BufferSize: 4096,
		Throttle:   throttle.Spec{Mode: throttle.ModeNone},
		Registry:   barrier.NewRegistry(),
		Ticker:     ticker.New(),
		Ring:       tsring.New(256, tsring.PolicyWrap),
	}
}

func TestRunPassUnorderedCompletesAllOps(t *testing.T) {
	mem := backend.NewMemory(1 << 20)
	th := New(baseParams(mem, worker.OrderingUnordered))
	th.StartWorkers()

	result := th.RunPass(0)
	assert.Equal(t, uint64(16), result.OpsCompleted)
	assert.Equal(t, uint64(4096*16), result.BytesXfered)
	assert.False(t, result.AbortedEarly)
}

func TestRunPassStrictCompletesAllOps(t *testing.T) {
	mem := backend.NewMemory(1 << 20)
	th := New(baseParams(mem, worker.OrderingStrict))
	th.StartWorkers()

	result := th.RunPass(0)
	assert.Equal(t, uint64(16), result.OpsCompleted)
}

func TestRunPassLooseCompletesAllOps(t *testing.T) {
	mem := backend.NewMemory(1 << 20)
	th := New(baseParams(mem, worker.OrderingLoose))
	th.StartWorkers()

	result := th.RunPass(0)
	assert.Equal(t, uint64(16), result.OpsCompleted)
}

func TestAbortStopsPassEarly(t *testing.T) {
	mem := backend.NewMemory(1 << 20)
	p := baseParams(mem, worker.OrderingUnordered)
	p.SeekParams.TotalBytes = 4096 * 10000
	th := New(p)
	th.StartWorkers()

	go func() {
		time.Sleep(5 * time.Millisecond)
		th.Abort()
	}()

	result := th.RunPass(0)
	assert.True(t, result.AbortedEarly)
	assert.Less(t, result.OpsCompleted, uint64(10000))
}

func TestNewClampsQueueDepthToOpCount(t *testing.T) {
	mem := backend.NewMemory(1 << 20)
	p := baseParams(mem, worker.OrderingUnordered)
	p.QueueDepth = 64 // far more than the 16 ops baseParams schedules
	th := New(p)
	assert.Len(t, th.Workers(), 16)
}

func TestErrorCeilingRaisesStopOnError(t *testing.T) {
	mem := backend.NewMemory(4096) // tiny target: most writes beyond end error
	p := baseParams(mem, worker.OrderingUnordered)
	p.SeekParams.TotalBytes = 4096 * 50
	p.ErrorCeiling = 1
	th := New(p)
	th.StartWorkers()

	result := th.RunPass(0)
	require.True(t, result.AbortedEarly || result.StopOnError || result.ErrorCount > 0)
}
