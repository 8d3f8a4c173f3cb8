// Package trigger implements cross-target start/stop signalling keyed on
// elapsed time, op number, percent complete, or bytes transferred (§4.J).
package trigger

import (
	"time"

	"github.com/ehrlich-b/xddgo/internal/barrier"
)

// Metric selects what a trigger's threshold is measured against.
type Metric int

const (
	MetricElapsedTime Metric = iota
	MetricOpNumber
	MetricPercent
	MetricBytesTransferred
)

// Condition is one start- or stop-trigger configuration monitoring a
// source target and, once crossed, posting to a named barrier exactly
// once.
type Condition struct {
	Metric      Metric
	Threshold   float64 // seconds for MetricElapsedTime, op# for MetricOpNumber, 0..100 for MetricPercent, bytes for MetricBytesTransferred
	BarrierName string  // barrier this condition posts to when crossed
}

// Progress is a point-in-time snapshot of the monitored target's advance,
// passed to CheckBeforeOp on every op boundary.
type Progress struct {
	Elapsed    time.Duration
	OpNumber   int64
	PercentOps float64
	Bytes      int64
}

func (c Condition) crossed(p Progress) bool {
	switch c.Metric {
	case MetricElapsedTime:
		return p.Elapsed.Seconds() >= c.Threshold
	case MetricOpNumber:
		return float64(p.OpNumber) >= c.Threshold
	case MetricPercent:
		return p.PercentOps >= c.Threshold
	case MetricBytesTransferred:
		return float64(p.Bytes) >= c.Threshold
	default:
		return false
	}
}

// Fabric tracks zero or more start/stop Conditions for one target and
// posts to the corresponding barrier exactly once each, via the shared
// Registry.
type Fabric struct {
	registry *barrier.Registry
	start    *Condition
	stop     *Condition
	fired    struct {
		start bool
		stop  bool
	}
}

// New constructs a Fabric. Either start or stop (or both) may be nil if
// this target declares no trigger of that kind.
func New(registry *barrier.Registry, start, stop *Condition) *Fabric {
	return &Fabric{registry: registry, start: start, stop: stop}
}

// CheckBeforeOp is the before-op hook every Worker Agent calls (§4.F step
// 1, §4.J "before-op hook checks for triggers on every op"). It always
// returns an explicit (fired, err) pair — the legacy ambiguity of
// xdd_start_trigger_before_io_operation returning without a value on one
// path is resolved by this contract (SPEC_FULL.md §9 Open Question 3).
func (f *Fabric) CheckBeforeOp(p Progress) (fired bool, err error) {
	if f == nil {
		return false, nil
	}
	any := false
	if f.start != nil && !f.fired.start && f.start.crossed(p) {
		b := f.registry.Get(f.start.BarrierName)
		if b == nil {
			b = f.registry.Create(f.start.BarrierName, 1)
		}
		if err := b.Enter(barrier.Occupant{Name: "trigger-start", Kind: "start-trigger"}); err != nil {
			return any, err
		}
		f.fired.start = true
		any = true
	}
	if f.stop != nil && !f.fired.stop && f.stop.crossed(p) {
		b := f.registry.Get(f.stop.BarrierName)
		if b == nil {
			b = f.registry.Create(f.stop.BarrierName, 1)
		}
		if err := b.Enter(barrier.Occupant{Name: "trigger-stop", Kind: "stop-trigger"}); err != nil {
			return any, err
		}
		f.fired.stop = true
		any = true
	}
	return any, nil
}

// WaitForStart parks the receiving target in its start-trigger barrier at
// pass entry, when wait-for-start is configured (§4.J).
func WaitForStart(registry *barrier.Registry, barrierName string) error {
	b := registry.Create(barrierName, 1)
	return b.Enter(barrier.Occupant{Name: "wait-for-start", Kind: "start-wait"})
}
