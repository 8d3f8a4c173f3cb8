// Package throttle paces Target Thread op handoffs to a configured
// ops/sec, MB/sec, or fixed-delay rate (§4.I). Ops/sec and MB/sec pacing
// are backed by a per-target catrate.Limiter sliding-window rate limiter;
// delay mode is an unconditional sleep between handoffs.
package throttle

import (
	"time"

	"github.com/joeycumines/go-utilpkg/catrate"
)

// Mode selects a pacing strategy.
type Mode int

const (
	ModeNone Mode = iota
	ModeOpsPerSec
	ModeMBPerSec
	ModeDelay
)

// chunkBytes is the unit MB/sec throttling books bandwidth in; each op
// consumes ceil(length/chunkBytes) catrate events against the per-target
// limiter.
const chunkBytes = 4096

// Spec describes one target's throttle configuration.
type Spec struct {
	Mode       Mode
	OpsPerSec  float64
	MBPerSec   float64
	Delay      time.Duration
	TargetName string // catrate category key
}

// Governor paces op handoffs for one target.
type Governor struct {
	spec    Spec
	limiter *catrate.Limiter
}

// New constructs a Governor for spec. A nil/zero-mode spec produces a
// Governor whose WaitForNext is a no-op, so unthrottled targets pay no
// sleep cost.
func New(spec Spec) *Governor {
	g := &Governor{spec: spec}
	switch spec.Mode {
	case ModeOpsPerSec:
		if spec.OpsPerSec > 0 {
			// One event per 1/OpsPerSec window, so op i is released no
			// earlier than i/OpsPerSec seconds after the first.
			interval := time.Duration(float64(time.Second) / spec.OpsPerSec)
			if interval < time.Nanosecond {
				interval = time.Nanosecond
			}
			g.limiter = catrate.NewLimiter(map[time.Duration]int{
				interval: 1,
			})
		}
	case ModeMBPerSec:
		if spec.MBPerSec > 0 {
			eventsPerSec := (spec.MBPerSec * 1024 * 1024) / chunkBytes
			g.limiter = catrate.NewLimiter(map[time.Duration]int{
				time.Second: max1(int(eventsPerSec)),
			})
		}
	}
	return g
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// WaitForNext blocks until the governor allows the next op of the given
// length (in bytes) to proceed. It is a no-op under ModeNone. Under
// ModeDelay it is an unconditional sleep of spec.Delay. Under
// ModeOpsPerSec/ModeMBPerSec it consults (and blocks on) the underlying
// rate limiter; negative slack is never compensated, matching §4.I
// ("XDD does not catch up").
func (g *Governor) WaitForNext(opLengthBytes int64) {
	switch g.spec.Mode {
	case ModeNone:
		return
	case ModeDelay:
		time.Sleep(g.spec.Delay)
	case ModeOpsPerSec:
		g.waitLimiter(1)
	case ModeMBPerSec:
		units := int((opLengthBytes + chunkBytes - 1) / chunkBytes)
		g.waitLimiter(max1(units))
	}
}

// waitLimiter calls Allow n times against the category, sleeping until
// the limiter's returned next-allowed time on each rejection.
func (g *Governor) waitLimiter(n int) {
	if g.limiter == nil {
		return
	}
	for i := 0; i < n; i++ {
		for {
			next, ok := g.limiter.Allow(g.spec.TargetName)
			if ok {
				break
			}
			d := time.Until(next)
			if d > 0 {
				time.Sleep(d)
			}
		}
	}
}
