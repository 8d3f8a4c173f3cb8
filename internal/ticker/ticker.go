// Package ticker provides the monotonic high-resolution clock used by every
// timing decision in xddgo: op timestamps, throttle pacing, and the run
// deadline. Tick values are opaque; only subtraction between two ticks from
// the same Ticker is meaningful.
package ticker

import "time"

// Tick is an opaque monotonic timestamp. Do not assume any particular unit
// relationship to wall-clock time; use Ticker.Period to convert a tick
// delta to a duration.
type Tick int64

// Ticker is a monotonic clock source. The nominal unit is picoseconds, but
// callers must divide by Period() rather than assuming 1 tick = 1
// picosecond, since the underlying platform clock resolution varies.
type Ticker struct {
	// picosPerTick is TRILLION picoseconds per second, divided by the
	// platform's ticks-per-second. Go's runtime clock already reports
	// nanosecond resolution, so this is a fixed scale factor, not a
	// runtime-probed value.
	picosPerTick int64
	// base is the Ticker's origin; its monotonic reading is what Now
	// measures against.
	base time.Time
}

const trillion = 1_000_000_000_000

// New returns a Ticker backed by the platform's monotonic clock
// (time.Now()'s monotonic reading), scaled to picosecond ticks.
func New() *Ticker {
	return &Ticker{picosPerTick: trillion / int64(time.Second), base: time.Now()}
}

// Now returns the current tick. Guaranteed monotonic within the process.
func (t *Ticker) Now() Tick {
	return Tick(time.Since(t.base).Nanoseconds()) * Tick(t.picosPerTick/1000)
}

// Period returns picoseconds per tick.
func (t *Ticker) Period() int64 {
	return t.picosPerTick
}

// Sub returns the duration elapsed between two ticks from this Ticker.
func (t *Ticker) Sub(end, start Tick) time.Duration {
	delta := int64(end-start) / (t.picosPerTick / 1000)
	return time.Duration(delta)
}

// Elapsed returns the wall-clock Duration represented by a tick delta,
// regardless of which Ticker produced it (all Tickers share the same
// picosecond scale derived from time.Now, so this is a pure unit
// conversion).
func Elapsed(deltaTicks Tick, picosPerTick int64) time.Duration {
	return time.Duration(int64(deltaTicks) / (picosPerTick / 1000))
}

// Deadline computes the Tick at which the given duration from now elapses.
func (t *Ticker) Deadline(d time.Duration) Tick {
	return t.Now() + Tick(d.Nanoseconds())*Tick(t.picosPerTick/1000)
}
