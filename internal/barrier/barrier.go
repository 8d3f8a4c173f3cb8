// Package barrier implements the named, reusable N-party barrier fabric
// that mediates every cross-thread rendezvous in xddgo: pass-boundary
// lockstep, task handoff, pass-complete, and results collection.
package barrier

import (
	"fmt"
	"sync"
	"time"
)

// Occupant is a diagnostic record of one caller currently inside a
// Barrier's Enter call.
type Occupant struct {
	Name        string // caller-supplied identity, e.g. "target0/worker2"
	Kind        string // caller-supplied role tag, e.g. "io", "pass-complete"
	EnteredTick time.Time
}

// Barrier is a named reusable N-party rendezvous: Enter blocks until N
// callers have entered, then all N are released together and the barrier
// resets for reuse.
type Barrier struct {
	name string
	n    int

	mu        sync.Mutex
	occupants []Occupant
	gen       int // generation counter; released waiters check this to distinguish their cohort
	cond      *sync.Cond
	canceled  bool
}

func newBarrier(name string, n int) *Barrier {
	b := &Barrier{name: name, n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Enter blocks the calling goroutine until N occupants (across all callers
// of Enter on this Barrier) have arrived, then releases all of them
// together. Returns ErrCanceled if the barrier is canceled while waiting,
// without deadlocking any other waiter.
func (b *Barrier) Enter(occupant Occupant) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.canceled {
		return ErrCanceled
	}

	myGen := b.gen
	occupant.EnteredTick = time.Now()
	b.occupants = append(b.occupants, occupant)

	if len(b.occupants) >= b.n {
		// Last occupant in: release everyone, reset for reuse.
		b.occupants = nil
		b.gen++
		b.cond.Broadcast()
		return nil
	}

	for b.gen == myGen && !b.canceled {
		b.cond.Wait()
	}
	if b.canceled && b.gen == myGen {
		return ErrCanceled
	}
	return nil
}

// Cancel releases every current waiter with ErrCanceled without requiring
// N occupants to arrive. Used by a terminating path (Run Controller abort,
// or a peer Worker dying) so no thread is left stranded in a barrier.
func (b *Barrier) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.canceled = true
	b.occupants = nil
	b.cond.Broadcast()
}

// Occupancy returns the target N and current waiting-occupant count.
func (b *Barrier) Occupancy() (n, current int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n, len(b.occupants)
}

// Snapshot returns a diagnostic copy of current occupants (name, entry
// time) for "show_barrier"-style introspection.
func (b *Barrier) Snapshot() []Occupant {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Occupant, len(b.occupants))
	copy(out, b.occupants)
	return out
}

// ErrCanceled is returned by Enter when the barrier (or registry) is
// canceled while a caller is waiting.
var ErrCanceled = fmt.Errorf("barrier: canceled")

// Registry tracks every live barrier for diagnostic dumps and bulk
// teardown. The registry's internal map is guarded by a single mutex,
// mirroring §5's "Barrier Registry's linked list is guarded by a
// registry-wide mutex" (a map replaces the legacy linked list).
type Registry struct {
	mu       sync.Mutex
	barriers map[string]*Barrier
}

// NewRegistry creates an empty barrier registry.
func NewRegistry() *Registry {
	return &Registry{barriers: make(map[string]*Barrier)}
}

// Create registers (or returns the existing) named N-party barrier.
// Reusable: once N parties have entered and been released, the same
// Barrier may be entered again.
func (r *Registry) Create(name string, n int) *Barrier {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.barriers[name]; ok {
		return b
	}
	b := newBarrier(name, n)
	r.barriers[name] = b
	return b
}

// Get returns a previously created barrier, or nil.
func (r *Registry) Get(name string) *Barrier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.barriers[name]
}

// DestroyAll cancels every live barrier (releasing any waiters with
// ErrCanceled) and empties the registry.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	barriers := make([]*Barrier, 0, len(r.barriers))
	for _, b := range r.barriers {
		barriers = append(barriers, b)
	}
	r.barriers = make(map[string]*Barrier)
	r.mu.Unlock()

	for _, b := range barriers {
		b.Cancel()
	}
}

// BarrierInfo is a diagnostic snapshot of one registered barrier, the
// Go-native replacement for the legacy "show_barrier" occupant dump.
type BarrierInfo struct {
	Name      string
	N         int
	Current   int
	Occupants []Occupant
}

// Snapshot returns diagnostic info for every live barrier.
func (r *Registry) Snapshot() []BarrierInfo {
	r.mu.Lock()
	names := make([]*Barrier, 0, len(r.barriers))
	for _, b := range r.barriers {
		names = append(names, b)
	}
	r.mu.Unlock()

	out := make([]BarrierInfo, 0, len(names))
	for _, b := range names {
		n, cur := b.Occupancy()
		out = append(out, BarrierInfo{Name: b.name, N: n, Current: cur, Occupants: b.Snapshot()})
	}
	return out
}
