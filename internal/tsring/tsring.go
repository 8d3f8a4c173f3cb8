// Package tsring implements the fixed-size per-target timestamp trace: one
// entry per operation start/end, written by the target's Worker Agents
// and read by the Target Thread at pass end for reporting.
package tsring

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ehrlich-b/xddgo/internal/seeklist"
	"github.com/ehrlich-b/xddgo/internal/ticker"
)

// Policy controls what happens once the ring fills.
type Policy int

const (
	// PolicyOneShot stops recording once capacity is reached.
	PolicyOneShot Policy = iota
	// PolicyWrap overwrites the oldest entry.
	PolicyWrap
)

// Entry is one recorded operation.
type Entry struct {
	Pass       int
	Op         int64
	Worker     int
	Kind       seeklist.Kind
	ByteOffset int64
	XferSize   int64
	StartTick  ticker.Tick
	EndTick    ticker.Tick
}

// Ring is a fixed-capacity, append-only timestamp trace. Every method
// takes the ring's mutex, so several writers (a Target Thread's workers
// share one Ring) and readers calling Snapshot may use it concurrently.
type Ring struct {
	mu       sync.Mutex
	entries  []Entry
	cap      int
	next     int
	count    int
	policy   Policy
	disabled bool
}

// New creates a Ring with the given capacity and fill policy.
func New(capacity int, policy Policy) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		entries: make([]Entry, capacity),
		cap:     capacity,
		policy:  policy,
	}
}

// RecordStart stamps the beginning of an operation. The returned index
// must be passed to RecordEnd to complete the same entry; -1 means the
// ring is in ONESHOT mode and full, and this op's timing is not recorded.
func (r *Ring) RecordStart(worker, pass int, op, offset int64, kind seeklist.Kind, start ticker.Tick) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return -1
	}
	if r.count >= r.cap {
		if r.policy == PolicyOneShot {
			r.disabled = true
			return -1
		}
		// PolicyWrap: overwrite oldest.
	}

	idx := r.next
	r.entries[idx] = Entry{
		Pass:       pass,
		Op:         op,
		Worker:     worker,
		Kind:       kind,
		ByteOffset: offset,
		StartTick:  start,
	}
	r.next = (r.next + 1) % r.cap
	if r.count < r.cap {
		r.count++
	}
	return idx
}

// RecordEnd completes the entry at idx with its end tick and transfer
// size. A no-op if idx is -1 (ONESHOT-disabled start).
func (r *Ring) RecordEnd(idx int, xferSize int64, end ticker.Tick) {
	if idx < 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[idx].XferSize = xferSize
	r.entries[idx].EndTick = end
}

// Snapshot returns a copy of all currently-recorded entries, oldest first.
func (r *Ring) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, r.count)
	if r.count < r.cap {
		copy(out, r.entries[:r.count])
		return out
	}
	// Full ring under WRAP policy: oldest is at r.next.
	copy(out, r.entries[r.next:])
	copy(out[r.cap-r.next:], r.entries[:r.next])
	return out
}

// SortByOp sorts entries in place by (Pass, Op) using a stable typed-key
// sort, replacing the legacy custom quicksort-over-pointers approach
// (§9 Design Notes).
func SortByOp(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Pass != entries[j].Pass {
			return entries[i].Pass < entries[j].Pass
		}
		return entries[i].Op < entries[j].Op
	})
}

// dumpMagic is the little-endian magic marking a timestamp dump file (§6).
const dumpMagic uint32 = 0xDEADBEEF

// DumpHeader precedes the entry records in a binary dump.
type DumpHeader struct {
	TargetID      uint32
	RequestSize   uint32
	SectorSize    uint32
	TimerResNs    uint64
	EntryCount    uint32
}

// WriteDump serializes a little-endian timestamp dump: magic, header, then
// N fixed records of (op, pass, worker, kind, offset, xfer, start, end).
func WriteDump(w io.Writer, hdr DumpHeader, entries []Entry) error {
	bw := bufio.NewWriter(w)
	hdr.EntryCount = uint32(len(entries))

	if err := binary.Write(bw, binary.LittleEndian, dumpMagic); err != nil {
		return fmt.Errorf("tsring: write magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("tsring: write header: %w", err)
	}
	for i, e := range entries {
		rec := struct {
			Op, Pass, Worker, Kind int64
			ByteLocation, XferSize int64
			DiskStart, DiskEnd     int64
		}{
			Op: e.Op, Pass: int64(e.Pass), Worker: int64(e.Worker), Kind: int64(e.Kind),
			ByteLocation: e.ByteOffset, XferSize: e.XferSize,
			DiskStart: int64(e.StartTick), DiskEnd: int64(e.EndTick),
		}
		if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
			return fmt.Errorf("tsring: write record %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadDump deserializes a dump previously written by WriteDump.
func ReadDump(r io.Reader) (DumpHeader, []Entry, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return DumpHeader{}, nil, fmt.Errorf("tsring: read magic: %w", err)
	}
	if magic != dumpMagic {
		return DumpHeader{}, nil, fmt.Errorf("tsring: bad magic 0x%x", magic)
	}

	var hdr DumpHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return DumpHeader{}, nil, fmt.Errorf("tsring: read header: %w", err)
	}

	entries := make([]Entry, hdr.EntryCount)
	for i := range entries {
		var rec struct {
			Op, Pass, Worker, Kind int64
			ByteLocation, XferSize int64
			DiskStart, DiskEnd     int64
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return hdr, nil, fmt.Errorf("tsring: read record %d: %w", i, err)
		}
		entries[i] = Entry{
			Op:         rec.Op,
			Pass:       int(rec.Pass),
			Worker:     int(rec.Worker),
			Kind:       seeklist.Kind(rec.Kind),
			ByteOffset: rec.ByteLocation,
			XferSize:   rec.XferSize,
			StartTick:  ticker.Tick(rec.DiskStart),
			EndTick:    ticker.Tick(rec.DiskEnd),
		}
	}
	return hdr, entries, nil
}
