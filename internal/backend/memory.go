// Package backend provides the storage backends xddgo targets read and
// write against: an in-memory backend for tests and quick plans, and a
// file/device backend for real I/O.
package backend

import (
	"fmt"
	"sync"

	"github.com/ehrlich-b/xddgo/internal/interfaces"
)

// ShardSize is the size of each memory shard. 64KB keeps per-op lock
// contention low for 4K-and-up random I/O while bounding shard-table
// overhead for large target sizes.
const ShardSize = 64 * 1024

// Memory is a RAM-backed Backend used for data-pattern verification tests
// and plans that target a synthetic device instead of real storage. It
// uses sharded RWMutex locking so concurrent Worker Agents touching
// disjoint regions don't serialize on a single lock.
type Memory struct {
	data   []byte
	size   int64
	shards []sync.RWMutex
}

// NewMemory creates a zero-filled in-memory backend of the given size.
func NewMemory(size int64) *Memory {
	numShards := (size + ShardSize - 1) / ShardSize
	if numShards < 1 {
		numShards = 1
	}
	return &Memory{
		data:   make([]byte, size),
		size:   size,
		shards: make([]sync.RWMutex, numShards),
	}
}

func (m *Memory) shardRange(off, length int64) (start, end int) {
	start = int(off / ShardSize)
	end = int((off + length - 1) / ShardSize)
	if end >= len(m.shards) {
		end = len(m.shards) - 1
	}
	if end < start {
		end = start
	}
	return start, end
}

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off >= m.size {
		return 0, nil
	}
	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}

	start, end := m.shardRange(off, int64(len(p)))
	for i := start; i <= end; i++ {
		m.shards[i].RLock()
	}
	n := copy(p, m.data[off:off+int64(len(p))])
	for i := start; i <= end; i++ {
		m.shards[i].RUnlock()
	}
	return n, nil
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if off >= m.size {
		return 0, fmt.Errorf("backend: write beyond end of target (off=%d size=%d)", off, m.size)
	}
	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}

	start, end := m.shardRange(off, int64(len(p)))
	for i := start; i <= end; i++ {
		m.shards[i].Lock()
	}
	n := copy(m.data[off:off+int64(len(p))], p)
	for i := start; i <= end; i++ {
		m.shards[i].Unlock()
	}
	return n, nil
}

func (m *Memory) Size() int64 { return m.size }

func (m *Memory) Close() error {
	m.data = nil
	return nil
}

func (m *Memory) Flush() error { return nil }

// Discard zero-fills [offset, offset+length) within the target.
func (m *Memory) Discard(offset, length int64) error {
	if offset >= m.size {
		return nil
	}
	end := offset + length
	if end > m.size {
		end = m.size
	}

	start, stop := m.shardRange(offset, end-offset)
	for i := start; i <= stop; i++ {
		m.shards[i].Lock()
	}
	for i := offset; i < end; i++ {
		m.data[i] = 0
	}
	for i := start; i <= stop; i++ {
		m.shards[i].Unlock()
	}
	return nil
}

func (m *Memory) Sync() error                             { return nil }
func (m *Memory) SyncRange(offset, length int64) error    { return nil }
func (m *Memory) Preallocate(bytes int64) error           { return nil }

var (
	_ interfaces.Backend           = (*Memory)(nil)
	_ interfaces.DiscardBackend    = (*Memory)(nil)
	_ interfaces.SyncBackend       = (*Memory)(nil)
	_ interfaces.PreallocateBackend = (*Memory)(nil)
)
