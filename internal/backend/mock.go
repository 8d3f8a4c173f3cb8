package backend

import (
	"sync"

	"github.com/ehrlich-b/xddgo/internal/interfaces"
)

// Mock is a call-counting, error-injectable Backend for exercising target
// and worker error paths without standing up a real file or memory
// backend, the xddgo-domain equivalent of the teacher's MockBackend.
type Mock struct {
	mu   sync.Mutex
	data []byte
	size int64

	closed  bool
	flushed bool
	synced  bool

	readCalls  int
	writeCalls int
	flushCalls int
	syncCalls  int

	// ReadErr/WriteErr, when set, are returned by every ReadAt/WriteAt
	// call instead of performing the access — used to force a target
	// into its error-ceiling/stop-on-error path in tests.
	ReadErr  error
	WriteErr error
}

// NewMock creates a Mock backend of the given size with no injected
// errors.
func NewMock(size int64) *Mock {
	return &Mock{data: make([]byte, size), size: size}
}

func (m *Mock) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readCalls++

	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	if off >= m.size {
		return 0, nil
	}
	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}
	return copy(p, m.data[off:off+int64(len(p))]), nil
}

func (m *Mock) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls++

	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	if off >= m.size {
		return 0, nil
	}
	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}
	return copy(m.data[off:off+int64(len(p))], p), nil
}

func (m *Mock) Size() int64 { return m.size }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}

func (m *Mock) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushCalls++
	m.flushed = true
	return nil
}

func (m *Mock) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncCalls++
	m.synced = true
	return nil
}

func (m *Mock) SyncRange(offset, length int64) error { return m.Sync() }

func (m *Mock) Discard(offset, length int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= m.size {
		return nil
	}
	end := offset + length
	if end > m.size {
		end = m.size
	}
	for i := offset; i < end; i++ {
		m.data[i] = 0
	}
	return nil
}

// CallCounts reports how many times each method has been invoked, for
// assertions like "the worker never wrote after hitting ReadErr".
func (m *Mock) CallCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		"read":  m.readCalls,
		"write": m.writeCalls,
		"flush": m.flushCalls,
		"sync":  m.syncCalls,
	}
}

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var (
	_ interfaces.Backend        = (*Mock)(nil)
	_ interfaces.DiscardBackend = (*Mock)(nil)
	_ interfaces.SyncBackend    = (*Mock)(nil)
)
