// Package constants holds the defaults shared across xddgo's components,
// the same role the teacher's internal/constants plays for device setup
// timing and sizing.
package constants

import "time"

// Default target/pass sizing.
const (
	// DefaultQueueDepth is the default number of Worker Agents per Target
	// Thread. target.New does not substitute it for a zero
	// Params.QueueDepth; a zero QueueDepth builds no workers.
	DefaultQueueDepth = 4

	// DefaultBlockSize is the default logical block size in bytes (B).
	DefaultBlockSize = 4096

	// DefaultRequestSizeBlocks is the default request size in blocks (R).
	DefaultRequestSizeBlocks = 1

	// DefaultIOBufferSize is the default per-worker I/O buffer size in
	// bytes, sized to a single max-request-size op by default.
	DefaultIOBufferSize = 1 << 20
)

// Barrier and selection polling.
const (
	// WorkerSelectPollInterval is how often the unordered selection loop
	// and the end-of-pass drain loop re-check worker availability.
	WorkerSelectPollInterval = time.Microsecond

	// WorkerSelectTimeout bounds how long loose/strict selection waits on
	// a specific worker before treating the target as stalled.
	WorkerSelectTimeout = 5 * time.Second
)

// E2E transport defaults.
const (
	// DefaultRecvTimeout is the UDP receive deadline after which
	// e2e.Conn.Receive returns e2e.ErrTimeout rather than waiting on
	// (§9 Open Question 4).
	DefaultRecvTimeout = 5 * time.Second
)
