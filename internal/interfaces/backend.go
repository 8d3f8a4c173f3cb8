// Package interfaces provides internal interface definitions for xddgo.
// These are separate from the public interfaces to avoid circular imports
// between the root package and internal packages.
package interfaces

// Backend defines the byte-addressed read/write port every storage target
// (regular file, character device, block device) must implement. This is
// the entire contract an SCSI-Generic or other alternate I/O backend would
// need to satisfy; xddgo does not implement SG itself.
type Backend interface {
	ReadAt(p []byte, off int64) (n int, err error)
	WriteAt(p []byte, off int64) (n int, err error)
	Size() int64
	Close() error
	Flush() error
}

// DiscardBackend is an optional interface for TRIM/DISCARD-capable targets.
type DiscardBackend interface {
	Backend
	Discard(offset, length int64) error
}

// SyncBackend is an optional interface for targets that can fsync a range.
type SyncBackend interface {
	Backend
	Sync() error
	SyncRange(offset, length int64) error
}

// PreallocateBackend is an optional interface for targets that support
// preallocating space ahead of writes (fallocate-style).
type PreallocateBackend interface {
	Backend
	Preallocate(bytes int64) error
}

// Logger interface for optional leveled logging.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Observer interface for metrics collection.
// Implementations must be thread-safe: methods are called from Worker Agent
// I/O loops, potentially many at once.
type Observer interface {
	ObserveRead(bytes uint64, latencyNs uint64, success bool)
	ObserveWrite(bytes uint64, latencyNs uint64, success bool)
	ObserveNoop(latencyNs uint64)
	ObserveError(kind string)
	ObserveQueueDepth(depth uint32)
}
