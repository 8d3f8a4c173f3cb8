// Package ioplatform isolates the OS-specific pieces of xddgo's I/O path
// — CPU affinity pinning, O_DIRECT alignment, and file preallocation —
// behind a small platform-neutral interface, the way the teacher splits
// io_uring availability between a linux build and a portable stub.
package ioplatform

import "os"

// Platform exposes the OS primitives a Target Thread's worker pool needs
// that are not portably expressible through the standard library alone.
type Platform interface {
	// PinCurrentThread locks the calling goroutine to its OS thread and
	// attempts to set its CPU affinity to cpu. Returns an error only for
	// unexpected failures; an unsupported platform silently no-ops so
	// affinity is "best effort", matching the teacher's queue runner
	// ("Continue without affinity - not fatal").
	PinCurrentThread(cpu int) error

	// PageSize returns the platform's memory page size, used to validate
	// O_DIRECT alignment requirements.
	PageSize() int

	// AlignmentFor returns the required buffer/offset alignment in bytes
	// for O_DIRECT I/O against the given file, or 0 if the platform (or
	// the file's underlying filesystem) does not require alignment.
	AlignmentFor(f *os.File) int

	// OpenDirect opens path for O_DIRECT I/O if the platform supports it;
	// falls back to a regular buffered open otherwise.
	OpenDirect(path string, flag int, perm os.FileMode) (*os.File, error)

	// Preallocate reserves size bytes of backing storage for f without
	// writing data, when the platform supports it; a no-op error-free
	// return is an acceptable fallback.
	Preallocate(f *os.File, size int64) error
}

// Current is the Platform implementation selected for the running binary
// (linux-specific build or the portable stub), resolved at init.
var Current Platform = newPlatform()
