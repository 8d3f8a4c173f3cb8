//go:build linux
// +build linux

package ioplatform

import (
	"os"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

const defaultAlignment = 512

type linuxPlatform struct {
	pageSize int
}

func newPlatform() Platform {
	return &linuxPlatform{pageSize: os.Getpagesize()}
}

func (p *linuxPlatform) PinCurrentThread(cpu int) error {
	runtime.LockOSThread()
	if cpu < 0 {
		return nil
	}
	var mask unix.CPUSet
	mask.Set(cpu)
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		// Not fatal: affinity is best-effort, mirroring the teacher's
		// queue runner which logs and continues on failure.
		return nil
	}
	return nil
}

func (p *linuxPlatform) PageSize() int {
	return p.pageSize
}

func (p *linuxPlatform) AlignmentFor(f *os.File) int {
	return defaultAlignment
}

func (p *linuxPlatform) OpenDirect(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag|unix.O_DIRECT, perm)
	if err != nil {
		if errno, ok := err.(*os.PathError); ok && errno.Err == syscall.EINVAL {
			// Filesystem does not support O_DIRECT (e.g. tmpfs); fall
			// back to a buffered open rather than failing the run.
			return os.OpenFile(path, flag, perm)
		}
		return nil, err
	}
	return f, nil
}

func (p *linuxPlatform) Preallocate(f *os.File, size int64) error {
	err := unix.Fallocate(int(f.Fd()), 0, 0, size)
	if err != nil {
		// ENOSYS/EOPNOTSUPP filesystems: fall back to a plain truncate so
		// the file still reaches its target size.
		return f.Truncate(size)
	}
	return nil
}
