//go:build !linux
// +build !linux

package ioplatform

import "os"

type stubPlatform struct {
	pageSize int
}

func newPlatform() Platform {
	return &stubPlatform{pageSize: os.Getpagesize()}
}

func (p *stubPlatform) PinCurrentThread(cpu int) error {
	// CPU affinity is a Linux-only concept here; non-Linux platforms run
	// unpinned.
	return nil
}

func (p *stubPlatform) PageSize() int {
	return p.pageSize
}

func (p *stubPlatform) AlignmentFor(f *os.File) int {
	return 0
}

func (p *stubPlatform) OpenDirect(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

func (p *stubPlatform) Preallocate(f *os.File, size int64) error {
	return f.Truncate(size)
}
