package backend

import (
	"errors"
	"io"
	"os"

	"github.com/ehrlich-b/xddgo/internal/interfaces"
	"github.com/ehrlich-b/xddgo/internal/ioplatform"
)

// FileParams configures a File backend.
type FileParams struct {
	Path       string
	Size       int64 // target size; existing files larger than Size are left as-is
	Direct     bool  // open with O_DIRECT when the platform supports it
	Preallocate bool // reserve Size bytes at open time
	ReadOnly   bool
}

// File is a Backend over a regular file or block device, routed through
// internal/ioplatform for O_DIRECT and preallocation so the OS-specific
// pieces stay out of the Worker Agent's I/O path.
type File struct {
	f        *os.File
	size     int64
	platform ioplatform.Platform
}

// OpenFile opens or creates the backing file described by params.
func OpenFile(params FileParams) (*File, error) {
	flag := os.O_RDWR
	if params.ReadOnly {
		flag = os.O_RDONLY
	} else {
		flag |= os.O_CREATE
	}

	plat := ioplatform.Current
	var f *os.File
	var err error
	if params.Direct {
		f, err = plat.OpenDirect(params.Path, flag, 0o644)
	} else {
		f, err = os.OpenFile(params.Path, flag, 0o644)
	}
	if err != nil {
		return nil, err
	}

	size := params.Size
	if size <= 0 {
		info, statErr := f.Stat()
		if statErr != nil {
			f.Close()
			return nil, statErr
		}
		size = info.Size()
	} else if !params.ReadOnly && params.Preallocate {
		if err := plat.Preallocate(f, size); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &File{f: f, size: size, platform: plat}, nil
}

func (fb *File) ReadAt(p []byte, off int64) (int, error) {
	n, err := fb.f.ReadAt(p, off)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (fb *File) WriteAt(p []byte, off int64) (int, error) {
	return fb.f.WriteAt(p, off)
}

func (fb *File) Size() int64 { return fb.size }

func (fb *File) Close() error { return fb.f.Close() }

func (fb *File) Flush() error { return fb.f.Sync() }

func (fb *File) Sync() error { return fb.f.Sync() }

func (fb *File) SyncRange(offset, length int64) error { return fb.f.Sync() }

func (fb *File) Preallocate(bytes int64) error { return fb.platform.Preallocate(fb.f, bytes) }

// Alignment reports the required O_DIRECT buffer/offset alignment for
// this backend's file, or 0 if none is required.
func (fb *File) Alignment() int { return fb.platform.AlignmentFor(fb.f) }

var (
	_ interfaces.Backend            = (*File)(nil)
	_ interfaces.SyncBackend        = (*File)(nil)
	_ interfaces.PreallocateBackend = (*File)(nil)
)
