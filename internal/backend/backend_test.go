package backend

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWriteRoundTrip(t *testing.T) {
	m := NewMemory(1 << 20)
	buf := []byte("hello world")
	n, err := m.WriteAt(buf, 4096)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)

	out := make([]byte, len(buf))
	n, err = m.ReadAt(out, 4096)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, buf, out)
}

func TestMemoryWriteBeyondEndErrors(t *testing.T) {
	m := NewMemory(1024)
	_, err := m.WriteAt([]byte("x"), 2048)
	assert.Error(t, err)
}

func TestMemoryReadPastEndReturnsZero(t *testing.T) {
	m := NewMemory(1024)
	out := make([]byte, 16)
	n, err := m.ReadAt(out, 2048)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryDiscardZeroesRegion(t *testing.T) {
	m := NewMemory(ShardSize * 2)
	_, err := m.WriteAt([]byte{1, 2, 3, 4}, 100)
	require.NoError(t, err)
	require.NoError(t, m.Discard(0, ShardSize))

	out := make([]byte, 4)
	_, err = m.ReadAt(out, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
}

func TestMemoryCrossesShardBoundary(t *testing.T) {
	m := NewMemory(ShardSize * 3)
	buf := make([]byte, 1024)
	for i := range buf {
		buf[i] = byte(i)
	}
	off := int64(ShardSize - 512)
	_, err := m.WriteAt(buf, off)
	require.NoError(t, err)

	out := make([]byte, len(buf))
	_, err = m.ReadAt(out, off)
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestFileOpenWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.bin")
	fb, err := OpenFile(FileParams{Path: path, Size: 65536, Preallocate: true})
	require.NoError(t, err)
	defer fb.Close()

	assert.Equal(t, int64(65536), fb.Size())

	buf := []byte("data-pattern")
	n, err := fb.WriteAt(buf, 1024)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)

	out := make([]byte, len(buf))
	n, err = fb.ReadAt(out, 1024)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, buf, out)

	assert.NoError(t, fb.Flush())
	assert.NoError(t, fb.Sync())
}

func TestFileOpenExistingInfersSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing.bin")
	fb, err := OpenFile(FileParams{Path: path, Size: 8192, Preallocate: true})
	require.NoError(t, err)
	require.NoError(t, fb.Close())

	reopened, err := OpenFile(FileParams{Path: path})
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, int64(8192), reopened.Size())
}
