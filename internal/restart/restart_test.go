package restart

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateThenParseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.txt")
	m, err := Open(path)
	require.NoError(t, err)

	rec := Record{
		LastCommittedOp:           3,
		LastCommittedByteLocation: 12288,
		LastCommittedLength:       4096,
		SourceHost:                "src.example",
		DestinationHost:           "dst.example",
		SourcePath:                "/data/src.bin",
		DestinationPath:           "/data/dst.bin",
		Flags:                     []Flag{FlagIsSource, FlagResumeCopy},
	}
	require.NoError(t, m.Update(rec))
	require.NoError(t, m.Close())

	state, err := Parse(path)
	require.NoError(t, err)
	assert.True(t, state.Found)
	assert.False(t, state.Completed)
	assert.Equal(t, rec.LastCommittedOp, state.Last.LastCommittedOp)
	assert.Equal(t, rec.LastCommittedByteLocation, state.Last.LastCommittedByteLocation)
	assert.Equal(t, rec.SourceHost, state.Last.SourceHost)
	assert.ElementsMatch(t, rec.Flags, state.Last.Flags)
}

func TestSubsequentUpdatesKeepOnlyLastAsCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.txt")
	m, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, m.Update(Record{LastCommittedOp: 1}))
	require.NoError(t, m.Update(Record{LastCommittedOp: 2}))
	require.NoError(t, m.Close())

	state, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.Last.LastCommittedOp)
}

func TestMarkCompleteWritesCompletionRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.txt")
	m, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, m.Update(Record{LastCommittedOp: 5}))
	require.NoError(t, m.MarkComplete(1 << 20))
	require.NoError(t, m.Close())

	state, err := Parse(path)
	require.NoError(t, err)
	assert.True(t, state.Completed)
	assert.Equal(t, int64(1<<20), state.TotalBytes)
}

func TestParseMissingFileReturnsEmptyState(t *testing.T) {
	state, err := Parse(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.False(t, state.Found)
	assert.False(t, state.Completed)
}
