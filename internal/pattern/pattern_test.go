package pattern

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaseInsensitiveExactMatch(t *testing.T) {
	k, err := Parse("Sequenced")
	require.NoError(t, err)
	assert.Equal(t, KindSequenced, k)

	_, err = Parse("sequence") // not an exact match — must error, not prefix-match
	assert.Error(t, err)
}

func TestFixedFill(t *testing.T) {
	buf := make([]byte, 16)
	require.NoError(t, Fill(buf, 16, Spec{Kind: KindFixed, FixedByte: 0xAB}, 0, nil))
	for _, b := range buf {
		assert.Equal(t, byte(0xAB), b)
	}
}

func TestASCIIReplicate(t *testing.T) {
	buf := make([]byte, 10)
	require.NoError(t, Fill(buf, 10, Spec{Kind: KindASCII, Text: "ab", Replicate: true}, 0, nil))
	assert.Equal(t, "ababababab", string(buf))
}

// S1: sequenced pattern at offset 0 contains 0x00..00, 0x00..08, ...
func TestSequencedFill_S1(t *testing.T) {
	buf := make([]byte, 32)
	require.NoError(t, Fill(buf, 32, Spec{Kind: KindSequenced}, 0, nil))

	for i := 0; i < 4; i++ {
		got := binary.BigEndian.Uint64(buf[i*8 : i*8+8])
		assert.Equal(t, uint64(i*8), got)
	}
}

func TestSequencedWithPrefixAndInvert(t *testing.T) {
	buf := make([]byte, 8)
	spec := Spec{Kind: KindSequenced, SequencePrefix: 0xCAFE, SequenceInvert: true}
	require.NoError(t, Fill(buf, 8, spec, 4096, nil))

	got := binary.BigEndian.Uint64(buf)
	want := ^(uint64(4096) | uint64(0xCAFE)<<32)
	assert.Equal(t, want, got)
}

// Invariant 6: sequenced round trip with verify=contents yields zero mismatches.
func TestSequencedRoundTrip(t *testing.T) {
	buf := make([]byte, 4096)
	spec := Spec{Kind: KindSequenced}
	require.NoError(t, Fill(buf, 4096, spec, 8192, nil))

	res, err := Verify(buf, 4096, spec, 8192, 16)
	require.NoError(t, err)
	assert.Zero(t, res.Mismatches)
}

func TestSequencedVerifyDetectsCorruption(t *testing.T) {
	buf := make([]byte, 16)
	spec := Spec{Kind: KindSequenced}
	require.NoError(t, Fill(buf, 16, spec, 0, nil))
	buf[0] ^= 0xFF

	res, err := Verify(buf, 16, spec, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Mismatches)
	require.Len(t, res.Reported, 1)
}

func TestVerifyCapsReportedMismatches(t *testing.T) {
	buf := make([]byte, 64)
	spec := Spec{Kind: KindSequenced}
	require.NoError(t, Fill(buf, 64, spec, 0, nil))
	for i := range buf {
		buf[i] ^= 0xFF
	}

	res, err := Verify(buf, 64, spec, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Mismatches) // 64/8 words, all mismatched
	assert.True(t, res.Capped)
	assert.Len(t, res.Reported, 2)
}

func TestRandomDeterministicWithSeed(t *testing.T) {
	a := make([]byte, 32)
	b := make([]byte, 32)
	require.NoError(t, Fill(a, 32, Spec{Kind: KindRandom, Seed: 99}, 0, rand.New(rand.NewSource(99))))
	require.NoError(t, Fill(b, 32, Spec{Kind: KindRandom, Seed: 99}, 0, rand.New(rand.NewSource(99))))
	assert.Equal(t, a, b)
}

func TestComplianceTemplateFill(t *testing.T) {
	buf := make([]byte, 16)
	require.NoError(t, Fill(buf, 16, Spec{Kind: KindCRPAT}, 0, nil))
	res, err := Verify(buf, 16, Spec{Kind: KindCRPAT}, 0, 4)
	require.NoError(t, err)
	assert.Zero(t, res.Mismatches)
}
