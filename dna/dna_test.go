package dna

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	seq := "ACGTACGTAC"
	packed := PackString(seq)
	assert.Equal(t, seq, UnpackString(packed, len(seq)))
}

func TestComplementByteIsInvolution(t *testing.T) {
	for i := 0; i < 256; i++ {
		got := Comp[Comp[byte(i)]]
		assert.Equal(t, byte(i), got, "Comp should be its own inverse at %d", i)
	}
}

func TestComplementByteKnownValues(t *testing.T) {
	// Byte holding A,C,G,T packed MSB-first: 00 01 10 11.
	b := PackString("ACGT")[0]
	rc := Comp[b]
	// Reverse complement of ACGT is ACGT (palindromic).
	assert.Equal(t, b, rc)

	b2 := PackString("AAAA")[0]
	// reverse complement of AAAA is TTTT.
	assert.Equal(t, PackString("TTTT")[0], Comp[b2])
}

func TestReverseComplement(t *testing.T) {
	seq := "ACGGT"
	packed := PackString(seq)
	dst := make([]byte, (len(seq)+3)/4)
	ReverseComplement(packed, len(seq), dst)
	assert.Equal(t, "ACCGT", UnpackString(dst, len(seq)))
}

func TestExtractKmer(t *testing.T) {
	seq := "ACGTACGT"
	packed := PackString(seq)
	dst := make([]byte, 2)
	ExtractKmer(packed, 2, 4, dst)
	assert.Equal(t, "GTAC", UnpackString(dst, 4))
}

func TestCanonicalPicksLexicographicMin(t *testing.T) {
	// AAAA's reverse complement is TTTT; AAAA < TTTT so forward wins.
	packed := PackString("AAAA")
	canon, fwd := Canonical(packed, 0, 4)
	require.True(t, fwd)
	assert.Equal(t, "AAAA", UnpackString(canon, 4))

	// TTTT's reverse complement is AAAA; AAAA < TTTT so rc wins.
	packed2 := PackString("TTTT")
	canon2, fwd2 := Canonical(packed2, 0, 4)
	require.False(t, fwd2)
	assert.Equal(t, "AAAA", UnpackString(canon2, 4))
}

func TestCanonicalPalindrome(t *testing.T) {
	// ACGT is its own reverse complement.
	packed := PackString("ACGT")
	canon, fwd := Canonical(packed, 0, 4)
	require.True(t, fwd)
	assert.Equal(t, "ACGT", UnpackString(canon, 4))
}

func TestCanonicalSlidingWindow(t *testing.T) {
	seq := "ACGTTGCA"
	packed := PackString(seq)
	k := 4
	for off := 0; off+k <= len(seq); off++ {
		fwd := seq[off : off+k]
		fwdPacked := PackString(fwd)
		rcDst := make([]byte, len(fwdPacked))
		ReverseComplement(fwdPacked, k, rcDst)
		rc := UnpackString(rcDst, k)

		canon, isFwd := Canonical(packed, off, k)
		canonStr := UnpackString(canon, k)
		if fwd <= rc {
			assert.Equal(t, fwd, canonStr)
			assert.True(t, isFwd)
		} else {
			assert.Equal(t, rc, canonStr)
			assert.False(t, isFwd)
		}
	}
}

func TestEncodeDecodeCaseInsensitive(t *testing.T) {
	assert.Equal(t, int8(A), Encode('a'))
	assert.Equal(t, int8(A), Encode('A'))
	assert.Equal(t, int8(-1), Encode('N'))
	assert.Equal(t, byte('A'), Decode(A))
	assert.Equal(t, byte('T'), Decode(T))
}
