package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTripAllEqual(t *testing.T) {
	counts := []uint16{5, 5, 5, 5, 5}
	enc := Encode(counts)
	got, err := Decode(enc, len(counts))
	require.NoError(t, err)
	assert.Equal(t, counts, got)
}

func TestEncodeDecodeRoundTripSmallDeltas(t *testing.T) {
	counts := []uint16{10, 15, 8, 40, 39, 39, 39, 2}
	enc := Encode(counts)
	got, err := Decode(enc, len(counts))
	require.NoError(t, err)
	assert.Equal(t, counts, got)
}

func TestEncodeDecodeRoundTripLargeDeltas(t *testing.T) {
	counts := []uint16{1, 5000, 2, 30000, 1, 100}
	enc := Encode(counts)
	got, err := Decode(enc, len(counts))
	require.NoError(t, err)
	assert.Equal(t, counts, got)
}

func TestEncodeDecodeRoundTripLongRun(t *testing.T) {
	counts := make([]uint16, 200)
	for i := range counts {
		counts[i] = 7
	}
	enc := Encode(counts)
	got, err := Decode(enc, len(counts))
	require.NoError(t, err)
	assert.Equal(t, counts, got)
}

func TestEncodeSingleCount(t *testing.T) {
	counts := []uint16{42}
	enc := Encode(counts)
	assert.Equal(t, []byte{42, 0}, enc)
	got, err := Decode(enc, 1)
	require.NoError(t, err)
	assert.Equal(t, counts, got)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, err := Decode([]byte{1}, 1)
	assert.Error(t, err)
}
