package bitio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bitWriter is a tiny test-only MSB-first bit packer mirroring the reader's
// convention, used to build synthetic streams for round-trip tests.
type bitWriter struct {
	buf bytes.Buffer
	acc uint64
	n   uint
}

func (w *bitWriter) writeBits(v uint64, nbits uint) {
	w.acc |= (v & ((1 << nbits) - 1)) << (64 - w.n - nbits)
	w.n += nbits
	for w.n >= 8 {
		w.buf.WriteByte(byte(w.acc >> 56))
		w.acc <<= 8
		w.n -= 8
	}
}

func (w *bitWriter) flush() []byte {
	if w.n > 0 {
		w.buf.WriteByte(byte(w.acc >> 56))
		w.n = 0
		w.acc = 0
	}
	return w.buf.Bytes()
}

func TestReadUintRoundTrip(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0x1f, 5)
	w.writeBits(0x3ff, 10)
	w.writeBits(1, 1)
	w.writeBits(0xabcde, 20)
	data := w.flush()

	r := NewReader(bytes.NewReader(data), nil)
	v, err := r.ReadUint(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1f), v)

	v, err = r.ReadUint(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x3ff), v)

	v, err = r.ReadUint(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	v, err = r.ReadUint(20)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xabcde), v)
}

func TestReadUintTruncated(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(3, 2)
	data := w.flush()

	r := NewReader(bytes.NewReader(data), nil)
	_, err := r.ReadUint(2)
	require.NoError(t, err)

	_, err = r.ReadUint(8)
	require.Error(t, err)
}

func TestTryReadUintShortTail(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(5, 4)
	data := w.flush()

	r := NewReader(bytes.NewReader(data), nil)
	v, ok := r.TryReadUint(4)
	require.True(t, ok)
	assert.Equal(t, uint64(5), v)

	// Only the 4 zero padding bits of the final byte remain; a 16-bit
	// trailing-marker probe must report "nothing there" rather than a
	// truncation error.
	_, ok = r.TryReadUint(16)
	require.False(t, ok)

	// And at a fully-drained stream likewise.
	_, ok = r.TryReadUint(16)
	require.False(t, ok)
}

func TestUnstuffCode(t *testing.T) {
	w := &bitWriter{}
	// 6 symbols: 0,1,2,3,0,1 (2 bits each) -> bytes [0b00_01_10_11, 0b00_01_xx_xx]
	syms := []uint64{0, 1, 2, 3, 0, 1}
	for _, s := range syms {
		w.writeBits(s, 2)
	}
	data := w.flush()

	r := NewReader(bytes.NewReader(data), nil)
	dst := make([]byte, 2)
	require.NoError(t, r.UnstuffCode(dst, 6))
	assert.Equal(t, byte(0b00_01_10_11), dst[0])
	assert.Equal(t, byte(0b00_01_00_00), dst[1])
}

func TestReadRunIDWidening(t *testing.T) {
	w := &bitWriter{}
	// A value representable at the initial 17-bit width.
	w.writeBits(42, 17)
	// A value at the 17-bit limit (2^16): the stream carries a 17-bit
	// escape (any value with the top bit set) and then the value
	// re-encoded at 18 bits.
	w.writeBits(1<<16, 17)
	w.writeBits(1<<16, 18)
	// Once widened, subsequent ids stay at 18 bits.
	w.writeBits(7, 18)
	data := w.flush()

	r := NewReader(bytes.NewReader(data), nil)
	v, err := r.ReadRunID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	v, err = r.ReadRunID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<16), v)

	v, err = r.ReadRunID()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
}

func TestLEHelpers(t *testing.T) {
	buf := make([]byte, 8)
	PutLEU16(buf, 0x1234)
	assert.Equal(t, uint16(0x1234), ReadLEU16(buf))

	PutLEU48(buf, 0x1122334455)
	assert.Equal(t, uint64(0x1122334455), ReadLEU48(buf))

	PutLEU64(buf, 0x0102030405060708)
	assert.Equal(t, uint64(0x0102030405060708), ReadLEU64(buf))
}
