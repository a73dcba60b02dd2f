package supermer

import (
	"bytes"
	"testing"

	"github.com/kshedden/fastk/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bitWriter is a minimal MSB-first bit packer for building synthetic
// super-mer streams in tests, mirroring bitio.Reader's convention.
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
		w.n, w.acc = 0, 0
	}
	return w.buf.Bytes()
}

// writeSeq writes n 2-bit symbols (0..3) MSB first.
func (w *bitWriter) writeSeq(codes []byte) {
	for _, c := range codes {
		w.writeBits(uint64(c), 2)
	}
}

func TestUnpackSingleSupermer(t *testing.T) {
	// K=4, one super-mer of sln=2 (3 k-mers, 6 symbols: A C G T A C).
	cfg := &config.Config{K: 4, MaxSuper: 8}
	layout := cfg.Layout()

	codes := []byte{0, 1, 2, 3, 0, 1} // A C G T A C
	w := &bitWriter{}
	w.writeBits(2, layout.SlenBits) // sln = 2
	// leading byte is the first 4 symbols: A C G T -> 00 01 10 11
	w.writeBits(0b00_01_10_11, 8)
	w.writeSeq(codes[4:]) // remaining 2 symbols: A C
	w.writeBits(0, layout.SlenBits) // explicit "no continuation" terminator
	data := w.flush()

	hdr := Header{Nmers: 1}
	recs := NewRecords(1, layout)
	var cursors [256]int64
	require.NoError(t, Unpack(bytes.NewReader(data), layout, hdr, recs, &cursors, 0))

	assert.Equal(t, 2, recs.Length(0))
	seq := recs.Seq(0)
	assert.Equal(t, byte(0b00_01_10_11), seq[0])
}

func TestUnpackContinuationSetsJoined(t *testing.T) {
	cfg := &config.Config{K: 4, MaxSuper: 8, DoProfile: true}
	layout := cfg.Layout()

	w := &bitWriter{}
	// First physical piece: sln=3, leading A C G T, 3 more symbols.
	w.writeBits(3, layout.SlenBits)
	w.writeBits(0b00_01_10_11, 8)
	w.writeSeq([]byte{0, 1, 2})
	w.writeBits(0, 17) // run-id 0

	// Continuation marker, then the continued piece: sln=2.
	w.writeBits(uint64(layout.MaxSuper), layout.SlenBits)
	w.writeBits(2, layout.SlenBits)
	w.writeBits(0b01_10_11_00, 8)
	w.writeSeq([]byte{1, 2})
	w.writeBits(1, 17) // run-id 1
	data := w.flush()

	hdr := Header{Nmers: 2}
	recs := NewRecords(2, layout)
	var cursors [256]int64
	cursors[0b01_10_11_00] = 1
	require.NoError(t, Unpack(bytes.NewReader(data), layout, hdr, recs, &cursors, 0))

	id0, joined0 := recs.RunID(0)
	assert.EqualValues(t, 0, id0)
	assert.True(t, joined0, "marker must set joined on the preceding record")

	id1, joined1 := recs.RunID(1)
	assert.EqualValues(t, 1, id1)
	assert.False(t, joined1)
}

func TestUnpackTruncatedIsFatal(t *testing.T) {
	cfg := &config.Config{K: 4, MaxSuper: 8}
	layout := cfg.Layout()
	hdr := Header{Nmers: 1}
	recs := NewRecords(1, layout)
	var cursors [256]int64
	err := Unpack(bytes.NewReader(nil), layout, hdr, recs, &cursors, 0)
	require.Error(t, err)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Kmers: 10, Nmers: 3, NBase: 7}
	h.KHist[5] = 2
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, h))
	got, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestRunExtentGroupsEqualRecords(t *testing.T) {
	cfg := &config.Config{K: 4, MaxSuper: 8}
	layout := cfg.Layout()
	recs := NewRecords(3, layout)
	copy(recs.At(0), recs.At(0)) // no-op, keep records zeroed/equal
	recs.setLength(0, 2)
	recs.setLength(1, 2)
	recs.setLength(2, 5)

	end := recs.RunExtent(0)
	assert.Equal(t, 2, end)
	end2 := recs.RunExtent(2)
	assert.Equal(t, 3, end2)
}
