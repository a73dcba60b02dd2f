package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kshedden/fastk/config"
	"github.com/kshedden/fastk/profile"
	"github.com/kshedden/fastk/supermer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bitWriter is a minimal MSB-first bit packer for building synthetic
// super-mer streams, mirroring supermer_test.go's helper.
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

func (w *bitWriter) writeSeq(codes []byte) {
	for _, c := range codes {
		w.writeBits(uint64(c), 2)
	}
}

func writeThreadFile(t *testing.T, path string, hdr supermer.Header, body []byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, supermer.WriteHeader(f, hdr))
	_, err = f.Write(body)
	require.NoError(t, err)
}

// TestRunDuplicateSupermersCollapseWeights exercises S1-S4 end to end
// without profiling: two identical super-mer records (A C G T A C,
// K=4) should collapse into 3 distinct canonical k-mers, each carrying
// weight 2.
func TestRunDuplicateSupermersCollapseWeights(t *testing.T) {
	cfg := &config.Config{
		K:        4,
		MaxSuper: 8,
		NThreads: 1,
		NParts:   1,
		NPanels:  1,
		SortPath: t.TempDir(),
	}
	layout := cfg.Layout()

	codes := []byte{0, 1, 2, 3, 0, 1} // A C G T A C
	w := &bitWriter{}
	for i := 0; i < 2; i++ {
		w.writeBits(2, layout.SlenBits)    // sln = 2
		w.writeBits(0b00_01_10_11, 8)       // leading byte: A C G T
		w.writeSeq(codes[4:])                // remaining symbols: A C
	}
	w.writeBits(0, layout.SlenBits) // no trailing continuation
	body := w.flush()

	hdr := supermer.Header{Kmers: 6, Nmers: 2}
	hdr.KHist[0b00_01_10_11] = 2
	writeThreadFile(t, filepath.Join(cfg.SortPath, "root.0.T0"), hdr, body)

	outDir := t.TempDir()
	hist, err := Run(cfg, "root", outDir, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 3, hist.Counts[2])
	var total int64
	for _, c := range hist.Counts {
		total += c
	}
	assert.EqualValues(t, 3, total)

	_, err = os.Stat(filepath.Join(outDir, "root.K4"))
	assert.NoError(t, err)
}

// TestRunHeaderHistogramMismatchIsFatal feeds a header whose KHist totals
// disagree with its declared Nmers; the run must abort before unpacking.
func TestRunHeaderHistogramMismatchIsFatal(t *testing.T) {
	cfg := &config.Config{
		K:        4,
		MaxSuper: 8,
		NThreads: 1,
		NParts:   1,
		NPanels:  1,
		SortPath: t.TempDir(),
	}
	layout := cfg.Layout()

	w := &bitWriter{}
	w.writeBits(2, layout.SlenBits)
	w.writeBits(0b00_01_10_11, 8)
	w.writeSeq([]byte{0, 1})
	w.writeBits(0, layout.SlenBits)
	body := w.flush()

	hdr := supermer.Header{Kmers: 3, Nmers: 1}
	hdr.KHist[0b00_01_10_11] = 2 // claims one more record than Nmers
	writeThreadFile(t, filepath.Join(cfg.SortPath, "root.0.T0"), hdr, body)

	_, err := Run(cfg, "root", t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "headers declare")
}

// TestRunProfilePanelsRoundTrip exercises S1-S10 with profiling enabled:
// two distinct super-mers each occur once, so every k-mer window in
// each gets weight 1; the written profile panel should hold each
// record's run-id followed by its encoded count sequence.
func TestRunProfilePanelsRoundTrip(t *testing.T) {
	cfg := &config.Config{
		K:         4,
		MaxSuper:  8,
		NThreads:  1,
		NParts:    1,
		NPanels:   1,
		DoProfile: true,
		SortPath:  t.TempDir(),
	}
	layout := cfg.Layout()

	w := &bitWriter{}

	// Record A: A C G T A C, sln=2, run-id 0.
	w.writeBits(2, layout.SlenBits)
	w.writeBits(0b00_01_10_11, 8)
	w.writeSeq([]byte{0, 1})
	w.writeBits(0, 17)

	// Record B: G G G G, sln=0, run-id 1 (m=0, no extra sequence bits).
	w.writeBits(0, layout.SlenBits)
	w.writeBits(0b10_10_10_10, 8)
	w.writeBits(1, 17)

	w.writeBits(0, layout.SlenBits) // no trailing continuation
	body := w.flush()

	hdr := supermer.Header{Kmers: 4, Nmers: 2}
	hdr.KHist[0b00_01_10_11] = 1
	hdr.KHist[0b10_10_10_10] = 1
	writeThreadFile(t, filepath.Join(cfg.SortPath, "root.0.T0"), hdr, body)

	outDir := t.TempDir()
	_, err := Run(cfg, "root", outDir, nil)
	require.NoError(t, err)

	panelPath := filepath.Join(cfg.SortPath, "root.0.P0.0")
	panel, err := os.ReadFile(panelPath)
	require.NoError(t, err)

	wantA := profile.Encode([]uint16{1, 1, 1})
	wantB := profile.Encode([]uint16{1})

	require.True(t, len(panel) >= layout.RunBytes+len(wantA)+layout.RunBytes+len(wantB))

	off := 0
	runA := panel[off : off+layout.RunBytes]
	off += layout.RunBytes
	assert.Equal(t, byte(0), runA[0])
	for _, b := range runA[1:] {
		assert.Equal(t, byte(0), b)
	}
	assert.Equal(t, wantA, panel[off:off+len(wantA)])
	off += len(wantA)

	runB := panel[off : off+layout.RunBytes]
	off += layout.RunBytes
	assert.Equal(t, byte(1), runB[0])
	for _, b := range runB[1:] {
		assert.Equal(t, byte(0), b)
	}
	assert.Equal(t, wantB, panel[off:off+len(wantB)])
	off += len(wantB)

	assert.Equal(t, len(panel), off)
}
