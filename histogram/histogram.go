// Copyright 2026, the FastK-go contributors.

// Package histogram implements the k-mer count histogram of spec.md §3/§6:
// a fixed 0x8000-bucket count-of-counts table, its external file format,
// and the folding display Histex.c in original_source/ prints.
package histogram

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/kshedden/fastk/bitio"
	"github.com/pkg/errors"
)

// Size is the number of buckets in a histogram: weights saturate at
// 0x7fff (spec.md §4.4's saturating-sum rule), so bucket 0x7fff also
// absorbs every larger true count.
const Size = 0x8000

// Histogram is a count-of-counts table: Counts[w] is the number of
// distinct k-mers whose (possibly saturated) weight equals w.
type Histogram struct {
	K      int
	Counts [Size]int64
}

// New returns an empty histogram.
func New() *Histogram {
	return &Histogram{}
}

// Add increments the bucket for weight w, clamping w into [0, Size-1];
// callers are expected to have already saturated their weight sums.
func (h *Histogram) Add(w int) {
	if w < 0 {
		w = 0
	} else if w >= Size {
		w = Size - 1
	}
	h.Counts[w]++
}

// Merge adds another histogram's counts into h, for combining per-
// partition histograms into a run total (spec.md §4.4).
func (h *Histogram) Merge(o *Histogram) {
	for i := range h.Counts {
		h.Counts[i] += o.Counts[i]
	}
}

// WriteFile writes h to path in the on-disk layout Histex.c reads: a
// 4-byte little-endian k-mer length followed by Size little-endian
// 8-byte counts.
func (h *Histogram) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating histogram file %s", path)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 64*1024)
	var kbuf [4]byte
	bitio.PutLEU32(kbuf[:], uint32(h.K))
	if _, err := w.Write(kbuf[:]); err != nil {
		return errors.Wrap(err, "writing histogram k-mer length")
	}

	var cbuf [8]byte
	for i := 0; i < Size; i++ {
		bitio.PutLEU64(cbuf[:], uint64(h.Counts[i]))
		if _, err := w.Write(cbuf[:]); err != nil {
			return errors.Wrapf(err, "writing histogram bucket %d", i)
		}
	}
	return errors.Wrap(w.Flush(), "flushing histogram file")
}

// ReadFile reads a histogram previously written by WriteFile (or by the
// teacher-format producer Histex.c expects).
func ReadFile(path string) (*Histogram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening histogram file %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a histogram from r in the same layout as ReadFile.
func Read(r io.Reader) (*Histogram, error) {
	h := New()
	var kbuf [4]byte
	if _, err := io.ReadFull(r, kbuf[:]); err != nil {
		return nil, errors.Wrap(err, "reading histogram k-mer length")
	}
	h.K = int(bitio.ReadLEU32(kbuf[:]))

	var cbuf [8]byte
	for i := 0; i < Size; i++ {
		if _, err := io.ReadFull(r, cbuf[:]); err != nil {
			return nil, errors.Wrapf(err, "reading histogram bucket %d", i)
		}
		h.Counts[i] = int64(bitio.ReadLEU64(cbuf[:]))
	}
	return h, nil
}

// Print renders h the way Histex.c does: a folding table from the top
// bucket down to low, collapsing every count at or above hgh into a single
// ">= hgh" bucket and every count below low (when low > 1) into a final
// "< low" bucket, each annotated with a running cumulative percentage.
func Print(w io.Writer, h *Histogram, root string, low, hgh int) {
	if low < 1 {
		low = 1
	}
	if hgh < 1 || hgh > Size-1 {
		hgh = Size - 1
	}
	if hgh < low {
		hgh = low
	}

	var total int64
	for i := 0; i < Size; i++ {
		total += h.Counts[i]
	}

	fmt.Fprintf(w, "\nHistogram of %d-mers of %s\n", h.K, root)
	fmt.Fprintf(w, "\n  Input: %d %d-mers\n", total, h.K)
	fmt.Fprintf(w, "\n     Freq:        Count   Cum. %%\n")

	// Everything at or above hgh folds into the single ">=" row, which
	// is emitted (like every row) only when its exact bucket is
	// occupied.
	var ssum int64
	for i := Size - 1; i >= low; i-- {
		if h.Counts[i] == 0 {
			continue
		}
		ssum += h.Counts[i]
		pct := 0.0
		if total > 0 {
			pct = (100.0 * float64(ssum)) / float64(total)
		}
		if i == hgh {
			fmt.Fprintf(w, " >= %5d: %12d   %5.1f%%\n", i, ssum, pct)
		} else if i < hgh {
			fmt.Fprintf(w, "    %5d: %12d   %5.1f%%\n", i, h.Counts[i], pct)
		}
	}
	if low > 1 {
		fmt.Fprintf(w, "  < %5d: %12d   100.0%%\n", low, total-ssum)
	}
}
