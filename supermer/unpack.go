package supermer

import (
	"io"

	"github.com/kshedden/fastk/bitio"
	"github.com/kshedden/fastk/config"
	"github.com/pkg/errors"
)

// ComputeCursors derives, for every input thread, the starting record
// index into a shared Records array for each of the 256 leading-byte
// buckets, from the threads' per-file KHist histograms (spec.md §4.1
// "Concurrency": "the layout guarantees disjointness by pre-computing
// per-(bucket, thread) cursors from the union of per-thread histograms").
// It also returns each bucket's total record count and the grand total.
func ComputeCursors(headers []Header) (cursors [][256]int64, bucketSizes [256]int64, total int64) {
	T := len(headers)
	cursors = make([][256]int64, T)
	o := int64(0)
	for b := 0; b < 256; b++ {
		start := o
		for t := 0; t < T; t++ {
			cursors[t][b] = o
			o += headers[t].KHist[b]
		}
		bucketSizes[b] = o - start
	}
	return cursors, bucketSizes, o
}

// Unpack decodes one thread's bit-packed super-mer stream (spec.md §4.1)
// into dest, writing each record at the position given by cursors[f] for
// its leading byte f and advancing that cursor, so that concurrent callers
// operating on disjoint cursor sets never write the same slot. threadBase
// is added to every decoded profile ordinal (only consulted when
// dest.Layout.DoProfile is set).
func Unpack(r io.Reader, layout config.Layout, hdr Header, dest Records, cursors *[256]int64, threadBase int64) error {
	return UnpackWith(r, nil, layout, hdr, dest, cursors, threadBase)
}

// UnpackWith is Unpack with a caller-supplied set of reload-prediction
// tables, shared read-only across every thread of a partition rather than
// rebuilt per file (spec.md §5).
func UnpackWith(r io.Reader, reload *bitio.ReloadTables, layout config.Layout, hdr Header, dest Records, cursors *[256]int64, threadBase int64) error {
	br := bitio.NewReader(r, reload)
	seqBytes := layout.SmerBytes - 1

	prevIdx := -1
	for k := int64(0); k < hdr.Nmers; k++ {
		sln, err := br.ReadUint(layout.SlenBits)
		if err != nil {
			return errors.Wrapf(err, "reading super-mer length (record %d of %d)", k, hdr.Nmers)
		}
		for sln >= uint64(layout.MaxSuper) {
			if layout.DoProfile && prevIdx >= 0 {
				dest.SetJoined(prevIdx)
			}
			sln, err = br.ReadUint(layout.SlenBits)
			if err != nil {
				return errors.Wrapf(err, "reading continuation length (record %d of %d)", k, hdr.Nmers)
			}
		}

		fb, err := br.ReadUint(8)
		if err != nil {
			return errors.Wrapf(err, "reading leading byte (record %d of %d)", k, hdr.Nmers)
		}
		f := byte(fb)

		idx := cursors[f]
		cursors[f]++
		rec := dest.At(int(idx))
		rec[0] = f // bucket-key cache
		rec[1] = f // the sequence's own leading byte (first 4 symbols)

		m := int(sln) + layout.K - 4
		if m > 0 {
			mBytes := (m + 3) / 4
			if 1+mBytes > seqBytes {
				return errors.Errorf("super-mer sequence overflows record (record %d): need %d bytes, have %d", k, 1+mBytes, seqBytes)
			}
			if err := br.UnstuffCode(rec[2:2+mBytes], m); err != nil {
				return errors.Wrapf(err, "unpacking sequence (record %d of %d)", k, hdr.Nmers)
			}
		}
		dest.setLength(int(idx), int(sln))

		if layout.DoProfile {
			rid, err := br.ReadRunID()
			if err != nil {
				return errors.Wrapf(err, "reading run id (record %d of %d)", k, hdr.Nmers)
			}
			dest.setRunID(int(idx), rid+uint64(threadBase))
			prevIdx = int(idx)
		}
	}

	// A trailing continuation marker can follow the last real record in
	// the stream; if present it joins the last record written by this
	// thread to the next physical piece (spec.md §4.1 step 1, end-of-loop
	// case).
	trailing, ok := br.TryReadUint(layout.SlenBits)
	if ok && trailing >= uint64(layout.MaxSuper) && layout.DoProfile && prevIdx >= 0 {
		dest.SetJoined(prevIdx)
	}

	return nil
}
