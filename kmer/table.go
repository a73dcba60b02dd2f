package kmer

import (
	"bufio"
	"io"
)

// WriteTable implements S5 (spec.md §4.5): for every distinct canonical
// k-mer run in sorted whose summed weight reaches the DoTable threshold,
// emits the k-mer's KmerBytes bytes (byte 0 already holding the bucket's
// leading-byte cache) followed by its 2-byte clamped weight, through a
// 64 KiB buffered writer (count.c's table_write_thread uses a 0x10000
// byte stack buffer; bufio.Writer gives the same batching without a
// hand-managed flush check before every record).
func WriteTable(w io.Writer, sorted Records, weights RunWeights, minWeight int) error {
	return WriteTableRange(w, sorted, weights, minWeight, 0, sorted.Len())
}

// WriteTableRange is WriteTable restricted to the run(s) covering record
// indices [beg, end) of sorted -- used by the pipeline to split S5's
// output across one file per worker thread, each covering a contiguous
// range of leading-byte buckets. beg must fall on a run boundary.
func WriteTableRange(w io.Writer, sorted Records, weights RunWeights, minWeight, beg, end int) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	layout := sorted.Layout

	for i := beg; i < end; {
		runEnd := sorted.RunExtent(i)
		if runEnd > end {
			runEnd = end
		}
		clamped := weights[i]
		if int(clamped) >= minWeight {
			rec := sorted.At(i)
			if _, err := bw.Write(rec[:layout.KmerBytes]); err != nil {
				return err
			}
			var wbuf [2]byte
			wbuf[0] = byte(clamped)
			wbuf[1] = byte(clamped >> 8)
			if _, err := bw.Write(wbuf[:]); err != nil {
				return err
			}
		}
		i = runEnd
	}

	return bw.Flush()
}
