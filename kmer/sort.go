package kmer

import (
	"github.com/kshedden/fastk/histogram"
	"github.com/kshedden/fastk/radix"
)

// SortAndHistogram implements S4 (spec.md §4.4): sorts the expanded k-mer
// records by their canonical k-mer key, collapses adjacent duplicate
// k-mers by summing their weights, and accumulates the surviving weights
// into a histogram. The returned Records holds every input record in
// sorted order, with equal canonical k-mers adjacent; the count-index
// projection (S6) needs
// the full run's member ordinals, so SortAndHistogram leaves runs intact
// in place rather than physically compacting the array -- RunExtent lets
// callers iterate distinct keys without a separate dense array.
// RunWeights maps each run's starting record index to its (0x8000-
// clamped) stored weight; the histogram itself separately clamps its
// bucket index at 0x7fff (spec.md §9 "Saturating vs wrapping semantics").
func SortAndHistogram(recs, aux Records, bucketSizes [256]int64, workers int) (Records, *histogram.Histogram, RunWeights) {
	layout := recs.Layout
	// bucketSizes already reflects the partition by byte 0 (the cached
	// copy of the canonical k-mer's leading byte); LSD-sort the
	// remaining key bytes 1..KmerBytes-1 within each bucket.
	finalInAux := radix.BucketRadixSort(recs.Data, aux.Data, layout.KmerWord, 0, layout.KmerBytes, bucketSizes, workers)
	sorted := recs
	if finalInAux {
		sorted = aux
	}

	hist := histogram.New()
	hist.K = layout.K
	weights := make(RunWeights)
	n := sorted.Len()
	for i := 0; i < n; {
		end := sorted.RunExtent(i)
		sum := uint32(0)
		for j := i; j < end; j++ {
			sum += uint32(sorted.Weight(j))
		}
		hist.Add(histIndex(sum))
		weights[i] = tableWeight(sum)
		i = end
	}

	return sorted, hist, weights
}

// RunWeights maps a run's starting record index (as returned by
// Records.RunExtent) to its summed, 0x8000-clamped weight.
type RunWeights map[int]uint16
