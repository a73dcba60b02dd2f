package kmer

import (
	"sync"

	"github.com/kshedden/fastk/bitio"
	"github.com/kshedden/fastk/config"
	"github.com/kshedden/fastk/radix"
)

// CountIndex is the S6 projection (spec.md §4.6, CMER_WORD records): one
// entry per member of every sorted weighted k-mer run, carrying that
// run's clamped weight and the member's original profiling ordinal, with
// the ordinal's low byte dropped from the payload because it is exactly
// the bucket a record was filed under (spec.md §4.6 "bucketed by the LSB
// of the ordinal index", which S7 consumes as its pre-bucketed first
// digit). This is the input to the first of the two inverting sorts S7
// performs to restore read order for the profile encoder.
type CountIndex struct {
	Data   []byte
	Layout config.Layout
}

// NewCountIndex allocates a CountIndex able to hold n records.
func NewCountIndex(n int64, layout config.Layout) CountIndex {
	return CountIndex{Data: make([]byte, n*int64(layout.CmerWord)), Layout: layout}
}

func (c CountIndex) Len() int {
	if c.Layout.CmerWord == 0 {
		return 0
	}
	return len(c.Data) / c.Layout.CmerWord
}

func (c CountIndex) At(i int) []byte {
	w := c.Layout.CmerWord
	return c.Data[i*w : (i+1)*w]
}

func (c CountIndex) Weight(i int) uint16 {
	return bitio.ReadLEU16(c.At(i))
}

func (c CountIndex) setWeight(i int, w uint16) {
	bitio.PutLEU16(c.At(i), w)
}

// OrdinalHigh returns bytes [1..KmaxBytes-1] of the member's original
// ordinal stored in record i (byte 0, its LSB, is implicit in the bucket
// the record was filed under).
func (c CountIndex) OrdinalHigh(i int) uint64 {
	return bitio.UintLE(c.At(i)[2:], c.Layout.KmaxBytes-1)
}

func (c CountIndex) setOrdinalHigh(i int, v uint64) {
	bitio.PutUintLE(c.At(i)[2:], v, c.Layout.KmaxBytes-1)
}

// ProjectCountIndex implements S6: walks the sorted, weight-summed k-mer
// array and, for every member of every run (not just the run's first
// record), emits a CountIndex entry carrying the run's clamped weight
// and that member's profiling ordinal, bucketed by the ordinal's LSB.
// Cursors must already be sized/allocated per spec.md §9's two-pass
// convention (see kmer.Expand); callers needing sizes first can call
// CountIndexBucketSizes.
func ProjectCountIndex(sorted Records, weights RunWeights, dest CountIndex, cursors *[256]int64) {
	n := sorted.Len()
	for i := 0; i < n; {
		end := sorted.RunExtent(i)
		w := weights[i]
		for j := i; j < end; j++ {
			ord := sorted.Ordinal(j)
			lsb := byte(ord)
			idx := cursors[lsb]
			cursors[lsb]++
			dest.setWeight(int(idx), w)
			dest.setOrdinalHigh(int(idx), ord>>8)
		}
		i = end
	}
}

// InverseSort implements S7 (spec.md §4.7): byte 0 of the ordinal (the
// LSB) is already the bucket a CountIndex record lives in, so only the
// remaining KmaxBytes-1 bytes need an LSD pass within each bucket. The
// parity of that pass count selects which of idx/aux ends up holding the
// sorted result.
func InverseSort(idx, aux CountIndex, bucketSizes [256]int64, workers int) CountIndex {
	layout := idx.Layout
	width := layout.CmerWord
	npass := layout.KmaxBytes - 1
	positions := make([]int, 0, npass)
	// The ordinal is little-endian, so LSD order walks offsets upward.
	for p := 2; p < 2+npass; p++ {
		positions = append(positions, p)
	}
	oddPasses := len(positions)%2 == 1

	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	o := int64(0)
	for b := 0; b < 256; b++ {
		n := bucketSizes[b]
		if n == 0 {
			continue
		}
		start := o * int64(width)
		size := n * int64(width)
		wg.Add(1)
		sem <- struct{}{}
		go func(start, size, n int64) {
			defer wg.Done()
			defer func() { <-sem }()
			radix.LSDSort(int(n), width, positions, idx.Data[start:start+size], aux.Data[start:start+size])
		}(start, size, n)
		o += n
	}
	wg.Wait()

	if oddPasses {
		return aux
	}
	return idx
}

// CountIndexBucketSizes counts, for every run member, how many land in
// each of the 256 buckets keyed by the ordinal's LSB -- the sizing pass
// ProjectCountIndex's caller runs first to allocate dest and derive
// cursors via a cumulative sum, mirroring supermer.ComputeCursors.
func CountIndexBucketSizes(sorted Records) (sizes [256]int64, total int64) {
	n := sorted.Len()
	for i := 0; i < n; i++ {
		ord := sorted.Ordinal(i)
		lsb := byte(ord)
		sizes[lsb]++
		total++
	}
	return sizes, total
}
