// Copyright 2026, the FastK-go contributors.

// Package radix implements the shared bucket-radix / LSD sort engine that
// spec.md §2 lists as "(delegated)" for S2, S4, S7 and S9: count.c calls
// out to external Supermer_Sort/Weighted_Kmer_Sort/LSD_Sort routines that
// are themselves out of spec.md's scope, but a k-mer counting engine with
// no working sort is not a complete repository, so this package is that
// library.
package radix

import (
	"sync"
)

// CountingSortPass performs one stable counting-sort pass over n fixed
// width records, keyed on the single byte at offset keyPos, reading from
// src and writing the reordered records into dst. src and dst must each
// have length >= n*width and must not overlap.
func CountingSortPass(src, dst []byte, n, width, keyPos int) {
	var count [257]int
	for i := 0; i < n; i++ {
		b := src[i*width+keyPos]
		count[int(b)+1]++
	}
	for i := 0; i < 256; i++ {
		count[i+1] += count[i]
	}
	for i := 0; i < n; i++ {
		b := src[i*width+keyPos]
		pos := count[b]
		count[b]++
		copy(dst[pos*width:pos*width+width], src[i*width:i*width+width])
	}
}

// LSDSort runs a stable least-significant-digit radix sort over n
// fixed-width records, using the given sequence of key byte offsets in
// least-significant-pass-first order (spec.md §4.7/§4.9), ping-ponging
// between buf0 and buf1 (each of length n*width) and returning whichever
// buffer ends up holding the sorted result -- the parity of len(keyPositions)
// determines which one that is (spec.md §4.7's "parity of KMAX_BYTES
// determines which of the two ping-pong buffers holds the final output").
func LSDSort(n, width int, keyPositions []int, buf0, buf1 []byte) []byte {
	src, dst := buf0, buf1
	for _, pos := range keyPositions {
		CountingSortPass(src, dst, n, width, pos)
		src, dst = dst, src
	}
	return src
}

// BucketRange is a contiguous span of the 256 leading-byte buckets
// assigned to one worker, plus the starting record index its records
// occupy in a buffer laid out bucket 0 first (spec.md §4.2's "(beg, end,
// off) triples"). Shared by every stage that load-balances work across
// buckets: S2/S4's sort workers (here) and S3's expander
// (kmer.Expand).
type BucketRange struct {
	Beg, End int
	Off      int64
}

// SplitBucketRanges partitions the 256 buckets into up to `workers`
// contiguous ranges whose cumulative record counts are as balanced as
// possible (spec.md §4.2 "Thread work is partitioned by assigning
// contiguous bucket ranges whose cumulative sizes best balance load").
func SplitBucketRanges(bucketSizes [256]int64, workers int) []BucketRange {
	total := int64(0)
	for _, n := range bucketSizes {
		total += n
	}
	if workers < 1 {
		workers = 1
	}
	ranges := make([]BucketRange, 0, workers)
	target := total / int64(workers)
	beg, off, acc := 0, int64(0), int64(0)
	for b := 0; b < 256; b++ {
		acc += bucketSizes[b]
		if (acc >= target && len(ranges) < workers-1) || b == 255 {
			ranges = append(ranges, BucketRange{Beg: beg, End: b + 1, Off: off})
			off += acc
			beg = b + 1
			acc = 0
		}
	}
	for len(ranges) < workers {
		ranges = append(ranges, BucketRange{Beg: 256, End: 256, Off: total})
	}
	return ranges
}

// Span returns the [beg, end) record-index span rg occupies within a
// buffer whose bucket sizes are bucketSizes.
func (rg BucketRange) Span(bucketSizes [256]int64) (beg, end int) {
	beg = int(rg.Off)
	end = beg
	for b := rg.Beg; b < rg.End; b++ {
		end += int(bucketSizes[b])
	}
	return beg, end
}

// bucketByteOffsets returns, for each of the 256 buckets, its starting
// byte offset within a buffer laid out as bucketSizes[0] records of
// bucket 0 followed by bucketSizes[1] records of bucket 1, and so on.
func bucketByteOffsets(bucketSizes [256]int64, width int) [256]int {
	var offsets [256]int
	o := int64(0)
	for b := 0; b < 256; b++ {
		offsets[b] = int(o * int64(width))
		o += bucketSizes[b]
	}
	return offsets
}

// BucketRadixSort sorts n fixed-width records that the caller has already
// MSD-partitioned into 256 contiguous buckets (bucketSizes gives each
// bucket's record count, spec.md §4.2's "first byte partitions into 256
// buckets already during S1"), by running an LSD byte-radix sort over the
// remaining key bytes [keyOff+1, keyOff+keyLen) independently within each
// bucket. Buckets are distributed across up to `workers` goroutines
// (spec.md §4.2's "Thread work is partitioned by assigning contiguous
// bucket ranges"; since every bucket's sort is independent we simply hand
// whole buckets to a worker pool rather than precomputing balanced
// (beg,end,off) ranges by hand).
//
// aux must have the same length as buf and is used as the ping-pong
// scratch region. BucketRadixSort returns true when the sorted data for
// every bucket ended up in aux rather than buf (an odd number of radix
// passes); the caller must consult this to know which buffer to read
// back from.
func BucketRadixSort(buf, aux []byte, width, keyOff, keyLen int, bucketSizes [256]int64, workers int) (finalInAux bool) {
	positions := make([]int, 0, keyLen-1)
	for p := keyOff + keyLen - 1; p > keyOff; p-- {
		positions = append(positions, p)
	}
	if len(positions) == 0 {
		return false
	}
	oddPasses := len(positions)%2 == 1

	offsets := bucketByteOffsets(bucketSizes, width)

	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for b := 0; b < 256; b++ {
		n := bucketSizes[b]
		if n == 0 {
			continue
		}
		start := offsets[b]
		size := int(n) * width
		wg.Add(1)
		sem <- struct{}{}
		go func(start, size int, n int) {
			defer wg.Done()
			defer func() { <-sem }()
			LSDSort(n, width, positions, buf[start:start+size], aux[start:start+size])
		}(start, size, int(n))
	}
	wg.Wait()

	return oddPasses
}
