package kmer

import (
	"sync"

	"github.com/kshedden/fastk/config"
	"github.com/kshedden/fastk/dna"
	"github.com/kshedden/fastk/radix"
	"github.com/kshedden/fastk/supermer"
)

// WorkerRanges partitions sorted's super-mer records into up to `workers`
// balanced contiguous ranges (spec.md §4.2), keyed off the super-mer's
// own leading-byte buckets. Expand uses this to fan out S3's work; the
// profile pipeline (S8) re-derives the identical ranges to replay S3's
// k-mer ordinal assignment order when reassembling per-super-mer count
// runs (see pipeline.buildProfiles).
func WorkerRanges(sorted supermer.Records, workers int) []radix.BucketRange {
	return radix.SplitBucketRanges(SupermerBucketSizes(sorted), workers)
}

// SupermerBucketSizes counts sorted's records by leading byte. Exported so
// S8's replay (pipeline.buildProfiles) can compute the same (beg, end)
// spans for WorkerRanges' ranges that Expand used, without re-deriving
// them from scratch per call.
func SupermerBucketSizes(sorted supermer.Records) [256]int64 {
	return bucketSizesOf(sorted, sorted.Layout)
}

// ForEachRun calls fn(i, runEnd) for every maximal run of structurally
// equal super-mer records within [beg, end) of sorted, in increasing
// index order. Exported so S8's replay (pipeline.buildProfiles) walks
// super-mer runs the same way S3 does.
func ForEachRun(sorted supermer.Records, beg, end int, fn func(i, runEnd int)) {
	forEachRun(sorted, beg, end, fn)
}

func forEachRun(sorted supermer.Records, beg, end int, fn func(i, runEnd int)) {
	for i := beg; i < end; {
		runEnd := sorted.RunExtent(i)
		if runEnd > end {
			runEnd = end
		}
		fn(i, runEnd)
		i = runEnd
	}
}

// Expand implements S3 (spec.md §4.3): walks the sorted super-mer array,
// computes the canonical k-mers (and their supermer-multiplicity weight)
// each super-mer covers, and returns them bucketed by the canonical
// k-mer's leading byte, ready for S4's sort.
//
// Because the canonical leading byte of an output k-mer generally differs
// from its source super-mer's leading byte, the destination bucket sizes
// cannot be read off the input header the way S1's can; Expand makes a
// first counting pass (parallel over super-mer bucket ranges) to size
// each of the 256 output buckets, then a second pass that actually
// writes the records (spec.md §9 notes this kind of local adaptation is
// expected where the teacher's in-place trick doesn't carry over
// cleanly). The same first pass also gives each worker
// range its own total k-mer count, which doubles as that range's
// profiling-ordinal base (spec.md §4.3 "Per-thread ordinal indices start
// at the thread's pre-allocated base") -- Expand assigns these itself so
// callers never juggle cross-stage bookkeeping the teacher's globals did
// implicitly. The returned []int64 is that per-range base, indexed the
// same as WorkerRanges(sorted, cfg.NThreads); the profile pipeline (S8)
// uses it together with WorkerRanges and ForEachRun to replay this
// function's exact ordinal assignment order (see pipeline.buildProfiles).
func Expand(sorted supermer.Records, cfg *config.Config, layout config.Layout) (Records, [256]int64, []int64) {
	bucketSizes := bucketSizesOf(sorted, layout)
	ranges := WorkerRanges(sorted, cfg.NThreads)

	// Pass 1: count output k-mers per canonical leading byte, per range.
	perRangeCounts := make([][256]int64, len(ranges))
	rangeTotal := make([]int64, len(ranges))
	var wg sync.WaitGroup
	for ri, rg := range ranges {
		wg.Add(1)
		go func(ri int, rg radix.BucketRange) {
			defer wg.Done()
			var counts [256]int64
			beg, end := rg.Span(bucketSizes)
			forEachRun(sorted, beg, end, func(i, runEnd int) {
				sln := sorted.Length(i)
				seq := sorted.Seq(i)
				for o := 0; o <= sln; o++ {
					canon, _ := dna.Canonical(seq, o, layout.K)
					counts[canon[0]]++
				}
			})
			perRangeCounts[ri] = counts
			var total int64
			for _, c := range counts {
				total += c
			}
			rangeTotal[ri] = total
		}(ri, rg)
	}
	wg.Wait()

	// Merge into global per-(range,bucket) cursors, exactly as
	// supermer.ComputeCursors merges per-thread histograms.
	cursors := make([][256]int64, len(ranges))
	var outBucketSizes [256]int64
	o := int64(0)
	for b := 0; b < 256; b++ {
		start := o
		for ri := range ranges {
			cursors[ri][b] = o
			o += perRangeCounts[ri][b]
		}
		outBucketSizes[b] = o - start
	}
	total := o

	// Per-range profile-ordinal bases: a non-decreasing prefix sum
	// over rangeTotal (an empty range shares the next range's base), so
	// ranges processed earlier never get larger ordinals (pipeline.buildProfiles relies on this monotonicity to
	// replay the assignment order sequentially).
	threadBase := make([]int64, len(ranges))
	acc := int64(0)
	for ri := range ranges {
		threadBase[ri] = acc
		acc += rangeTotal[ri]
	}

	dest := NewRecords(total, layout)

	// Pass 2: write the records using the now-known disjoint cursors.
	wg = sync.WaitGroup{}
	for ri, rg := range ranges {
		wg.Add(1)
		go func(ri int, rg radix.BucketRange, base int64) {
			defer wg.Done()
			cur := cursors[ri]
			idx := base
			beg, end := rg.Span(bucketSizes)
			forEachRun(sorted, beg, end, func(i, runEnd int) {
				ct := runEnd - i
				sln := sorted.Length(i)
				seq := sorted.Seq(i)
				w := uint16(ct)
				if ct > 0xffff {
					w = 0xffff
				}
				for o := 0; o <= sln; o++ {
					canon, _ := dna.Canonical(seq, o, layout.K)
					b := canon[0]
					target := int(cur[b])
					cur[b]++
					dest.SetKmer(target, canon)
					dest.setWeight(target, w)
					if layout.DoProfile {
						dest.setOrdinal(target, uint64(idx))
						idx++
					}
				}
			})
		}(ri, rg, threadBase[ri])
	}
	wg.Wait()

	return dest, outBucketSizes, threadBase
}

func bucketSizesOf(sorted supermer.Records, layout config.Layout) [256]int64 {
	var sizes [256]int64
	n := sorted.Len()
	for i := 0; i < n; i++ {
		sizes[sorted.LeadingByte(i)]++
	}
	return sizes
}
