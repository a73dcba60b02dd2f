package pipeline

import (
	"github.com/kshedden/fastk/config"
	"github.com/kshedden/fastk/kmer"
	"github.com/kshedden/fastk/profile"
	"github.com/kshedden/fastk/supermer"
	"github.com/pkg/errors"
)

// buildProfiles implements S6-S10 (spec.md §4.6-§4.10) for one partition:
// project and inverse-sort the count index, replay S3's traversal to
// reassemble each super-mer run's per-position weight sequence, encode
// and buffer each run's profile, link every physical super-mer record
// back to its run's profile, sort the links by run-id, and write the
// panel files.
func buildProfiles(cfg *config.Config, layout config.Layout, root string, p int, sorted supermer.Records, sortedK kmer.Records, weights kmer.RunWeights, threadBase []int64) error {
	sizes, total := kmer.CountIndexBucketSizes(sortedK)

	var offsets [256]int64
	o := int64(0)
	for b := 0; b < 256; b++ {
		offsets[b] = o
		o += sizes[b]
	}
	cursors := offsets

	countIdx := kmer.NewCountIndex(total, layout)
	kmer.ProjectCountIndex(sortedK, weights, countIdx, &cursors)

	aux := kmer.NewCountIndex(total, layout)
	sortedCounts := kmer.InverseSort(countIdx, aux, sizes, cfg.NThreads)

	// weightAt recovers the weight originally assigned to profiling
	// ordinal ord. S7's two-level bucket-by-LSB/sort-remainder-by-LSD
	// scheme leaves every bucket's members ordered by ord>>8, densely
	// (every ordinal appears exactly once), so the member for ord lives
	// at offsets[ord&0xff] + ord>>8 in the inverse-sorted array -- no
	// scan needed (spec.md §4.7).
	weightAt := func(ord uint64) uint16 {
		pos := offsets[byte(ord)] + int64(ord>>8)
		w := sortedCounts.Weight(int(pos))
		// Profile counts cap at the 0x7fff saturation ceiling; the
		// stored 0x8000 overflow sentinel never appears in a profile
		// (profile.Encode's delta ring is mod 2^15).
		if w > 0x7fff {
			w = 0x7fff
		}
		return w
	}

	ssizes := kmer.SupermerBucketSizes(sorted)
	ranges := kmer.WorkerRanges(sorted, cfg.NThreads)

	buf := profile.NewBuffer(layout, sorted.Len()*4)
	profileIndex := make(map[int]int64, sorted.Len())

	// Single-threaded: every run's encoded profile is appended to the
	// same growing buffer, so there is nothing to parallelize here
	// without either locking the buffer or merging per-range buffers
	// back together afterward.
	for ri, rg := range ranges {
		beg, end := rg.Span(ssizes)
		idx := threadBase[ri]
		kmer.ForEachRun(sorted, beg, end, func(i, runEnd int) {
			sln := sorted.Length(i)
			counts := make([]uint16, sln+1)
			for pos := 0; pos <= sln; pos++ {
				counts[pos] = weightAt(uint64(idx))
				idx++
			}
			encoded := profile.Encode(counts)
			profileIndex[i] = buf.Append(encoded)
		})
	}

	links := profile.BuildLinks(sorted, func(runStart int) int64 { return profileIndex[runStart] })
	auxLinks := profile.NewLinks(int64(links.Len()), layout)
	sortedLinks := profile.SortLinks(links, auxLinks, cfg.NThreads)

	if err := profile.WritePanels(cfg.SortPath, root, p, sortedLinks, buf, cfg.NThreads, cfg.NPanels); err != nil {
		return errors.Wrap(err, "writing profile panels")
	}
	return nil
}
