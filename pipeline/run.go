// Copyright 2026, the FastK-go contributors.

// Package pipeline orchestrates S1-S10 (spec.md §2) for each partition of
// a run, grounded on count.c's per-partition Sorting() loop: allocate
// the partition's large arrays, run phases with a fork/join barrier
// between each (spec.md §5), free the arrays, move to the next
// partition.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kshedden/fastk/bitio"
	"github.com/kshedden/fastk/config"
	"github.com/kshedden/fastk/histogram"
	"github.com/kshedden/fastk/kmer"
	"github.com/kshedden/fastk/logutil"
	"github.com/kshedden/fastk/radix"
	"github.com/kshedden/fastk/supermer"
	"github.com/pkg/errors"
)

// minScratchBytes is a conservative pre-flight floor checked before a
// partition's arrays are allocated (spec.md §7 "Allocation failure ...
// fatal"); it exists to turn an avoidable ENOSPC into an upfront error
// rather than a mid-partition panic.
const minScratchBytes = 64 * 1024 * 1024

// Run drives S1-S10 across every partition named by cfg.NParts, reading
// the per-thread input files "<cfg.SortPath>/<root>.<p>.T<t>" (spec.md
// §6) and returns the merged final histogram, also written to
// "<outDir>/<root>.K<K>" (spec.md §6: "only final, dpwd-directory").
// progress may be nil.
func Run(cfg *config.Config, root, outDir string, progress *logutil.Progress) (*histogram.Histogram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if err := bitio.CheckScratchSpace(cfg.SortPath, minScratchBytes); err != nil {
		return nil, errors.Wrap(err, "scratch space check")
	}

	layout := cfg.Layout()
	total := histogram.New()
	total.K = cfg.K

	for p := 0; p < cfg.NParts; p++ {
		if progress != nil {
			progress.Printf("partition %d/%d: starting\n", p+1, cfg.NParts)
		}
		hist, err := runPartition(cfg, layout, root, p, progress)
		if err != nil {
			return nil, errors.Wrapf(err, "partition %d", p)
		}
		total.Merge(hist)
		if progress != nil {
			progress.Printf("partition %d/%d: done\n", p+1, cfg.NParts)
		}
	}

	outPath := filepath.Join(outDir, fmt.Sprintf("%s.K%d", root, cfg.K))
	if err := total.WriteFile(outPath); err != nil {
		return nil, errors.Wrap(err, "writing final histogram")
	}

	return total, nil
}

// runPartition runs S1-S10 for one partition, freeing every large array
// it allocates before returning (spec.md §3 "Lifecycle").
func runPartition(cfg *config.Config, layout config.Layout, root string, p int, progress *logutil.Progress) (*histogram.Histogram, error) {
	headers, inputPaths, err := openHeaders(cfg, root, p)
	if err != nil {
		return nil, err
	}

	sorted, err := unpackAndSort(cfg, layout, headers, inputPaths, progress)
	if err != nil {
		return nil, err
	}

	kRecs, kBucketSizes, threadBase := kmer.Expand(sorted, cfg, layout)
	kAux := kmer.NewRecords(int64(kRecs.Len()), layout)
	sortedK, hist, weights := kmer.SortAndHistogram(kRecs, kAux, kBucketSizes, cfg.NThreads)
	if progress != nil {
		progress.Printf("  S3/S4 expanded and sorted %d distinct k-mers\n", len(weights))
	}

	if cfg.DoTable > 0 {
		if err := writeTables(cfg, root, p, sortedK, kBucketSizes, weights); err != nil {
			return nil, errors.Wrap(err, "S5 table writer")
		}
		if progress != nil {
			progress.Printf("  S5 wrote table files\n")
		}
	}

	if cfg.DoProfile {
		if err := buildProfiles(cfg, layout, root, p, sorted, sortedK, weights, threadBase); err != nil {
			return nil, errors.Wrap(err, "profile pipeline (S6-S10)")
		}
		if progress != nil {
			progress.Printf("  S6-S10 wrote profile panels\n")
		}
	}

	return hist, nil
}

// openHeaders opens and reads the header of every input thread file for
// partition p, returning the parsed headers and the file paths (still
// open is not required; Unpack re-opens for streaming, see
// unpackAndSort).
func openHeaders(cfg *config.Config, root string, p int) ([]supermer.Header, []string, error) {
	headers := make([]supermer.Header, cfg.NThreads)
	paths := make([]string, cfg.NThreads)
	for t := 0; t < cfg.NThreads; t++ {
		path := filepath.Join(cfg.SortPath, fmt.Sprintf("%s.%d.T%d", root, p, t))
		paths[t] = path
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "opening input file %s", path)
		}
		h, err := supermer.ReadHeader(f)
		f.Close()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading header of %s", path)
		}
		headers[t] = h
	}
	return headers, paths, nil
}

// unpackAndSort implements S1 and S2: decodes every thread's bit-packed
// super-mer stream into a shared, pre-bucketed array (spec.md §4.1's
// disjoint per-(bucket,thread) cursors) and then bucket-radix sorts it
// (spec.md §4.2).
func unpackAndSort(cfg *config.Config, layout config.Layout, headers []supermer.Header, paths []string, progress *logutil.Progress) (supermer.Records, error) {
	cursors, bucketSizes, total := supermer.ComputeCursors(headers)

	// Bucket-count consistency check (spec.md §4.1 "Bucket-count
	// mismatch versus the header histogram is fatal"): the per-bucket
	// layout derived from every thread's KHist must account for exactly
	// the super-mer count each header independently declares, or the
	// cursor arithmetic below would write records into the wrong
	// regions of the shared array.
	var declared int64
	for _, h := range headers {
		declared += h.Nmers
	}
	if declared != total {
		return supermer.Records{}, errors.Errorf("header histograms total %d super-mers but headers declare %d", total, declared)
	}

	recs := supermer.NewRecords(total, layout)
	aux := supermer.NewRecords(total, layout)

	// Built once per partition, then read-only across the unpack fan-out
	// (spec.md §5 "Reload-prediction tables ... initialized once at
	// startup and then read-only").
	reload := bitio.NewReloadTables(layout.K, layout.MaxSuper, int(layout.SlenBits), int(layout.RunBits))

	var wg sync.WaitGroup
	errs := make([]error, len(paths))
	for t := range paths {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			f, err := os.Open(paths[t])
			if err != nil {
				errs[t] = errors.Wrapf(err, "re-opening %s", paths[t])
				return
			}
			defer f.Close()
			// The bit-packed payload starts right after the header
			// openHeaders already consumed on its own descriptor.
			if _, err := f.Seek(supermer.HeaderBytes, 0); err != nil {
				errs[t] = errors.Wrapf(err, "seeking past header of %s", paths[t])
				return
			}
			if err := supermer.UnpackWith(f, reload, layout, headers[t], recs, &cursors[t], headers[t].NBase); err != nil {
				errs[t] = errors.Wrapf(err, "unpacking thread %d", t)
			}
		}(t)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return supermer.Records{}, err
		}
	}

	if progress != nil {
		progress.Printf("  S1 unpacked %d super-mers across %d threads\n", total, len(paths))
	}

	if !cfg.NoCleanTmp {
		for _, path := range paths {
			os.Remove(path)
		}
	}

	sorted := supermer.Sort(recs, aux, bucketSizes, cfg.NThreads)
	if progress != nil {
		progress.Printf("  S2 sorted super-mer array\n")
	}
	return sorted, nil
}

// writeTables implements S5 across cfg.NThreads output files, each
// covering a contiguous range of leading-byte buckets balanced over this
// partition's own k-mer bucket sizes; the ranges are recomputed for every
// partition rather than reused from partition 0.
func writeTables(cfg *config.Config, root string, p int, sortedK kmer.Records, kBucketSizes [256]int64, weights kmer.RunWeights) error {
	ranges := radix.SplitBucketRanges(kBucketSizes, cfg.NThreads)

	var wg sync.WaitGroup
	errs := make([]error, len(ranges))
	for t, rg := range ranges {
		wg.Add(1)
		go func(t int, rg radix.BucketRange) {
			defer wg.Done()
			beg, end := rg.Span(kBucketSizes)
			path := filepath.Join(cfg.SortPath, fmt.Sprintf("%s.%d.L%d", root, p, t))
			f, err := os.Create(path)
			if err != nil {
				errs[t] = errors.Wrapf(err, "creating table file %s", path)
				return
			}
			defer f.Close()
			if err := kmer.WriteTableRange(f, sortedK, weights, cfg.DoTable, beg, end); err != nil {
				errs[t] = errors.Wrapf(err, "writing table file %s", path)
			}
		}(t, rg)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
