package supermer

import "github.com/kshedden/fastk/radix"

// Sort performs S2, the external bucket-radix sort of spec.md §4.2: the
// records are already MSD-partitioned into 256 leading-byte buckets (by
// Unpack's cursor layout), so this runs the LSD pass of radix.BucketRadixSort
// over the remaining sequence+length key bytes within each bucket.
//
// recs and aux must describe arrays of identical size; Sort returns the
// Records view over whichever of the two backs the final sorted data.
func Sort(recs, aux Records, bucketSizes [256]int64, workers int) Records {
	layout := recs.Layout
	keyLen := layout.SmerBytes + layout.SlenBytes
	finalInAux := radix.BucketRadixSort(recs.Data, aux.Data, layout.SmerWord, 0, keyLen, bucketSizes, workers)
	if finalInAux {
		return aux
	}
	return recs
}
