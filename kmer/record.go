// Copyright 2026, the FastK-go contributors.

// Package kmer implements S3-S7 of spec.md §4.3-§4.7: expanding sorted
// super-mers into weighted canonical k-mers, sorting and histogramming
// them, the optional table and count-index projections, and the inverse
// sort of the count index.
package kmer

import (
	"github.com/kshedden/fastk/bitio"
	"github.com/kshedden/fastk/config"
)

// Records is a flat array of fixed-width weighted k-mer records (spec.md
// §3's "Weighted k-mer record (KMER_WORD)").
type Records struct {
	Data   []byte
	Layout config.Layout
}

// NewRecords allocates a Records array able to hold n records.
func NewRecords(n int64, layout config.Layout) Records {
	return Records{Data: make([]byte, n*int64(layout.KmerWord)), Layout: layout}
}

// Len returns the number of records currently backed by Data.
func (r Records) Len() int {
	if r.Layout.KmerWord == 0 {
		return 0
	}
	return len(r.Data) / r.Layout.KmerWord
}

// At returns the i'th record as a slice into Data.
func (r Records) At(i int) []byte {
	w := r.Layout.KmerWord
	return r.Data[i*w : (i+1)*w]
}

// Kmer returns the packed canonical k-mer bytes of record i (ceil(K/4)
// long, final byte already masked by KClip). Byte 0 of the record is a
// cache of this slice's leading byte, mirroring supermer.Records' bucket-
// key cache; use LeadingByte for that cached copy.
func (r Records) Kmer(i int) []byte {
	return r.At(i)[1:r.Layout.KmerBytes]
}

// LeadingByte returns the cached copy of the k-mer's leading byte stored
// in byte 0 of record i.
func (r Records) LeadingByte(i int) byte {
	return r.At(i)[0]
}

// SetKmer writes canon (ceil(K/4) bytes) into record i's k-mer field and
// refreshes the byte-0 cache.
func (r Records) SetKmer(i int, canon []byte) {
	rec := r.At(i)
	rec[0] = canon[0]
	copy(rec[1:r.Layout.KmerBytes], canon)
}

// Weight returns the stored 16-bit weight of record i.
func (r Records) Weight(i int) uint16 {
	off := r.Layout.KmerBytes
	rec := r.At(i)
	return bitio.ReadLEU16(rec[off:])
}

func (r Records) setWeight(i int, w uint16) {
	off := r.Layout.KmerBytes
	rec := r.At(i)
	bitio.PutLEU16(rec[off:], w)
}

// Ordinal returns the profiling ordinal index of record i. Only
// meaningful when Layout.DoProfile is set.
func (r Records) Ordinal(i int) uint64 {
	off := r.Layout.KmerBytes + 2
	rec := r.At(i)
	return bitio.UintLE(rec[off:], r.Layout.KmaxBytes)
}

func (r Records) setOrdinal(i int, idx uint64) {
	off := r.Layout.KmerBytes + 2
	rec := r.At(i)
	bitio.PutUintLE(rec[off:], idx, r.Layout.KmaxBytes)
}

// SameKey reports whether records i and j carry the same canonical k-mer.
func (r Records) SameKey(i, j int) bool {
	ki, kj := r.Kmer(i), r.Kmer(j)
	for k := range ki {
		if ki[k] != kj[k] {
			return false
		}
	}
	return true
}

// RunExtent returns the end index (exclusive) of the maximal run of
// records starting at i sharing the same canonical k-mer. The input must
// already be sorted so that equal keys are adjacent.
func (r Records) RunExtent(i int) int {
	n := r.Len()
	j := i + 1
	for j < n && r.SameKey(i, j) {
		j++
	}
	return j
}

// histIndex clamps a true weight sum into the histogram's valid bucket
// range [0, 0x7fff] (spec.md §9's "Saturating vs wrapping semantics" open
// question): the sum itself is kept exact in a uint32, only the
// histogram index and the table/record's stored weight separately clamp.
func histIndex(sum uint32) int {
	if sum > 0x7fff {
		return 0x7fff
	}
	return int(sum)
}

// tableWeight clamps a true weight sum into the 16-bit value stored in a
// table row or count-index projection, setting the 0x8000 sentinel
// exactly at sum >= 0x8000 (spec.md §4.4/§4.5).
func tableWeight(sum uint32) uint16 {
	if sum >= 0x8000 {
		return 0x8000
	}
	return uint16(sum)
}
