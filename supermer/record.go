// Copyright 2026, the FastK-go contributors.

// Package supermer implements the S1 (unpack) and S2 (sort) stages of
// spec.md §4.1-§4.2: reconstructing super-mers from the bit-packed
// per-thread input files and sorting them by sequence+length.
package supermer

import (
	"io"

	"github.com/kshedden/fastk/bitio"
	"github.com/kshedden/fastk/config"
	"github.com/pkg/errors"
)

// HeaderBytes is the on-disk size of a Header: three 8-byte counters
// followed by the 256-entry first-byte histogram (spec.md §6). The
// bit-packed super-mer payload starts at this offset.
const HeaderBytes = 3*8 + 256*8

// Header is the per-thread input file header of spec.md §6: total k-mer
// and super-mer counts, the starting profile ordinal for this thread, and
// a histogram of super-mer counts by leading sequence byte.
type Header struct {
	Kmers int64
	Nmers int64
	NBase int64
	KHist [256]int64
}

// ReadHeader reads a Header from r in the on-disk layout of spec.md §6.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	buf := make([]byte, 8)
	read8 := func() (int64, error) {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}
		return int64(bitio.ReadLEU64(buf)), nil
	}
	var err error
	if h.Kmers, err = read8(); err != nil {
		return h, errors.Wrap(err, "reading kmers count")
	}
	if h.Nmers, err = read8(); err != nil {
		return h, errors.Wrap(err, "reading nmers count")
	}
	if h.NBase, err = read8(); err != nil {
		return h, errors.Wrap(err, "reading nbase")
	}
	hbuf := make([]byte, 8*256)
	if _, err := io.ReadFull(r, hbuf); err != nil {
		return h, errors.Wrap(err, "reading khist")
	}
	for i := 0; i < 256; i++ {
		h.KHist[i] = int64(bitio.ReadLEU64(hbuf[i*8:]))
	}
	return h, nil
}

// WriteHeader writes h to w in the on-disk layout of spec.md §6. It exists
// primarily for tests and for any future companion writer of the upstream
// splitting pass, which spec.md §1 places out of scope for this core.
func WriteHeader(w io.Writer, h Header) error {
	buf := make([]byte, 8)
	write8 := func(v int64) error {
		bitio.PutLEU64(buf, uint64(v))
		_, err := w.Write(buf)
		return err
	}
	if err := write8(h.Kmers); err != nil {
		return err
	}
	if err := write8(h.Nmers); err != nil {
		return err
	}
	if err := write8(h.NBase); err != nil {
		return err
	}
	hbuf := make([]byte, 8*256)
	for i := 0; i < 256; i++ {
		bitio.PutLEU64(hbuf[i*8:], uint64(h.KHist[i]))
	}
	_, err := w.Write(hbuf)
	return err
}

// Records is a flat array of fixed-width super-mer records (spec.md §3's
// "Super-mer record (sort element, width SMER_WORD)"). Unlike the
// teacher's C source, byte 0 is populated with the leading packed
// sequence byte at unpack time rather than left as a zeroed placeholder
// later restored by the expander -- it still serves as the bucket-key
// cache spec.md §3 describes, just without the write-then-overwrite
// dance, since nothing in this reimplementation needs byte 0 to double as
// an in-place "unprocessed" sentinel (see kmer.Expand's run-extent scan).
type Records struct {
	Data   []byte
	Layout config.Layout
}

// NewRecords allocates a Records array able to hold n records.
func NewRecords(n int64, layout config.Layout) Records {
	return Records{Data: make([]byte, n*int64(layout.SmerWord)), Layout: layout}
}

// Len returns the number of records currently backed by Data.
func (r Records) Len() int {
	if r.Layout.SmerWord == 0 {
		return 0
	}
	return len(r.Data) / r.Layout.SmerWord
}

// At returns the i'th record as a slice into Data.
func (r Records) At(i int) []byte {
	w := r.Layout.SmerWord
	return r.Data[i*w : (i+1)*w]
}

// Seq returns the complete packed sequence bytes of record i (SmerBytes-1
// long; the sequence's own leading byte lives at Seq(i)[0]). Byte 0 of the
// record (outside this slice) caches a copy of that same leading byte for
// fast bucket-key access (spec.md §3's "byte 0: reserved ... used as
// first-byte key cache").
func (r Records) Seq(i int) []byte {
	return r.At(i)[1:r.Layout.SmerBytes]
}

// LeadingByte returns the cached copy of the sequence's first byte stored
// in byte 0 of record i.
func (r Records) LeadingByte(i int) byte {
	return r.At(i)[0]
}

// Length returns the stored length field (sln) of record i; the super-mer
// covers sln+1 k-mers over sln+K symbols (spec.md §4.3/§4.8).
func (r Records) Length(i int) int {
	rec := r.At(i)
	return int(bitio.UintLE(rec[r.Layout.SmerBytes:], r.Layout.SlenBytes))
}

func (r Records) setLength(i int, sln int) {
	rec := r.At(i)
	bitio.PutUintLE(rec[r.Layout.SmerBytes:], uint64(sln), r.Layout.SlenBytes)
}

// RunID returns the profile ordinal and joined flag of record i. Only
// meaningful when Layout.DoProfile is set. The joined flag occupies the
// top bit of the field's most significant byte, out of reach of any
// ordinal below 2^(8*RunBytes-1).
func (r Records) RunID(i int) (id uint64, joined bool) {
	off := r.Layout.SmerBytes + r.Layout.SlenBytes
	rec := r.At(i)
	var raw [8]byte
	copy(raw[:], rec[off:off+r.Layout.RunBytes])
	joined = raw[r.Layout.RunBytes-1]&0x80 != 0
	raw[r.Layout.RunBytes-1] &^= 0x80
	id = bitio.UintLE(raw[:], r.Layout.RunBytes)
	return id, joined
}

func (r Records) setRunID(i int, id uint64) {
	off := r.Layout.SmerBytes + r.Layout.SlenBytes
	rec := r.At(i)
	bitio.PutUintLE(rec[off:], id, r.Layout.RunBytes)
}

// SetJoined sets the "joined" continuation flag on record i (spec.md §3,
// §4.1 step 1): the preceding physical super-mer of a logical run that was
// split across MAX_SUPER boundaries marks itself so S8 can reassemble the
// full profile.
func (r Records) SetJoined(i int) {
	off := r.Layout.SmerBytes + r.Layout.SlenBytes
	rec := r.At(i)
	rec[off+r.Layout.RunBytes-1] |= 0x80
}

// ClearJoined clears the stored joined bit, used by the profile encoder
// once it has read and relocated the flag into the link record (spec.md
// §4.8's "moved into bit 0 of the link").
func (r Records) ClearJoined(i int) {
	off := r.Layout.SmerBytes + r.Layout.SlenBytes
	rec := r.At(i)
	rec[off+r.Layout.RunBytes-1] &^= 0x80
}

// SameKey reports whether records i and j have identical sequence+length
// keys -- the run-extent test used throughout S3/S8 in place of the
// teacher's sentinel-in-byte-0 trick (spec.md §9 "Run detection via
// sentinel-in-byte-0").
func (r Records) SameKey(i, j int) bool {
	wi, wj := r.At(i), r.At(j)
	keyLen := r.Layout.SmerBytes + r.Layout.SlenBytes
	for k := 0; k < keyLen; k++ {
		if wi[k] != wj[k] {
			return false
		}
	}
	return true
}

// RunExtent returns the end index (exclusive) of the maximal run of
// records starting at i that share the same sequence+length key. The
// caller's input must already be sorted so that equal keys are adjacent.
func (r Records) RunExtent(i int) int {
	n := r.Len()
	j := i + 1
	for j < n && r.SameKey(i, j) {
		j++
	}
	return j
}
