// Copyright 2026, the FastK-go contributors.

// Package bitio implements the bit-packed stream codec described in
// spec.md §4.1 and the endianness/positioned-I/O notes of spec.md §9: a
// reader over an MSB-first bit stream with a reload-prediction table
// (spec.md §5's "Fixed_Reload, Runer_Reload, Super_Reload"), plus explicit
// little-endian integer helpers so on-disk multi-byte values are never
// produced by reinterpret-casting a Go value through a byte slice.
package bitio

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// ReloadTables precomputes, for every residual bit-count (0..64) left in
// the reader's accumulator, how many additional input bytes a subsequent
// read of a given width needs at minimum. The teacher's C source keeps
// these as word-granularity tables checked before every read so the hot
// loop avoids a division; our reader's accumulator refills lazily byte by
// byte, so the tables here exist for parity with spec.md §5's named shared
// resource and for the callers (supermer.Unpack) that want to reason about
// worst-case lookahead, rather than gating every single bit read.
type ReloadTables struct {
	// Fixed is indexed by residual bit count and gives the number of
	// extra bytes needed to safely read a super-mer length field.
	Fixed [65]int

	// Runer is indexed by residual bit count and gives the number of
	// extra bytes needed to safely read the widest possible run-id
	// field.
	Runer [65]int

	// Super is indexed by [residual bit count][super-mer length N] and
	// gives the number of extra bytes needed to unpack that super-mer's
	// sequence code.
	Super [65][]int
}

func byteReload(bitsNeeded, residualBits int) int {
	need := bitsNeeded - residualBits
	if need <= 0 {
		return 0
	}
	return (need + 7) / 8
}

// NewReloadTables builds the tables for a given K, MaxSuper and the fixed
// field widths used throughout the bit stream.
func NewReloadTables(k, maxSuper int, slenBits, runBits int) *ReloadTables {
	t := &ReloadTables{}
	for bit := 0; bit <= 64; bit++ {
		t.Fixed[bit] = byteReload(slenBits, bit)
		t.Runer[bit] = byteReload(runBits, bit)
		row := make([]int, maxSuper)
		for n := 0; n < maxSuper; n++ {
			row[n] = byteReload(2*(n+k), bit)
		}
		t.Super[bit] = row
	}
	return t
}

// Reader decodes an MSB-first bit stream. Bits are buffered in a
// left-justified 64-bit accumulator and refilled one byte at a time from
// the underlying io.Reader.
type Reader struct {
	br  *bufio.Reader
	acc uint64
	n   uint // number of valid bits currently occupying the top of acc
	eof bool
	Tbl *ReloadTables

	// Run-id field width, monotonically widening over the life of the
	// stream (spec.md §9 "Variable-width run-id encoding": "rbits
	// monotonically increases per stream").
	rbits uint
	rlim  uint64
}

// NewReader wraps r for bit-level decoding. tbl may be nil; it is retained
// purely for the caller's own lookahead bookkeeping (see ReloadTables'
// doc comment) and is not consulted by Reader itself.
func NewReader(r io.Reader, tbl *ReloadTables) *Reader {
	return &Reader{
		br:    bufio.NewReaderSize(r, 64*1024),
		Tbl:   tbl,
		rbits: 17,
		rlim:  1 << 16,
	}
}

func (r *Reader) fillTo(need uint) {
	for r.n < need && !r.eof {
		b, err := r.br.ReadByte()
		if err != nil {
			r.eof = true
			break
		}
		r.acc |= uint64(b) << (56 - r.n)
		r.n += 8
	}
}

// ReadUint reads the next nbits (<= 57) bits from the stream, MSB first.
// It is an error (truncated stream, spec.md §7) if fewer than nbits
// remain.
func (r *Reader) ReadUint(nbits uint) (uint64, error) {
	if nbits == 0 {
		return 0, nil
	}
	r.fillTo(nbits)
	if r.n < nbits {
		return 0, errors.Wrap(io.ErrUnexpectedEOF, "bitio: truncated bit stream")
	}
	val := r.acc >> (64 - nbits)
	r.acc <<= nbits
	r.n -= nbits
	return val, nil
}

// TryReadUint reads nbits if available. ok is false with a nil error when
// the stream ends with fewer than nbits remaining -- used for the
// trailing continuation-flag check after the last record of a thread's
// super-mer list (spec.md §4.1 step 1), where anything left over is
// either a deliberately-written marker or sub-byte zero padding from the
// encoder's final flush. Truncation inside a record is detected by
// ReadUint, not here.
func (r *Reader) TryReadUint(nbits uint) (val uint64, ok bool) {
	r.fillTo(nbits)
	if r.n >= nbits {
		val = r.acc >> (64 - nbits)
		r.acc <<= nbits
		r.n -= nbits
		return val, true
	}
	return 0, false
}

// UnstuffCode unpacks nsymbols 2-bit-per-symbol codes into dst (which must
// have length >= ceil(nsymbols/4)), 4 symbols per byte MSB first, zero
// padding any unused low bits of the final byte. Mirrors count.c's
// Unstuff_Code.
func (r *Reader) UnstuffCode(dst []byte, nsymbols int) error {
	remaining := 2 * nsymbols
	di := 0
	for remaining >= 8 {
		v, err := r.ReadUint(8)
		if err != nil {
			return err
		}
		dst[di] = byte(v)
		di++
		remaining -= 8
	}
	if remaining > 0 {
		v, err := r.ReadUint(uint(remaining))
		if err != nil {
			return err
		}
		dst[di] = byte(v) << uint(8-remaining)
		di++
	}
	return nil
}

// ReadRunID decodes the variable-width run-ordinal code of spec.md §4.1
// step 5 / §9: a value at or above 2^(rbits-1) is an escape marking that
// the field has widened by one bit, and the value follows re-encoded at
// the new width. The width starts at 17 bits and only ever grows over the
// life of the stream.
func (r *Reader) ReadRunID() (uint64, error) {
	for {
		v, err := r.ReadUint(r.rbits)
		if err != nil {
			return 0, err
		}
		if v < r.rlim {
			return v, nil
		}
		r.rbits++
		r.rlim <<= 1
	}
}
