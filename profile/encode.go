// Copyright 2026, the FastK-go contributors.

// Package profile implements S8-S10 of spec.md §4.8-§4.10: encoding each
// super-mer's run of k-mer counts into a compact delta/run-length byte
// stream, linking every physical super-mer record to its encoded
// profile, sorting those links back into input order, and writing the
// per-thread panel files the DO_PROFILE option produces.
package profile

import "github.com/pkg/errors"

// Encode packs a super-mer's sequence of k-mer counts (length sln+1) into
// the variable-length byte code of spec.md §4.8:
//
//	0b00xxxxxx (x>=1)  run of x copies of the previous count (max 63/byte)
//	0b01sxxxxx         small delta d in [-32,31], sign bit s
//	0b1xxxxxxx yyyyyyyy  large delta, 15-bit signed (x<<8)|y
//
// The first count is emitted as an absolute 16-bit little-endian value at
// body offset 0; if the encoded body (including that leading absolute
// count) is longer than 2 bytes, the final count is also appended as an
// absolute 16-bit value, so a decoder can cross-check its
// accumulated running count against the end of the run.
func Encode(counts []uint16) []byte {
	if len(counts) == 0 {
		return nil
	}

	var b []byte
	p := counts[0]
	putU16(&b, p)

	run := 0
	flushRun := func() {
		for run > 0 {
			chunk := run
			if chunk > 63 {
				chunk = 63
			}
			b = append(b, byte(chunk))
			run -= chunk
		}
	}

	for _, c := range counts[1:] {
		if c == p {
			run++
			continue
		}
		flushRun()
		d := int32(c) - int32(p)
		if d >= -32 && d <= 31 {
			b = append(b, 0x40|byte(d&0x3f))
		} else {
			// d must fit the 15-bit signed field (x<<8)|y; store its
			// low 15 bits two's-complement, marker bit set on x.
			v := uint16(d) & 0x7fff
			b = append(b, byte(v>>8)|0x80, byte(v))
		}
		p = c
	}
	flushRun()

	if len(b) > 2 {
		putU16(&b, p)
	}
	return b
}

func putU16(b *[]byte, v uint16) {
	*b = append(*b, byte(v), byte(v>>8))
}

// Decode is the inverse of Encode, reconstructing the n counts a profile
// fragment represents. It exists to support round-trip tests (spec.md §8
// property 4); nothing in the on-disk external interface reads an
// encoded profile back through this package.
func Decode(b []byte, n int) ([]uint16, error) {
	if n == 0 {
		return nil, nil
	}
	if len(b) < 2 {
		return nil, errors.New("profile fragment shorter than the leading absolute count")
	}
	counts := make([]uint16, 0, n)
	p := uint16(b[0]) | uint16(b[1])<<8
	counts = append(counts, p)

	i := 2
	bodyEnd := len(b)
	if len(b) > 2 {
		bodyEnd = len(b) - 2
	}
	for i < bodyEnd && len(counts) < n {
		x := b[i]
		i++
		switch {
		case x&0xc0 == 0x00:
			run := int(x)
			for j := 0; j < run && len(counts) < n; j++ {
				counts = append(counts, p)
			}
		case x&0xc0 == 0x40:
			d := int32(int8(x<<2) >> 2)
			p = uint16(int32(p)+d) & 0x7fff
			counts = append(counts, p)
		default:
			if i >= bodyEnd {
				return nil, errors.New("truncated large-delta code")
			}
			y := b[i]
			i++
			// The delta was stored mod 2^15 (counts never exceed the
			// 0x7fff saturation ceiling), so addition wraps in the same
			// ring to recover the exact count.
			v := uint16(x&0x7f)<<8 | uint16(y)
			d := int32(v)
			if v&0x4000 != 0 {
				d -= 0x8000
			}
			p = uint16(int32(p)+d) & 0x7fff
			counts = append(counts, p)
		}
	}

	if len(counts) != n {
		return nil, errors.Errorf("decoded %d counts, expected %d", len(counts), n)
	}
	return counts, nil
}
