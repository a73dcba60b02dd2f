// Copyright 2026, the FastK-go contributors.

// Package dna implements the 2-bit DNA symbol encoding and canonical-form
// arithmetic of spec.md §3-§4.3: packing/unpacking symbols, the
// reverse-complement byte lookup, and canonical k-mer selection.
package dna

// Symbol codes, matching the teacher's debug table ('a','c','g','t' at
// indices 0-3 in count.c's DNA[4]).
const (
	A = 0
	C = 1
	G = 2
	T = 3
)

var baseToCode = [256]int8{}
var codeToBase = [4]byte{'A', 'C', 'G', 'T'}

func init() {
	for i := range baseToCode {
		baseToCode[i] = -1
	}
	baseToCode['A'], baseToCode['a'] = A, A
	baseToCode['C'], baseToCode['c'] = C, C
	baseToCode['G'], baseToCode['g'] = G, G
	baseToCode['T'], baseToCode['t'] = T, T
}

// Encode returns the 2-bit code for a base letter, or -1 if it is not one
// of A/C/G/T (case-insensitive).
func Encode(base byte) int8 {
	return baseToCode[base]
}

// Decode returns the base letter for a 2-bit code (0-3).
func Decode(code byte) byte {
	return codeToBase[code&3]
}

// Comp is the 256-entry reverse-complement byte lookup of spec.md §3: for
// a byte packing 4 symbols MSB-first, Comp[b] is the byte holding their
// complements (A<->T, C<->G) in reversed order -- i.e. Comp[b] is exactly
// the packed reverse complement of the 4-symbol run b, when later byte
// array order is also reversed. Grounded on count.c's nested-loop
// initialization of Comp[256]; expressed here as the equivalent direct bit
// formula instead of four nested counting loops.
var Comp [256]byte

func init() {
	for i := 0; i < 256; i++ {
		var v byte
		for shift := uint(0); shift < 8; shift += 2 {
			sym := (byte(i) >> shift) & 3
			comp := 3 - sym
			v |= comp << (6 - shift)
		}
		Comp[i] = v
	}
}

// KClip masks the unused low bits of the final byte of a packed K-symbol
// sequence, indexed by K mod 4. Grounded on count.c's kclip[4] table.
var kclipTable = [4]byte{0xff, 0xc0, 0xf0, 0xfc}

// KClip returns the final-byte mask for a k-mer of length k.
func KClip(k int) byte {
	return kclipTable[k%4]
}

// PackString packs an ACGT string into 2-bits-per-symbol, MSB first,
// zero-padding unused low bits of the final byte.
func PackString(seq string) []byte {
	n := len(seq)
	dst := make([]byte, (n+3)/4)
	for j := 0; j < n; j++ {
		code := Encode(seq[j])
		if code < 0 {
			code = 0
		}
		byteIdx := j / 4
		shift := uint(6 - 2*(j%4))
		dst[byteIdx] |= byte(code) << shift
	}
	return dst
}

// UnpackString unpacks n symbols from a packed byte slice starting at
// symbol offset 0.
func UnpackString(packed []byte, n int) string {
	out := make([]byte, n)
	for j := 0; j < n; j++ {
		byteIdx := j / 4
		shift := uint(6 - 2*(j%4))
		code := (packed[byteIdx] >> shift) & 3
		out[j] = Decode(code)
	}
	return string(out)
}

// Symbol extracts the 2-bit code at symbol offset s from a packed byte
// slice (symbol 0 occupies the top 2 bits of packed[0]).
func Symbol(packed []byte, s int) byte {
	byteIdx := s / 4
	shift := uint(6 - 2*(s%4))
	return (packed[byteIdx] >> shift) & 3
}

// ExtractKmer extracts the k-symbol forward subsequence starting at
// symbol offset off within packed (whose symbol 0 is the top 2 bits of
// packed[0]) into dst, which must be ceil(k/4) bytes. The final byte is
// masked by KClip(k).
func ExtractKmer(packed []byte, off, k int, dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
	for j := 0; j < k; j++ {
		sym := Symbol(packed, off+j)
		byteIdx := j / 4
		shift := uint(6 - 2*(j%4))
		dst[byteIdx] |= sym << shift
	}
	dst[len(dst)-1] &= KClip(k)
}

// ReverseComplement writes the reverse complement of the k-symbol packed
// sequence src (ceil(k/4) bytes, symbol 0 at the top of src[0]) into dst
// (same size), masking the final byte by KClip(k).
//
// The teacher's C source computes this via the Comp[256] byte lookup
// applied to whole, byte-aligned runs and a pair of shift counters (fs/rs)
// to patch up sub-byte misalignment (count.c's kmer_list_thread). Since Go
// has no equivalent to reinterpret-casting an int across a misaligned byte
// window, and spec.md §9 explicitly asks for explicit helpers over that
// kind of casting trick, this does the equivalent work one symbol at a
// time; Comp is still the primitive a caller reaches for when it does have
// a whole aligned byte to flip (see ComplementByte).
func ReverseComplement(src []byte, k int, dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
	for j := 0; j < k; j++ {
		sym := Symbol(src, k-1-j)
		comp := byte(3 - sym)
		byteIdx := j / 4
		shift := uint(6 - 2*(j%4))
		dst[byteIdx] |= comp << shift
	}
	dst[len(dst)-1] &= KClip(k)
}

// ComplementByte returns the reverse complement of the 4 symbols packed
// into a single aligned byte, via the Comp lookup table.
func ComplementByte(b byte) byte {
	return Comp[b]
}

// Canonical returns the lexicographically smaller of the k-symbol forward
// subsequence at symbol offset off and its reverse complement (spec.md
// §4.3), along with whether the forward form was chosen. The returned
// slice is always freshly allocated (ceil(k/4) bytes).
func Canonical(packed []byte, off, k int) (canon []byte, isForward bool) {
	kbytes := (k + 3) / 4
	fwd := make([]byte, kbytes)
	ExtractKmer(packed, off, k, fwd)

	revOf := make([]byte, kbytes)
	extractReverseComplement(packed, off, k, revOf)

	for i := 0; i < kbytes; i++ {
		if fwd[i] != revOf[i] {
			if fwd[i] < revOf[i] {
				return fwd, true
			}
			return revOf, false
		}
	}
	// Self-reverse-complementary (palindromic): canonical form is
	// either one; forward is the conventional choice (spec.md §8
	// scenario C).
	return fwd, true
}

// extractReverseComplement computes the reverse complement of the k-mer
// starting at symbol offset off within packed, without requiring a
// byte-aligned sub-slice.
func extractReverseComplement(packed []byte, off, k int, dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
	for j := 0; j < k; j++ {
		sym := Symbol(packed, off+(k-1-j))
		comp := byte(3 - sym)
		byteIdx := j / 4
		shift := uint(6 - 2*(j%4))
		dst[byteIdx] |= comp << shift
	}
	dst[len(dst)-1] &= KClip(k)
}
