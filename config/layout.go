package config

// Layout holds the byte-width constants that spec.md §3 derives from K (and,
// when profiling, from the super-mer/k-mer ordinal ranges). The teacher's C
// source computes these as process-global compile-time-ish constants
// (KMER_BYTES, SMER_WORD, ...); since K is a runtime parameter here, Layout
// is computed once per run and passed explicitly to every worker instead of
// being threaded through package-level globals (spec.md §9 "Global
// configuration").
type Layout struct {
	K        int
	MaxSuper int

	// SlenBytes/SlenBits hold a super-mer's length field N.
	SlenBytes int
	SlenBits  uint

	// RunBytes/RunBits hold a super-mer's run-id (profiling only).
	RunBytes int
	RunBits  uint

	// KmaxBytes holds a k-mer's ordinal stream index (profiling only).
	KmaxBytes int

	// PlenBytes holds an encoded profile fragment's byte length.
	PlenBytes int

	// SmerBytes is byte 0 (reserved) plus zero-padded packed sequence.
	SmerBytes int
	// SmerWord is the full super-mer record width.
	SmerWord int

	// KmerBytes is byte 0 (reserved) plus the packed canonical k-mer.
	KmerBytes int
	// KmerWord is the full weighted-k-mer record width.
	KmerWord int

	// CmerWord is the count/ordinal-index projection record width.
	CmerWord int

	// KClip masks the unused low bits of a k-mer's final packed byte.
	KClip byte

	DoProfile bool
}

var kclipTable = [4]byte{0xff, 0xc0, 0xf0, 0xfc}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Layout derives the byte-width constants for this configuration.
func (c *Config) Layout() Layout {
	l := Layout{
		K:         c.K,
		MaxSuper:  c.MaxSuper,
		SlenBytes: 2,
		SlenBits:  16,
		RunBytes:  5,
		RunBits:   40,
		KmaxBytes: 5,
		PlenBytes: 2,
		DoProfile: c.DoProfile,
	}

	seqBytes := ceilDiv((l.MaxSuper-1)+l.K, 4)
	l.SmerBytes = 1 + seqBytes
	l.SmerWord = l.SmerBytes + l.SlenBytes
	if l.DoProfile {
		l.SmerWord += l.RunBytes
	}

	l.KmerBytes = 1 + ceilDiv(l.K, 4)
	l.KmerWord = l.KmerBytes + 2
	if l.DoProfile {
		l.KmerWord += l.KmaxBytes
	}
	l.CmerWord = l.KmaxBytes + 1

	l.KClip = kclipTable[l.K%4]

	return l
}
