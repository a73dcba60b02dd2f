package profile

import (
	"github.com/kshedden/fastk/bitio"
	"github.com/kshedden/fastk/config"
	"github.com/kshedden/fastk/radix"
	"github.com/kshedden/fastk/supermer"
)

// LinkWord returns the width of a profile-link record for a given
// layout: an 8-byte header (profile-index<<1 | joined-flag) followed by
// the run-id payload (spec.md §4.8's "SMER_WORD - (SMER_BYTES +
// SLEN_BYTES) payload bytes").
func LinkWord(layout config.Layout) int {
	return 8 + layout.RunBytes
}

// Links is a flat array of fixed-width profile-link records.
type Links struct {
	Data   []byte
	Layout config.Layout
}

// NewLinks allocates a Links array able to hold n records.
func NewLinks(n int64, layout config.Layout) Links {
	return Links{Data: make([]byte, n*int64(LinkWord(layout))), Layout: layout}
}

func (l Links) Len() int {
	w := LinkWord(l.Layout)
	if w == 0 {
		return 0
	}
	return len(l.Data) / w
}

func (l Links) At(i int) []byte {
	w := LinkWord(l.Layout)
	return l.Data[i*w : (i+1)*w]
}

// Header returns the decoded (profileIndex, joined) pair stored in the
// leading 8 bytes of link i.
func (l Links) Header(i int) (profileIndex int64, joined bool) {
	raw := bitio.ReadLEU64(l.At(i))
	return int64(raw >> 1), raw&1 != 0
}

func (l Links) setHeader(i int, profileIndex int64, joined bool) {
	var v uint64 = uint64(profileIndex) << 1
	if joined {
		v |= 1
	}
	bitio.PutLEU64(l.At(i), v)
}

// RunID returns the RunBytes payload of link i (the run-id of the
// physical super-mer record this link points back to).
func (l Links) RunID(i int) []byte {
	return l.At(i)[8:]
}

func (l Links) setRunID(i int, raw []byte) {
	copy(l.At(i)[8:], raw)
}

// BuildLinks implements S8's second half (spec.md §4.8 last paragraph):
// for every physical super-mer record, emits a link pointing back at the
// profile index assigned to its run (profileIndexOf returns the shared
// profile index for the run starting at record index `runStart`), moving
// its joined flag from the record's stashed high bit into the link's low
// bit and clearing it on the record.
func BuildLinks(sorted supermer.Records, profileIndexOf func(runStart int) int64) Links {
	layout := sorted.Layout
	n := sorted.Len()
	links := NewLinks(int64(n), layout)

	for i := 0; i < n; {
		end := sorted.RunExtent(i)
		idx := profileIndexOf(i)
		for j := i; j < end; j++ {
			id, joined := sorted.RunID(j)
			if joined {
				sorted.ClearJoined(j)
			}
			links.setHeader(j, idx, joined)
			var raw [8]byte
			bitio.PutUintLE(raw[:], id, layout.RunBytes)
			links.setRunID(j, raw[:layout.RunBytes])
		}
		i = end
	}

	return links
}

// SortLinks implements S9 (spec.md §4.9): an LSD radix sort over the
// run-id suffix of every link record, so that links end up ordered the
// way the original input stream (and therefore the eventual profile
// output file) expects -- the same ping-pong engine S2/S4/S7 use.
func SortLinks(links, aux Links, workers int) Links {
	layout := links.Layout
	width := LinkWord(layout)
	positions := make([]int, 0, layout.RunBytes)
	// The run-id payload is little-endian, so LSD order walks offsets
	// upward.
	for p := 8; p < 8+layout.RunBytes; p++ {
		positions = append(positions, p)
	}

	n := links.Len()
	if n == 0 {
		return links
	}
	out := radix.LSDSort(n, width, positions, links.Data, aux.Data)
	if len(aux.Data) > 0 && &out[0] == &aux.Data[0] {
		return aux
	}
	return links
}
