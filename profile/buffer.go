package profile

import (
	"github.com/kshedden/fastk/bitio"
	"github.com/kshedden/fastk/config"
)

// Buffer is the growing in-place profile buffer of spec.md §4.8's closing
// paragraph: every encoded profile fragment is appended preceded by its
// PLEN_BYTES length prefix, and the byte offset it was appended at is
// handed back as that profile's index -- the value BuildLinks stores
// (shifted) in every link record pointing at it, and that the S10 writer
// later seeks to.
type Buffer struct {
	Data   []byte
	Layout config.Layout
}

// NewBuffer returns an empty Buffer, with capacityHint bytes of backing
// array pre-reserved to cut down on reallocation during S8.
func NewBuffer(layout config.Layout, capacityHint int) *Buffer {
	return &Buffer{Data: make([]byte, 0, capacityHint), Layout: layout}
}

// Append stores encoded (an Encode() result) and returns the offset at
// which it was written -- the profile index referenced from link
// records.
func (b *Buffer) Append(encoded []byte) int64 {
	idx := int64(len(b.Data))
	var lenBuf [8]byte
	bitio.PutUintLE(lenBuf[:], uint64(len(encoded)), b.Layout.PlenBytes)
	b.Data = append(b.Data, lenBuf[:b.Layout.PlenBytes]...)
	b.Data = append(b.Data, encoded...)
	return idx
}

// At returns the encoded profile bytes stored at idx (the slice
// originally passed to Append), read back via its PLEN_BYTES length
// prefix.
func (b *Buffer) At(idx int64) []byte {
	plen := int(bitio.UintLE(b.Data[idx:], b.Layout.PlenBytes))
	start := int(idx) + b.Layout.PlenBytes
	return b.Data[start : start+plen]
}
