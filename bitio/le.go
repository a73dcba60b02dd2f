package bitio

// Explicit little-endian fixed-width integer helpers, used uniformly for
// every multi-byte on-disk field instead of reinterpret-casting a Go
// integer through a byte slice -- spec.md §9's "Endianness abstraction"
// note calls this out directly: "define explicit read_le_u16/24/48/64
// helpers and use them uniformly."

// PutUintLE writes the low width*8 bits of v into dst[:width], least
// significant byte first. width must be between 1 and 8.
func PutUintLE(dst []byte, v uint64, width int) {
	for i := 0; i < width; i++ {
		dst[i] = byte(v >> (8 * uint(i)))
	}
}

// UintLE reads a width-byte (1..8) little-endian unsigned integer from
// src[:width].
func UintLE(src []byte, width int) uint64 {
	var v uint64
	for i := width - 1; i >= 0; i-- {
		v = (v << 8) | uint64(src[i])
	}
	return v
}

func ReadLEU16(src []byte) uint16 { return uint16(UintLE(src, 2)) }
func ReadLEU24(src []byte) uint32 { return uint32(UintLE(src, 3)) }
func ReadLEU32(src []byte) uint32 { return uint32(UintLE(src, 4)) }
func ReadLEU48(src []byte) uint64 { return UintLE(src, 6) }
func ReadLEU64(src []byte) uint64 { return UintLE(src, 8) }

func PutLEU16(dst []byte, v uint16) { PutUintLE(dst, uint64(v), 2) }
func PutLEU24(dst []byte, v uint32) { PutUintLE(dst, uint64(v), 3) }
func PutLEU32(dst []byte, v uint32) { PutUintLE(dst, uint64(v), 4) }
func PutLEU48(dst []byte, v uint64) { PutUintLE(dst, v, 6) }
func PutLEU64(dst []byte, v uint64) { PutUintLE(dst, v, 8) }
