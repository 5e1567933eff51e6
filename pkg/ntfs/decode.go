package ntfs

import (
	"encoding/binary"
	"unicode/utf16"
)

// windowsTick is the number of 100-nanosecond intervals per millisecond.
const windowsTick = 10000

// windowsToUnixEpochMs is the offset, in milliseconds, between the Windows
// FILETIME epoch (1601-01-01) and the Unix epoch (1970-01-01).
const windowsToUnixEpochMs = 11644473600000

// fileTimeToUnixMillis converts a FILETIME (100ns ticks since 1601-01-01)
// into milliseconds since the Unix epoch. Values before the Unix epoch
// produce a negative result.
func fileTimeToUnixMillis(fileTime uint64) float64 {
	return float64(fileTime/windowsTick) - windowsToUnixEpochMs
}

// decodeUTF16LE decodes a little-endian UTF-16 byte slice to a Go string,
// correctly reassembling surrogate pairs. Odd trailing bytes are ignored.
func decodeUTF16LE(data []byte) string {
	n := len(data) / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = binary.LittleEndian.Uint16(data[i*2 : i*2+2])
	}
	return string(utf16.Decode(units))
}

// binReader reads fixed-width little-endian integers from a byte slice at
// given offsets, without panicking: every accessor reports whether the
// requested range was in bounds.
type binReader struct {
	data []byte
}

func newBinReader(data []byte) *binReader {
	return &binReader{data: data}
}

func (r *binReader) inBounds(offset, length int) bool {
	return offset >= 0 && length >= 0 && offset+length <= len(r.data)
}

func (r *binReader) slice(offset, length int) ([]byte, bool) {
	if !r.inBounds(offset, length) {
		return nil, false
	}
	return r.data[offset : offset+length], true
}

func (r *binReader) byteAt(offset int) (byte, bool) {
	b, ok := r.slice(offset, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *binReader) uint16At(offset int) (uint16, bool) {
	b, ok := r.slice(offset, 2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func (r *binReader) uint32At(offset int) (uint32, bool) {
	b, ok := r.slice(offset, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (r *binReader) uint64At(offset int) (uint64, bool) {
	b, ok := r.slice(offset, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}
