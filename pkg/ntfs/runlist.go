package ntfs

import "fmt"

// readSignedValue reads a little-endian two's-complement integer of the
// given byte width (0-8) from data and sign-extends it to 64 bits.
func readSignedValue(data []byte) int64 {
	var value uint64
	for i, b := range data {
		value |= uint64(b) << uint(i*8)
	}
	size := len(data)
	if size > 0 && size < 8 && data[size-1]&0x80 != 0 {
		value |= ^uint64(0) << uint(size*8)
	}
	return int64(value)
}

// readUnsignedValue reads a little-endian unsigned integer of the given
// byte width (0-8) from data.
func readUnsignedValue(data []byte) uint64 {
	var value uint64
	for i, b := range data {
		value |= uint64(b) << uint(i*8)
	}
	return value
}

// decodeRunList decodes an NTFS non-resident attribute run list: a
// sequence of header-byte-prefixed (length, offset) pairs, terminated by a
// zero header byte or end of data. Offsets are relative to the previous
// run's LCN (sparse runs carry no offset field and leave the running LCN
// unchanged). startVCN is the attribute's LowestVcn.
func decodeRunList(data []byte, startVCN int64) ([]DataRunSegment, error) {
	var runs []DataRunSegment
	offset := 0
	currentVCN := startVCN
	var currentLCN int64

	for offset < len(data) {
		header := data[offset]
		if header == 0 {
			break
		}

		lengthSize := int(header & 0x0F)
		offsetSize := int((header >> 4) & 0x0F)
		if lengthSize == 0 {
			break
		}
		offset++

		if offset+lengthSize+offsetSize > len(data) {
			return nil, fmt.Errorf("run list truncated at offset %d", offset-1)
		}

		runLength := int64(readUnsignedValue(data[offset : offset+lengthSize]))
		offset += lengthSize

		sparse := offsetSize == 0
		if !sparse {
			delta := readSignedValue(data[offset : offset+offsetSize])
			currentLCN += delta
		}
		offset += offsetSize

		runs = append(runs, DataRunSegment{
			VCNStart: currentVCN,
			LCN:      currentLCN,
			Length:   runLength,
			Sparse:   sparse,
		})
		currentVCN += runLength
	}

	return runs, nil
}
