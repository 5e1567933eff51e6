package ntfs

import "fmt"

const mftRecordMagic = 0x454C4946 // 'FILE', little-endian

const (
	mftRecordInUse      uint16 = 0x0001
	mftRecordIsDirectory uint16 = 0x0002
)

// fileRecordHeaderSize is the fixed portion of a FILE_RECORD_HEADER, up to
// and including MftRecordNumber.
const fileRecordHeaderSize = 48

// GetFileRecord fetches the raw MFT record for frn via
// FSCTL_GET_NTFS_FILE_RECORD and parses it.
//
// The update sequence array fix-up is not applied here: the buffer
// FSCTL_GET_NTFS_FILE_RECORD returns is parsed as-is, as the original
// implementation this package is modeled on also did. A buffer that still
// carries update-sequence placeholders at its sector boundaries is parsed
// with those bytes unreplaced, wherever they fall.
func (v *Volume) GetFileRecord(frn FRN) (*FileRecordDetails, error) {
	raw, err := v.backend.getNTFSFileRecord(frn)
	if err != nil {
		return nil, newError(ErrRecordFetchFailed, "getFileRecord", v.drive, err)
	}

	details, err := parseFileRecord(raw)
	if err != nil {
		return nil, newError(ErrParseFailed, "getFileRecord", v.drive, err)
	}
	details.Geometry = v.geometry

	return details, nil
}

// parseFileRecord decodes a raw MFT file record's header and walks its
// attribute list.
func parseFileRecord(data []byte) (*FileRecordDetails, error) {
	r := newBinReader(data)

	magic, ok := r.uint32At(0)
	if !ok {
		return nil, fmt.Errorf("record too small for header: %d bytes", len(data))
	}
	if magic != mftRecordMagic {
		return nil, fmt.Errorf("bad record signature: %#x", magic)
	}

	flags, ok := r.uint16At(22)
	if !ok {
		return nil, fmt.Errorf("record too small for flags field")
	}
	firstAttrOffset, ok := r.uint16At(20)
	if !ok {
		return nil, fmt.Errorf("record too small for FirstAttributeOffset field")
	}
	hardLinkCount, _ := r.uint16At(18)
	baseRecordRaw, _ := r.uint64At(32)

	details := &FileRecordDetails{
		InUse:         flags&mftRecordInUse != 0,
		IsDirectory:   flags&mftRecordIsDirectory != 0,
		BaseReference: FRN(baseRecordRaw),
		HardLinkCount: hardLinkCount,
		Flags:         flags,
	}

	attrs, err := parseAttributes(r, int(firstAttrOffset))
	if err != nil {
		return nil, err
	}
	details.Attributes = attrs

	return details, nil
}

// parseAttributes walks the attribute records starting at offset until it
// hits the 0xFFFFFFFF terminator, runs past the end of data, or hits a
// corrupt attribute. Corruption stops the walk rather than failing it:
// whatever attributes were already collected are returned with a nil error,
// matching what a live, possibly partially-overwritten MFT record demands.
func parseAttributes(r *binReader, offset int) ([]AttributeInfo, error) {
	var attrs []AttributeInfo

	for {
		typeCode, ok := r.uint32At(offset)
		if !ok {
			break
		}
		if typeCode == attrListTerminator {
			break
		}

		length, ok := r.uint32At(offset + 4)
		if !ok || length == 0 {
			break
		}

		recordBytes, ok := r.slice(offset, int(length))
		if !ok {
			break
		}

		attr, err := parseAttribute(recordBytes)
		if err != nil {
			break
		}
		attrs = append(attrs, *attr)

		offset += int(length)
	}

	return attrs, nil
}

// parseAttribute decodes one ATTRIBUTE_RECORD_HEADER and its resident or
// non-resident payload.
func parseAttribute(record []byte) (*AttributeInfo, error) {
	r := newBinReader(record)

	typeCode, _ := r.uint32At(0)
	nonResidentFlag, ok := r.byteAt(8)
	if !ok {
		return nil, fmt.Errorf("record too small for NonResident flag")
	}
	nameLength, _ := r.byteAt(9)
	nameOffset, _ := r.uint16At(10)

	info := &AttributeInfo{
		Type:        typeCode,
		TypeName:    attributeTypeName(typeCode),
		NonResident: nonResidentFlag != 0,
	}

	if nameLength > 0 {
		nameBytes, ok := r.slice(int(nameOffset), int(nameLength)*2)
		if !ok {
			return nil, fmt.Errorf("attribute name at offset %d exceeds bounds", nameOffset)
		}
		info.Name = decodeUTF16LE(nameBytes)
	}

	if !info.NonResident {
		valueLength, _ := r.uint32At(16)
		valueOffset, _ := r.uint16At(20)
		value, ok := r.slice(int(valueOffset), int(valueLength))
		if !ok {
			return nil, fmt.Errorf("resident value at offset %d length %d exceeds bounds", valueOffset, valueLength)
		}
		info.DataSize = uint64(valueLength)
		info.AllocatedSize = uint64(valueLength)
		if valueLength > 0 {
			info.ResidentData = append([]byte(nil), value...)
		}
		return info, nil
	}

	lowestVCNRaw, ok := r.uint64At(16)
	if !ok {
		return nil, fmt.Errorf("non-resident header too small for LowestVcn")
	}
	runOffset, ok := r.uint16At(32)
	if !ok {
		return nil, fmt.Errorf("non-resident header too small for DataRunOffset")
	}
	allocatedSize, _ := r.uint64At(40)
	dataSize, _ := r.uint64At(48)

	info.DataSize = dataSize
	info.AllocatedSize = allocatedSize

	runBytes, ok := r.slice(int(runOffset), len(record)-int(runOffset))
	if !ok {
		return nil, fmt.Errorf("run list offset %d exceeds attribute bounds", runOffset)
	}

	runs, err := decodeRunList(runBytes, int64(lowestVCNRaw))
	if err != nil {
		return nil, fmt.Errorf("run list: %v", err)
	}
	info.Runs = runs

	return info, nil
}
