package ntfs

import "fmt"

// usnRecordV2MinSize is the minimum byte length of a USN_RECORD_V2: the
// fixed header up to and including FileNameOffset.
const usnRecordV2MinSize = 60

// ScanOptions configures a single journal scan pass.
type ScanOptions struct {
	// StartFRN resumes enumeration from a previous scan's next cursor.
	// Zero starts from the beginning of the MFT.
	StartFRN FRN
}

// ScanResult is the outcome of one scan call: the deleted files found in
// this batch sequence, plus a cursor for resuming enumeration later.
type ScanResult struct {
	Deleted []DeletedFile
	NextFRN FRN
}

// Scan walks the USN change journal via FSCTL_ENUM_USN_DATA, collecting
// every record whose Reason includes UsnReasonFileDelete, and reconstructs
// each one's full path from the file-table entries observed during the
// same walk.
func (v *Volume) Scan(opts ScanOptions) (*ScanResult, error) {
	fileTable := make(map[FRN]FileTableEntry)
	var deleted []DeletedRecord

	cursor := opts.StartFRN
	buf := make([]byte, usnEnumBufferSize)
	batch := 0

	for {
		next, n, eof, err := v.backend.enumUSNData(buf, cursor)
		if err != nil {
			return nil, newError(ErrEnumerationFailed, "scan", v.drive, err)
		}
		if eof {
			break
		}
		batch++
		fmt.Printf("ntfs: scan batch %d: cursor=%d bytesReturned=%d\n", batch, uint64(cursor), n)

		recordBytes := buf[8:n]
		for len(recordBytes) > 0 {
			if len(recordBytes) < 4 {
				break
			}
			recordLength := leUint32(recordBytes[0:4])
			if recordLength == 0 || int(recordLength) > len(recordBytes) {
				break
			}

			rec, parseErr := parseUSNRecordV2(recordBytes[:recordLength])
			if parseErr != nil {
				fmt.Printf("ntfs: scan: skipping malformed USN record: %v\n", parseErr)
				recordBytes = recordBytes[recordLength:]
				continue
			}

			isDir := rec.FileAttributes&fileAttributeDirectory != 0
			fileTable[rec.FileRef] = FileTableEntry{
				ParentRef:   rec.ParentRef,
				Name:        rec.Name,
				IsDirectory: isDir,
			}

			if rec.Reason&UsnReasonFileDelete != 0 {
				deleted = append(deleted, DeletedRecord{
					FileRef:     rec.FileRef,
					ParentRef:   rec.ParentRef,
					Name:        rec.Name,
					IsDirectory: isDir,
					TimestampMs: rec.TimestampMs,
					Reason:      rec.Reason,
				})
			}

			recordBytes = recordBytes[recordLength:]
		}

		cursor = next
	}

	result := &ScanResult{NextFRN: cursor}
	for _, d := range deleted {
		result.Deleted = append(result.Deleted, DeletedFile{
			DeletedRecord: d,
			Path:          v.letter + `:\` + reconstructPath(fileTable, d.ParentRef, d.Name),
		})
	}

	fmt.Printf("ntfs: scan complete: %d batches, %d deleted records\n", batch, len(result.Deleted))
	return result, nil
}

// usnRecordV2 is the decoded subset of USN_RECORD_V2 this package needs.
type usnRecordV2 struct {
	FileRef        FRN
	ParentRef      FRN
	TimestampMs    float64
	Reason         uint32
	FileAttributes uint32
	Name           string
}

// parseUSNRecordV2 decodes one USN_RECORD_V2 from a framed record slice
// (record[0:4] is its own RecordLength, already validated by the caller).
func parseUSNRecordV2(record []byte) (*usnRecordV2, error) {
	if len(record) < usnRecordV2MinSize {
		return nil, fmt.Errorf("record too small: %d bytes, want at least %d", len(record), usnRecordV2MinSize)
	}

	r := newBinReader(record)

	fileRefRaw, _ := r.uint64At(8)
	parentRefRaw, _ := r.uint64At(16)
	timestamp, _ := r.uint64At(32)
	reason, _ := r.uint32At(40)
	fileAttrs, _ := r.uint32At(52)
	nameLength, _ := r.uint16At(56)
	nameOffset, _ := r.uint16At(58)

	nameBytes, ok := r.slice(int(nameOffset), int(nameLength))
	if !ok {
		return nil, fmt.Errorf("filename at offset %d length %d exceeds record bounds", nameOffset, nameLength)
	}

	return &usnRecordV2{
		FileRef:        FRN(fileRefRaw),
		ParentRef:      FRN(parentRefRaw),
		TimestampMs:    fileTimeToUnixMillis(timestamp),
		Reason:         reason,
		FileAttributes: fileAttrs,
		Name:           decodeUTF16LE(nameBytes),
	}, nil
}

// reconstructPath walks the parent chain recorded in fileTable, joining
// non-empty names with '\' (the root directory's own entry carries an
// empty name and contributes nothing), and stops at the root, a missing
// entry, the depth cap, or a reference-number cycle — whichever comes
// first. The result has no drive prefix and no leading separator.
func reconstructPath(fileTable map[FRN]FileTableEntry, parent FRN, name string) string {
	segments := []string{name}
	current := parent
	seen := map[FRN]bool{parent: true}

	for depth := 0; depth < pathReconstructionDepthCap; depth++ {
		if current == 0 {
			break
		}
		entry, ok := fileTable[current]
		if !ok {
			break
		}
		if entry.Name != "" {
			segments = append([]string{entry.Name}, segments...)
		}
		if entry.ParentRef == current || seen[entry.ParentRef] {
			break
		}
		seen[entry.ParentRef] = true
		current = entry.ParentRef
	}

	path := segments[0]
	for _, s := range segments[1:] {
		path += `\` + s
	}
	return path
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
