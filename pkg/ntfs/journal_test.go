package ntfs

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildUSNRecordV2 builds a minimal, correctly-framed USN_RECORD_V2 for
// tests: RecordLength is computed from the name's byte length.
func buildUSNRecordV2(fileRef, parentRef FRN, reason, fileAttrs uint32, name string) []byte {
	nameBytes := encodeUTF16LE(name)
	const fixedSize = 60
	recordLength := fixedSize + len(nameBytes)
	// Pad to a multiple of 8, as real USN records do; the parser doesn't
	// require this, but it matches what the OS actually emits.
	for recordLength%8 != 0 {
		recordLength++
	}

	buf := make([]byte, recordLength)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(recordLength))
	binary.LittleEndian.PutUint16(buf[4:6], 2) // MajorVersion
	binary.LittleEndian.PutUint16(buf[6:8], 0) // MinorVersion
	binary.LittleEndian.PutUint64(buf[8:16], uint64(fileRef))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(parentRef))
	binary.LittleEndian.PutUint64(buf[24:32], 1) // USN
	binary.LittleEndian.PutUint64(buf[32:40], 116444736000000000)
	binary.LittleEndian.PutUint32(buf[40:44], reason)
	binary.LittleEndian.PutUint32(buf[44:48], 0) // SourceInfo
	binary.LittleEndian.PutUint32(buf[48:52], 0) // SecurityId
	binary.LittleEndian.PutUint32(buf[52:56], fileAttrs)
	binary.LittleEndian.PutUint16(buf[56:58], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(buf[58:60], fixedSize)
	copy(buf[fixedSize:], nameBytes)

	return buf
}

func encodeUTF16LE(s string) []byte {
	// ASCII-only helper sufficient for test fixtures.
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

func TestParseUSNRecordV2(t *testing.T) {
	raw := buildUSNRecordV2(42, 5, UsnReasonFileDelete, 0, "note.txt")
	rec, err := parseUSNRecordV2(raw)
	require.NoError(t, err)
	assert.Equal(t, FRN(42), rec.FileRef)
	assert.Equal(t, FRN(5), rec.ParentRef)
	assert.Equal(t, "note.txt", rec.Name)
	assert.Equal(t, UsnReasonFileDelete, rec.Reason)
	assert.Equal(t, float64(0), rec.TimestampMs)
}

func TestParseUSNRecordV2_TooSmall(t *testing.T) {
	_, err := parseUSNRecordV2(make([]byte, 10))
	assert.Error(t, err)
}

func TestUSNFraming_TwoRecordsThenZeroLength(t *testing.T) {
	r1 := buildUSNRecordV2(1, 5, UsnReasonFileCreate, fileAttributeDirectory, "docs")
	r2 := buildUSNRecordV2(2, 1, UsnReasonFileDelete, 0, "a.txt")

	batch := append(append([]byte{}, r1...), r2...)
	batch = append(batch, 0, 0, 0, 0) // a third, zero-length record

	fileTable := make(map[FRN]FileTableEntry)
	var deletedCount int

	recordBytes := batch
	for len(recordBytes) > 0 {
		if len(recordBytes) < 4 {
			break
		}
		recordLength := leUint32(recordBytes[0:4])
		if recordLength == 0 || int(recordLength) > len(recordBytes) {
			break
		}
		rec, err := parseUSNRecordV2(recordBytes[:recordLength])
		require.NoError(t, err)
		fileTable[rec.FileRef] = FileTableEntry{ParentRef: rec.ParentRef, Name: rec.Name}
		if rec.Reason&UsnReasonFileDelete != 0 {
			deletedCount++
		}
		recordBytes = recordBytes[recordLength:]
	}

	assert.Len(t, fileTable, 2)
	assert.Equal(t, 1, deletedCount)
}

func TestReconstructPath_Simple(t *testing.T) {
	fileTable := map[FRN]FileTableEntry{
		5: {ParentRef: 0, Name: "docs", IsDirectory: true},
	}
	path := reconstructPath(fileTable, 5, "note.txt")
	assert.Equal(t, "docs\\note.txt", path)
}

func TestReconstructPath_RootHasEmptyName(t *testing.T) {
	fileTable := map[FRN]FileTableEntry{
		1: {ParentRef: 2, Name: "dir", IsDirectory: true},
		2: {ParentRef: 0, Name: "", IsDirectory: true},
	}
	path := reconstructPath(fileTable, 1, "f.txt")
	assert.Equal(t, "dir\\f.txt", path)
}

func TestReconstructPath_SelfCycleTerminates(t *testing.T) {
	fileTable := map[FRN]FileTableEntry{
		1: {ParentRef: 1, Name: "x", IsDirectory: true},
	}
	path := reconstructPath(fileTable, 1, "f.txt")
	assert.Equal(t, "x\\f.txt", path)
}

func TestReconstructPath_MissingParentTruncates(t *testing.T) {
	path := reconstructPath(map[FRN]FileTableEntry{}, 99, "orphan.txt")
	assert.Equal(t, "orphan.txt", path)
}

func TestScan_AccumulatesAcrossMultipleBatches(t *testing.T) {
	// Batch 1 introduces the "docs" directory and deletes a file inside it.
	batch1 := append(
		buildUSNRecordV2(5, 0, UsnReasonFileCreate, fileAttributeDirectory, "docs"),
		buildUSNRecordV2(6, 5, UsnReasonFileDelete, 0, "note.txt")...,
	)
	// Batch 2, enumerated on a later call, deletes a second file under the
	// same directory learned in batch 1.
	batch2 := buildUSNRecordV2(7, 5, UsnReasonFileDelete, 0, "plan.txt")

	backend := &fakeBackend{usnBatches: [][]byte{batch1, batch2}}
	v := &Volume{drive: `\\.\T:`, letter: "T", backend: backend}

	result, err := v.Scan(ScanOptions{})
	require.NoError(t, err)
	require.Len(t, result.Deleted, 2)

	byName := map[string]DeletedFile{}
	for _, d := range result.Deleted {
		byName[d.Name] = d
	}

	note, ok := byName["note.txt"]
	require.True(t, ok)
	assert.Equal(t, `T:\docs\note.txt`, note.Path)

	plan, ok := byName["plan.txt"]
	require.True(t, ok)
	assert.Equal(t, `T:\docs\plan.txt`, plan.Path)

	assert.Equal(t, FRN(2), result.NextFRN)
}

func TestReconstructPath_DepthCapClips(t *testing.T) {
	fileTable := make(map[FRN]FileTableEntry)
	for i := FRN(1); i < FRN(pathReconstructionDepthCap)+100; i++ {
		fileTable[i] = FileTableEntry{ParentRef: i + 1, Name: "d"}
	}
	assert.NotPanics(t, func() {
		reconstructPath(fileTable, 1, "f.txt")
	})
}
