package ntfs

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory volumeBackend backed by a byte slice standing
// in for raw volume contents, so recovery can be tested without a live
// Windows handle. It can also be seeded with a sequence of USN enumeration
// batches to drive Scan() end-to-end without a live journal.
type fakeBackend struct {
	data []byte

	// usnBatches holds the raw USN_RECORD_V2 bytes for each successive
	// enumUSNData call, in order; usnCalls tracks how many have been
	// consumed. Each call echoes back a synthetic advancing cursor ahead
	// of its own batch's bytes, mirroring FSCTL_ENUM_USN_DATA's framing.
	usnBatches [][]byte
	usnCalls   int
}

func (f *fakeBackend) readAt(buf []byte, offset int64) (int, error) {
	if offset < 0 || offset >= int64(len(f.data)) {
		return 0, nil
	}
	n := copy(buf, f.data[offset:])
	return n, nil
}

func (f *fakeBackend) geometry() ClusterGeometry { return ClusterGeometry{BytesPerSector: 512, SectorsPerCluster: 8} }
func (f *fakeBackend) enumUSNData(buf []byte, startFRN FRN) (FRN, int, bool, error) {
	if f.usnCalls >= len(f.usnBatches) {
		return startFRN, 0, true, nil
	}
	batch := f.usnBatches[f.usnCalls]
	f.usnCalls++
	nextFRN := startFRN + 1

	binary.LittleEndian.PutUint64(buf[:8], uint64(nextFRN))
	n := copy(buf[8:], batch)
	return nextFRN, 8 + n, false, nil
}
func (f *fakeBackend) getNTFSFileRecord(frn FRN) ([]byte, error) { return nil, nil }
func (f *fakeBackend) close() error                              { return nil }

func newTestVolume(volumeImage []byte) *Volume {
	return &Volume{
		drive:   `\\.\T:`,
		letter:  "T",
		backend: &fakeBackend{data: volumeImage},
	}
}

func fillCluster(image []byte, clusterIndex int, clusterSize int, fill byte) {
	start := clusterIndex * clusterSize
	for i := 0; i < clusterSize; i++ {
		image[start+i] = fill
	}
}

func TestRecoverDataRuns_ByteExact(t *testing.T) {
	const clusterSize = 4096
	image := make([]byte, 300*clusterSize)
	fillCluster(image, 100, clusterSize, 0xAA)
	fillCluster(image, 101, clusterSize, 0xBB)
	fillCluster(image, 200, clusterSize, 0xCC)

	v := newTestVolume(image)
	runs := []DataRunSegment{
		{VCNStart: 0, LCN: 100, Length: 2, Sparse: false},
		{VCNStart: 2, LCN: 200, Length: 1, Sparse: false},
	}

	out := tempOutputPath(t)
	err := v.RecoverDataRuns(runs, clusterSize, 3*clusterSize, out)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, got, 3*clusterSize)
	assertAllBytes(t, got[0:clusterSize], 0xAA)
	assertAllBytes(t, got[clusterSize:2*clusterSize], 0xBB)
	assertAllBytes(t, got[2*clusterSize:3*clusterSize], 0xCC)
}

func TestRecoverDataRuns_SparseRunIsZeroFilled(t *testing.T) {
	const clusterSize = 4096
	v := newTestVolume(nil) // no volume data backs a sparse run

	runs := []DataRunSegment{
		{VCNStart: 0, LCN: 0, Length: 2, Sparse: true},
	}

	out := tempOutputPath(t)
	err := v.RecoverDataRuns(runs, clusterSize, 2*clusterSize, out)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, got, 2*clusterSize)
	assertAllBytes(t, got, 0x00)
}

func TestRecoverDataRuns_TrailingGapPadded(t *testing.T) {
	const clusterSize = 4096
	image := make([]byte, 10*clusterSize)
	fillCluster(image, 1, clusterSize, 0x11)

	v := newTestVolume(image)
	runs := []DataRunSegment{
		{VCNStart: 0, LCN: 1, Length: 1, Sparse: false},
	}

	const fileSize = 5000
	out := tempOutputPath(t)
	err := v.RecoverDataRuns(runs, clusterSize, fileSize, out)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, got, fileSize)
	assertAllBytes(t, got[:clusterSize], 0x11)
	assertAllBytes(t, got[clusterSize:], 0x00)
}

func TestRecoverDataRuns_RejectsZeroClusterSize(t *testing.T) {
	v := newTestVolume(nil)
	err := v.RecoverDataRuns(nil, 0, 100, tempOutputPath(t))
	assert.Error(t, err)
}

func TestRecoverDataRuns_RejectsNegativeFileSize(t *testing.T) {
	v := newTestVolume(nil)
	err := v.RecoverDataRuns(nil, 4096, -1, tempOutputPath(t))
	assert.Error(t, err)
}

func TestRecoverDataRuns_RejectsZeroFileSize(t *testing.T) {
	v := newTestVolume(nil)
	err := v.RecoverDataRuns(nil, 4096, 0, tempOutputPath(t))
	assert.Error(t, err)
}

func assertAllBytes(t *testing.T, b []byte, want byte) {
	t.Helper()
	for i, v := range b {
		if v != want {
			t.Fatalf("byte %d: got %#x, want %#x", i, v, want)
			return
		}
	}
}

// tempOutputPath returns a fresh temp file path for a test's recovery output.
func tempOutputPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return dir + string(os.PathSeparator) + "recovered.bin"
}
