package ntfs

import "fmt"

// usnEnumBufferSize is the batch size passed to FSCTL_ENUM_USN_DATA,
// matching the original worker's fixed 1MB read buffer. Declared without a
// build tag so the package's pure-decode pieces and tests build on every
// platform.
const usnEnumBufferSize = 1 << 20

// volumeBackend is the platform-specific half of Volume: raw device
// access, cluster geometry, and the two FSCTLs the scanner and record
// fetcher need. volume_windows.go backs it with real DeviceIoControl
// calls; volume_other.go backs it with an UnsupportedPlatform stub so the
// package still builds (and its pure-decode pieces still test) off
// Windows.
type volumeBackend interface {
	readAt(buf []byte, offset int64) (int, error)
	geometry() ClusterGeometry
	enumUSNData(buf []byte, startFRN FRN) (nextFRN FRN, n int, eof bool, err error)
	getNTFSFileRecord(frn FRN) ([]byte, error)
	close() error
}

// Volume is an open handle to a live NTFS volume, identified by drive
// letter (e.g. "C").
type Volume struct {
	drive    string // device path, e.g. `\\.\C:`
	letter   string // bare letter, e.g. "C"
	backend  volumeBackend
	geometry ClusterGeometry
}

// OpenVolume opens the NTFS volume mounted at the given drive letter.
// drive may be given as "C", "C:" or "C:\\"; all are normalized to the
// device path the backend expects.
func OpenVolume(drive string) (*Volume, error) {
	devicePath, letter := normalizeDriveLetter(drive)
	if devicePath == "" {
		return nil, newError(ErrInvalidArgument, "openVolume", drive, fmt.Errorf("empty or malformed drive letter"))
	}

	backend, err := newVolumeBackend(devicePath)
	if err != nil {
		if ntfsErr, ok := err.(*Error); ok {
			return nil, ntfsErr
		}
		return nil, newError(ErrVolumeOpenFailed, "openVolume", drive, err)
	}

	geom := backend.geometry()
	fmt.Printf("ntfs: opened volume %s: bytesPerSector=%d sectorsPerCluster=%d clusterSize=%d\n",
		devicePath, geom.BytesPerSector, geom.SectorsPerCluster, geom.ClusterSize())

	return &Volume{drive: devicePath, letter: letter, backend: backend, geometry: geom}, nil
}

// Close releases the underlying device handle.
func (v *Volume) Close() error {
	return v.backend.close()
}

// Drive returns the normalized device path this volume was opened with.
func (v *Volume) Drive() string {
	return v.drive
}

// Letter returns the bare upper-case drive letter, e.g. "C".
func (v *Volume) Letter() string {
	return v.letter
}

// Geometry returns the volume's cluster geometry.
func (v *Volume) Geometry() ClusterGeometry {
	return v.geometry
}

// ReadAt reads raw bytes from the volume at a byte offset.
func (v *Volume) ReadAt(buf []byte, offset int64) (int, error) {
	return v.backend.readAt(buf, offset)
}

// normalizeDriveLetter accepts "C", "C:", "C:\\" or "\\\\.\\C:" and returns
// the device path form the backend expects plus the bare upper-case
// letter, or ("", "") if drive does not contain a usable letter.
func normalizeDriveLetter(drive string) (devicePath string, letter string) {
	s := drive
	for len(s) > 0 && (s[0] == '\\' || s[0] == '/') {
		s = s[1:]
	}
	if len(s) >= 2 && s[0] == '.' && (s[1] == '\\' || s[1] == '/') {
		s = s[2:]
	}
	if len(s) == 0 {
		return "", ""
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c = c - 'a' + 'A'
	}
	if c < 'A' || c > 'Z' {
		return "", ""
	}
	return fmt.Sprintf(`\\.\%c:`, c), string(c)
}
