//go:build windows

package ntfs

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// FSCTL codes consumed by this file. x/sys/windows does not export these
// (they're NTFS-specific, not general Win32), so they're declared here the
// same way the original native addon hardcodes them.
const (
	fsctlEnumUSNData       = 0x000900B3
	fsctlGetNTFSFileRecord = 0x00090068
)

// usnEnumDataV0 mirrors MFT_ENUM_DATA_V0: the input struct for
// FSCTL_ENUM_USN_DATA.
type usnEnumDataV0 struct {
	StartFileReferenceNumber uint64
	LowUsn                   int64
	HighUsn                  int64
}

// windowsVolume backs volumeBackend with real DeviceIoControl calls
// against a live Windows NTFS volume.
type windowsVolume struct {
	handle   windows.Handle
	geom     ClusterGeometry
	rootPath string
}

func newVolumeBackend(drivePath string) (volumeBackend, error) {
	pathPtr, err := windows.UTF16PtrFromString(drivePath)
	if err != nil {
		return nil, fmt.Errorf("invalid device path %q: %v", drivePath, err)
	}

	handle, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("CreateFile %s: %v", drivePath, err)
	}

	geom, err := queryClusterGeometry(drivePath)
	if err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("GetDiskFreeSpace %s: %v", drivePath, err)
	}

	return &windowsVolume{handle: handle, geom: geom, rootPath: drivePath}, nil
}

// queryClusterGeometry calls GetDiskFreeSpaceW against the drive's root
// path, e.g. "C:\\" given a "\\.\C:" device path.
func queryClusterGeometry(drivePath string) (ClusterGeometry, error) {
	root := drivePath
	if len(root) >= 4 && root[:4] == `\\.\` {
		root = root[4:]
	}
	if len(root) > 0 && root[len(root)-1] != '\\' {
		root += `\`
	}

	rootPtr, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return ClusterGeometry{}, err
	}

	var sectorsPerCluster, bytesPerSector, freeClusters, totalClusters uint32
	if err := windows.GetDiskFreeSpace(rootPtr, &sectorsPerCluster, &bytesPerSector, &freeClusters, &totalClusters); err != nil {
		return ClusterGeometry{}, err
	}

	return ClusterGeometry{BytesPerSector: bytesPerSector, SectorsPerCluster: sectorsPerCluster}, nil
}

func (w *windowsVolume) geometry() ClusterGeometry {
	return w.geom
}

func (w *windowsVolume) readAt(buf []byte, offset int64) (int, error) {
	var overlapped windows.Overlapped
	overlapped.Offset = uint32(offset)
	overlapped.OffsetHigh = uint32(offset >> 32)

	var n uint32
	err := windows.ReadFile(w.handle, buf, &n, &overlapped)
	if err != nil {
		return int(n), fmt.Errorf("ReadFile at offset %d: %v", offset, err)
	}
	return int(n), nil
}

func (w *windowsVolume) enumUSNData(buf []byte, startFRN FRN) (FRN, int, bool, error) {
	input := usnEnumDataV0{
		StartFileReferenceNumber: uint64(startFRN),
		LowUsn:                   0,
		HighUsn:                  1<<63 - 1,
	}

	inBuf := (*[unsafe.Sizeof(usnEnumDataV0{})]byte)(unsafe.Pointer(&input))[:]

	var bytesReturned uint32
	err := windows.DeviceIoControl(
		w.handle,
		fsctlEnumUSNData,
		&inBuf[0],
		uint32(len(inBuf)),
		&buf[0],
		uint32(len(buf)),
		&bytesReturned,
		nil,
	)
	if err == windows.ERROR_HANDLE_EOF {
		return startFRN, 0, true, nil
	}
	if err != nil {
		return startFRN, 0, false, fmt.Errorf("DeviceIoControl FSCTL_ENUM_USN_DATA: %v", err)
	}
	// A batch of exactly 8 bytes is just the echoed next-FRN header with
	// no records behind it; it is returned below as an empty batch and
	// enumeration continues from the new cursor. Anything shorter can't
	// even hold that header and ends enumeration like ERROR_HANDLE_EOF.
	// Neither is an error.
	if bytesReturned < 8 {
		return startFRN, 0, true, nil
	}

	nextFRN := FRN(binary.LittleEndian.Uint64(buf[:8]))
	return nextFRN, int(bytesReturned), false, nil
}

func (w *windowsVolume) getNTFSFileRecord(frn FRN) ([]byte, error) {
	input := uint64(frn)
	inBuf := (*[8]byte)(unsafe.Pointer(&input))[:]

	outBuf := make([]byte, 1<<20)
	var bytesReturned uint32
	err := windows.DeviceIoControl(
		w.handle,
		fsctlGetNTFSFileRecord,
		&inBuf[0],
		uint32(len(inBuf)),
		&outBuf[0],
		uint32(len(outBuf)),
		&bytesReturned,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("DeviceIoControl FSCTL_GET_NTFS_FILE_RECORD for FRN %d: %v", frn, err)
	}
	const headerSize = 12 // FileReferenceNumber (8) + FileRecordLength (4)
	if bytesReturned < headerSize {
		return nil, fmt.Errorf("FSCTL_GET_NTFS_FILE_RECORD returned %d bytes, too small for its own header", bytesReturned)
	}

	recordLength := binary.LittleEndian.Uint32(outBuf[8:12])
	end := uint32(headerSize) + recordLength
	if end > bytesReturned {
		return nil, fmt.Errorf("FSCTL_GET_NTFS_FILE_RECORD reported record length %d beyond returned buffer size %d", recordLength, bytesReturned)
	}

	return outBuf[headerSize:end], nil
}

func (w *windowsVolume) close() error {
	return windows.CloseHandle(w.handle)
}
