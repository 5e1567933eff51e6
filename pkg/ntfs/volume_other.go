//go:build !windows

package ntfs

import "fmt"

// newVolumeBackend on non-Windows platforms always fails: raw NTFS volume
// access goes through Win32 handles and FSCTLs this package doesn't
// attempt to emulate elsewhere. The pure decoders (runlist.go, decode.go,
// mftrecord.go's parsing, journal.go's path reconstruction) still build
// and test off Windows; only live volume access requires it.
func newVolumeBackend(drivePath string) (volumeBackend, error) {
	return nil, newError(ErrUnsupportedPlatform, "openVolume", drivePath, fmt.Errorf("live volume access requires Windows"))
}
