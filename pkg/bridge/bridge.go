// Package bridge adapts the synchronous pkg/ntfs engine to the
// callback(error|null, result) convention an embedding host (e.g. an
// FFI boundary) expects of scan, getFileRecord, and recoverDataRuns. It
// contains no parsing logic of its own: every field here is a decimal-
// string-safe reshaping of what pkg/ntfs already computed, run on its own
// goroutine to stand in for a native worker-thread dispatch.
package bridge

import (
	"encoding/base64"
	"fmt"

	"github.com/ntfsundelete/pkg/marshal"
	"github.com/ntfsundelete/pkg/ntfs"
)

// Callback receives either a non-nil error and a nil result, or a nil
// error and the operation's result. RecoverDataRuns has no result, so its
// success is reported as cb(nil, nil).
type Callback func(err error, result interface{})

// ScanResultItem mirrors the scan() result shape.
type ScanResultItem struct {
	Name                  string  `json:"name"`
	Path                  string  `json:"path"`
	FileReferenceNumber   string  `json:"fileReferenceNumber"`
	ParentReferenceNumber string  `json:"parentReferenceNumber"`
	IsDirectory           bool    `json:"isDirectory"`
	TimestampMs           float64 `json:"timestampMs"`
	Reason                uint32  `json:"reason"`
	Drive                 string  `json:"drive"`
}

// Scan opens drive, runs a full journal scan, and invokes cb on its own
// goroutine with the reshaped result list.
func Scan(drive string, cb Callback) {
	go func() {
		vol, err := ntfs.OpenVolume(drive)
		if err != nil {
			cb(err, nil)
			return
		}
		defer vol.Close()

		result, err := vol.Scan(ntfs.ScanOptions{})
		if err != nil {
			cb(err, nil)
			return
		}

		items := make([]ScanResultItem, 0, len(result.Deleted))
		for _, d := range result.Deleted {
			items = append(items, ScanResultItem{
				Name:                  d.Name,
				Path:                  d.Path,
				FileReferenceNumber:   marshal.FormatUnsigned(uint64(d.FileRef)),
				ParentReferenceNumber: marshal.FormatUnsigned(uint64(d.ParentRef)),
				IsDirectory:           d.IsDirectory,
				TimestampMs:           d.TimestampMs,
				Reason:                d.Reason,
				Drive:                 vol.Letter(),
			})
		}
		cb(nil, items)
	}()
}

// RunShape mirrors one entry of a getFileRecord attribute's runs array.
type RunShape struct {
	VCN    string `json:"vcn"`
	LCN    string `json:"lcn"`
	Length string `json:"length"`
	Sparse bool   `json:"sparse"`
}

// AttributeShape mirrors one entry of a getFileRecord record's attributes
// array. At most one of Runs / ResidentDataBase64 is populated: Runs for a
// non-resident attribute, ResidentDataBase64 for a resident attribute with
// a non-empty payload.
type AttributeShape struct {
	Type               uint32     `json:"type"`
	TypeName           string     `json:"typeName"`
	NonResident        bool       `json:"nonResident"`
	Name               string     `json:"name,omitempty"`
	DataSize           string     `json:"dataSize"`
	AllocatedSize      string     `json:"allocatedSize"`
	Runs               []RunShape `json:"runs,omitempty"`
	ResidentDataBase64 string     `json:"residentDataBase64,omitempty"`
}

// FileRecordShape mirrors the getFileRecord result shape.
type FileRecordShape struct {
	InUse             bool             `json:"inUse"`
	IsDirectory       bool             `json:"isDirectory"`
	BaseReference     string           `json:"baseReference"`
	HardLinkCount     uint16           `json:"hardLinkCount"`
	Flags             uint16           `json:"flags"`
	BytesPerSector    uint32           `json:"bytesPerSector"`
	SectorsPerCluster uint32           `json:"sectorsPerCluster"`
	ClusterSize       string           `json:"clusterSize"`
	Attributes        []AttributeShape `json:"attributes"`
}

// GetFileRecord opens drive, fetches and parses the MFT record for
// fileRef (decimal string or bare numeric string), and invokes cb with
// the reshaped record.
func GetFileRecord(drive string, fileRef string, cb Callback) {
	go func() {
		frnValue, ok := marshal.ParseUnsigned(fileRef)
		if !ok {
			cb(fmt.Errorf("getFileRecord: invalid fileRef %q", fileRef), nil)
			return
		}

		vol, err := ntfs.OpenVolume(drive)
		if err != nil {
			cb(err, nil)
			return
		}
		defer vol.Close()

		details, err := vol.GetFileRecord(ntfs.FRN(frnValue))
		if err != nil {
			cb(err, nil)
			return
		}

		shape := FileRecordShape{
			InUse:             details.InUse,
			IsDirectory:       details.IsDirectory,
			BaseReference:     marshal.FormatUnsigned(uint64(details.BaseReference)),
			HardLinkCount:     details.HardLinkCount,
			Flags:             details.Flags,
			BytesPerSector:    details.Geometry.BytesPerSector,
			SectorsPerCluster: details.Geometry.SectorsPerCluster,
			ClusterSize:       marshal.FormatUnsigned(details.Geometry.ClusterSize()),
		}

		for _, a := range details.Attributes {
			attrShape := AttributeShape{
				Type:          a.Type,
				TypeName:      a.TypeName,
				NonResident:   a.NonResident,
				Name:          a.Name,
				DataSize:      marshal.FormatUnsigned(a.DataSize),
				AllocatedSize: marshal.FormatUnsigned(a.AllocatedSize),
			}
			if a.NonResident {
				for _, r := range a.Runs {
					attrShape.Runs = append(attrShape.Runs, RunShape{
						VCN:    marshal.FormatSigned(r.VCNStart),
						LCN:    marshal.FormatSigned(r.LCN),
						Length: marshal.FormatSigned(r.Length),
						Sparse: r.Sparse,
					})
				}
			} else if len(a.ResidentData) > 0 {
				attrShape.ResidentDataBase64 = base64.StdEncoding.EncodeToString(a.ResidentData)
			}
			shape.Attributes = append(shape.Attributes, attrShape)
		}

		cb(nil, shape)
	}()
}

// RunArg is one entry of recoverDataRuns' runs argument. Its numeric
// fields are carried as decimal strings; VCN is not used by the recovery.
type RunArg struct {
	VCN    string
	LCN    string
	Length string
	Sparse bool
}

// RecoverDataRuns opens drive, writes the recovered bytes addressed by
// runs to outputPath, and invokes cb(error|nil, nil).
func RecoverDataRuns(drive string, runs []RunArg, clusterSizeStr string, fileSizeStr string, outputPath string, cb Callback) {
	go func() {
		if outputPath == "" {
			cb(fmt.Errorf("recoverDataRuns: missing output path"), nil)
			return
		}

		clusterSize, ok := marshal.ParseUnsigned(clusterSizeStr)
		if !ok || clusterSize == 0 {
			cb(fmt.Errorf("recoverDataRuns: invalid clusterSize %q", clusterSizeStr), nil)
			return
		}
		fileSize, ok := marshal.ParseSigned(fileSizeStr)
		if !ok || fileSize <= 0 {
			cb(fmt.Errorf("recoverDataRuns: invalid fileSize %q", fileSizeStr), nil)
			return
		}

		decoded := make([]ntfs.DataRunSegment, 0, len(runs))
		for i, r := range runs {
			lcn, ok := marshal.ParseSigned(r.LCN)
			if !ok {
				cb(fmt.Errorf("recoverDataRuns: invalid lcn at run %d: %q", i, r.LCN), nil)
				return
			}
			length, ok := marshal.ParseSigned(r.Length)
			if !ok {
				cb(fmt.Errorf("recoverDataRuns: invalid length at run %d: %q", i, r.Length), nil)
				return
			}
			decoded = append(decoded, ntfs.DataRunSegment{LCN: lcn, Length: length, Sparse: r.Sparse})
		}

		vol, err := ntfs.OpenVolume(drive)
		if err != nil {
			cb(err, nil)
			return
		}
		defer vol.Close()

		if err := vol.RecoverDataRuns(decoded, clusterSize, fileSize, outputPath); err != nil {
			cb(err, nil)
			return
		}
		cb(nil, nil)
	}()
}
