// Package ntfs implements the on-disk-structure engine for a live NTFS
// volume: USN journal scanning, MFT file-record parsing, and data-run
// recovery. All three operations share the data model defined in this file.
package ntfs

// FRN is a 64-bit NTFS file reference number identifying an MFT record.
// Zero denotes "no parent"; the root directory's FRN is self-referential.
type FRN uint64

// ClusterGeometry describes a volume's cluster layout, queried once per
// volume handle.
type ClusterGeometry struct {
	BytesPerSector    uint32
	SectorsPerCluster uint32
}

// ClusterSize returns the byte size of one cluster.
func (g ClusterGeometry) ClusterSize() uint64 {
	return uint64(g.BytesPerSector) * uint64(g.SectorsPerCluster)
}

// FileTableEntry is a scan-local record of a child FRN's parent and name,
// built incrementally while walking USN journal records. Last write wins
// for duplicate FRNs.
type FileTableEntry struct {
	ParentRef   FRN
	Name        string
	IsDirectory bool
}

// DeletedRecord is produced for any USN record whose Reason bitmask
// contains UsnReasonFileDelete.
type DeletedRecord struct {
	FileRef     FRN
	ParentRef   FRN
	Name        string
	IsDirectory bool
	TimestampMs float64
	Reason      uint32
}

// DeletedFile is a DeletedRecord with its path reconstructed from the
// scan's file table.
type DeletedFile struct {
	DeletedRecord
	Path string
}

// DataRunSegment is one decoded entry of a non-resident attribute's run
// list.
type DataRunSegment struct {
	VCNStart int64
	LCN      int64
	Length   int64
	Sparse   bool
}

// AttributeInfo is a decoded NTFS attribute record, resident or
// non-resident, captured from an MFT file record.
type AttributeInfo struct {
	Type          uint32
	TypeName      string
	NonResident   bool
	Name          string // the attribute's stream name, e.g. an ADS name
	DataSize      uint64
	AllocatedSize uint64
	Runs          []DataRunSegment // set when NonResident
	ResidentData  []byte           // set when !NonResident and non-empty
}

// FileRecordDetails is the decoded result of getFileRecord.
type FileRecordDetails struct {
	InUse         bool
	IsDirectory   bool
	BaseReference FRN
	HardLinkCount uint16
	Flags         uint16
	Attributes    []AttributeInfo
	Geometry      ClusterGeometry
}

// Attribute type codes. Unlisted codes decode as "Unknown".
const (
	AttrStandardInformation uint32 = 0x10
	AttrAttributeList       uint32 = 0x20
	AttrFileName            uint32 = 0x30
	AttrObjectID            uint32 = 0x40
	AttrSecurityDescriptor  uint32 = 0x50
	AttrVolumeName          uint32 = 0x60
	AttrVolumeInformation   uint32 = 0x70
	AttrData                uint32 = 0x80
	AttrIndexRoot           uint32 = 0x90
	AttrIndexAllocation     uint32 = 0xA0
	AttrBitmap              uint32 = 0xB0
	AttrReparsePoint        uint32 = 0xC0
	AttrEAInformation       uint32 = 0xD0
	AttrEA                  uint32 = 0xE0
	AttrPropertySet         uint32 = 0xF0
	AttrLoggedUtilityStream uint32 = 0x100

	attrListTerminator uint32 = 0xFFFFFFFF
)

// attributeTypeName maps an attribute type code to its display name.
func attributeTypeName(t uint32) string {
	switch t {
	case AttrStandardInformation:
		return "StandardInformation"
	case AttrAttributeList:
		return "AttributeList"
	case AttrFileName:
		return "FileName"
	case AttrObjectID:
		return "ObjectId"
	case AttrSecurityDescriptor:
		return "SecurityDescriptor"
	case AttrVolumeName:
		return "VolumeName"
	case AttrVolumeInformation:
		return "VolumeInformation"
	case AttrData:
		return "Data"
	case AttrIndexRoot:
		return "IndexRoot"
	case AttrIndexAllocation:
		return "IndexAllocation"
	case AttrBitmap:
		return "Bitmap"
	case AttrReparsePoint:
		return "ReparsePoint"
	case AttrEAInformation:
		return "EAInformation"
	case AttrEA:
		return "EA"
	case AttrPropertySet:
		return "PropertySet"
	case AttrLoggedUtilityStream:
		return "LoggedUtilityStream"
	default:
		return "Unknown"
	}
}

// USN reason bitmask values. Only UsnReasonFileDelete drives DeletedRecord
// emission, but the full set is kept for callers inspecting Reason.
const (
	UsnReasonDataOverwrite       uint32 = 0x00000001
	UsnReasonDataExtend          uint32 = 0x00000002
	UsnReasonDataTruncation      uint32 = 0x00000004
	UsnReasonNamedDataOverwrite  uint32 = 0x00000010
	UsnReasonNamedDataExtend     uint32 = 0x00000020
	UsnReasonNamedDataTruncation uint32 = 0x00000040
	UsnReasonFileCreate          uint32 = 0x00000100
	UsnReasonFileDelete          uint32 = 0x00000200
	UsnReasonEAChange            uint32 = 0x00000400
	UsnReasonSecurityChange      uint32 = 0x00000800
	UsnReasonRenameOldName       uint32 = 0x00001000
	UsnReasonRenameNewName       uint32 = 0x00002000
	UsnReasonIndexableChange     uint32 = 0x00004000
	UsnReasonBasicInfoChange     uint32 = 0x00008000
	UsnReasonHardLinkChange      uint32 = 0x00010000
	UsnReasonCompressionChange   uint32 = 0x00020000
	UsnReasonEncryptionChange    uint32 = 0x00040000
	UsnReasonObjectIDChange      uint32 = 0x00080000
	UsnReasonReparsePointChange  uint32 = 0x00100000
	UsnReasonStreamChange        uint32 = 0x00200000
	UsnReasonClose               uint32 = 0x80000000

	fileAttributeDirectory uint32 = 0x00000010
)

// pathReconstructionDepthCap bounds the parent walk in the journal's path
// builder against reference-number cycles.
const pathReconstructionDepthCap = 1024
