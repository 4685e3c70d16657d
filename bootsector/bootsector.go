// Package bootsector parses and synthesizes the BIOS Parameter Block that
// occupies sector 0 of an MSX-DOS FAT12 image, per spec.md §3/§4.1.
package bootsector

import (
	"bytes"

	"github.com/msxarchive/dskmgr/diskimage"
)

// Field offsets within sector 0, per spec.md §3.
const (
	offBootJump       = 0
	offOEMName        = 3
	offSectorSize     = 11
	offClusterSize    = 13
	offFATPosition    = 14
	offFATCopy        = 16
	offDirectoryEntry = 17
	offNumberOfSector = 19
	offMediaID        = 21
	offFATSize        = 22
	offSectorPerTrack = 24
	offDiskSides      = 26
	offHiddenSector   = 28
	offBootJump2      = 30
	offIDLabel        = 32
	offDirtyFlag      = 38
	offIDValue        = 39
	offReserved       = 43
	offBootProgram    = 48

	bootProgramSize = diskimage.SectorSize - offBootProgram // 0x1D0
)

// BootSector is the parsed form of sector 0's BIOS Parameter Block.
type BootSector struct {
	BootJump       [3]byte
	OEMName        [8]byte
	SectorSize     uint16
	ClusterSize    uint8
	FATPosition    uint16
	FATCopy        uint8
	DirectoryEntry uint16
	NumberOfSector uint16
	MediaID        uint8
	FATSize        uint16
	SectorPerTrack uint16
	DiskSides      uint16
	HiddenSector   uint16
	BootJump2      [2]byte
	IDLabel        [6]byte
	DirtyFlag      uint8
	IDValue        [4]byte
	Reserved       [5]byte
	BootProgram    [bootProgramSize]byte
}

// DirectoryPosition is the first sector of the root directory: the FAT
// area (fatPosition..fatPosition+fatSize*fatCopy) immediately followed by
// the root directory.
func (bs *BootSector) DirectoryPosition() diskimage.SectorID {
	return diskimage.SectorID(bs.FATPosition) +
		diskimage.SectorID(uint(bs.FATSize)*uint(bs.FATCopy))
}

// DataPosition is the first sector of the data area. spec.md §9's Open
// Question: the FAT12 standard computes ⌈112·32/512⌉ = 7 root-directory
// sectors, but canonical MSX-DOS 1 images (and the ones this engine
// synthesizes) use 5. We follow the source's 5, not the theoretically
// "correct" 7, to stay compatible with real MSX-DOS 1 images.
func (bs *BootSector) DataPosition() diskimage.SectorID {
	return bs.DirectoryPosition() + 5
}

// TotalDataClusters is the number of clusters available for file data,
// derived from the geometry rather than hard-coded, though for the
// synthesized 720 KB geometry it always works out to 714.
func (bs *BootSector) TotalDataClusters() uint {
	dataSectors := uint(bs.NumberOfSector) - uint(bs.DataPosition())
	return dataSectors / uint(bs.ClusterSize)
}

// Parse reads sector 0 of img into a BootSector.
func Parse(img *diskimage.Image) *BootSector {
	sector := img.Sector(0)
	bs := &BootSector{}

	copy(bs.BootJump[:], sector[offBootJump:offBootJump+3])
	copy(bs.OEMName[:], sector[offOEMName:offOEMName+8])
	bs.SectorSize = diskimage.ReadUint16LE(sector, offSectorSize)
	bs.ClusterSize = sector[offClusterSize]
	bs.FATPosition = diskimage.ReadUint16LE(sector, offFATPosition)
	bs.FATCopy = sector[offFATCopy]
	bs.DirectoryEntry = diskimage.ReadUint16LE(sector, offDirectoryEntry)
	bs.NumberOfSector = diskimage.ReadUint16LE(sector, offNumberOfSector)
	bs.MediaID = sector[offMediaID]
	bs.FATSize = diskimage.ReadUint16LE(sector, offFATSize)
	bs.SectorPerTrack = diskimage.ReadUint16LE(sector, offSectorPerTrack)
	bs.DiskSides = diskimage.ReadUint16LE(sector, offDiskSides)
	bs.HiddenSector = diskimage.ReadUint16LE(sector, offHiddenSector)
	copy(bs.BootJump2[:], sector[offBootJump2:offBootJump2+2])
	copy(bs.IDLabel[:], sector[offIDLabel:offIDLabel+6])
	bs.DirtyFlag = sector[offDirtyFlag]
	copy(bs.IDValue[:], sector[offIDValue:offIDValue+4])
	copy(bs.Reserved[:], sector[offReserved:offReserved+5])
	copy(bs.BootProgram[:], sector[offBootProgram:offBootProgram+bootProgramSize])

	return bs
}

// Write serializes bs into sector 0 of img.
func (bs *BootSector) Write(img *diskimage.Image) {
	sector := img.Sector(0)

	copy(sector[offBootJump:offBootJump+3], bs.BootJump[:])
	copy(sector[offOEMName:offOEMName+8], bs.OEMName[:])
	diskimage.WriteUint16LE(sector, offSectorSize, bs.SectorSize)
	sector[offClusterSize] = bs.ClusterSize
	diskimage.WriteUint16LE(sector, offFATPosition, bs.FATPosition)
	sector[offFATCopy] = bs.FATCopy
	diskimage.WriteUint16LE(sector, offDirectoryEntry, bs.DirectoryEntry)
	diskimage.WriteUint16LE(sector, offNumberOfSector, bs.NumberOfSector)
	sector[offMediaID] = bs.MediaID
	diskimage.WriteUint16LE(sector, offFATSize, bs.FATSize)
	diskimage.WriteUint16LE(sector, offSectorPerTrack, bs.SectorPerTrack)
	diskimage.WriteUint16LE(sector, offDiskSides, bs.DiskSides)
	diskimage.WriteUint16LE(sector, offHiddenSector, bs.HiddenSector)
	copy(sector[offBootJump2:offBootJump2+2], bs.BootJump2[:])
	copy(sector[offIDLabel:offIDLabel+6], bs.IDLabel[:])
	sector[offDirtyFlag] = bs.DirtyFlag
	copy(sector[offIDValue:offIDValue+4], bs.IDValue[:])
	copy(sector[offReserved:offReserved+5], bs.Reserved[:])
	copy(sector[offBootProgram:offBootProgram+bootProgramSize], bs.BootProgram[:])
}

// RandomSource is the RNG collaborator spec.md §1 calls out as external.
// cmd/dskmgr supplies a crypto/rand-backed implementation.
type RandomSource interface {
	// Read fills p with random bytes, like io.Reader.
	Read(p []byte) (int, error)
}

// MSXDOS2MarkerName is the 8.3 name (packed, space-padded) whose presence
// in the final directory causes Synthesize's caller to select the MSX-DOS 2
// loader instead of the MSX-DOS 1 one, per spec.md §4.1.
const MSXDOS2MarkerName = "MSXDOS2 SYS"

// Synthesize builds a fresh BootSector for a 720 KB MSX-DOS image. If
// useDOS2Loader is true (the caller has determined the directory will
// contain an "MSXDOS2 SYS" entry), the MSX-DOS 2 canned loader is embedded
// instead of the MSX-DOS 1 one. existingIDValue, if non-nil, is reused
// verbatim (put/rm preserve the volume ID); otherwise rng is consulted
// once to generate a fresh one with bit 0 of byte 0 forced to 1.
func Synthesize(useDOS2Loader bool, existingIDValue *[4]byte, rng RandomSource) (*BootSector, error) {
	bs := &BootSector{
		SectorSize:     diskimage.SectorSize,
		ClusterSize:    2,
		FATPosition:    1,
		FATCopy:        2,
		DirectoryEntry: 112,
		NumberOfSector: diskimage.TotalSectors,
		MediaID:        0xF9,
		FATSize:        3,
		SectorPerTrack: 9,
		DiskSides:      2,
		HiddenSector:   0,
		DirtyFlag:      0x36,
	}
	copy(bs.BootJump[:], []byte{0xEB, 0xFE, 0x90})
	copy(bs.OEMName[:], []byte("SZKPLN01"))
	copy(bs.BootJump2[:], []byte{0xD0, 0xED})
	copy(bs.IDLabel[:], []byte("VOL_ID"))

	if existingIDValue != nil {
		bs.IDValue = *existingIDValue
	} else {
		var generated [4]byte
		if _, err := rng.Read(generated[:]); err != nil {
			return nil, err
		}
		generated[0] |= 0x01
		bs.IDValue = generated
	}

	if useDOS2Loader {
		bs.BootProgram = msxdos2Loader
	} else {
		bs.BootProgram = msxdos1Loader
	}

	return bs, nil
}

// NeedsDOS2Loader reports whether a directory entry's packed 8.3 name
// (e.g. "MSXDOS2 " + "SYS") matches the MSX-DOS 2 marker from spec.md §4.1.
func NeedsDOS2Loader(packedNameAndExt string) bool {
	return bytes.Equal([]byte(packedNameAndExt), []byte(MSXDOS2MarkerName))
}
