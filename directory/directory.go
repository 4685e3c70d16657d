// Package directory implements the 32-byte MSX-DOS root-directory entry:
// decoding entries out of an image, encoding fresh ones during synthesis,
// and packing/unpacking the DOS date/time and 8.3 name fields, per
// spec.md §3/§4.3.
package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/msxarchive/dskmgr/diskimage"
	derrors "github.com/msxarchive/dskmgr/errors"
)

// EntrySize is the size in bytes of one directory entry.
const EntrySize = 32

// MaxEntries is the maximum number of root-directory entries MSX-DOS 1
// supports, per the synthesized boot sector's DirectoryEntry field.
// spec.md §9 notes the original source over-declares a 128-entry array but
// bounds every loop at the boot sector's DirectoryEntry value (112); we
// carry the same 112 bound here. Decode also stops at the end of the
// sectors it is given; archive passes the 5-sector directory region, which
// holds 80 slots.
const MaxEntries = 112

// Attribute bit flags, per spec.md §3.
const (
	AttrReadOnly    = 0x01
	AttrHidden      = 0x02
	AttrSystemFile  = 0x04
	AttrVolumeLabel = 0x08
	AttrDirent      = 0x10
)

// Removed marks an entry's first name byte when the file has been deleted.
const Removed = 0xE5

// Field offsets within one 32-byte entry.
const (
	offName         = 0
	offExt          = 8
	offAttribute    = 11
	offReserved     = 12
	offTime         = 22
	offDate         = 24
	offFirstCluster = 26
	offSize         = 28
)

// Entry is the decoded form of one 32-byte directory record.
type Entry struct {
	Name         [8]byte
	Ext          [3]byte
	Attribute    uint8
	Time         uint16
	Date         uint16
	FirstCluster uint16
	Size         uint32

	// removed is true when this entry's first name byte was 0xE5 when
	// decoded. Decode skips such slots, so every entry it returns has
	// removed == false.
	removed bool
}

// IsRemoved reports whether this entry represents a deleted file.
func (e *Entry) IsRemoved() bool { return e.removed }

// DisplayName renders the entry's name and extension as a human-readable
// "NAME.EXT" string. Per spec.md §4.3, the extension is appended only when
// ext[0] is non-zero and ext[1] is not a space -- this is the exact rule
// the format specifies, including its odd asymmetry between the two
// extension bytes; spec.md §9 flags a historical ordering bug in restoring
// the "." in the original implementation, which is why this function
// copies name and ext into independent buffers up front instead of
// mutating a single shared one.
func (e *Entry) DisplayName() string {
	nameBuf := make([]byte, 8)
	copy(nameBuf, e.Name[:])
	extBuf := make([]byte, 3)
	copy(extBuf, e.Ext[:])

	name := strings.TrimRight(string(nameBuf), " ")

	if extBuf[0] != 0 && extBuf[1] != ' ' {
		ext := strings.TrimRight(string(extBuf), " ")
		return name + "." + ext
	}
	return name
}

// PackName splits a "NAME.EXT" (or extensionless "NAME") string into
// space-padded, uppercased 8.3 fields. It returns ErrInvalidName if either
// component is too long.
func PackName(displayName string) ([8]byte, [3]byte, error) {
	var name [8]byte
	var ext [3]byte

	for i := range name {
		name[i] = ' '
	}
	for i := range ext {
		ext[i] = ' '
	}

	base := displayName
	extension := ""
	if dot := strings.LastIndex(displayName, "."); dot >= 0 {
		base = displayName[:dot]
		extension = displayName[dot+1:]
	}

	base = strings.ToUpper(base)
	extension = strings.ToUpper(extension)

	if len(base) == 0 || len(base) > 8 {
		return name, ext, derrors.ErrInvalidName.WithMessage(
			fmt.Sprintf("name %q must be 1-8 characters", base))
	}
	if len(extension) > 3 {
		return name, ext, derrors.ErrInvalidName.WithMessage(
			fmt.Sprintf("extension %q must be 0-3 characters", extension))
	}

	copy(name[:], base)
	copy(ext[:], extension)
	return name, ext, nil
}

// Decode walks img's directory sectors (starting at firstSector, for the
// given number of sectors) and returns every live entry, stopping at the
// first all-zero first byte (end of directory, per spec.md §3). Entries
// whose first byte is 0xE5 ("removed") are skipped, matching spec.md §8's
// "filtered out of all listings and reads" boundary behavior.
func Decode(img *diskimage.Image, firstSector diskimage.SectorID, numSectors uint) []Entry {
	var entries []Entry

	for slot := 0; slot < MaxEntries; slot++ {
		sectorOffset := (slot * EntrySize) / diskimage.SectorSize
		if uint(sectorOffset) >= numSectors {
			break
		}
		inSectorOffset := (slot * EntrySize) % diskimage.SectorSize
		sector := img.Sector(uint(firstSector) + uint(sectorOffset))
		raw := sector[inSectorOffset : inSectorOffset+EntrySize]

		if raw[offName] == 0x00 {
			break
		}
		if raw[offName] == Removed {
			continue
		}

		entries = append(entries, decodeOne(raw))
	}

	return entries
}

func decodeOne(raw []byte) Entry {
	var e Entry
	copy(e.Name[:], raw[offName:offName+8])
	copy(e.Ext[:], raw[offExt:offExt+3])
	e.Attribute = raw[offAttribute]
	e.Time = diskimage.ReadUint16LE(raw, offTime)
	e.Date = diskimage.ReadUint16LE(raw, offDate)
	e.FirstCluster = diskimage.ReadUint16LE(raw, offFirstCluster)
	e.Size = diskimage.ReadUint32LE(raw, offSize)
	e.removed = raw[offName] == Removed
	return e
}

// WriteAt serializes e into slot index (0-based) of img's directory,
// starting at firstSector.
func (e *Entry) WriteAt(img *diskimage.Image, firstSector diskimage.SectorID, slot int) {
	sectorOffset := (slot * EntrySize) / diskimage.SectorSize
	inSectorOffset := (slot * EntrySize) % diskimage.SectorSize
	sector := img.Sector(uint(firstSector) + uint(sectorOffset))
	raw := sector[inSectorOffset : inSectorOffset+EntrySize]

	copy(raw[offName:offName+8], e.Name[:])
	copy(raw[offExt:offExt+3], e.Ext[:])
	raw[offAttribute] = e.Attribute
	for i := offReserved; i < offTime; i++ {
		raw[i] = 0
	}
	diskimage.WriteUint16LE(raw, offTime, e.Time)
	diskimage.WriteUint16LE(raw, offDate, e.Date)
	diskimage.WriteUint16LE(raw, offFirstCluster, e.FirstCluster)
	diskimage.WriteUint32LE(raw, offSize, e.Size)
}

// PackTimestamp converts a time.Time into the entry's packed date/time
// fields: date bits 15-9 year-1980, 8-5 month, 4-0 day; time bits 15-11
// hour, 10-5 minute, 4-0 second/2.
func PackTimestamp(t time.Time) (date uint16, clock uint16) {
	year := t.Year() - 1980
	if year < 0 {
		year = 0
	}
	date = uint16(year&0x7F)<<9 | uint16(t.Month()&0x0F)<<5 | uint16(t.Day()&0x1F)
	clock = uint16(t.Hour()&0x1F)<<11 | uint16(t.Minute()&0x3F)<<5 | uint16((t.Second()/2)&0x1F)
	return date, clock
}

// UnpackTimestamp converts packed date/time fields back into a time.Time
// in the local zone.
func UnpackTimestamp(date uint16, clock uint16) time.Time {
	year := 1980 + int(date>>9)
	month := time.Month((date >> 5) & 0x0F)
	day := int(date & 0x1F)
	hour := int(clock >> 11)
	minute := int((clock >> 5) & 0x3F)
	second := int(clock&0x1F) * 2
	return time.Date(year, month, day, hour, minute, second, 0, time.Local)
}
