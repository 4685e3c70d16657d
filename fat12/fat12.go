// Package fat12 implements the packed 12-bit FAT table used by MSX-DOS
// images: decoding it into cluster chains, encoding fresh chains back into
// packed bytes, and the low-level GetEntry/SetEntry accessors spec.md §9
// calls for ("represent as an opaque byte buffer with explicit accessors;
// do not attempt pointer aliasing").
package fat12

import (
	"fmt"

	"github.com/msxarchive/dskmgr/diskimage"
)

// EndOfChain is the FAT12 chain terminator.
const EndOfChain = 0x0FFF

// MediaDescriptor is entry 0 of the FAT on 720 KB MSX images.
const MediaDescriptor = 0xF9

// Table is a packed FAT12 byte buffer with 12-bit entry accessors. It never
// aliases the owning Image's storage with a pointer cast -- bytes are
// copied in and out explicitly, per spec.md §9.
type Table struct {
	raw []byte
}

// entryCount is the maximum number of 12-bit entries representable in a
// buffer of the given byte length (two entries per three bytes).
func entryCount(byteLen int) int {
	return (byteLen * 2) / 3
}

// NewTable wraps raw FAT bytes (one copy, not both replicas) for decoding.
func NewTable(raw []byte) *Table {
	return &Table{raw: raw}
}

// NewBlankTable allocates a fresh all-zero FAT buffer of the given size in
// bytes (one FAT copy's worth of sectors).
func NewBlankTable(sizeBytes int) *Table {
	return &Table{raw: make([]byte, sizeBytes)}
}

// Bytes returns the packed FAT buffer.
func (t *Table) Bytes() []byte {
	return t.raw
}

// EntryCount is the number of 12-bit entries this table can hold.
func (t *Table) EntryCount() int {
	return entryCount(len(t.raw))
}

// GetEntry unpacks the 12-bit entry at the given index. Packing per
// spec.md §3: entry[2k] = b0 | ((b1&0x0F)<<8); entry[2k+1] = ((b1&0xF0)>>4) | (b2<<4).
func (t *Table) GetEntry(index int) uint16 {
	groupStart := (index / 2) * 3
	b0, b1, b2 := t.raw[groupStart], t.raw[groupStart+1], t.raw[groupStart+2]
	if index%2 == 0 {
		return uint16(b0) | (uint16(b1&0x0F) << 8)
	}
	return uint16((b1&0xF0)>>4) | (uint16(b2) << 4)
}

// SetEntry packs value (only the low 12 bits are used) into the entry at
// the given index.
func (t *Table) SetEntry(index int, value uint16) {
	value &= 0x0FFF
	groupStart := (index / 2) * 3
	b0, b1, b2 := t.raw[groupStart], t.raw[groupStart+1], t.raw[groupStart+2]

	if index%2 == 0 {
		b0 = byte(value)
		b1 = (b1 & 0xF0) | byte(value>>8)
	} else {
		b1 = (b1 & 0x0F) | byte(value<<4)
		b2 = byte(value >> 4)
	}
	t.raw[groupStart], t.raw[groupStart+1], t.raw[groupStart+2] = b0, b1, b2
}

// IsPresent reports whether this FAT looks intact: raw byte 0 holds the
// media descriptor and raw bytes 1-2 are FF FF (spec.md §4.2's absence
// check, applied to the packed bytes), so that entry 0 reads back as 0xFF9
// and entry 1 as 0xFFF.
func (t *Table) IsPresent() bool {
	if len(t.raw) < 3 {
		return false
	}
	if t.raw[0] != MediaDescriptor {
		return false
	}
	return t.raw[1] == 0xFF && t.raw[2] == 0xFF
}

// Decode walks the table from the first data cluster (index 2) and returns
// one chain of cluster numbers per logical file: each index joins the
// current chain, and an index whose entry is 0xFFF is the chain's last
// cluster. Indices after the last 0xFFF entry (such as free entries after
// the last file) come back as one final chain. If the FAT doesn't look
// present (see IsPresent), Decode returns an empty slice so callers fall
// back to spec.md §4.5's sequential-read policy.
func (t *Table) Decode() [][]uint16 {
	if !t.IsPresent() {
		return nil
	}

	var chains [][]uint16
	var current []uint16

	for i := 2; i < t.EntryCount(); i++ {
		current = append(current, uint16(i))
		if t.GetEntry(i) == EndOfChain {
			chains = append(chains, current)
			current = nil
		}
	}
	if current != nil {
		chains = append(chains, current)
	}
	return chains
}

// FollowChain returns the ordered cluster numbers in the chain starting at
// firstCluster, by repeatedly reading GetEntry(cluster) until EndOfChain.
// This is the direct accessor archive.ReadFile uses once it already knows a
// file's first cluster from its directory entry, as opposed to Decode's
// bulk "recover all chains" pass.
func (t *Table) FollowChain(firstCluster uint16) ([]uint16, error) {
	if !t.IsPresent() {
		return nil, fmt.Errorf("fat12: FollowChain called on an absent/corrupt FAT")
	}

	chain := []uint16{firstCluster}
	current := firstCluster
	seen := map[uint16]bool{firstCluster: true}

	for {
		if int(current) >= t.EntryCount() {
			return nil, fmt.Errorf("fat12: cluster %d out of range", current)
		}
		next := t.GetEntry(int(current))
		if next == EndOfChain {
			return chain, nil
		}
		if seen[next] {
			return nil, fmt.Errorf("fat12: cycle detected in chain at cluster %d", next)
		}
		seen[next] = true
		chain = append(chain, next)
		current = next
	}
}

// EncodeFileList writes fresh chains into a newly allocated table for the
// given per-file cluster counts, per spec.md §4.2: raw byte 0 gets the
// media descriptor and raw bytes 1-2 become FF FF; clusters are assigned linearly
// starting at 2 (matching allocator.Allocator's own linear policy); each
// file gets clusterCount-1 continuation entries followed by one EndOfChain
// entry (the first cluster of a chain is recorded only in the directory
// entry, never written as a FAT link to itself).
func EncodeFileList(sizeBytes int, clusterCounts []uint) *Table {
	t := NewBlankTable(sizeBytes)
	t.raw[0] = MediaDescriptor
	t.raw[1] = 0xFF
	t.raw[2] = 0xFF

	cluster := uint16(2)
	for _, count := range clusterCounts {
		for i := uint(1); i < count; i++ {
			t.SetEntry(int(cluster), cluster+1)
			cluster++
		}
		t.SetEntry(int(cluster), EndOfChain)
		cluster++
	}
	return t
}

// Replicate copies t.raw into count sequential FAT regions within img
// starting at firstSector, matching spec.md §3's "replicated fatCopy
// times" layout.
func (t *Table) Replicate(img *diskimage.Image, firstSector diskimage.SectorID, sectorsPerCopy uint, count uint) {
	for copyIndex := uint(0); copyIndex < count; copyIndex++ {
		base := uint(firstSector) + copyIndex*sectorsPerCopy
		for s := uint(0); s < sectorsPerCopy; s++ {
			sector := img.Sector(base + s)
			start := s * diskimage.SectorSize
			end := start + diskimage.SectorSize
			if int(end) > len(t.raw) {
				end = uint(len(t.raw))
			}
			if start < end {
				copy(sector, t.raw[start:end])
			}
		}
	}
}

// ReadCopy extracts one FAT copy's bytes out of img.
func ReadCopy(img *diskimage.Image, firstSector diskimage.SectorID, sectorsPerCopy uint) *Table {
	raw := make([]byte, sectorsPerCopy*diskimage.SectorSize)
	for s := uint(0); s < sectorsPerCopy; s++ {
		copy(raw[s*diskimage.SectorSize:(s+1)*diskimage.SectorSize], img.Sector(uint(firstSector)+s))
	}
	return &Table{raw: raw}
}
