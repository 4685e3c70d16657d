// Package diskimage implements the fixed 1,440×512-byte grid every other
// dskmgr package operates on, and the little-endian byte codec used to
// read and write multi-byte fields at fixed offsets within it.
package diskimage

import (
	"fmt"
	"io"

	"github.com/xaionaro-go/bytesextra"

	derrors "github.com/msxarchive/dskmgr/errors"
)

// SectorSize is the number of bytes in one sector. MSX-DOS 720 KB images
// use 512-byte sectors exclusively; see spec.md §1 Non-goals.
const SectorSize = 512

// TotalSectors is the number of sectors in a 720 KB MSX 2DD image.
const TotalSectors = 1440

// TotalSize is the exact byte size a valid image must have.
const TotalSize = SectorSize * TotalSectors

// Image is the in-memory byte grid backing every dskmgr operation. The
// zero value is a blank (all-zero) image; use New to wrap existing bytes.
type Image struct {
	data [TotalSize]byte
}

// New wraps an existing byte slice as an Image. The slice must be exactly
// TotalSize bytes long, matching the invariant in spec.md §3 ("total size
// must be exactly 737,280; otherwise the engine refuses the input").
func New(data []byte) (*Image, error) {
	if len(data) != TotalSize {
		return nil, derrors.ErrSizeMismatch.WithMessage(
			fmt.Sprintf("got %d bytes, want %d", len(data), TotalSize))
	}
	img := &Image{}
	copy(img.data[:], data)
	return img, nil
}

// Blank returns a fresh all-zero image, the starting point for Create.
func Blank() *Image {
	return &Image{}
}

// Bytes returns the whole image as a byte slice. The slice aliases the
// Image's own storage; callers that need an independent copy must copy it
// themselves.
func (img *Image) Bytes() []byte {
	return img.data[:]
}

// Stream returns an io.ReadWriteSeeker view over the image, for components
// that want seek/read/write semantics rather than direct slicing. Adapted from the teacher's testing/images.go, which uses
// the same library to expose a byte slice as a seekable stream for tests;
// here it backs production code instead.
func (img *Image) Stream() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(img.data[:])
}

// Sector returns the raw 512-byte slice for the given absolute sector
// number. The returned slice aliases the image's storage.
func (img *Image) Sector(n uint) []byte {
	start := n * SectorSize
	return img.data[start : start+SectorSize]
}

// Zero overwrites the entire image with zero bytes.
func (img *Image) Zero() {
	for i := range img.data {
		img.data[i] = 0
	}
}

// ---------------------------------------------------------------------------
// Byte codec: little-endian integer accessors over a fixed-offset region.
// This is spec.md §4's "Byte codec" leaf component: every other package
// that parses or serializes a fixed-offset field goes through these.

// ReadUint16LE reads a little-endian uint16 at the given offset within buf.
func ReadUint16LE(buf []byte, offset int) uint16 {
	return uint16(buf[offset]) | uint16(buf[offset+1])<<8
}

// WriteUint16LE writes a little-endian uint16 at the given offset within buf.
func WriteUint16LE(buf []byte, offset int, value uint16) {
	buf[offset] = byte(value)
	buf[offset+1] = byte(value >> 8)
}

// ReadUint32LE reads a little-endian uint32 at the given offset within buf.
func ReadUint32LE(buf []byte, offset int) uint32 {
	return uint32(buf[offset]) |
		uint32(buf[offset+1])<<8 |
		uint32(buf[offset+2])<<16 |
		uint32(buf[offset+3])<<24
}

// WriteUint32LE writes a little-endian uint32 at the given offset within buf.
func WriteUint32LE(buf []byte, offset int, value uint32) {
	buf[offset] = byte(value)
	buf[offset+1] = byte(value >> 8)
	buf[offset+2] = byte(value >> 16)
	buf[offset+3] = byte(value >> 24)
}
