// Package testfixtures provides test-only helpers for building synthetic
// disk images, adapted from the teacher's testing.LoadDiskImage: that
// helper decompressed a packaged reference image into a seekable stream
// for driver tests, via the same bytesextra library diskimage.Image.Stream
// now uses in production. Reference images here are always synthesized in
// memory instead of loaded from a compressed fixture file, since every
// SPEC_FULL.md scenario builds its starting image from archive.Create.
package testfixtures

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/msxarchive/dskmgr/diskimage"
)

// BlankImageStream returns a seekable stream over a freshly zeroed
// 737,280-byte image, for tests that want to exercise diskimage's sector
// accessors through io.ReadWriteSeeker instead of direct slicing.
func BlankImageStream(t *testing.T) io.ReadWriteSeeker {
	t.Helper()
	img := diskimage.Blank()
	return bytesextra.NewReadWriteSeeker(img.Bytes())
}

// RequireExactSize fails the test unless data is exactly the size a valid
// MSX 720 KB image must be.
func RequireExactSize(t *testing.T, data []byte) {
	t.Helper()
	require.Equal(t, diskimage.TotalSize, len(data), "image is not 737,280 bytes")
}
