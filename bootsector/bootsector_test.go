package bootsector_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msxarchive/dskmgr/bootsector"
	"github.com/msxarchive/dskmgr/diskimage"
)

type zeroRNG struct{}

func (zeroRNG) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestSynthesize_MatchesInvariants(t *testing.T) {
	bs, err := bootsector.Synthesize(false, nil, zeroRNG{})
	require.NoError(t, err)

	assert.Equal(t, uint16(diskimage.SectorSize), bs.SectorSize)
	assert.Equal(t, uint8(2), bs.ClusterSize)
	assert.Equal(t, uint16(1), bs.FATPosition)
	assert.Equal(t, uint8(2), bs.FATCopy)
	assert.Equal(t, uint16(112), bs.DirectoryEntry)
	assert.Equal(t, uint16(diskimage.TotalSectors), bs.NumberOfSector)
	assert.Equal(t, uint8(0xF9), bs.MediaID)
	assert.Equal(t, uint16(3), bs.FATSize)
	assert.Equal(t, uint16(9), bs.SectorPerTrack)
	assert.Equal(t, uint16(2), bs.DiskSides)
	assert.Equal(t, []byte{0xEB, 0xFE, 0x90}, bs.BootJump[:])
	assert.Equal(t, []byte{0xD0, 0xED}, bs.BootJump2[:])
	assert.Equal(t, "VOL_ID", string(bs.IDLabel[:]))
	assert.Equal(t, uint8(0x36), bs.DirtyFlag)
	assert.Equal(t, byte(1), bs.IDValue[0]&0x01)
}

func TestSynthesize_PreservesExistingIDValue(t *testing.T) {
	existing := [4]byte{0x11, 0x22, 0x33, 0x44}
	bs, err := bootsector.Synthesize(false, &existing, zeroRNG{})
	require.NoError(t, err)
	assert.Equal(t, existing, bs.IDValue)
}

func TestSynthesize_SelectsLoaderByDOSVersion(t *testing.T) {
	dos1, err := bootsector.Synthesize(false, nil, zeroRNG{})
	require.NoError(t, err)
	dos2, err := bootsector.Synthesize(true, nil, zeroRNG{})
	require.NoError(t, err)
	assert.NotEqual(t, dos1.BootProgram, dos2.BootProgram)
}

func TestParseWrite_RoundTrip(t *testing.T) {
	img := diskimage.Blank()
	original, err := bootsector.Synthesize(false, nil, zeroRNG{})
	require.NoError(t, err)
	original.Write(img)

	parsed := bootsector.Parse(img)
	assert.Equal(t, original, parsed)
}

func TestDerivedPositions(t *testing.T) {
	bs, err := bootsector.Synthesize(false, nil, zeroRNG{})
	require.NoError(t, err)

	assert.Equal(t, diskimage.SectorID(7), bs.DirectoryPosition())
	assert.Equal(t, diskimage.SectorID(12), bs.DataPosition())
	assert.Equal(t, uint(714), bs.TotalDataClusters())
}

func TestEmptyImageCreate_Scenario1(t *testing.T) {
	// Concrete scenario 1 from spec.md §8.
	img := diskimage.Blank()
	bs, err := bootsector.Synthesize(false, nil, zeroRNG{})
	require.NoError(t, err)
	bs.Write(img)

	sector0 := img.Sector(0)
	assert.True(t, bytes.Equal(sector0[0:3], []byte{0xEB, 0xFE, 0x90}))
	assert.True(t, bytes.Equal(sector0[0x0B:0x0D], []byte{0x00, 0x02}))
}

func TestNeedsDOS2Loader(t *testing.T) {
	assert.True(t, bootsector.NeedsDOS2Loader("MSXDOS2 SYS"))
	assert.False(t, bootsector.NeedsDOS2Loader("AUTOEXECBAT"))
}
