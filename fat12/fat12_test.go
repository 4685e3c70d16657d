package fat12_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msxarchive/dskmgr/diskimage"
	"github.com/msxarchive/dskmgr/fat12"
)

func TestGetSetEntry_RoundTrip(t *testing.T) {
	table := fat12.NewBlankTable(9)
	table.SetEntry(0, 0xABC)
	table.SetEntry(1, 0x123)
	table.SetEntry(2, 0xFFF)

	assert.Equal(t, uint16(0xABC), table.GetEntry(0))
	assert.Equal(t, uint16(0x123), table.GetEntry(1))
	assert.Equal(t, uint16(0xFFF), table.GetEntry(2))
}

func TestIsPresent(t *testing.T) {
	table := fat12.NewBlankTable(9)
	assert.False(t, table.IsPresent())

	table.Bytes()[0] = fat12.MediaDescriptor
	table.Bytes()[1] = 0xFF
	table.Bytes()[2] = 0xFF
	assert.True(t, table.IsPresent())
}

func TestIsPresent_TooShort(t *testing.T) {
	table := fat12.NewTable([]byte{fat12.MediaDescriptor, 0xFF})
	assert.False(t, table.IsPresent())
}

func TestEncodeFileList_SingleClusterFiles(t *testing.T) {
	table := fat12.EncodeFileList(9, []uint{1, 1})
	require.True(t, table.IsPresent())

	assert.Equal(t, uint16(fat12.EndOfChain), table.GetEntry(2))
	assert.Equal(t, uint16(fat12.EndOfChain), table.GetEntry(3))
}

func TestEncodeFileList_MultiClusterFile(t *testing.T) {
	table := fat12.EncodeFileList(9, []uint{3})
	require.True(t, table.IsPresent())

	assert.Equal(t, uint16(3), table.GetEntry(2))
	assert.Equal(t, uint16(4), table.GetEntry(3))
	assert.Equal(t, uint16(fat12.EndOfChain), table.GetEntry(4))
}

func TestFollowChain(t *testing.T) {
	table := fat12.EncodeFileList(9, []uint{1, 3})

	chain, err := table.FollowChain(2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2}, chain)

	chain, err = table.FollowChain(3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{3, 4, 5}, chain)
}

func TestFollowChain_AbsentFAT(t *testing.T) {
	table := fat12.NewBlankTable(9)
	_, err := table.FollowChain(2)
	assert.Error(t, err)
}

func TestDecode_MultipleChains(t *testing.T) {
	table := fat12.EncodeFileList(9, []uint{1, 3})
	chains := table.Decode()

	require.Len(t, chains, 2)
	assert.Equal(t, []uint16{2}, chains[0])
	assert.Equal(t, []uint16{3, 4, 5}, chains[1])
}

func TestDecode_AbsentFATReturnsNil(t *testing.T) {
	table := fat12.NewBlankTable(9)
	assert.Nil(t, table.Decode())
}

func TestReplicateAndReadCopy_RoundTrip(t *testing.T) {
	img := diskimage.Blank()
	table := fat12.EncodeFileList(3*diskimage.SectorSize, []uint{2})
	table.Replicate(img, 1, 3, 2)

	copy1 := fat12.ReadCopy(img, 1, 3)
	copy2 := fat12.ReadCopy(img, 4, 3)

	assert.Equal(t, table.Bytes(), copy1.Bytes())
	assert.Equal(t, table.Bytes(), copy2.Bytes())
}
