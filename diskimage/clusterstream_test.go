package diskimage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msxarchive/dskmgr/diskimage"
)

func TestClusterStream_FirstSectorOf(t *testing.T) {
	img := diskimage.Blank()
	cs := diskimage.NewClusterStream(img, 2, 12, 714)

	first, err := cs.FirstSectorOf(2)
	require.NoError(t, err)
	assert.Equal(t, diskimage.SectorID(12), first)

	second, err := cs.FirstSectorOf(3)
	require.NoError(t, err)
	assert.Equal(t, diskimage.SectorID(14), second)
}

func TestClusterStream_RejectsOutOfRangeCluster(t *testing.T) {
	img := diskimage.Blank()
	cs := diskimage.NewClusterStream(img, 2, 12, 714)

	_, err := cs.FirstSectorOf(1)
	assert.Error(t, err)

	_, err = cs.FirstSectorOf(2 + 714)
	assert.Error(t, err)
}

func TestClusterStream_WriteThenReadCluster(t *testing.T) {
	img := diskimage.Blank()
	cs := diskimage.NewClusterStream(img, 2, 12, 714)

	payload := make([]byte, cs.BytesPerCluster())
	for i := range payload {
		payload[i] = byte(i)
	}

	require.NoError(t, cs.WriteCluster(2, payload))
	readBack, err := cs.ReadCluster(2)
	require.NoError(t, err)
	assert.Equal(t, payload, readBack)
}

func TestClusterStream_WriteCluster_RejectsWrongSize(t *testing.T) {
	img := diskimage.Blank()
	cs := diskimage.NewClusterStream(img, 2, 12, 714)
	err := cs.WriteCluster(2, make([]byte, 10))
	assert.Error(t, err)
}
