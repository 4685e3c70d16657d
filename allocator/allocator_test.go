package allocator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msxarchive/dskmgr/allocator"
)

func TestClusterCount(t *testing.T) {
	assert.Equal(t, uint(1), allocator.ClusterCount(100))
	assert.Equal(t, uint(1), allocator.ClusterCount(1024))
	assert.Equal(t, uint(2), allocator.ClusterCount(1025))
}

func TestReserve_LinearAssignment(t *testing.T) {
	a := allocator.New(allocator.MaxDataClusters)

	first, err := a.Reserve(3)
	require.NoError(t, err)
	assert.Equal(t, uint(2), first.FirstCluster)

	second, err := a.Reserve(2)
	require.NoError(t, err)
	assert.Equal(t, uint(5), second.FirstCluster)
}

func TestReserve_NoOverlap(t *testing.T) {
	a := allocator.New(10)
	first, err := a.Reserve(4)
	require.NoError(t, err)
	second, err := a.Reserve(4)
	require.NoError(t, err)

	firstRange := map[uint]bool{}
	for c := first.FirstCluster; c < first.FirstCluster+first.Count; c++ {
		firstRange[c] = true
	}
	for c := second.FirstCluster; c < second.FirstCluster+second.Count; c++ {
		assert.False(t, firstRange[c], "cluster %d allocated twice", c)
	}
}

func TestReserve_DiskFull(t *testing.T) {
	a := allocator.New(4)
	_, err := a.Reserve(5)
	assert.Error(t, err)
}

func TestMaxDataClusters(t *testing.T) {
	assert.Equal(t, uint(714), uint(allocator.MaxDataClusters))
}
