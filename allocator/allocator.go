// Package allocator implements spec.md §4.4's cluster allocator: during
// synthesis, clusters are handed out purely linearly, but an allocation
// bitmap (adapted from the teacher's common.Allocator, backed by
// go-bitmap exactly as that package uses it) turns the "no two files'
// cluster ranges overlap" property from spec.md §8 into a checked
// invariant instead of an assumption.
package allocator

import (
	"fmt"

	"github.com/boljen/go-bitmap"

	derrors "github.com/msxarchive/dskmgr/errors"
)

// MaxDataClusters is the limit from spec.md §4.4: (1440 - 1 - 3*2 - 5) / 2.
const MaxDataClusters = (1440 - 1 - 3*2 - 5) / 2

// SectorSize and ClusterSectors mirror the synthesized geometry's fixed
// boot-sector fields, used only to convert byte sizes to cluster counts.
const (
	SectorSize     = 512
	ClusterSectors = 2
)

// ClusterCount returns the number of clusters a file of the given byte
// size occupies: ceil(ceil(size/sectorSize)/clusterSize).
func ClusterCount(size int) uint {
	sectors := (size + SectorSize - 1) / SectorSize
	clusters := (sectors + ClusterSectors - 1) / ClusterSectors
	return uint(clusters)
}

// Allocation records the cluster range assigned to one file.
type Allocation struct {
	FirstCluster uint
	Count        uint
}

// Allocator assigns clusters linearly starting at 2 and tracks the result
// in a bitmap so overlaps can be detected defensively.
type Allocator struct {
	used     bitmap.Bitmap
	total    uint
	nextFree uint
}

// New creates an Allocator over totalClusters data clusters (numbered
// 2..totalClusters+1).
func New(totalClusters uint) *Allocator {
	return &Allocator{
		used:     bitmap.New(int(totalClusters)),
		total:    totalClusters,
		nextFree: 2,
	}
}

// Reserve assigns the next `count` clusters linearly, per spec.md §4.4:
// "file i starts at cluster 2 + Σ_{j<i} cluster_count(j)". It returns
// ErrDiskFull if the running total would exceed the allocator's capacity,
// matching spec.md §4.10's "detecting that yields Disk Full before any
// write" requirement.
func (a *Allocator) Reserve(count uint) (Allocation, error) {
	if count == 0 {
		return Allocation{}, fmt.Errorf("allocator: cannot reserve zero clusters")
	}

	first := a.nextFree
	last := first + count - 1
	if last-2 >= a.total {
		return Allocation{}, derrors.ErrDiskFull.WithMessage(
			fmt.Sprintf("need cluster %d but only %d data clusters exist", last, a.total))
	}

	for c := first; c <= last; c++ {
		bit := int(c - 2)
		if a.used.Get(bit) {
			return Allocation{}, fmt.Errorf(
				"allocator: cluster %d already allocated (overlap)", c)
		}
		a.used.Set(bit, true)
	}

	a.nextFree = last + 1
	return Allocation{FirstCluster: first, Count: count}, nil
}

// TotalReserved returns how many clusters have been handed out so far.
func (a *Allocator) TotalReserved() uint {
	return a.nextFree - 2
}
