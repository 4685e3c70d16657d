package diskimage

import (
	"fmt"
)

// SectorID identifies an absolute sector, 0-based from the start of the
// image.
type SectorID uint

// ClusterID identifies a cluster. Per spec.md §3, the first data cluster is
// numbered 2; 0 and 1 are reserved (0 holds the media descriptor in the FAT,
// 1 is unused).
type ClusterID uint

// ClusterStream converts between cluster numbers and absolute sector
// ranges, and bounds-checks cluster-oriented reads and writes against the
// image's data area. Adapted from the teacher's common.ClusterStream,
// simplified for a single fixed geometry with no resizing.
type ClusterStream struct {
	img               *Image
	sectorsPerCluster uint
	firstDataSector   SectorID
	totalDataClusters uint
}

// NewClusterStream builds a ClusterStream over img's data area, which
// starts at firstDataSector and holds totalDataClusters clusters of
// sectorsPerCluster sectors each.
func NewClusterStream(img *Image, sectorsPerCluster uint, firstDataSector SectorID, totalDataClusters uint) *ClusterStream {
	return &ClusterStream{
		img:               img,
		sectorsPerCluster: sectorsPerCluster,
		firstDataSector:   firstDataSector,
		totalDataClusters: totalDataClusters,
	}
}

// FirstSectorOf returns the absolute sector at which the given cluster's
// data begins.
func (cs *ClusterStream) FirstSectorOf(cluster ClusterID) (SectorID, error) {
	if cluster < 2 || uint(cluster) >= 2+cs.totalDataClusters {
		return 0, fmt.Errorf(
			"invalid cluster %d: not in range [2, %d)", cluster, 2+cs.totalDataClusters)
	}
	offset := uint(cluster-2) * cs.sectorsPerCluster
	return cs.firstDataSector + SectorID(offset), nil
}

// ReadCluster returns the bytes of a whole cluster.
func (cs *ClusterStream) ReadCluster(cluster ClusterID) ([]byte, error) {
	first, err := cs.FirstSectorOf(cluster)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, cs.sectorsPerCluster*SectorSize)
	for i := uint(0); i < cs.sectorsPerCluster; i++ {
		copy(buf[i*SectorSize:(i+1)*SectorSize], cs.img.Sector(uint(first)+i))
	}
	return buf, nil
}

// WriteCluster writes data (which must be exactly one cluster's worth of
// bytes) starting at the given cluster.
func (cs *ClusterStream) WriteCluster(cluster ClusterID, data []byte) error {
	first, err := cs.FirstSectorOf(cluster)
	if err != nil {
		return err
	}
	bytesPerCluster := cs.sectorsPerCluster * SectorSize
	if uint(len(data)) != bytesPerCluster {
		return fmt.Errorf(
			"WriteCluster: data is %d bytes, want exactly %d (one cluster)",
			len(data), bytesPerCluster)
	}
	for i := uint(0); i < cs.sectorsPerCluster; i++ {
		copy(cs.img.Sector(uint(first)+i), data[i*SectorSize:(i+1)*SectorSize])
	}
	return nil
}

// BytesPerCluster returns the number of bytes a single cluster holds.
func (cs *ClusterStream) BytesPerCluster() uint {
	return cs.sectorsPerCluster * SectorSize
}
