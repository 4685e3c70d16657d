package archive

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"

	"github.com/msxarchive/dskmgr/allocator"
	"github.com/msxarchive/dskmgr/bootsector"
	"github.com/msxarchive/dskmgr/diskimage"
	"github.com/msxarchive/dskmgr/directory"
	derrors "github.com/msxarchive/dskmgr/errors"
	"github.com/msxarchive/dskmgr/fat12"
)

// FileSpec is one file to embed when building a fresh image from scratch.
type FileSpec struct {
	Name    string
	Payload []byte
}

// fatFixedSize is the byte size of one FAT copy in the synthesized 720 KB
// geometry: FATSize (3 sectors) * diskimage.SectorSize.
const fatFixedSize = 3 * diskimage.SectorSize

// Create builds a brand new 720 KB image containing exactly the given
// files, per spec.md §4.4's from-scratch synthesis path. Every file name
// is validated before anything is allocated or written; validation
// failures are aggregated so a caller sees every bad name at once instead
// of stopping at the first one.
func Create(files []FileSpec, clock Clock, rng RandomSource) (*diskimage.Image, error) {
	var names [][8]byte
	var exts [][3]byte
	var errs *multierror.Error

	for _, f := range files {
		name, ext, err := directory.PackName(f.Name)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		names = append(names, name)
		exts = append(exts, ext)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	clusterCounts := make([]uint, len(files))
	for i, f := range files {
		clusterCounts[i] = allocator.ClusterCount(len(f.Payload))
	}

	alloc := allocator.New(allocator.MaxDataClusters)
	allocations := make([]allocator.Allocation, len(files))
	for i, count := range clusterCounts {
		a, err := alloc.Reserve(count)
		if err != nil {
			return nil, err
		}
		allocations[i] = a
	}

	useDOS2 := false
	for i := range files {
		packed := string(names[i][:]) + string(exts[i][:])
		if bootsector.NeedsDOS2Loader(packed) {
			useDOS2 = true
			break
		}
	}

	boot, err := bootsector.Synthesize(useDOS2, nil, rng)
	if err != nil {
		return nil, err
	}

	img := diskimage.Blank()
	boot.Write(img)

	fatTable := fat12.EncodeFileList(fatFixedSize, clusterCounts)
	fatTable.Replicate(img, diskimage.SectorID(boot.FATPosition), uint(boot.FATSize), uint(boot.FATCopy))

	clusters := diskimage.NewClusterStream(
		img, uint(boot.ClusterSize), boot.DataPosition(), boot.TotalDataClusters())

	now := clock.Now()
	for i, f := range files {
		if err := writePayload(clusters, allocations[i], f.Payload); err != nil {
			return nil, err
		}

		date, timeField := directory.PackTimestamp(now)
		entry := directory.Entry{
			Name:         names[i],
			Ext:          exts[i],
			Attribute:    0,
			Time:         timeField,
			Date:         date,
			FirstCluster: uint16(allocations[i].FirstCluster),
			Size:         uint32(len(f.Payload)),
		}
		entry.WriteAt(img, boot.DirectoryPosition(), i)
	}

	return img, nil
}

// writePayload splits payload into whole clusters (the final cluster is
// zero-padded) and writes them starting at alloc.FirstCluster.
func writePayload(clusters *diskimage.ClusterStream, alloc allocator.Allocation, payload []byte) error {
	bytesPerCluster := clusters.BytesPerCluster()
	cluster := diskimage.ClusterID(alloc.FirstCluster)

	for offset := 0; offset < len(payload) || (offset == 0 && alloc.Count > 0); offset += int(bytesPerCluster) {
		end := offset + int(bytesPerCluster)
		if end > len(payload) {
			end = len(payload)
		}

		buf := make([]byte, bytesPerCluster)
		writer := bytewriter.New(buf)
		if _, err := writer.Write(payload[offset:end]); err != nil {
			return derrors.ErrIO.WrapError(err)
		}

		if err := clusters.WriteCluster(cluster, buf); err != nil {
			return err
		}
		cluster++
		if end == len(payload) {
			break
		}
	}
	return nil
}

// rebuild re-synthesizes a whole image from the given live entries and
// their payload bytes, preserving existingIDValue verbatim (spec.md §4.6:
// put/rm never rotate the volume ID). It is the shared tail of Put and Rm.
func rebuild(liveNames [][8]byte, liveExts [][3]byte, liveTimestamps [][2]uint16, payloads [][]byte, existingIDValue [4]byte, rng RandomSource) (*diskimage.Image, error) {
	if len(liveNames) > directory.MaxEntries {
		return nil, derrors.ErrDiskFull.WithMessage(
			fmt.Sprintf("%d files exceeds the %d-entry root directory", len(liveNames), directory.MaxEntries))
	}

	clusterCounts := make([]uint, len(payloads))
	for i, p := range payloads {
		clusterCounts[i] = allocator.ClusterCount(len(p))
	}

	alloc := allocator.New(allocator.MaxDataClusters)
	allocations := make([]allocator.Allocation, len(payloads))
	for i, count := range clusterCounts {
		a, err := alloc.Reserve(count)
		if err != nil {
			return nil, err
		}
		allocations[i] = a
	}

	useDOS2 := false
	for i := range liveNames {
		packed := string(liveNames[i][:]) + string(liveExts[i][:])
		if bootsector.NeedsDOS2Loader(packed) {
			useDOS2 = true
			break
		}
	}

	idCopy := existingIDValue
	boot, err := bootsector.Synthesize(useDOS2, &idCopy, rng)
	if err != nil {
		return nil, err
	}

	img := diskimage.Blank()
	boot.Write(img)

	fatTable := fat12.EncodeFileList(fatFixedSize, clusterCounts)
	fatTable.Replicate(img, diskimage.SectorID(boot.FATPosition), uint(boot.FATSize), uint(boot.FATCopy))

	clusters := diskimage.NewClusterStream(
		img, uint(boot.ClusterSize), boot.DataPosition(), boot.TotalDataClusters())

	for i, payload := range payloads {
		if err := writePayload(clusters, allocations[i], payload); err != nil {
			return nil, err
		}

		entry := directory.Entry{
			Name:         liveNames[i],
			Ext:          liveExts[i],
			Attribute:    0,
			Date:         liveTimestamps[i][0],
			Time:         liveTimestamps[i][1],
			FirstCluster: uint16(allocations[i].FirstCluster),
			Size:         uint32(len(payload)),
		}
		entry.WriteAt(img, boot.DirectoryPosition(), i)
	}

	return img, nil
}
