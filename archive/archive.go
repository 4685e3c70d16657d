// Package archive ties together diskimage, bootsector, fat12, directory,
// and allocator into the read-side and write-side operations spec.md §4.5
// and §4.6 describe: rebuilding a file's byte stream from its cluster
// chain (with the sequential-read fallback for corrupt FATs), and
// rewriting a whole image from scratch when files are added, replaced, or
// removed. This is the "File I/O over image" leaf plus the mutation logic
// layered on top of it, grounded on the teacher's drivers/fat/driverbase.go
// (readCluster/listClusters/getClusterInChain).
package archive

import (
	"time"

	"github.com/msxarchive/dskmgr/bootsector"
	"github.com/msxarchive/dskmgr/diskimage"
	"github.com/msxarchive/dskmgr/directory"
	derrors "github.com/msxarchive/dskmgr/errors"
	"github.com/msxarchive/dskmgr/fat12"
)

// Clock is the timestamp collaborator spec.md §1 and §5 call out as
// external. cmd/dskmgr supplies a time.Now-backed implementation; tests
// supply a fixed one.
type Clock interface {
	Now() time.Time
}

// RandomSource is re-exported from bootsector so callers only need to
// import this package to satisfy both Create's and the boot sector's
// collaborator requirements.
type RandomSource = bootsector.RandomSource

// FileInfo is the read-side, human-friendly projection of one directory
// entry, used by both `info` and `ls`/`dir`.
type FileInfo struct {
	Name            string
	Size            uint32
	Attribute       uint8
	Timestamp       time.Time
	FirstCluster    uint16
	FirstDataSector diskimage.SectorID
	ClusterCount    uint
}

// Archive is an opened, parsed disk image: the boot sector, one FAT copy,
// and the live directory entries. It is read-only; mutations go through
// Put/Rm/Create, which each produce a brand new Image rather than
// modifying this one in place (spec.md §4.6).
type Archive struct {
	img      *diskimage.Image
	boot     *bootsector.BootSector
	fat      *fat12.Table
	entries  []directory.Entry
	clusters *diskimage.ClusterStream
}

// Open parses raw image bytes into an Archive. It refuses images that
// aren't exactly 737,280 bytes (spec.md §3's size invariant).
func Open(data []byte) (*Archive, error) {
	img, err := diskimage.New(data)
	if err != nil {
		return nil, err
	}
	return OpenImage(img), nil
}

// OpenImage parses an already-validated Image. Exposed separately from
// Open so Put/Rm/Create can re-open the image they just built without a
// redundant size check.
func OpenImage(img *diskimage.Image) *Archive {
	boot := bootsector.Parse(img)
	fatTable := fat12.ReadCopy(img, diskimage.SectorID(boot.FATPosition), uint(boot.FATSize))
	entries := directory.Decode(img, boot.DirectoryPosition(), 5)
	clusters := diskimage.NewClusterStream(
		img, uint(boot.ClusterSize), boot.DataPosition(), boot.TotalDataClusters())

	return &Archive{
		img:      img,
		boot:     boot,
		fat:      fatTable,
		entries:  entries,
		clusters: clusters,
	}
}

// BootSector exposes the parsed boot sector, for the `info` command.
func (a *Archive) BootSector() *bootsector.BootSector {
	return a.boot
}

// List returns every live file's FileInfo, in directory order.
func (a *Archive) List() []FileInfo {
	infos := make([]FileInfo, 0, len(a.entries))
	for _, e := range a.entries {
		infos = append(infos, a.fileInfoFor(e))
	}
	return infos
}

func (a *Archive) fileInfoFor(e directory.Entry) FileInfo {
	firstSector, _ := a.clusters.FirstSectorOf(diskimage.ClusterID(e.FirstCluster))
	return FileInfo{
		Name:            e.DisplayName(),
		Size:            e.Size,
		Attribute:       e.Attribute,
		Timestamp:       directory.UnpackTimestamp(e.Date, e.Time),
		FirstCluster:    e.FirstCluster,
		FirstDataSector: firstSector,
		ClusterCount:    a.clusterCountForSize(e.Size),
	}
}

func (a *Archive) clusterCountForSize(size uint32) uint {
	bytesPerCluster := a.clusters.BytesPerCluster()
	if bytesPerCluster == 0 {
		return 0
	}
	return (uint(size) + bytesPerCluster - 1) / bytesPerCluster
}

// findEntry looks up a live entry by name. The query is packed through
// PackName (uppercased, space-padded) and compared byte for byte with the
// stored name and extension fields.
func (a *Archive) findEntry(name string) (directory.Entry, bool) {
	wantName, wantExt, err := directory.PackName(name)
	if err != nil {
		return directory.Entry{}, false
	}
	for _, e := range a.entries {
		if e.Name == wantName && e.Ext == wantExt {
			return e, true
		}
	}
	return directory.Entry{}, false
}

// ReadFile rebuilds the byte stream for the named file, per spec.md §4.5.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	entry, ok := a.findEntry(name)
	if !ok {
		return nil, derrors.ErrFileNotFound.WithMessage(name)
	}
	return a.readEntry(entry)
}

func (a *Archive) readEntry(entry directory.Entry) ([]byte, error) {
	if a.fat.IsPresent() {
		if data, err := a.readByChain(entry); err == nil {
			return data, nil
		}
	}
	// FAT absent or corrupt: fall back to sequential cluster reads from
	// the entry's first cluster, per spec.md §4.5's fallback policy.
	return a.readSequential(entry)
}

func (a *Archive) readByChain(entry directory.Entry) ([]byte, error) {
	chain, err := a.fat.FollowChain(entry.FirstCluster)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(chain)*int(a.clusters.BytesPerCluster()))
	for _, cluster := range chain {
		data, err := a.clusters.ReadCluster(diskimage.ClusterID(cluster))
		if err != nil {
			return nil, err
		}
		buf = append(buf, data...)
	}
	return truncate(buf, entry.Size), nil
}

// readSequential reads whole clusters starting at the entry's recorded
// first cluster, advancing one cluster at a time, until enough bytes have
// been gathered or the image runs out of sectors. Many archival MSX disks
// have damaged FATs but intact contiguous file content, so this recovers
// data the chain-based path can't.
func (a *Archive) readSequential(entry directory.Entry) ([]byte, error) {
	buf := make([]byte, 0, entry.Size)
	cluster := diskimage.ClusterID(entry.FirstCluster)

	for uint32(len(buf)) < entry.Size {
		data, err := a.clusters.ReadCluster(cluster)
		if err != nil {
			break
		}
		buf = append(buf, data...)
		cluster++
	}
	return truncate(buf, entry.Size), nil
}

func truncate(buf []byte, size uint32) []byte {
	if uint32(len(buf)) > size {
		return buf[:size]
	}
	return buf
}
