// Command dskmgr manages MSX 720 KB FAT12 disk images: inspecting their
// boot sector and directory, extracting and inserting files (tokenizing
// and detokenizing BAS files along the way), removing files, and building
// fresh images from scratch. See spec.md §6 for the full CLI surface.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"crypto/rand"

	"github.com/urfave/cli/v2"

	"github.com/msxarchive/dskmgr/archive"
	"github.com/msxarchive/dskmgr/basic"
	derrors "github.com/msxarchive/dskmgr/errors"
)

// systemClock and systemRandom are the external collaborators spec.md §1
// calls out as out of scope for the core engine; main wires the real ones
// in here at the CLI edge.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type systemRandom struct{}

func (systemRandom) Read(p []byte) (int, error) { return rand.Read(p) }

func main() {
	app := &cli.App{
		Name:      "dskmgr",
		Usage:     "Inspect and edit MSX 720 KB FAT12 disk images",
		ArgsUsage: "IMAGE COMMAND [args...]",
		Commands: []*cli.Command{
			{Name: "info", Usage: "Print boot-sector fields and file summary", Action: withImage(cmdInfo)},
			{Name: "ls", Aliases: []string{"dir"}, Usage: "List directory contents", Action: withImage(cmdLs)},
			{Name: "get", Aliases: []string{"cp"}, Usage: "Extract a file", ArgsUsage: "FILE [as FILE2]", Action: withImage(cmdGet)},
			{Name: "put", Aliases: []string{"wt"}, Usage: "Insert or replace a file", ArgsUsage: "FILE [as FILE2]", Action: withImage(cmdPut)},
			{Name: "cat", Usage: "Print a file's contents", ArgsUsage: "FILE", Action: withImage(cmdCat)},
			{Name: "rm", Aliases: []string{"del", "delete"}, Usage: "Remove a file", ArgsUsage: "FILE", Action: withImage(cmdRm)},
			{Name: "create", Usage: "Build a fresh image", ArgsUsage: "[files...]", Action: cmdCreate},
		},
	}

	// The image path comes before the subcommand on the command line, but
	// cli.App dispatches on its first argument, so the two are swapped.
	args := os.Args
	if len(args) >= 3 && !strings.HasPrefix(args[1], "-") {
		args = append([]string{args[0], args[2], args[1]}, args[3:]...)
	}

	if err := app.Run(args); err != nil {
		log.Printf("dskmgr: %s", err)
		os.Exit(derrors.ExitCode(err))
	}
}

// withImage wraps a subcommand action that operates on an already-open
// Archive: it reads the image path (the command's first positional
// argument per spec.md §6), parses it, and hands the Archive plus the
// remaining arguments to fn.
func withImage(fn func(path string, rest []string, a *archive.Archive) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		args := c.Args().Slice()
		if len(args) == 0 {
			return derrors.ErrIO.WithMessage("missing image path")
		}
		path, rest := args[0], args[1:]

		data, err := os.ReadFile(path)
		if err != nil {
			return derrors.ErrImageRead.WrapError(err)
		}

		a, err := archive.Open(data)
		if err != nil {
			return err
		}

		return fn(path, rest, a)
	}
}

func cmdInfo(path string, rest []string, a *archive.Archive) error {
	boot := a.BootSector()
	fmt.Printf("sectorSize=%d clusterSize=%d fatPosition=%d fatCopy=%d\n",
		boot.SectorSize, boot.ClusterSize, boot.FATPosition, boot.FATCopy)
	fmt.Printf("directoryEntry=%d numberOfSector=%d mediaId=0x%02X\n",
		boot.DirectoryEntry, boot.NumberOfSector, boot.MediaID)

	for _, info := range a.List() {
		fmt.Printf("%-12s %8d bytes  firstCluster=%d clusters=%d\n",
			info.Name, info.Size, info.FirstCluster, info.ClusterCount)
	}
	return nil
}

func cmdLs(path string, rest []string, a *archive.Archive) error {
	for _, info := range a.List() {
		fmt.Printf("%s %-12s %8d  %s  cluster=%d sector=%d\n",
			attributeString(info.Attribute), info.Name, info.Size,
			info.Timestamp.Format("2006-01-02 15:04:05"), info.FirstCluster, info.FirstDataSector)
	}
	return nil
}

// attributeString renders the attribute byte as the "dvshw" flag
// characters spec.md §6 specifies for `ls`/`dir`, lowercase when set,
// dash when clear.
func attributeString(attr uint8) string {
	flags := []struct {
		bit  uint8
		char byte
	}{
		{0x10, 'd'}, {0x08, 'v'}, {0x04, 's'}, {0x02, 'h'}, {0x01, 'w'},
	}
	out := make([]byte, len(flags))
	for i, f := range flags {
		if attr&f.bit != 0 {
			out[i] = f.char
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}

func cmdGet(path string, rest []string, a *archive.Archive) error {
	srcName, destName := parseAsClause(rest)
	if srcName == "" {
		return derrors.ErrInvalidName.WithMessage("get requires a file name")
	}
	if destName == "" {
		destName = srcName
	}

	data, err := a.ReadFile(srcName)
	if err != nil {
		return err
	}
	if err := os.WriteFile(destName, data, 0o644); err != nil {
		return derrors.ErrIO.WrapError(err)
	}
	return nil
}

func cmdPut(path string, rest []string, a *archive.Archive) error {
	srcName, destName := parseAsClause(rest)
	if srcName == "" {
		return derrors.ErrInvalidName.WithMessage("put requires a file name")
	}
	if destName == "" {
		destName = srcName
	}

	data, err := os.ReadFile(srcName)
	if err != nil {
		return derrors.ErrIO.WrapError(err)
	}

	if strings.EqualFold(extensionOf(destName), "BAS") {
		tokens, err := basic.Tokenize(string(data))
		if err != nil {
			return err
		}
		data = tokens
	}

	img, err := a.Put(destName, data, systemClock{}, systemRandom{})
	if err != nil {
		return err
	}
	return writeImageTo(path, img)
}

func cmdCat(path string, rest []string, a *archive.Archive) error {
	name := first(rest)
	if name == "" {
		return derrors.ErrInvalidName.WithMessage("cat requires a file name")
	}

	data, err := a.ReadFile(name)
	if err != nil {
		return err
	}

	if strings.EqualFold(extensionOf(name), "BAS") {
		text, err := basic.Detokenize(data)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}

	_, err = os.Stdout.Write(data)
	return err
}

func cmdRm(path string, rest []string, a *archive.Archive) error {
	name := first(rest)
	if name == "" {
		return derrors.ErrInvalidName.WithMessage("rm requires a file name")
	}

	img, err := a.Rm(name, systemRandom{})
	if err != nil {
		return err
	}
	return writeImageTo(path, img)
}

func cmdCreate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return derrors.ErrIO.WithMessage("missing image path")
	}

	var files []archive.FileSpec
	for _, name := range c.Args().Slice()[1:] {
		data, err := os.ReadFile(name)
		if err != nil {
			return derrors.ErrIO.WrapError(err)
		}
		if strings.EqualFold(extensionOf(name), "BAS") {
			tokens, err := basic.Tokenize(string(data))
			if err != nil {
				return err
			}
			data = tokens
		}
		files = append(files, archive.FileSpec{Name: name, Payload: data})
	}

	img, err := archive.Create(files, systemClock{}, systemRandom{})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, img.Bytes(), 0o644); err != nil {
		return derrors.ErrIO.WrapError(err)
	}
	return nil
}

// writeImageTo writes img back to the given on-disk path.
func writeImageTo(path string, img interface{ Bytes() []byte }) error {
	if err := os.WriteFile(path, img.Bytes(), 0o644); err != nil {
		return derrors.ErrIO.WrapError(err)
	}
	return nil
}

// parseAsClause splits "FILE [as FILE2]" argument lists per spec.md §6.
func parseAsClause(args []string) (src, dest string) {
	if len(args) == 0 {
		return "", ""
	}
	src = args[0]
	if len(args) >= 3 && strings.EqualFold(args[1], "as") {
		dest = args[2]
	}
	return src, dest
}

func first(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func extensionOf(name string) string {
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		return name[dot+1:]
	}
	return ""
}
