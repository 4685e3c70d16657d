package archive

import (
	"github.com/msxarchive/dskmgr/diskimage"
	"github.com/msxarchive/dskmgr/directory"
	derrors "github.com/msxarchive/dskmgr/errors"
)

// Put returns a newly built image with name's payload set to data, per
// spec.md §4.6. If a live entry with that name already exists, its
// payload is replaced and its timestamp is preserved verbatim; otherwise a
// new entry is appended with a timestamp from clock.
func (a *Archive) Put(name string, data []byte, clock Clock, rng RandomSource) (*diskimage.Image, error) {
	wantName, wantExt, err := directory.PackName(name)
	if err != nil {
		return nil, err
	}

	var names [][8]byte
	var exts [][3]byte
	var timestamps [][2]uint16
	var payloads [][]byte

	replaced := false
	for _, e := range a.entries {
		if e.Name == wantName && e.Ext == wantExt {
			names = append(names, e.Name)
			exts = append(exts, e.Ext)
			timestamps = append(timestamps, [2]uint16{e.Date, e.Time})
			payloads = append(payloads, data)
			replaced = true
			continue
		}

		content, err := a.readEntry(e)
		if err != nil {
			return nil, err
		}
		names = append(names, e.Name)
		exts = append(exts, e.Ext)
		timestamps = append(timestamps, [2]uint16{e.Date, e.Time})
		payloads = append(payloads, content)
	}

	if !replaced {
		date, timeField := directory.PackTimestamp(clock.Now())
		names = append(names, wantName)
		exts = append(exts, wantExt)
		timestamps = append(timestamps, [2]uint16{date, timeField})
		payloads = append(payloads, data)
	}

	return rebuild(names, exts, timestamps, payloads, a.boot.IDValue, rng)
}

// Rm returns a newly built image with name's entry removed, per
// spec.md §4.6. It returns ErrFileNotFound if no live entry matches.
func (a *Archive) Rm(name string, rng RandomSource) (*diskimage.Image, error) {
	wantName, wantExt, err := directory.PackName(name)
	if err != nil {
		return nil, err
	}

	var names [][8]byte
	var exts [][3]byte
	var timestamps [][2]uint16
	var payloads [][]byte

	found := false
	for _, e := range a.entries {
		if e.Name == wantName && e.Ext == wantExt {
			found = true
			continue
		}

		content, err := a.readEntry(e)
		if err != nil {
			return nil, err
		}
		names = append(names, e.Name)
		exts = append(exts, e.Ext)
		timestamps = append(timestamps, [2]uint16{e.Date, e.Time})
		payloads = append(payloads, content)
	}

	if !found {
		return nil, derrors.ErrFileNotFound.WithMessage(name)
	}

	return rebuild(names, exts, timestamps, payloads, a.boot.IDValue, rng)
}
