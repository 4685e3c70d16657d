package archive_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msxarchive/dskmgr/archive"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type zeroRNG struct{}

func (zeroRNG) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

var testClock = fixedClock{t: time.Date(2024, time.March, 15, 13, 45, 30, 0, time.Local)}

func TestCreate_EmptyImage(t *testing.T) {
	img, err := archive.Create(nil, testClock, zeroRNG{})
	require.NoError(t, err)

	a := archive.OpenImage(img)
	assert.Empty(t, a.List())
}

func TestCreate_ListRoundTrip(t *testing.T) {
	files := []archive.FileSpec{
		{Name: "HELLO.TXT", Payload: []byte("hello, world")},
		{Name: "README", Payload: []byte("no extension")},
	}
	img, err := archive.Create(files, testClock, zeroRNG{})
	require.NoError(t, err)

	a := archive.OpenImage(img)
	infos := a.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "HELLO.TXT", infos[0].Name)
	assert.Equal(t, uint32(len("hello, world")), infos[0].Size)
	assert.Equal(t, "README", infos[1].Name)
}

func TestReadFile_RoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	files := []archive.FileSpec{{Name: "FOX.TXT", Payload: payload}}
	img, err := archive.Create(files, testClock, zeroRNG{})
	require.NoError(t, err)

	a := archive.OpenImage(img)
	got, err := a.ReadFile("FOX.TXT")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFile_NotFound(t *testing.T) {
	img, err := archive.Create(nil, testClock, zeroRNG{})
	require.NoError(t, err)

	a := archive.OpenImage(img)
	_, err = a.ReadFile("NOPE.TXT")
	assert.Error(t, err)
}

func TestPut_ReplacesPayloadPreservesTimestamp(t *testing.T) {
	files := []archive.FileSpec{{Name: "A.TXT", Payload: []byte("original")}}
	img, err := archive.Create(files, testClock, zeroRNG{})
	require.NoError(t, err)

	before := archive.OpenImage(img).List()[0].Timestamp

	later := fixedClock{t: testClock.t.Add(24 * time.Hour)}
	img2, err := archive.OpenImage(img).Put("A.TXT", []byte("replaced content"), later, zeroRNG{})
	require.NoError(t, err)

	a2 := archive.OpenImage(img2)
	got, err := a2.ReadFile("A.TXT")
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced content"), got)

	after := a2.List()[0].Timestamp
	assert.Equal(t, before, after)
}

func TestPut_AppendsNewFileWithClockTimestamp(t *testing.T) {
	img, err := archive.Create(nil, testClock, zeroRNG{})
	require.NoError(t, err)

	img2, err := archive.OpenImage(img).Put("NEW.TXT", []byte("fresh"), testClock, zeroRNG{})
	require.NoError(t, err)

	infos := archive.OpenImage(img2).List()
	require.Len(t, infos, 1)
	assert.Equal(t, "NEW.TXT", infos[0].Name)
	assert.Equal(t, testClock.t, infos[0].Timestamp)
}

func TestRm_RemovesMatchingEntry(t *testing.T) {
	files := []archive.FileSpec{
		{Name: "KEEP.TXT", Payload: []byte("stay")},
		{Name: "GONE.TXT", Payload: []byte("leave")},
	}
	img, err := archive.Create(files, testClock, zeroRNG{})
	require.NoError(t, err)

	img2, err := archive.OpenImage(img).Rm("GONE.TXT", zeroRNG{})
	require.NoError(t, err)

	infos := archive.OpenImage(img2).List()
	require.Len(t, infos, 1)
	assert.Equal(t, "KEEP.TXT", infos[0].Name)
}

func TestRm_NotFound(t *testing.T) {
	img, err := archive.Create(nil, testClock, zeroRNG{})
	require.NoError(t, err)

	_, err = archive.OpenImage(img).Rm("NOPE.TXT", zeroRNG{})
	assert.Error(t, err)
}

func TestCreate_MultiClusterFile(t *testing.T) {
	payload := make([]byte, 3000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	files := []archive.FileSpec{{Name: "BIG.BIN", Payload: payload}}
	img, err := archive.Create(files, testClock, zeroRNG{})
	require.NoError(t, err)

	a := archive.OpenImage(img)
	got, err := a.ReadFile("BIG.BIN")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCreate_InvalidNameAggregatesErrors(t *testing.T) {
	files := []archive.FileSpec{
		{Name: "WAYTOOLONGNAME.TXT", Payload: []byte("x")},
		{Name: "ALSO.TOOLONG", Payload: []byte("y")},
	}
	_, err := archive.Create(files, testClock, zeroRNG{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `name "WAYTOOLONGNAME"`)
	assert.Contains(t, err.Error(), `extension "TOOLONG"`)
}
