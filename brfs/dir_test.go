package brfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartpleiter/FPGC-sub000/errors"
)

func TestParsePath(t *testing.T) {
	cases := []struct {
		path, dir, name string
	}{
		{"/file.txt", "/", "file.txt"},
		{"/a/b", "/a", "b"},
		{"file.txt", "/", "file.txt"},
	}
	for _, c := range cases {
		dir, name, err := ParsePath(c.path)
		require.NoError(t, err)
		assert.Equal(t, c.dir, dir)
		assert.Equal(t, c.name, name)
	}
}

func TestParsePathRejectsTooLong(t *testing.T) {
	huge := make([]byte, MaxPathLength+1)
	for i := range huge {
		huge[i] = 'a'
	}
	_, _, err := ParsePath(string(huge))
	assert.ErrorIs(t, err, errors.ErrPathTooLong)
}

func TestParsePathRejectsLongFilename(t *testing.T) {
	_, _, err := ParsePath("/" + string(make([]byte, MaxFilenameLength+1)))
	assert.Error(t, err)
}

// Scenario A: format & statfs.
func TestScenarioAFormatAndStatfs(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")

	total, free, blockSize, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(t, uint32(128), total)
	assert.Equal(t, uint32(127), free)
	assert.Equal(t, uint32(64), blockSize)

	label, err := fs.GetLabel()
	require.NoError(t, err)
	assert.Equal(t, "TESTFS", label)
}

// Scenario B: directory creation and listing.
func TestScenarioBDirectoryCreationAndListing(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")

	require.NoError(t, fs.CreateDir("/a"))
	require.NoError(t, fs.CreateDir("/a/b"))
	require.NoError(t, fs.CreateFile("/a/file.txt"))

	entries, err := fs.ReadDir("/a")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byName := map[string]Dirent{}
	for _, e := range entries {
		byName[e.Filename] = e
	}
	assert.True(t, byName["."].IsDirectory())
	assert.True(t, byName[".."].IsDirectory())
	assert.True(t, byName["b"].IsDirectory())
	assert.False(t, byName["file.txt"].IsDirectory())
	assert.Equal(t, uint32(0), byName["file.txt"].Filesize)

	subEntries, err := fs.ReadDir("/a/b")
	require.NoError(t, err)
	assert.Len(t, subEntries, 2)
}

// Scenario E: delete reclaims blocks, freed blocks are lowest-index
// first-fit candidates afterward.
func TestScenarioEDeleteReclaim(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")

	require.NoError(t, fs.CreateFile("/file.txt"))
	fd, err := fs.Open("/file.txt")
	require.NoError(t, err)
	_, err = fs.Write(fd, make([]uint32, 64*3-1)) // spills into 3 blocks total
	require.NoError(t, err)
	require.NoError(t, fs.Close(fd))

	d, err := fs.Stat("/file.txt")
	require.NoError(t, err)

	_, freeBefore, _, _ := fs.Statfs()

	require.NoError(t, fs.Delete("/file.txt"))

	_, freeAfter, _, _ := fs.Statfs()
	assert.Equal(t, freeBefore+3, freeAfter)

	blk, err := fs.allocateBlock()
	require.NoError(t, err)
	assert.Equal(t, d.FATIdx, blk)
}

// Scenario F: error surfaces.
func TestScenarioFErrorSurfaces(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")

	require.NoError(t, fs.CreateDir("/a"))
	require.NoError(t, fs.CreateFile("/a/child.txt"))

	err := fs.Delete("/a")
	assert.ErrorIs(t, err, errors.ErrNotEmpty)

	require.NoError(t, fs.CreateFile("/a/file.txt"))
	_, err = fs.Open("/a")
	assert.ErrorIs(t, err, errors.ErrIsDirectory)

	err = fs.CreateFile("/a/file.txt")
	assert.ErrorIs(t, err, errors.ErrExists)
}

func TestDoubleOpenIsOpenError(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")
	require.NoError(t, fs.CreateFile("/file.txt"))

	fd, err := fs.Open("/file.txt")
	require.NoError(t, err)
	defer fs.Close(fd)

	_, err = fs.Open("/file.txt")
	assert.ErrorIs(t, err, errors.ErrIsOpen)
}

func TestDeleteOpenFileIsOpenError(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")
	require.NoError(t, fs.CreateFile("/file.txt"))

	fd, err := fs.Open("/file.txt")
	require.NoError(t, err)
	defer fs.Close(fd)

	assert.ErrorIs(t, fs.Delete("/file.txt"), errors.ErrIsOpen)
}

func TestStatRoot(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")

	d, err := fs.Stat("/")
	require.NoError(t, err)
	assert.Equal(t, "/", d.Filename)
	assert.True(t, d.IsDirectory())
	assert.Equal(t, Block(0), d.FATIdx)
}

func TestExistsAndIsDir(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")
	require.NoError(t, fs.CreateDir("/a"))
	require.NoError(t, fs.CreateFile("/a/f"))

	assert.True(t, fs.Exists("/a"))
	assert.True(t, fs.IsDir("/a"))
	assert.True(t, fs.Exists("/a/f"))
	assert.False(t, fs.IsDir("/a/f"))
	assert.False(t, fs.Exists("/nope"))
}
