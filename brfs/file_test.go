package brfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario C: write, read, persist across sync/unmount/mount.
func TestScenarioCWriteReadPersist(t *testing.T) {
	fs, dev := newFormatted(t, 128, 64, "TESTFS")

	require.NoError(t, fs.CreateDir("/a"))
	require.NoError(t, fs.CreateFile("/a/file.txt"))

	fd, err := fs.Open("/a/file.txt")
	require.NoError(t, err)

	want := make([]uint32, 64)
	for i := range want {
		want[i] = 0xDEADBEEF + uint32(i)
	}
	n, err := fs.Write(fd, want)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	require.NoError(t, fs.Close(fd))

	fd2, err := fs.Open("/a/file.txt")
	require.NoError(t, err)
	size, err := fs.FileSize(fd2)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), size)
	require.NoError(t, fs.Close(fd2))

	require.NoError(t, fs.Sync())
	require.NoError(t, fs.Unmount())

	fs2 := Init(dev)
	require.NoError(t, fs2.Mount())

	fd3, err := fs2.Open("/a/file.txt")
	require.NoError(t, err)
	got := make([]uint32, 64)
	n, err = fs2.Read(fd3, got)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, want, got)
}

// Scenario D: multi-block write and clamped reads.
func TestScenarioDMultiBlockWrite(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")
	require.NoError(t, fs.CreateFile("/big.bin"))

	fd, err := fs.Open("/big.bin")
	require.NoError(t, err)

	data := make([]uint32, 200)
	for i := range data {
		data[i] = uint32(i)
	}
	n, err := fs.Write(fd, data)
	require.NoError(t, err)
	assert.Equal(t, 200, n)

	size, err := fs.FileSize(fd)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), size)

	d, err := fs.Stat("/big.bin")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), fs.chainLength(d.FATIdx))

	_, err = fs.Seek(fd, 128)
	require.NoError(t, err)
	buf := make([]uint32, 100)
	n, err = fs.Read(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, 72, n)
}

func TestReadAtEOFReturnsZero(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")
	require.NoError(t, fs.CreateFile("/empty.txt"))

	fd, err := fs.Open("/empty.txt")
	require.NoError(t, err)

	buf := make([]uint32, 10)
	n, err := fs.Read(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSeekClampsToFilesize(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")
	require.NoError(t, fs.CreateFile("/f"))
	fd, err := fs.Open("/f")
	require.NoError(t, err)

	_, err = fs.Write(fd, make([]uint32, 10))
	require.NoError(t, err)

	got, err := fs.Seek(fd, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), got)

	tell, err := fs.Tell(fd)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), tell)
}

func TestWriteFillsVolumeWithShortCount(t *testing.T) {
	fs, _ := newFormatted(t, 64, 64, "TESTFS")
	require.NoError(t, fs.CreateFile("/f"))
	fd, err := fs.Open("/f")
	require.NoError(t, err)

	// Volume has 64 blocks total; one is consumed by root, one by this
	// file's initial block, leaving 62 more to grow into. Ask for far more
	// than fits, and expect a short count equal to exactly what did fit.
	_, free, _, err := fs.Statfs()
	require.NoError(t, err)
	capacityWords := (free + 1) * 64 // the 62 free blocks, plus the file's own initial block

	n, err := fs.Write(fd, make([]uint32, capacityWords+64))
	require.NoError(t, err)
	assert.Equal(t, int(capacityWords), n)
}
