package brfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartpleiter/FPGC-sub000/brfs/memflash"
	"github.com/bartpleiter/FPGC-sub000/errors"
)

func TestFormatThenMountPreservesGeometry(t *testing.T) {
	fs, dev := newFormatted(t, 128, 64, "TESTFS")
	require.NoError(t, fs.Unmount())

	fs2 := Init(dev)
	require.NoError(t, fs2.Mount())

	total, free, blockSize, err := fs2.Statfs()
	require.NoError(t, err)
	assert.Equal(t, uint32(128), total)
	assert.Equal(t, uint32(127), free)
	assert.Equal(t, uint32(64), blockSize)

	entries, err := fs2.ReadDir("/")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSyncIsNoopWithoutMutation(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")
	assert.False(t, fs.cache.anyDirty())
	require.NoError(t, fs.Sync())
}

func TestOperationsBeforeMountFail(t *testing.T) {
	dev := memflash.New(FlashDataAddr + 128*64*4)
	fs := Init(dev)

	_, err := fs.Statfs()
	assert.ErrorIs(t, err, errors.ErrNotInitialized)

	err = fs.CreateFile("/x")
	assert.ErrorIs(t, err, errors.ErrNotInitialized)
}

func TestMountRejectsBadSuperblock(t *testing.T) {
	dev := memflash.New(FlashDataAddr + 128*64*4)
	fs := Init(dev)
	err := fs.Mount()
	assert.ErrorIs(t, err, errors.ErrInvalidSuperblock)
}

func TestReentrantCallPanics(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")

	defer func() {
		r := recover()
		assert.NotNil(t, r)
	}()

	leave := fs.enter()
	defer leave()
	fs.enter()
}

func TestUnmountClosesOpenFiles(t *testing.T) {
	fs, _ := newFormatted(t, 128, 64, "TESTFS")
	require.NoError(t, fs.CreateFile("/f"))

	fd, err := fs.Open("/f")
	require.NoError(t, err)
	_ = fd

	require.NoError(t, fs.Unmount())
	for _, of := range fs.openFiles {
		assert.False(t, of.inUse)
	}
}
