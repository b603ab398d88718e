package brfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bartpleiter/FPGC-sub000/brfs/memflash"
)

// newFormatted returns a *FileSystem freshly formatted with the given
// geometry and synced, ready for mutation in a test.
func newFormatted(t *testing.T, totalBlocks, wordsPerBlock uint32, label string) (*FileSystem, *memflash.Device) {
	t.Helper()
	dev := memflash.New(FlashDataAddr + int(totalBlocks)*int(wordsPerBlock)*4)
	fs := Init(dev)
	require.NoError(t, fs.Format(totalBlocks, wordsPerBlock, label, true))
	require.NoError(t, fs.Sync())
	return fs, dev
}
