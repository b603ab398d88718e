package brfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompressFilenameRoundTrip(t *testing.T) {
	cases := []string{"", "a", "file.txt", "sixteen_char_nam", strings.Repeat("x", 16)}
	for _, name := range cases {
		words := CompressFilename(name)
		require.Equal(t, name, DecompressFilename(words), "round trip for %q", name)
	}
}

func TestCompressFilenameTruncatesPastMax(t *testing.T) {
	name := strings.Repeat("y", 20)
	words := CompressFilename(name)
	assert.Equal(t, name[:MaxFilenameLength], DecompressFilename(words))
}

func TestDecompressFilenameStopsAtNUL(t *testing.T) {
	var words [FilenameWords]uint32
	words[0] = uint32('a') << 24
	assert.Equal(t, "a", DecompressFilename(words))
}

func TestSuperblockValidate(t *testing.T) {
	good := Superblock{TotalBlocks: 128, WordsPerBlock: 64, Version: Version}
	require.NoError(t, good.validate())

	badVersion := good
	badVersion.Version = 99
	assert.Error(t, badVersion.validate())

	badBlocks := good
	badBlocks.TotalBlocks = 100
	assert.Error(t, badBlocks.validate())

	badWords := good
	badWords.WordsPerBlock = 0
	assert.Error(t, badWords.validate())
}

func TestValidateFormatParams(t *testing.T) {
	assert.NoError(t, ValidateFormatParams(128, 64))
	assert.Error(t, ValidateFormatParams(0, 64))
	assert.Error(t, ValidateFormatParams(100, 64))
	assert.Error(t, ValidateFormatParams(128, 0))
	assert.Error(t, ValidateFormatParams(128, 3000))

	// Both bad: multierror should report both, not just the first.
	err := ValidateFormatParams(0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_blocks")
	assert.Contains(t, err.Error(), "words_per_block")
}

func TestLabelRoundTrip(t *testing.T) {
	words := compressLabel("TESTFS")
	assert.Equal(t, "TESTFS", decompressLabel(words))
}

func TestDirentFreeSlot(t *testing.T) {
	var d Dirent
	assert.True(t, d.free())

	d.Filename = "x"
	assert.False(t, d.free())
}

func TestDirentFlags(t *testing.T) {
	d := Dirent{Flags: FlagDirectory | FlagHidden}
	assert.True(t, d.IsDirectory())
	assert.True(t, d.IsHidden())
}
