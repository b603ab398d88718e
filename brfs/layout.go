// Package brfs implements BRFS ("Bart's RAM File System"), a FAT-style
// filesystem that keeps its entire working copy in a RAM cache and persists
// it to a block-erasable SPI NOR flash device.
package brfs

import (
	"github.com/hashicorp/go-multierror"

	"github.com/bartpleiter/FPGC-sub000/errors"
)

// Block identifies either a FAT chain link or a data block index. Both FAT
// cells and data blocks are indexed the same way: block i's FAT cell lives
// at FAT word i, and its data lives at data blocks[i].
type Block uint32

const (
	// Version is the only superblock format version this package speaks.
	Version = 1

	// SuperblockWords is the fixed size of the superblock, in words.
	SuperblockWords = 16
	// LabelWords is the number of words in the volume label, one ASCII
	// character per word, NUL-terminated, so a label keeps at most
	// LabelWords-1 characters.
	LabelWords = 10

	// DirentWords is the fixed size of a packed directory entry, in words.
	DirentWords = 8
	// FilenameWords is the number of words used to store a compressed
	// filename, 4 characters packed per word.
	FilenameWords = 4
	// MaxFilenameLength is the longest filename BRFS can store.
	MaxFilenameLength = FilenameWords * 4
	// MaxPathLength is the longest path BRFS will parse.
	MaxPathLength = 127

	// MaxOpenFiles is the size of the open-file table.
	MaxOpenFiles = 16

	// MaxTotalBlocks is the largest total_blocks a volume may declare.
	MaxTotalBlocks = 65536
	// MaxWordsPerBlock is the largest words_per_block a volume may declare.
	MaxWordsPerBlock = 2048
	// BlockSizeGranularity is the multiple total_blocks and words_per_block
	// must both satisfy.
	BlockSizeGranularity = 64

	// FATFree marks a FAT cell as unallocated.
	FATFree = Block(0)
	// FATEOF terminates a FAT chain.
	FATEOF = Block(0xFFFFFFFF)

	// FlagDirectory marks a directory entry as a directory.
	FlagDirectory = 1 << 0
	// FlagHidden marks a directory entry as hidden.
	FlagHidden = 1 << 1

	// FlashSectorWords is the size of one erase sector, in words
	// (BRFS_FLASH_WORDS_PER_SECTOR).
	FlashSectorWords = 1024
	// FlashPageWords is the size of one program page, in words
	// (BRFS_FLASH_WORDS_PER_PAGE).
	FlashPageWords = 64
	// PagesPerSector is the number of program pages in one erase sector.
	PagesPerSector = FlashSectorWords / FlashPageWords

	// FlashSuperblockAddr is the byte address of the superblock sector.
	FlashSuperblockAddr = 0x00000
	// FlashFATAddr is the byte address of the first FAT sector.
	FlashFATAddr = 0x01000
	// FlashDataAddr is the byte address of the first data sector.
	FlashDataAddr = 0x10000
)

// Superblock is the decoded form of the first 16 words of the cache/image.
type Superblock struct {
	TotalBlocks   uint32
	WordsPerBlock uint32
	Label         string
	Version       uint32
}

// validate checks the fields of a Superblock against the geometry bounds
// BRFS allows. It does not check that the footprint fits in any
// particular cache; the caller does that once it knows the cache size.
func (sb *Superblock) validate() error {
	if sb.Version != Version {
		return errors.ErrInvalidSuperblock.WithMessage("unsupported version")
	}
	if sb.TotalBlocks == 0 || sb.TotalBlocks > MaxTotalBlocks ||
		sb.TotalBlocks%BlockSizeGranularity != 0 {
		return errors.ErrInvalidSuperblock.WithMessage("bad total_blocks")
	}
	if sb.WordsPerBlock == 0 || sb.WordsPerBlock > MaxWordsPerBlock {
		return errors.ErrInvalidSuperblock.WithMessage("bad words_per_block")
	}
	return nil
}

// ValidateFormatParams checks the arguments to Format against BRFS's
// geometry boundary rules, independent of any superblock already on the
// cache. Both parameters are checked before returning, so a caller fixing
// up a bad format call sees every problem at once instead of one per
// retry.
func ValidateFormatParams(totalBlocks, wordsPerBlock uint32) error {
	var result *multierror.Error
	if totalBlocks == 0 || totalBlocks%BlockSizeGranularity != 0 || totalBlocks > MaxTotalBlocks {
		result = multierror.Append(result, errors.ErrInvalidParam.WithMessage(
			"total_blocks must be a positive multiple of 64, <= 65536"))
	}
	if wordsPerBlock == 0 || wordsPerBlock%BlockSizeGranularity != 0 || wordsPerBlock > MaxWordsPerBlock {
		result = multierror.Append(result, errors.ErrInvalidParam.WithMessage(
			"words_per_block must be a positive multiple of 64, <= 2048"))
	}
	return result.ErrorOrNil()
}

// Dirent is the decoded form of a packed 8-word directory entry.
type Dirent struct {
	Filename   string
	ModifyDate uint32
	Flags      uint32
	FATIdx     Block
	Filesize   uint32
}

func (d *Dirent) IsDirectory() bool { return d.Flags&FlagDirectory != 0 }
func (d *Dirent) IsHidden() bool    { return d.Flags&FlagHidden != 0 }

// free reports whether this slot is unused: a slot is free iff its first
// filename word is 0, i.e. the decoded name is empty.
func (d *Dirent) free() bool { return d.Filename == "" }

////////////////////////////////////////////////////////////////////////////
// Filename codec

// CompressFilename packs a filename of at most MaxFilenameLength bytes into
// FilenameWords words, 4 characters per word, high byte first, NUL-padded.
// The caller is responsible for rejecting names longer than
// MaxFilenameLength; this silently truncates past FilenameWords*4 bytes.
func CompressFilename(name string) [FilenameWords]uint32 {
	var words [FilenameWords]uint32
	for i := 0; i < len(name) && i < MaxFilenameLength; i++ {
		wordIdx := i / 4
		shift := 24 - 8*(i%4)
		words[wordIdx] |= uint32(name[i]) << uint(shift)
	}
	return words
}

// DecompressFilename extracts a filename from FilenameWords packed words.
// Extraction stops at the first NUL byte encountered (high to low within
// each word).
func DecompressFilename(words [FilenameWords]uint32) string {
	buf := make([]byte, 0, MaxFilenameLength)
	for _, word := range words {
		for shift := 24; shift >= 0; shift -= 8 {
			b := byte(word >> uint(shift))
			if b == 0 {
				return string(buf)
			}
			buf = append(buf, b)
		}
	}
	return string(buf)
}

// compressLabel packs a volume label into LabelWords words, one ASCII
// character per word, NUL-terminated, mirroring CompressFilename's
// character packing but at one char/word instead of four.
func compressLabel(label string) [LabelWords]uint32 {
	var words [LabelWords]uint32
	for i := 0; i < len(label) && i < LabelWords-1; i++ {
		words[i] = uint32(label[i])
	}
	return words
}

func decompressLabel(words [LabelWords]uint32) string {
	buf := make([]byte, 0, LabelWords)
	for _, word := range words {
		if word == 0 {
			break
		}
		buf = append(buf, byte(word))
	}
	return string(buf)
}
