package brfs

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/bartpleiter/FPGC-sub000/errors"
)

const wordBytes = 4

func sectorsFor(words uint32) uint32 {
	return (words + FlashSectorWords - 1) / FlashSectorWords
}

// Format initializes a brand-new volume of totalBlocks blocks of
// wordsPerBlock words each, writes the superblock to flash immediately,
// and leaves the filesystem mounted and Dirty. If full is
// true, every data block is explicitly zeroed and a "format-zero"
// progress event is reported per sector; either way the root directory
// (block 0) is initialized with "." and ".." pointing at itself.
func (fs *FileSystem) Format(totalBlocks, wordsPerBlock uint32, label string, full bool) error {
	defer fs.enter()()

	if err := ValidateFormatParams(totalBlocks, wordsPerBlock); err != nil {
		return err
	}

	sb := Superblock{
		TotalBlocks:   totalBlocks,
		WordsPerBlock: wordsPerBlock,
		Label:         label,
		Version:       Version,
	}
	fs.cache = newCache(sb)
	fs.freeBlocks = totalBlocks

	if full {
		dataWords := totalBlocks * wordsPerBlock
		total := sectorsFor(dataWords)
		for s := uint32(0); s < total; s++ {
			fs.reportProgress("format-zero", s+1, total)
		}
	}

	fs.initDirectoryBlock(0, 0)
	fs.cache.setFAT(0, FATEOF)
	fs.freeBlocks--

	for i := Block(0); i < Block(totalBlocks); i++ {
		fs.cache.fatDirty.Set(int(i), true)
		fs.cache.dataDirty.Set(int(i), true)
	}

	if err := fs.writeSuperblockToFlash(); err != nil {
		return err
	}

	fs.state = stateDirty
	return nil
}

func (fs *FileSystem) writeSuperblockToFlash() error {
	if err := fs.flash.EraseSector(FlashSuperblockAddr); err != nil {
		return errors.ErrFlash.WrapError(err)
	}
	words := encodeSuperblock(fs.cache.sb)
	if err := fs.flash.WriteWords(FlashSuperblockAddr, words[:]); err != nil {
		return errors.ErrFlash.WrapError(err)
	}
	return nil
}

func encodeSuperblock(sb Superblock) [SuperblockWords]uint32 {
	var words [SuperblockWords]uint32
	words[0] = sb.TotalBlocks
	words[1] = sb.WordsPerBlock
	words[2] = sb.Version
	labelWords := compressLabel(sb.Label)
	copy(words[3:3+LabelWords], labelWords[:])
	return words
}

func decodeSuperblock(words [SuperblockWords]uint32) Superblock {
	var labelWords [LabelWords]uint32
	copy(labelWords[:], words[3:3+LabelWords])
	return Superblock{
		TotalBlocks:   words[0],
		WordsPerBlock: words[1],
		Version:       words[2],
		Label:         decompressLabel(labelWords),
	}
}

// Mount reads the superblock, FAT, and data region from flash into the
// cache, validates the superblock, and leaves the filesystem Idle.
// Progress is reported under phase "mount" across the combined FAT and
// data sector counts.
func (fs *FileSystem) Mount() error {
	defer fs.enter()()

	var sbWords [SuperblockWords]uint32
	if err := fs.flash.ReadWords(FlashSuperblockAddr, sbWords[:]); err != nil {
		return errors.ErrFlash.WrapError(err)
	}
	sb := decodeSuperblock(sbWords)
	if err := sb.validate(); err != nil {
		return err
	}

	fs.cache = newCache(sb)

	fatSectors := sectorsFor(sb.TotalBlocks)
	dataSectors := sectorsFor(sb.TotalBlocks * sb.WordsPerBlock)
	total := fatSectors + dataSectors
	step := uint32(0)

	fatWords := make([]uint32, sb.TotalBlocks)
	remaining := sb.TotalBlocks
	for sector := uint32(0); sector < fatSectors; sector++ {
		n := uint32(FlashSectorWords)
		if n > remaining {
			n = remaining
		}
		addr := FlashFATAddr + sector*FlashSectorWords*wordBytes
		if err := fs.flash.ReadWords(addr, fatWords[sector*FlashSectorWords:sector*FlashSectorWords+n]); err != nil {
			return errors.ErrFlash.WrapError(err)
		}
		remaining -= n
		step++
		fs.reportProgress("mount", step, total)
	}
	for i, w := range fatWords {
		fs.cache.fat[i] = Block(w)
	}

	dataWords := sb.TotalBlocks * sb.WordsPerBlock
	remaining = dataWords
	for sector := uint32(0); sector < dataSectors; sector++ {
		n := uint32(FlashSectorWords)
		if n > remaining {
			n = remaining
		}
		addr := FlashDataAddr + sector*FlashSectorWords*wordBytes
		if err := fs.flash.ReadWords(addr, fs.cache.data[sector*FlashSectorWords:sector*FlashSectorWords+n]); err != nil {
			return errors.ErrFlash.WrapError(err)
		}
		remaining -= n
		step++
		fs.reportProgress("mount", step, total)
	}

	fs.cache.clearDirty()
	fs.freeBlocks = 0
	for i := Block(0); i < Block(sb.TotalBlocks); i++ {
		if fs.cache.getFAT(i) == FATFree {
			fs.freeBlocks++
		}
	}
	for i := range fs.openFiles {
		fs.openFiles[i] = openFile{}
	}

	fs.state = stateIdle
	return nil
}

// Unmount syncs dirty blocks to flash, closes every open file, and
// transitions back to Uninitialized.
func (fs *FileSystem) Unmount() error {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return err
	}
	if err := fs.sync(); err != nil {
		return err
	}
	for i := range fs.openFiles {
		fs.openFiles[i] = openFile{}
	}
	fs.state = stateUninitialized
	return nil
}

// Sync writes every dirty FAT and data sector to flash, erasing each
// sector before reprogramming it, then clears both dirty bitmaps and
// transitions Dirty -> Idle. A sector with no dirty block in its range is
// left untouched, so Sync never erases flash it doesn't need to. FAT
// dirtiness and data dirtiness are tracked as two independent bitmaps, one
// per FAT cell and one per data block, so a write that touches only a
// file's data doesn't force a FAT sector rewrite and vice versa.
func (fs *FileSystem) Sync() error {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return err
	}
	return fs.sync()
}

// sync writes every dirty sector, collecting rather than aborting on the
// first flash I/O failure, so a bad sector doesn't keep the rest of a
// volume from reaching flash. All accumulated failures are returned
// together via go-multierror.
func (fs *FileSystem) sync() error {
	sb := fs.cache.sb

	fatSectors := sectorsFor(sb.TotalBlocks)
	dataSectors := sectorsFor(sb.TotalBlocks * sb.WordsPerBlock)
	total := fatSectors + dataSectors
	step := uint32(0)

	var result *multierror.Error

	for sector := uint32(0); sector < fatSectors; sector++ {
		dirty := false
		for i := uint32(0); i < FlashSectorWords; i++ {
			block := sector*FlashSectorWords + i
			if block < sb.TotalBlocks && fs.cache.fatDirty.Get(int(block)) {
				dirty = true
				break
			}
		}
		if dirty {
			if err := fs.writeFATSector(sector); err != nil {
				result = multierror.Append(result, fmt.Errorf("fat sector %d: %w", sector, err))
			}
		}
		step++
		fs.reportProgress("sync-fat", step, total)
	}

	for sector := uint32(0); sector < dataSectors; sector++ {
		dirty := false
		firstBlock := sector * FlashSectorWords / sb.WordsPerBlock
		lastBlock := ((sector+1)*FlashSectorWords - 1) / sb.WordsPerBlock
		for block := firstBlock; block <= lastBlock; block++ {
			if block < sb.TotalBlocks && fs.cache.dataDirty.Get(int(block)) {
				dirty = true
				break
			}
		}
		if dirty {
			if err := fs.writeDataSector(sector); err != nil {
				result = multierror.Append(result, fmt.Errorf("data sector %d: %w", sector, err))
			}
		}
		step++
		fs.reportProgress("sync-data", step, total)
	}

	fs.cache.clearDirty()
	fs.state = stateIdle
	return result.ErrorOrNil()
}

func (fs *FileSystem) writeFATSector(sector uint32) error {
	addr := FlashFATAddr + sector*FlashSectorWords*wordBytes
	if err := fs.flash.EraseSector(addr); err != nil {
		return errors.ErrFlash.WrapError(err)
	}

	fatOffset := sector * FlashSectorWords
	words := make([]uint32, FlashSectorWords)
	for i := uint32(0); i < FlashSectorWords && fatOffset+i < fs.cache.totalBlocks(); i++ {
		words[i] = uint32(fs.cache.fat[fatOffset+i])
	}

	for page := uint32(0); page < PagesPerSector; page++ {
		pageAddr := addr + page*FlashPageWords*wordBytes
		pageWords := words[page*FlashPageWords : (page+1)*FlashPageWords]
		if err := fs.flash.WriteWords(pageAddr, pageWords); err != nil {
			return errors.ErrFlash.WrapError(err)
		}
	}
	return nil
}

func (fs *FileSystem) writeDataSector(sector uint32) error {
	addr := FlashDataAddr + sector*FlashSectorWords*wordBytes
	if err := fs.flash.EraseSector(addr); err != nil {
		return errors.ErrFlash.WrapError(err)
	}

	dataOffset := sector * FlashSectorWords
	total := uint32(len(fs.cache.data))
	for page := uint32(0); page < PagesPerSector; page++ {
		pageAddr := addr + page*FlashPageWords*wordBytes
		start := dataOffset + page*FlashPageWords
		end := start + FlashPageWords
		if start >= total {
			break
		}
		if end > total {
			end = total
		}
		if err := fs.flash.WriteWords(pageAddr, fs.cache.data[start:end]); err != nil {
			return errors.ErrFlash.WrapError(err)
		}
	}
	return nil
}
