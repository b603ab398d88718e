package brfs

import (
	"github.com/boljen/go-bitmap"
)

// cache is the in-RAM authoritative copy of a mounted volume: the
// superblock, the FAT, and the data region. It also owns two independent
// dirty bitmaps, one per FAT cell and one per data block, so a mutation
// that only touches a file's data doesn't force a FAT sector rewrite at
// sync time and vice versa.
type cache struct {
	sb Superblock

	// fat holds one cell per block: FATFree, FATEOF, or the index of the
	// next block in the chain.
	fat []Block

	// data holds totalBlocks*wordsPerBlock words, block i occupying
	// data[i*wordsPerBlock : (i+1)*wordsPerBlock].
	data []uint32

	fatDirty  bitmap.Bitmap
	dataDirty bitmap.Bitmap
}

func newCache(sb Superblock) *cache {
	total := int(sb.TotalBlocks)
	return &cache{
		sb:        sb,
		fat:       make([]Block, total),
		data:      make([]uint32, total*int(sb.WordsPerBlock)),
		fatDirty:  bitmap.New(total),
		dataDirty: bitmap.New(total),
	}
}

func (c *cache) totalBlocks() uint32   { return c.sb.TotalBlocks }
func (c *cache) wordsPerBlock() uint32 { return c.sb.WordsPerBlock }

func (c *cache) getFAT(block Block) Block {
	return c.fat[block]
}

func (c *cache) setFAT(block Block, value Block) {
	c.fat[block] = value
	c.fatDirty.Set(int(block), true)
}

// blockWords returns a mutable slice over the words of data block idx. The
// caller must call markDataDirty after writing through it.
func (c *cache) blockWords(idx Block) []uint32 {
	wpb := int(c.wordsPerBlock())
	start := int(idx) * wpb
	return c.data[start : start+wpb]
}

func (c *cache) markDataDirty(idx Block) {
	c.dataDirty.Set(int(idx), true)
}

// zeroBlock clears a data block to all zero words; every newly allocated
// block is zeroed before being made reachable.
func (c *cache) zeroBlock(idx Block) {
	words := c.blockWords(idx)
	for i := range words {
		words[i] = 0
	}
}

func (c *cache) clearDirty() {
	c.fatDirty = bitmap.New(int(c.totalBlocks()))
	c.dataDirty = bitmap.New(int(c.totalBlocks()))
}

func (c *cache) anyDirty() bool {
	total := int(c.totalBlocks())
	for i := 0; i < total; i++ {
		if c.fatDirty.Get(i) || c.dataDirty.Get(i) {
			return true
		}
	}
	return false
}

////////////////////////////////////////////////////////////////////////////
// Directory entry access

// dirEntryRef identifies a directory-entry slot by the block that contains
// it and the slot's index within that block, re-dereferenced through the
// cache on each access instead of holding a raw pointer into the cache
// slab.
type dirEntryRef struct {
	block Block
	slot  uint32
}

func (c *cache) entriesPerBlock() uint32 {
	return c.wordsPerBlock() / DirentWords
}

// readDirent decodes the directory entry at ref from the cache.
func (c *cache) readDirent(ref dirEntryRef) Dirent {
	words := c.blockWords(ref.block)
	offset := int(ref.slot) * DirentWords

	var nameWords [FilenameWords]uint32
	copy(nameWords[:], words[offset:offset+FilenameWords])

	return Dirent{
		Filename:   DecompressFilename(nameWords),
		ModifyDate: words[offset+4],
		Flags:      words[offset+5],
		FATIdx:     Block(words[offset+6]),
		Filesize:   words[offset+7],
	}
}

// writeDirent encodes d into the slot at ref and marks the containing block
// dirty.
func (c *cache) writeDirent(ref dirEntryRef, d Dirent) {
	words := c.blockWords(ref.block)
	offset := int(ref.slot) * DirentWords

	nameWords := CompressFilename(d.Filename)
	copy(words[offset:offset+FilenameWords], nameWords[:])
	words[offset+4] = d.ModifyDate
	words[offset+5] = d.Flags
	words[offset+6] = uint32(d.FATIdx)
	words[offset+7] = d.Filesize

	c.markDataDirty(ref.block)
}

// clearDirent zeroes a slot, marking it free.
func (c *cache) clearDirent(ref dirEntryRef) {
	words := c.blockWords(ref.block)
	offset := int(ref.slot) * DirentWords
	for i := 0; i < DirentWords; i++ {
		words[offset+i] = 0
	}
	c.markDataDirty(ref.block)
}
