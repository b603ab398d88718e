package brfs

import "github.com/bartpleiter/FPGC-sub000/errors"

// findFree scans the FAT for the first free cell (first-fit).
func (fs *FileSystem) findFree() (Block, error) {
	total := fs.cache.totalBlocks()
	for i := Block(0); i < Block(total); i++ {
		if fs.cache.getFAT(i) == FATFree {
			return i, nil
		}
	}
	return 0, errors.ErrNoSpace
}

// allocateBlock finds a free block, zeroes it, terminates its chain with
// FATEOF, and marks it reachable.
func (fs *FileSystem) allocateBlock() (Block, error) {
	idx, err := fs.findFree()
	if err != nil {
		return 0, err
	}
	fs.cache.zeroBlock(idx)
	fs.cache.markDataDirty(idx)
	fs.cache.setFAT(idx, FATEOF)
	fs.freeBlocks--
	return idx, nil
}

// link sets the FAT cell of prev to point at next.
func (fs *FileSystem) link(prev, next Block) {
	fs.cache.setFAT(prev, next)
}

// freeChain walks the FAT chain starting at head, freeing every block and
// marking each one dirty.
func (fs *FileSystem) freeChain(head Block) {
	current := head
	for current != FATEOF {
		next := fs.cache.getFAT(current)
		fs.cache.setFAT(current, FATFree)
		fs.freeBlocks++
		current = next
	}
}

// chainLength returns the number of blocks in the chain starting at head.
func (fs *FileSystem) chainLength(head Block) uint32 {
	count := uint32(0)
	current := head
	for current != FATEOF {
		count++
		current = fs.cache.getFAT(current)
	}
	return count
}

// blockAtChainOffset walks offset links from head and returns the block
// found there, or ErrSeek if the chain ends (FATEOF) before offset links
// have been followed.
func (fs *FileSystem) blockAtChainOffset(head Block, offset uint32) (Block, error) {
	current := head
	for i := uint32(0); i < offset; i++ {
		if current == FATEOF {
			return 0, errors.ErrSeek
		}
		current = fs.cache.getFAT(current)
	}
	if current == FATEOF {
		return 0, errors.ErrSeek
	}
	return current, nil
}
