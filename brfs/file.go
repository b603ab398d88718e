package brfs

import "github.com/bartpleiter/FPGC-sub000/errors"

// Open resolves path to a regular file and allocates a slot in the
// open-file table, returning its file descriptor. Opening a
// directory fails with ErrIsDirectory; opening an already-open file fails
// with ErrIsOpen.
func (fs *FileSystem) Open(path string) (int, error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return -1, err
	}

	dirPath, filename, err := ParsePath(path)
	if err != nil {
		return -1, err
	}
	dirBlock, err := fs.resolveDir(dirPath)
	if err != nil {
		return -1, err
	}
	ref, entry, err := fs.lookup(dirBlock, filename)
	if err != nil {
		return -1, err
	}
	if entry.IsDirectory() {
		return -1, errors.ErrIsDirectory
	}

	for i := range fs.openFiles {
		if fs.openFiles[i].inUse && fs.openFiles[i].direntRef == ref {
			return -1, errors.ErrIsOpen
		}
	}

	fd := -1
	for i := range fs.openFiles {
		if !fs.openFiles[i].inUse {
			fd = i
			break
		}
	}
	if fd < 0 {
		return -1, errors.ErrTooManyOpen
	}

	fs.openFiles[fd] = openFile{
		inUse:     true,
		headFAT:   entry.FATIdx,
		cursor:    0,
		direntRef: ref,
	}
	return fd, nil
}

// Close releases fd's open-file table slot.
func (fs *FileSystem) Close(fd int) error {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return err
	}
	f, err := fs.openFile(fd)
	if err != nil {
		return err
	}
	*f = openFile{}
	return nil
}

func (fs *FileSystem) openFile(fd int) (*openFile, error) {
	if fd < 0 || fd >= MaxOpenFiles {
		return nil, errors.ErrInvalidParam
	}
	f := &fs.openFiles[fd]
	if !f.inUse {
		return nil, errors.ErrNotOpen
	}
	return f, nil
}

// Read copies up to len(buf) words starting at fd's cursor, advancing the
// cursor by the number of words actually read, and returns that count.
// Read never errors on short reads; it returns (0, nil) at EOF.
func (fs *FileSystem) Read(fd int, buf []uint32) (int, error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return 0, err
	}
	f, err := fs.openFile(fd)
	if err != nil {
		return 0, err
	}

	entry := fs.cache.readDirent(f.direntRef)
	if f.cursor >= entry.Filesize {
		return 0, nil
	}

	length := uint32(len(buf))
	if remaining := entry.Filesize - f.cursor; length > remaining {
		length = remaining
	}

	currentBlock, err := fs.blockAtChainOffset(f.headFAT, f.cursor/fs.cache.wordsPerBlock())
	if err != nil {
		return 0, errors.ErrRead
	}

	totalRead := uint32(0)
	for length > 0 {
		wordsPerBlock := fs.cache.wordsPerBlock()
		cursorInBlock := f.cursor % wordsPerBlock
		wordsUntilEnd := wordsPerBlock - cursorInBlock
		wordsToRead := length
		if wordsUntilEnd < wordsToRead {
			wordsToRead = wordsUntilEnd
		}

		src := fs.cache.blockWords(currentBlock)
		copy(buf[totalRead:totalRead+wordsToRead], src[cursorInBlock:cursorInBlock+wordsToRead])

		f.cursor += wordsToRead
		totalRead += wordsToRead
		length -= wordsToRead

		if length > 0 {
			next := fs.cache.getFAT(currentBlock)
			if next == FATEOF {
				break
			}
			currentBlock = next
		}
	}

	return int(totalRead), nil
}

// Write copies buf into fd's file starting at its cursor, allocating new
// blocks on demand as the chain is extended, and advances the cursor and
// filesize accordingly. If no space remains mid-write, this is reported as
// a short write: Write returns the partial count written so far with no
// error. Writing strictly requires the block under the cursor to already be
// in the file's chain: when the cursor sits right after a full last block
// (cursor at a filesize that is a nonzero multiple of the block size),
// Write returns ErrSeek and writes nothing. A new block is allocated only
// once a write has filled the current last block.
func (fs *FileSystem) Write(fd int, buf []uint32) (int, error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return 0, err
	}
	f, err := fs.openFile(fd)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	wordsPerBlock := fs.cache.wordsPerBlock()
	currentBlock, err := fs.blockAtChainOffset(f.headFAT, f.cursor/wordsPerBlock)
	if err != nil {
		return 0, errors.ErrSeek
	}

	entry := fs.cache.readDirent(f.direntRef)
	length := uint32(len(buf))
	totalWritten := uint32(0)

	for length > 0 {
		cursorInBlock := f.cursor % wordsPerBlock
		wordsUntilEnd := wordsPerBlock - cursorInBlock
		wordsToWrite := length
		if wordsUntilEnd < wordsToWrite {
			wordsToWrite = wordsUntilEnd
		}

		dst := fs.cache.blockWords(currentBlock)
		copy(dst[cursorInBlock:cursorInBlock+wordsToWrite], buf[totalWritten:totalWritten+wordsToWrite])
		fs.cache.markDataDirty(currentBlock)

		f.cursor += wordsToWrite
		totalWritten += wordsToWrite
		length -= wordsToWrite

		if length > 0 {
			if fs.cache.getFAT(currentBlock) == FATEOF {
				next, err := fs.allocateBlock()
				if err != nil {
					if f.cursor > entry.Filesize {
						entry.Filesize = f.cursor
						fs.cache.writeDirent(f.direntRef, entry)
					}
					fs.markDirty()
					return int(totalWritten), nil
				}
				fs.link(currentBlock, next)
				currentBlock = next
			} else {
				currentBlock = fs.cache.getFAT(currentBlock)
			}
		}
	}

	if f.cursor > entry.Filesize {
		entry.Filesize = f.cursor
		fs.cache.writeDirent(f.direntRef, entry)
	}

	fs.markDirty()
	return int(totalWritten), nil
}

// Seek moves fd's cursor to offset, clamped to the file's current
// filesize, and returns the resulting cursor.
func (fs *FileSystem) Seek(fd int, offset uint32) (uint32, error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return 0, err
	}
	f, err := fs.openFile(fd)
	if err != nil {
		return 0, err
	}

	entry := fs.cache.readDirent(f.direntRef)
	if offset > entry.Filesize {
		offset = entry.Filesize
	}
	f.cursor = offset
	return offset, nil
}

// Tell returns fd's current cursor.
func (fs *FileSystem) Tell(fd int) (uint32, error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return 0, err
	}
	f, err := fs.openFile(fd)
	if err != nil {
		return 0, err
	}
	return f.cursor, nil
}

// FileSize returns fd's current filesize.
func (fs *FileSystem) FileSize(fd int) (uint32, error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return 0, err
	}
	f, err := fs.openFile(fd)
	if err != nil {
		return 0, err
	}
	return fs.cache.readDirent(f.direntRef).Filesize, nil
}
