package brfs

import (
	"strings"

	"github.com/bartpleiter/FPGC-sub000/errors"
)

// ParsePath splits path into the directory containing the final component
// and the final component itself. "." and ".." are ordinary
// filenames here: BRFS never interprets them specially except as the two
// entries pre-populated by CreateDir.
func ParsePath(path string) (dirPath, filename string, err error) {
	if len(path) == 0 || len(path) > MaxPathLength {
		return "", "", errors.ErrPathTooLong
	}

	lastSlash := strings.LastIndexByte(path, '/')
	if lastSlash < 0 {
		dirPath = "/"
		filename = path
	} else if lastSlash == 0 {
		dirPath = "/"
		filename = path[1:]
	} else {
		dirPath = path[:lastSlash]
		filename = path[lastSlash+1:]
	}

	if len(filename) == 0 || len(filename) > MaxFilenameLength {
		return "", "", errors.ErrNameTooLong
	}
	return dirPath, filename, nil
}

// resolveDir walks dirPath component by component from the root, requiring
// every component, the last included, to be a directory, and returns the FAT
// index (block) of the final component. An empty path or "/" resolves to
// the root block, 0.
func (fs *FileSystem) resolveDir(dirPath string) (Block, error) {
	current := Block(0)

	if dirPath == "" || dirPath == "/" {
		return current, nil
	}

	start := 0
	if dirPath[0] == '/' {
		start = 1
	}

	for start < len(dirPath) {
		end := strings.IndexByte(dirPath[start:], '/')
		var token string
		if end < 0 {
			token = dirPath[start:]
			start = len(dirPath)
		} else {
			token = dirPath[start : start+end]
			start += end + 1
		}
		if token == "" {
			continue
		}
		if len(token) > MaxFilenameLength {
			return 0, errors.ErrNameTooLong
		}

		_, entry, err := fs.lookup(current, token)
		if err != nil {
			return 0, err
		}
		if !entry.IsDirectory() {
			return 0, errors.ErrNotDirectory
		}
		current = entry.FATIdx
	}

	return current, nil
}

// lookup scans dirBlock's slots linearly for an entry named name.
func (fs *FileSystem) lookup(dirBlock Block, name string) (dirEntryRef, Dirent, error) {
	entries := fs.cache.entriesPerBlock()
	for slot := uint32(0); slot < entries; slot++ {
		ref := dirEntryRef{block: dirBlock, slot: slot}
		d := fs.cache.readDirent(ref)
		if d.free() {
			continue
		}
		if d.Filename == name {
			return ref, d, nil
		}
	}
	return dirEntryRef{}, Dirent{}, errors.ErrNotFound
}

func (fs *FileSystem) findFreeDirEntry(dirBlock Block) (uint32, error) {
	entries := fs.cache.entriesPerBlock()
	for slot := uint32(0); slot < entries; slot++ {
		if fs.cache.readDirent(dirEntryRef{block: dirBlock, slot: slot}).free() {
			return slot, nil
		}
	}
	return 0, errors.ErrNoEntry
}

// initDirectoryBlock populates a freshly allocated directory block with
// "." and ".." entries.
func (fs *FileSystem) initDirectoryBlock(dirBlock, parentBlock Block) {
	size := fs.cache.entriesPerBlock() * DirentWords
	fs.cache.writeDirent(dirEntryRef{block: dirBlock, slot: 0}, Dirent{
		Filename: ".",
		Flags:    FlagDirectory,
		FATIdx:   dirBlock,
		Filesize: size,
	})
	fs.cache.writeDirent(dirEntryRef{block: dirBlock, slot: 1}, Dirent{
		Filename: "..",
		Flags:    FlagDirectory,
		FATIdx:   parentBlock,
		Filesize: size,
	})
}

// CreateFile creates an empty, zero-length file at path.
//
// If the parent directory has no free slot left, the data block already
// allocated for the file is not freed again: this is a known leak on
// that failure path, kept for behavioral fidelity rather than papered
// over with a rollback the caller wouldn't expect.
func (fs *FileSystem) CreateFile(path string) error {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return err
	}

	dirPath, filename, err := ParsePath(path)
	if err != nil {
		return err
	}
	dirBlock, err := fs.resolveDir(dirPath)
	if err != nil {
		return err
	}
	if _, _, err := fs.lookup(dirBlock, filename); err == nil {
		return errors.ErrExists
	}

	freeBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}

	slot, err := fs.findFreeDirEntry(dirBlock)
	if err != nil {
		return err
	}

	fs.cache.writeDirent(dirEntryRef{block: dirBlock, slot: slot}, Dirent{
		Filename: filename,
		FATIdx:   freeBlock,
	})

	fs.markDirty()
	return nil
}

// CreateDir creates an empty directory at path, pre-populated with "."
// and ".." entries.
func (fs *FileSystem) CreateDir(path string) error {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return err
	}

	dirPath, dirname, err := ParsePath(path)
	if err != nil {
		return err
	}
	parentBlock, err := fs.resolveDir(dirPath)
	if err != nil {
		return err
	}
	if _, _, err := fs.lookup(parentBlock, dirname); err == nil {
		return errors.ErrExists
	}

	freeBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}

	slot, err := fs.findFreeDirEntry(parentBlock)
	if err != nil {
		return err
	}

	size := fs.cache.entriesPerBlock() * DirentWords
	fs.cache.writeDirent(dirEntryRef{block: parentBlock, slot: slot}, Dirent{
		Filename: dirname,
		Flags:    FlagDirectory,
		FATIdx:   freeBlock,
		Filesize: size,
	})
	fs.initDirectoryBlock(freeBlock, parentBlock)

	fs.markDirty()
	return nil
}

// Delete removes a file or empty directory at path. Deleting a
// non-empty directory fails with ErrNotEmpty; deleting an open file fails
// with ErrIsOpen.
func (fs *FileSystem) Delete(path string) error {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return err
	}

	dirPath, filename, err := ParsePath(path)
	if err != nil {
		return err
	}
	dirBlock, err := fs.resolveDir(dirPath)
	if err != nil {
		return err
	}
	ref, entry, err := fs.lookup(dirBlock, filename)
	if err != nil {
		return err
	}

	if entry.IsDirectory() {
		nonEmpty := uint32(0)
		entries := fs.cache.entriesPerBlock()
		for slot := uint32(0); slot < entries; slot++ {
			if !fs.cache.readDirent(dirEntryRef{block: entry.FATIdx, slot: slot}).free() {
				nonEmpty++
			}
		}
		if nonEmpty > 2 {
			return errors.ErrNotEmpty
		}
	}

	for i := range fs.openFiles {
		if fs.openFiles[i].inUse && fs.openFiles[i].direntRef == ref {
			return errors.ErrIsOpen
		}
	}

	fs.freeChain(entry.FATIdx)
	fs.cache.clearDirent(ref)

	fs.markDirty()
	return nil
}

// ReadDir lists the non-free entries of the directory at path. It takes no
// caller-supplied buffer or entry-count cap: callers get a slice sized to
// what's actually there.
func (fs *FileSystem) ReadDir(path string) ([]Dirent, error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return nil, err
	}

	dirBlock, err := fs.resolveDir(path)
	if err != nil {
		return nil, err
	}

	entries := fs.cache.entriesPerBlock()
	out := make([]Dirent, 0, entries)
	for slot := uint32(0); slot < entries; slot++ {
		d := fs.cache.readDirent(dirEntryRef{block: dirBlock, slot: slot})
		if !d.free() {
			out = append(out, d)
		}
	}
	return out, nil
}
