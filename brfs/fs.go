package brfs

import (
	"sync/atomic"

	"github.com/bartpleiter/FPGC-sub000/errors"
)

// state is the lifecycle state a FileSystem moves through: a handle starts
// Uninitialized, becomes Dirty once formatted and Idle once mounted or
// synced, and moves to Dirty the moment any mutating operation touches the
// cache.
type state int

const (
	stateUninitialized state = iota
	stateIdle
	stateDirty
)

// openFile tracks a single entry in the open-file table: the
// head of its FAT chain, the current cursor, and a borrow of its directory
// entry.
type openFile struct {
	inUse     bool
	headFAT   Block
	cursor    uint32
	direntRef dirEntryRef
}

// FileSystem is a single value/handle owning the cache, the open-file
// table, and the dirty bitmaps. All BRFS operations are methods on
// *FileSystem.
//
// FileSystem is not safe for concurrent use: BRFS is explicitly
// single-threaded and non-reentrant. inCall guards against accidental
// reentrant/concurrent use rather than relying on convention alone.
type FileSystem struct {
	flash    FlashDevice
	progress ProgressFunc

	state state
	cache *cache

	freeBlocks uint32
	openFiles  [MaxOpenFiles]openFile

	inCall int32
}

// Init resets the filesystem handle and binds it to a flash device. No
// flash I/O is performed.
func Init(flash FlashDevice) *FileSystem {
	return &FileSystem{
		flash: flash,
		state: stateUninitialized,
	}
}

// SetProgressCallback installs fn to receive progress events for Format and
// Mount/Sync. Pass nil to disable progress reporting.
func (fs *FileSystem) SetProgressCallback(fn ProgressFunc) {
	fs.progress = fn
}

func (fs *FileSystem) reportProgress(phase string, current, total uint32) {
	if fs.progress != nil {
		fs.progress(phase, current, total)
	}
}

// enter guards against reentrant/concurrent calls into the same handle. It
// returns a function to call on the way out (typically via defer).
func (fs *FileSystem) enter() func() {
	if !atomic.CompareAndSwapInt32(&fs.inCall, 0, 1) {
		panic("brfs: reentrant or concurrent call into *FileSystem, which is explicitly single-threaded")
	}
	return func() { atomic.StoreInt32(&fs.inCall, 0) }
}

func (fs *FileSystem) requireInitialized() error {
	if fs.state == stateUninitialized {
		return errors.ErrNotInitialized
	}
	return nil
}

// markDirty transitions Idle -> Dirty on any mutating operation. It's a
// no-op if already Dirty or if called before mount, since Format itself
// ends in Dirty.
func (fs *FileSystem) markDirty() {
	if fs.state == stateIdle {
		fs.state = stateDirty
	}
}

////////////////////////////////////////////////////////////////////////////
// Management operations

// Statfs reports filesystem-wide statistics.
func (fs *FileSystem) Statfs() (totalBlocks, freeBlocks, blockSize uint32, err error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return 0, 0, 0, err
	}
	return fs.cache.totalBlocks(), fs.freeBlocks, fs.cache.wordsPerBlock(), nil
}

// GetLabel returns the volume label.
func (fs *FileSystem) GetLabel() (string, error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return "", err
	}
	return fs.cache.sb.Label, nil
}

// Stat resolves path to a directory entry. "/" synthesizes an entry for the
// root directory.
func (fs *FileSystem) Stat(path string) (Dirent, error) {
	defer fs.enter()()
	if err := fs.requireInitialized(); err != nil {
		return Dirent{}, err
	}
	return fs.stat(path)
}

func (fs *FileSystem) stat(path string) (Dirent, error) {
	if path == "/" {
		return Dirent{
			Filename: "/",
			Flags:    FlagDirectory,
			FATIdx:   0,
			Filesize: fs.cache.wordsPerBlock(),
		}, nil
	}

	dirPath, filename, err := ParsePath(path)
	if err != nil {
		return Dirent{}, err
	}
	dirBlock, err := fs.resolveDir(dirPath)
	if err != nil {
		return Dirent{}, err
	}
	_, d, err := fs.lookup(dirBlock, filename)
	return d, err
}

// Exists reports whether path resolves to anything.
func (fs *FileSystem) Exists(path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// IsDir reports whether path resolves to a directory.
func (fs *FileSystem) IsDir(path string) bool {
	d, err := fs.Stat(path)
	return err == nil && d.IsDirectory()
}
