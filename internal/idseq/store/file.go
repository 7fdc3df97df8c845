package store

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/julianstephens/go-utils/helpers"
)

const counterFileExt = ".cnt"

// FileStoreOpts configures a FileStore.
type FileStoreOpts struct {
	// StrictSync fsyncs the store directory after every put, guaranteeing the
	// renamed record file is reachable after a crash. Disable only for tests.
	StrictSync bool
}

// FileStore persists one record file per key inside a directory. Every put
// replaces the record with an atomic write-and-rename, so a reader never
// observes a torn record.
type FileStore struct {
	dir    string
	opts   FileStoreOpts
	closed atomic.Bool
}

// OpenFileStore opens or creates a file-backed counter store rooted at dir.
func OpenFileStore(dir string, opts FileStoreOpts) (*FileStore, error) {
	if dir == "" {
		return nil, wrapStoreErr("open", ErrWrite, "", dir, nil)
	}
	if err := helpers.Ensure(dir, true); err != nil {
		return nil, wrapStoreErr("open", ErrWrite, "", dir, err)
	}
	return &FileStore{dir: dir, opts: opts}, nil
}

func (fs *FileStore) pathFor(key string) string {
	return filepath.Join(fs.dir, key+counterFileExt)
}

// Get reads the record for key. A missing record file means the key was never
// written.
func (fs *FileStore) Get(key string) ([]byte, bool, error) {
	if fs.closed.Load() {
		return nil, false, wrapStoreErr("get", ErrClosed, key, fs.dir, nil)
	}

	p := fs.pathFor(key)
	data, err := os.ReadFile(p) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, wrapStoreErr("get", ErrRead, key, p, err)
	}
	return data, true, nil
}

// Put atomically replaces the record for key and, when strict sync is
// enabled, fsyncs the directory so the rename itself is durable.
func (fs *FileStore) Put(key string, value []byte) error {
	if fs.closed.Load() {
		return wrapStoreErr("put", ErrClosed, key, fs.dir, nil)
	}

	p := fs.pathFor(key)
	if err := helpers.AtomicFileWrite(p, value); err != nil {
		return wrapStoreErr("put", ErrWrite, key, p, err)
	}

	if fs.opts.StrictSync {
		if err := fs.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// Sync fsyncs the store directory.
func (fs *FileStore) Sync() error {
	f, err := os.Open(fs.dir) // nolint:gosec
	if err != nil {
		return wrapStoreErr("sync", ErrSync, "", fs.dir, err)
	}
	defer func() { _ = f.Close() }()

	if err := f.Sync(); err != nil {
		return wrapStoreErr("sync", ErrSync, "", fs.dir, err)
	}
	return nil
}

// Close marks the store closed. Record files are left in place.
func (fs *FileStore) Close() error {
	if !fs.closed.CompareAndSwap(false, true) {
		return wrapStoreErr("close", ErrClosed, "", fs.dir, nil)
	}
	return nil
}

var (
	_ CounterStore = (*FileStore)(nil)
	_ Syncer       = (*FileStore)(nil)
)
