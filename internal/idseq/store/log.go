package store

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/julianstephens/go-utils/checksum"
	"github.com/julianstephens/go-utils/helpers"
)

const (
	logFileExt = ".log"

	// frame layout: crc32c(4) | payload length(2) | payload
	frameHeaderSize = 6

	maxFramePayload = 64 << 10

	// DefaultCompactAboveBytes triggers a rewrite of a counter log on open
	// once appended history grows past this size. Only the latest record is
	// ever read back, so history is disposable.
	DefaultCompactAboveBytes int64 = 1 << 20
)

// LogStoreOpts configures a LogStore.
type LogStoreOpts struct {
	// StrictSync fsyncs the log file after every put.
	StrictSync bool

	// CompactAboveBytes overrides the compaction threshold. 0 means
	// DefaultCompactAboveBytes.
	CompactAboveBytes int64
}

// LogStore persists counter records as an append-only log, one file per key.
// Each put appends a checksummed frame; on open the log is replayed and the
// last intact frame wins. A torn tail from a crash mid-append is truncated
// away, never surfaced as data.
type LogStore struct {
	dir  string
	opts LogStoreOpts

	mu     sync.Mutex
	logs   map[string]*counterLog
	closed bool
}

type counterLog struct {
	f    *os.File
	last []byte
	ok   bool
	size int64
}

// OpenLogStore opens or creates a log-backed counter store rooted at dir.
func OpenLogStore(dir string, opts LogStoreOpts) (*LogStore, error) {
	if err := helpers.Ensure(dir, true); err != nil {
		return nil, wrapStoreErr("open", ErrWrite, "", dir, err)
	}
	if opts.CompactAboveBytes <= 0 {
		opts.CompactAboveBytes = DefaultCompactAboveBytes
	}
	return &LogStore{
		dir:  dir,
		opts: opts,
		logs: make(map[string]*counterLog),
	}, nil
}

func encodeFrame(payload []byte) []byte {
	buf := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], checksum.CRC32C(payload))
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(payload)))
	copy(buf[frameHeaderSize:], payload)
	return buf
}

// decodeFrame reads one frame from r. io.EOF means a clean end of log; any
// short read or checksum mismatch is reported as a corrupt frame.
func decodeFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, ErrCorruptRecord
	}

	length := int(binary.BigEndian.Uint16(header[4:6]))
	if length == 0 || length > maxFramePayload {
		return nil, ErrCorruptRecord
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ErrCorruptRecord
	}

	if !checksum.VerifyCRC32C(payload, binary.BigEndian.Uint32(header[0:4])) {
		return nil, ErrCorruptRecord
	}
	return payload, nil
}

// openLogLocked opens and replays the log for key, truncating any torn tail.
func (ls *LogStore) openLogLocked(key string) (*counterLog, error) {
	if cl, ok := ls.logs[key]; ok {
		return cl, nil
	}

	p := filepath.Join(ls.dir, key+logFileExt)
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o600) // nolint:gosec
	if err != nil {
		return nil, wrapStoreErr("open", ErrRead, key, p, err)
	}

	cl := &counterLog{f: f}
	for {
		payload, err := decodeFrame(f)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Torn or corrupt tail: keep everything before it.
			if terr := f.Truncate(cl.size); terr != nil {
				_ = f.Close()
				return nil, wrapStoreErr("replay", ErrWrite, key, p, terr)
			}
			if _, serr := f.Seek(cl.size, io.SeekStart); serr != nil {
				_ = f.Close()
				return nil, wrapStoreErr("replay", ErrRead, key, p, serr)
			}
			break
		}
		cl.last = payload
		cl.ok = true
		cl.size += int64(frameHeaderSize + len(payload))
	}

	if cl.ok && cl.size > ls.opts.CompactAboveBytes {
		if err := cl.compact(); err != nil {
			_ = f.Close()
			return nil, wrapStoreErr("compact", ErrWrite, key, p, err)
		}
	}

	ls.logs[key] = cl
	return cl, nil
}

// compact rewrites the log as a single frame holding the latest record.
func (cl *counterLog) compact() error {
	frame := encodeFrame(cl.last)
	if err := cl.f.Truncate(0); err != nil {
		return err
	}
	if _, err := cl.f.WriteAt(frame, 0); err != nil {
		return err
	}
	if _, err := cl.f.Seek(int64(len(frame)), io.SeekStart); err != nil {
		return err
	}
	cl.size = int64(len(frame))
	return cl.f.Sync()
}

// Get returns the latest intact record appended under key.
func (ls *LogStore) Get(key string) ([]byte, bool, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.closed {
		return nil, false, wrapStoreErr("get", ErrClosed, key, ls.dir, nil)
	}

	cl, err := ls.openLogLocked(key)
	if err != nil {
		return nil, false, err
	}
	if !cl.ok {
		return nil, false, nil
	}

	out := make([]byte, len(cl.last))
	copy(out, cl.last)
	return out, true, nil
}

// Put appends a new record frame for key.
func (ls *LogStore) Put(key string, value []byte) error {
	if len(value) == 0 || len(value) > maxFramePayload {
		return wrapStoreErr("put", ErrWrite, key, ls.dir, nil)
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.closed {
		return wrapStoreErr("put", ErrClosed, key, ls.dir, nil)
	}

	cl, err := ls.openLogLocked(key)
	if err != nil {
		return err
	}

	frame := encodeFrame(value)
	if _, err := cl.f.Write(frame); err != nil {
		return wrapStoreErr("put", ErrWrite, key, cl.f.Name(), err)
	}
	cl.size += int64(len(frame))
	cl.last = append(cl.last[:0], value...)
	cl.ok = true

	if ls.opts.StrictSync {
		if err := cl.f.Sync(); err != nil {
			return wrapStoreErr("put", ErrSync, key, cl.f.Name(), err)
		}
	}
	return nil
}

// Sync flushes every open log file.
func (ls *LogStore) Sync() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.closed {
		return wrapStoreErr("sync", ErrClosed, "", ls.dir, nil)
	}
	for key, cl := range ls.logs {
		if err := cl.f.Sync(); err != nil {
			return wrapStoreErr("sync", ErrSync, key, cl.f.Name(), err)
		}
	}
	return nil
}

// Close syncs and closes all open log files.
func (ls *LogStore) Close() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.closed {
		return wrapStoreErr("close", ErrClosed, "", ls.dir, nil)
	}
	ls.closed = true

	var lastErr error
	for key, cl := range ls.logs {
		if err := cl.f.Sync(); err != nil {
			lastErr = wrapStoreErr("close", ErrSync, key, cl.f.Name(), err)
		}
		if err := cl.f.Close(); err != nil {
			lastErr = wrapStoreErr("close", ErrWrite, key, cl.f.Name(), err)
		}
	}
	return lastErr
}

var (
	_ CounterStore = (*LogStore)(nil)
	_ Syncer       = (*LogStore)(nil)
)
