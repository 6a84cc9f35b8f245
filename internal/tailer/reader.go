// Package tailer follows scheduler output files as they grow.
package tailer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"
)

// Reader reads a single file incrementally, remembering the byte offset
// of the last read. Check may be called from the poll loop and the
// fsnotify event handler concurrently; the offset makes it idempotent.
type Reader struct {
	mu sync.Mutex

	path        string
	offset      int64
	initialDone bool
}

// NewReader creates a reader positioned at the start of the file.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Path returns the file this reader follows.
func (r *Reader) Path() string {
	return r.path
}

// Offset returns the byte offset of the next read.
func (r *Reader) Offset() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offset
}

// InitialReadDone reports whether the first successful read happened.
func (r *Reader) InitialReadDone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialDone
}

// Check reads any bytes appended since the last call. A missing file
// resets the offset and returns no data. A file smaller than the
// remembered offset was truncated or replaced; the offset resets to
// zero so the new content is delivered on this same call. Byte
// sequences that are not valid UTF-8 are replaced, never dropped.
func (r *Reader) Check() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fi, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.offset = 0
			return "", nil
		}
		return "", fmt.Errorf("stat %s: %w", r.path, err)
	}

	size := fi.Size()
	if size < r.offset {
		r.offset = 0
	}
	if size == r.offset {
		if !r.initialDone && size == 0 {
			r.initialDone = true
		}
		return "", nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek %s: %w", r.path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", r.path, err)
	}

	r.offset += int64(len(data))
	r.initialDone = true
	return sanitize(data), nil
}

// sanitize replaces undecodable bytes with U+FFFD.
func sanitize(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}
