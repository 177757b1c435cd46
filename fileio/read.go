// Package fileio provides the one place the batch engine touches file contents:
// reading text through a memory mapping or a buffered read, and atomic writes.
package fileio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unsafe"

	"github.com/blevesearch/mmap-go"
	"github.com/lexandro/batchforge-mcp/language"
)

// ErrBinary is returned when a file's bytes are not valid source text.
var ErrBinary = errors.New("binary file detected")

const (
	// DefaultLargeFileThreshold is the size above which files are memory-mapped.
	DefaultLargeFileThreshold int64 = 10 * 1024 * 1024
	// DefaultReadBufferSize is the buffer size for buffered reads.
	DefaultReadBufferSize = 64 * 1024
)

// Mode records how content was obtained.
type Mode int

const (
	Buffered Mode = iota
	Mapped
)

func (m Mode) String() string {
	if m == Mapped {
		return "mapped"
	}
	return "buffered"
}

// Reader reads file text. The zero value is usable and applies the defaults.
type Reader struct {
	// LargeFileThreshold: files strictly larger than this are memory-mapped.
	LargeFileThreshold int64
	// ReadBufferSize sizes the buffered reader for small files.
	ReadBufferSize int
	// Lossy replaces invalid UTF-8 instead of failing with ErrBinary.
	// When a mapped file is not valid text it is re-read buffered first.
	Lossy bool
}

func (r Reader) threshold() int64 {
	if r.LargeFileThreshold <= 0 {
		return DefaultLargeFileThreshold
	}
	return r.LargeFileThreshold
}

func (r Reader) bufferSize() int {
	if r.ReadBufferSize <= 0 {
		return DefaultReadBufferSize
	}
	return r.ReadBufferSize
}

// View calls fn with the text content of path. size is the file size the caller
// observed when it stat'ed the file and decides between mapping and buffering.
//
// Mapped content aliases the mapping and is only valid until fn returns;
// fn must not retain it or any substring of it.
func (r Reader) View(path string, size int64, fn func(content string, mode Mode) error) error {
	if size > r.threshold() {
		mapped, err := mapFile(path)
		if err == nil {
			defer mapped.Unmap()
			if language.IsText(mapped) {
				return fn(unsafe.String(&mapped[0], len(mapped)), Mapped)
			}
			if !r.Lossy {
				return ErrBinary
			}
		}
		// Mapping failures fall through to the buffered read.
	}

	data, err := r.readBuffered(path, size)
	if err != nil {
		return err
	}
	if !language.IsText(data) {
		if !r.Lossy {
			return ErrBinary
		}
		return fn(strings.ToValidUTF8(string(data), "�"), Buffered)
	}
	return fn(string(data), Buffered)
}

// ReadText returns a copy of the file's text, mapping large files.
func (r Reader) ReadText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	var text string
	err = r.View(path, info.Size(), func(content string, _ Mode) error {
		text = strings.Clone(content)
		return nil
	})
	return text, err
}

func mapFile(path string) (mmap.MMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	if len(mapped) == 0 {
		mapped.Unmap()
		return nil, fmt.Errorf("mapping %s: empty file", path)
	}
	return mapped, nil
}

// readBuffered reads the whole file, retrying once after a short delay
// if the first attempt fails (editors on Windows hold brief locks while saving).
func (r Reader) readBuffered(path string, sizeHint int64) ([]byte, error) {
	data, err := r.readOnce(path, sizeHint)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		time.Sleep(50 * time.Millisecond)
		data, err = r.readOnce(path, sizeHint)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (r Reader) readOnce(path string, sizeHint int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if sizeHint > 0 {
		buf.Grow(int(sizeHint))
	}
	if _, err := buf.ReadFrom(bufio.NewReaderSize(f, r.bufferSize())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
