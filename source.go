package hpk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/exp/mmap"
)

// ByteSource provides random access to archive bytes.
//
// Implementations exist for in-memory buffers ([NewBytesSource]) and
// memory-mapped files ([OpenFile]). SourceID must return a stable
// identifier for the underlying content; it is used as part of cache keys
// by packages layered on top.
type ByteSource interface {
	io.ReaderAt
	Size() int64
	SourceID() string
}

// BytesSource is a ByteSource backed by a byte slice.
//
// The slice is retained; callers must not mutate it while the source is in
// use.
type BytesSource struct {
	data []byte

	idOnce sync.Once
	id     string
}

// NewBytesSource returns a ByteSource over data.
func NewBytesSource(data []byte) *BytesSource {
	return &BytesSource{data: data}
}

// ReadAt implements io.ReaderAt over the backing slice.
func (s *BytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the length of the backing slice.
func (s *BytesSource) Size() int64 {
	return int64(len(s.data))
}

// SourceID returns a content-derived identifier, computed once on first use.
func (s *BytesSource) SourceID() string {
	s.idOnce.Do(func() {
		sum := sha256.Sum256(s.data)
		s.id = "bytes:" + hex.EncodeToString(sum[:8])
	})
	return s.id
}

// MappedFile is a ByteSource backed by a memory-mapped file.
//
// Close must be called to release the mapping.
type MappedFile struct {
	r  *mmap.ReaderAt
	id string
}

// OpenFile memory-maps the file at path for random access.
func OpenFile(path string) (*MappedFile, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("map archive file: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("stat archive file: %w", err)
	}
	return &MappedFile{r: r, id: fileSourceID(path, info)}, nil
}

func fileSourceID(path string, info os.FileInfo) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	return fmt.Sprintf("file:%s:%d:%d", absPath, info.Size(), info.ModTime().UnixNano())
}

// ReadAt implements io.ReaderAt over the mapping.
func (m *MappedFile) ReadAt(p []byte, off int64) (int, error) {
	return m.r.ReadAt(p, off)
}

// Size returns the mapped length.
func (m *MappedFile) Size() int64 {
	return int64(m.r.Len())
}

// SourceID returns a path- and mtime-derived identifier.
func (m *MappedFile) SourceID() string {
	return m.id
}

// Close releases the mapping.
func (m *MappedFile) Close() error {
	return m.r.Close()
}

// sectionSource is a windowed view over a parent source.
type sectionSource struct {
	*io.SectionReader
	id string
}

func (s *sectionSource) SourceID() string {
	return s.id
}

// Section returns a ByteSource exposing the n bytes of src starting at off.
//
// Reads beyond the window report io.EOF; the window is not validated
// against the parent's size here, so an oversized span surfaces as a short
// read at use time.
func Section(src ByteSource, off, n int64) ByteSource {
	return &sectionSource{
		SectionReader: io.NewSectionReader(src, off, n),
		id:            fmt.Sprintf("%s@%d+%d", src.SourceID(), off, n),
	}
}
