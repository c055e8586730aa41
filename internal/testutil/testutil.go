// Package testutil provides shared fakes and fixture builders for archive
// and stream tests.
package testutil

import (
	"fmt"
	"io"
)

// Source implements a simple in-memory byte source for tests.
type Source struct {
	data []byte
	id   string
}

// NewSource returns a byte source backed by the provided data.
func NewSource(data []byte) *Source {
	return &Source{data: data, id: fmt.Sprintf("test:%d", len(data))}
}

// NewNamedSource returns a byte source with a fixed identifier, for tests
// that assert on cache keys.
func NewNamedSource(id string, data []byte) *Source {
	return &Source{data: data, id: id}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (s *Source) Size() int64 {
	return int64(len(s.data))
}

// SourceID returns the source identifier.
func (s *Source) SourceID() string {
	return s.id
}

// Bytes returns the backing slice for tests that need to mutate data.
func (s *Source) Bytes() []byte {
	return s.data
}

// OversizedSource reports a larger size than its backing data holds, so
// spans that pass header validation still come up short when read.
type OversizedSource struct {
	*Source
	size int64
}

// NewOversizedSource returns a source over data that claims the given size.
func NewOversizedSource(data []byte, size int64) *OversizedSource {
	return &OversizedSource{Source: NewSource(data), size: size}
}

// Size returns the claimed size.
func (s *OversizedSource) Size() int64 {
	return s.size
}
