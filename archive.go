package hpk

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hmtools/hpk/internal/readat"
)

// RootIndex is the file-table index of the root directory.
const RootIndex uint32 = 1

// Archive is an open container: the parsed header, the file table, and the
// eagerly resolved root directory.
//
// Archive implements fs.FS, fs.StatFS, fs.ReadFileFS, and fs.ReadDirFS
// for compatibility with the standard library. All methods are safe for
// concurrent use; the source is never written.
type Archive struct {
	src     ByteSource
	header  Header
	entries []FileTableEntry
	root    *Directory
	logger  *slog.Logger

	entryCount    int
	entryCountSet bool
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open parses the archive in src and resolves its root directory.
//
// The file-table entry count is resolved once here: the header's count
// field when present and plausible, otherwise derived from the span
// between the table offset and the end of the source. WithEntryCount
// overrides both.
func Open(src ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{src: src}
	for _, opt := range opts {
		opt(a)
	}

	h, err := ParseHeader(src)
	if err != nil {
		return nil, err
	}
	a.header = h

	count := a.entryCount
	if !a.entryCountSet {
		count = resolveEntryCount(h, src.Size())
	}
	entries, err := ReadFileTable(src, int64(h.FileTableOffset), count)
	if err != nil {
		return nil, err
	}
	a.entries = entries

	root, err := a.ResolveDirectory(RootIndex)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	a.root = root

	a.log().Debug("archive opened",
		"source", src.SourceID(),
		"header_size", h.HeaderSize,
		"table_offset", h.FileTableOffset,
		"entries", len(entries))
	return a, nil
}

// OpenBytes parses an archive held in memory.
func OpenBytes(data []byte, opts ...Option) (*Archive, error) {
	return Open(NewBytesSource(data), opts...)
}

// OpenPath memory-maps the archive at path and parses it. Close releases
// the mapping.
func OpenPath(path string, opts ...Option) (*Archive, error) {
	src, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Open(src, opts...)
	if err != nil {
		src.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the underlying source when it is closeable. Archives
// over plain byte slices have nothing to release.
func (a *Archive) Close() error {
	if c, ok := a.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Header returns the parsed header, reserved fields verbatim.
func (a *Archive) Header() Header { return a.header }

// Source returns the underlying byte source.
func (a *Archive) Source() ByteSource { return a.src }

// EntryCount returns the resolved number of file-table entries.
func (a *Archive) EntryCount() int { return len(a.entries) }

// Entry returns the file-table record at the 1-based index. Index 0 and
// indices past the table fail with ErrIndexOutOfRange.
func (a *Archive) Entry(index uint32) (FileTableEntry, error) {
	r := resolver{src: a.src, entries: a.entries}
	return r.entry(index)
}

// Root returns the resolved root directory.
func (a *Archive) Root() *Directory { return a.root }

// ResolveDirectory expands the entry at index as a directory. The result
// is nameless like the root; names belong to parent name tables, which an
// arbitrary index is resolved without.
func (a *Archive) ResolveDirectory(index uint32) (*Directory, error) {
	r := resolver{src: a.src, entries: a.entries}
	return r.directory("", index)
}

// Data returns a ByteSource view over f's content span. No bytes are read
// until the view is; a span reaching past the source surfaces as a short
// read at use time.
func (a *Archive) Data(f *File) ByteSource {
	return Section(a.src, int64(f.offset), int64(f.size))
}

// ReadAll returns f's entire content.
func (a *Archive) ReadAll(f *File) ([]byte, error) {
	buf, err := readat.Section(a.src, int64(f.offset), int64(f.size), ErrTruncatedInput)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", f.name, err)
	}
	return buf, nil
}
