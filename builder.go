package hpk

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"strings"
)

// Builder assembles an archive from named files and directories.
//
// Index assignment is a deterministic pre-order walk over the tree in
// insertion order, so the same sequence of Add calls always produces
// byte-identical output. The zero Builder is not usable; call NewBuilder.
type Builder struct {
	root   *builderNode
	logger *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets a logger for assembly diagnostics.
// If nil, logging is discarded (default behavior).
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder returns an empty Builder holding just the root directory.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{root: &builderNode{kind: KindDirectory}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// log returns the logger, falling back to a discard logger if nil.
func (b *Builder) log() *slog.Logger {
	if b.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.logger
}

// builderNode mirrors the archive tree during assembly. Children keep
// insertion order; that order becomes the name-table order on the wire.
type builderNode struct {
	name     string
	kind     EntryKind
	data     []byte
	children []*builderNode

	index  uint32
	offset uint32
	size   uint32
}

func (n *builderNode) child(name string) *builderNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// AddFile adds a file at the slash-separated path, creating parent
// directories as needed. The data slice is retained until Bytes is called.
func (b *Builder) AddFile(path string, data []byte) error {
	dir, name, err := b.parent(path)
	if err != nil {
		return err
	}
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("hpk: file %q too large (%d bytes)", path, len(data))
	}
	if dir.child(name) != nil {
		return fmt.Errorf("hpk: path %q already added", path)
	}
	dir.children = append(dir.children, &builderNode{name: name, kind: KindFile, data: data})
	return nil
}

// AddDir adds an empty directory at the slash-separated path. Directories
// that files are added under exist implicitly; AddDir is only needed for
// directories that would otherwise stay empty.
func (b *Builder) AddDir(path string) error {
	dir, name, err := b.parent(path)
	if err != nil {
		return err
	}
	if c := dir.child(name); c != nil {
		if c.kind != KindDirectory {
			return fmt.Errorf("hpk: path %q already added as a file", path)
		}
		return nil
	}
	dir.children = append(dir.children, &builderNode{name: name, kind: KindDirectory})
	return nil
}

// parent resolves path's directory chain, creating intermediate
// directories, and returns the parent node plus the final segment.
func (b *Builder) parent(path string) (*builderNode, string, error) {
	if !fs.ValidPath(path) || path == "." {
		return nil, "", fmt.Errorf("hpk: invalid path %q", path)
	}
	segs := strings.Split(path, "/")
	for _, seg := range segs {
		if len(seg) > math.MaxUint16 {
			return nil, "", fmt.Errorf("hpk: name %q too long (%d bytes)", seg, len(seg))
		}
	}
	cur := b.root
	for i, seg := range segs[:len(segs)-1] {
		next := cur.child(seg)
		if next == nil {
			next = &builderNode{name: seg, kind: KindDirectory}
			cur.children = append(cur.children, next)
		} else if next.kind != KindDirectory {
			return nil, "", fmt.Errorf("hpk: path %q already added as a file", strings.Join(segs[:i+1], "/"))
		}
		cur = next
	}
	return cur, segs[len(segs)-1], nil
}

// Bytes assembles the archive.
//
// Layout: header, then each entry's data in index order (directory
// name-table blobs and file contents interleaved as the walk dictates),
// then the file table last.
func (b *Builder) Bytes() ([]byte, error) {
	var order []*builderNode
	var walk func(n *builderNode)
	walk = func(n *builderNode) {
		n.index = uint32(len(order) + 1)
		order = append(order, n)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(b.root)

	total := uint64(headerSizeMax)
	for _, n := range order {
		var sz uint64
		if n.kind == KindDirectory {
			for _, c := range n.children {
				sz += uint64(c.encodedNameSize())
			}
		} else {
			sz = uint64(len(n.data))
		}
		if sz > math.MaxUint32 {
			return nil, fmt.Errorf("hpk: entry %q too large (%d bytes)", n.name, sz)
		}
		n.size = uint32(sz)
		total += sz
	}
	tableOffset := total
	total += uint64(len(order)) * fileEntrySize
	if total > math.MaxUint32 {
		return nil, fmt.Errorf("hpk: archive too large (%d bytes)", total)
	}

	cur := uint32(headerSizeMax)
	for _, n := range order {
		n.offset = cur
		cur += n.size
	}

	h := Header{
		HeaderSize:      headerSizeMax,
		Reserved:        reservedDefaults,
		FileTableOffset: uint32(tableOffset),
		TableHint:       uint32(len(order)),
	}
	out := make([]byte, 0, total)
	out = h.appendBinary(out)
	for _, n := range order {
		if n.kind == KindDirectory {
			for _, c := range n.children {
				out = NameTableEntry{Index: c.index, Kind: c.kind, Name: c.name}.appendBinary(out)
			}
		} else {
			out = append(out, n.data...)
		}
	}
	for _, n := range order {
		out = binary.LittleEndian.AppendUint32(out, n.offset)
		out = binary.LittleEndian.AppendUint32(out, n.size)
	}

	b.log().Debug("archive assembled", "entries", len(order), "size", len(out))
	return out, nil
}

func (n *builderNode) encodedNameSize() int {
	return nameEntryMinSize + len(n.name)
}

// WriteTo assembles the archive and writes it to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	out, err := b.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(out)
	return int64(n), err
}

// FromFS builds an archive from every regular file in fsys.
//
// Files are added in fs.WalkDir's lexical order, so the same tree content
// always produces the same archive. Empty directories are preserved.
// Symbolic links are not followed. The context cancels a long walk.
func FromFS(ctx context.Context, fsys fs.FS, opts ...BuilderOption) ([]byte, error) {
	b := NewBuilder(opts...)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		switch {
		case d.IsDir():
			return b.AddDir(path)
		case !d.Type().IsRegular():
			b.log().Debug("skipping irregular file", "path", path, "type", d.Type().String())
			return nil
		default:
			data, err := fs.ReadFile(fsys, path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			return b.AddFile(path, data)
		}
	})
	if err != nil {
		return nil, err
	}
	return b.Bytes()
}
