package hpk

import (
	"fmt"
	"iter"
	"slices"
)

// maxTreeDepth bounds directory recursion. The deepest shipped archives
// nest a handful of levels; anything past this is a corrupt or hostile
// table.
const maxTreeDepth = 128

// Node is a resolved member of the archive tree: a *File or a *Directory.
type Node interface {
	// Name is the entry's name from the parent's name table. The root
	// directory is nameless and returns "".
	Name() string
	// Index is the entry's 1-based file-table index.
	Index() uint32
	// Kind reports whether the node is a file or a directory.
	Kind() EntryKind
}

// File is a leaf node: a named byte span inside the archive. The span is a
// view into the source the tree was resolved from; no content is copied.
type File struct {
	name   string
	index  uint32
	offset uint32
	size   uint32
}

func (f *File) Name() string    { return f.name }
func (f *File) Index() uint32   { return f.index }
func (f *File) Kind() EntryKind { return KindFile }

// Offset returns the byte offset of the file's content in the archive.
func (f *File) Offset() uint32 { return f.offset }

// Size returns the content length in bytes.
func (f *File) Size() uint32 { return f.size }

// Directory is an interior node. Children appear in name-table order.
type Directory struct {
	name     string
	index    uint32
	children []Node
}

func (d *Directory) Name() string    { return d.name }
func (d *Directory) Index() uint32   { return d.index }
func (d *Directory) Kind() EntryKind { return KindDirectory }

// Children returns the directory's members in wire order. The returned
// slice is shared; callers must not modify it.
func (d *Directory) Children() []Node { return d.children }

// Child returns the first member with the given name, or nil.
func (d *Directory) Child(name string) Node {
	for _, c := range d.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Walk yields every node under d in resolution order, keyed by its
// slash-separated path relative to d. The walk is pre-order: a directory
// is yielded before its members. d itself is not yielded.
func (d *Directory) Walk() iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		var rec func(prefix string, n Node) bool
		rec = func(prefix string, n Node) bool {
			path := n.Name()
			if prefix != "" {
				path = prefix + "/" + path
			}
			if !yield(path, n) {
				return false
			}
			if sub, ok := n.(*Directory); ok {
				for _, c := range sub.children {
					if !rec(path, c) {
						return false
					}
				}
			}
			return true
		}
		for _, c := range d.children {
			if !rec("", c) {
				return
			}
		}
	}
}

// resolver expands file-table indices into tree nodes. It is a pure
// function over the source: the same table always resolves to the same
// tree, and concurrent resolvers never interfere.
type resolver struct {
	src     ByteSource
	entries []FileTableEntry
	stack   []uint32 // indices on the active expansion path
}

// entry returns the 1-based table record for index.
func (r *resolver) entry(index uint32) (FileTableEntry, error) {
	if index == 0 || int64(index) > int64(len(r.entries)) {
		return FileTableEntry{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(r.entries))
	}
	return r.entries[index-1], nil
}

// directory expands index as a directory: its span is read as a name
// table and every referenced entry resolved in order. Expansion reaching
// an index already on the active path fails with ErrCyclicReference;
// a well-formed archive's directories form a tree, never a DAG.
func (r *resolver) directory(name string, index uint32) (*Directory, error) {
	dentry, err := r.entry(index)
	if err != nil {
		return nil, err
	}
	if len(r.stack) > maxTreeDepth {
		return nil, fmt.Errorf("%w: more than %d levels", ErrTooDeep, maxTreeDepth)
	}
	if slices.Contains(r.stack, index) {
		return nil, fmt.Errorf("%w: index %d", ErrCyclicReference, index)
	}
	r.stack = append(r.stack, index)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	names, err := ReadNameTable(r.src, int64(dentry.Offset), int64(dentry.Size))
	if err != nil {
		return nil, fmt.Errorf("directory index %d: %w", index, err)
	}

	children := make([]Node, 0, len(names))
	for _, ne := range names {
		switch ne.Kind {
		case KindFile:
			fentry, err := r.entry(ne.Index)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", ne.Name, err)
			}
			children = append(children, &File{
				name:   ne.Name,
				index:  ne.Index,
				offset: fentry.Offset,
				size:   fentry.Size,
			})
		case KindDirectory:
			sub, err := r.directory(ne.Name, ne.Index)
			if err != nil {
				return nil, err
			}
			children = append(children, sub)
		}
	}
	return &Directory{name: name, index: index, children: children}, nil
}
