package hpk

import (
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// lookup walks the resolved tree to the node at the slash-separated name,
// which must already be fs.ValidPath-clean. "." is the root.
func (a *Archive) lookup(name string) (Node, bool) {
	if name == "." {
		return a.root, true
	}
	var cur Node = a.root
	for _, seg := range strings.Split(name, "/") {
		d, ok := cur.(*Directory)
		if !ok {
			return nil, false
		}
		if cur = d.Child(seg); cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Open implements fs.FS.
//
// Files support Read, ReadAt, and Seek; content is read lazily from the
// archive's source. Directory listings are sorted by name, while
// Directory.Children keeps the archive's own order.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	n, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	switch n := n.(type) {
	case *File:
		return &openFile{
			SectionReader: io.NewSectionReader(a.src, int64(n.offset), int64(n.size)),
			info:          fileInfo{name: path.Base(name), size: int64(n.size), mode: fileModeDefault},
		}, nil
	case *Directory:
		return &openDir{
			path:    name,
			info:    fileInfo{name: path.Base(name), mode: dirModeDefault},
			entries: a.dirEntries(n),
		}, nil
	default:
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
}

// Stat implements fs.StatFS.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	n, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return nodeInfo(n, path.Base(name)), nil
}

// ReadFile implements fs.ReadFileFS.
//
// ReadFile returns the entire raw content of the named file. Block-
// compressed assets are returned still wrapped; see the blockstream
// package for transparent decompression.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	n, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}
	f, ok := n.(*File)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	content, err := a.ReadAll(f)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return content, nil
}

// ReadDir implements fs.ReadDirFS.
//
// Entries are sorted by name as the fs contract requires.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	n, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	d, ok := n.(*Directory)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return a.dirEntries(d), nil
}

func (a *Archive) dirEntries(d *Directory) []fs.DirEntry {
	entries := make([]fs.DirEntry, 0, len(d.children))
	for _, c := range d.children {
		entries = append(entries, fs.FileInfoToDirEntry(nodeInfo(c, c.Name())))
	}
	slices.SortFunc(entries, func(x, y fs.DirEntry) int {
		return strings.Compare(x.Name(), y.Name())
	})
	return entries
}

const (
	fileModeDefault = fs.FileMode(0o644)
	dirModeDefault  = fs.ModeDir | 0o755
)

func nodeInfo(n Node, name string) fs.FileInfo {
	if f, ok := n.(*File); ok {
		return &fileInfo{name: name, size: int64(f.size), mode: fileModeDefault}
	}
	return &fileInfo{name: name, mode: dirModeDefault}
}

// fileInfo implements fs.FileInfo for files and directories alike. The
// format stores no modes or times, so both are synthetic.
type fileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *fileInfo) ModTime() time.Time { return time.Time{} }
func (fi *fileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *fileInfo) Sys() any           { return nil }

// openFile implements fs.File for archive file spans.
type openFile struct {
	*io.SectionReader
	info fileInfo
}

func (f *openFile) Stat() (fs.FileInfo, error) { return &f.info, nil }
func (f *openFile) Close() error               { return nil }

// openDir implements fs.ReadDirFile.
type openDir struct {
	path    string
	info    fileInfo
	entries []fs.DirEntry
	pos     int
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.path, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) { return &d.info, nil }
func (d *openDir) Close() error               { return nil }

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	rem := d.entries[d.pos:]
	if n <= 0 {
		d.pos = len(d.entries)
		return rem, nil
	}
	if len(rem) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rem))
	d.pos += n
	return rem[:n], nil
}
