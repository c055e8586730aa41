package cache

import (
	"fmt"
	"io"

	"github.com/hmtools/hpk/blockstream"
)

// Reader wraps a blockstream.Reader so that block decodes go through a
// shared Blocks cache.
//
// Reader mirrors the base reader's range semantics exactly: the same
// arguments return the same bytes and the same errors, cached or not.
// Multiple Readers may share one cache; entries are keyed by each base
// reader's source identity.
type Reader struct {
	base   *blockstream.Reader
	blocks *Blocks
}

// Interface compliance.
var (
	_ io.ReaderAt = (*Reader)(nil)
	_ io.WriterTo = (*Reader)(nil)
)

// NewReader wraps base with the given block cache.
func NewReader(base *blockstream.Reader, blocks *Blocks) *Reader {
	return &Reader{base: base, blocks: blocks}
}

// Size returns the decoded payload length.
func (r *Reader) Size() int64 { return r.base.Size() }

// Blocks returns the block count.
func (r *Reader) Blocks() int { return r.base.Blocks() }

// Block returns decoded block i through the cache. The returned slice is
// shared; callers must not modify it.
func (r *Reader) Block(i int) ([]byte, error) {
	return r.blocks.Block(r.base, i)
}

// ReadRange decodes payload bytes [start, start+length), reusing cached
// blocks. The result is always freshly allocated.
func (r *Reader) ReadRange(start, length int64) ([]byte, error) {
	if start < 0 || length < 0 {
		return nil, fmt.Errorf("%w: negative range [%d, +%d)", blockstream.ErrOutOfRange, start, length)
	}
	if end := start + length; end > r.base.Size() {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", blockstream.ErrOutOfRange, start, end, r.base.Size())
	}
	if length == 0 {
		return []byte{}, nil
	}

	bsize := int64(r.base.BlockSize())
	first := int(start / bsize)
	last := int((start + length - 1) / bsize)
	buf := make([]byte, 0, int64(last-first+1)*bsize)
	for i := first; i <= last; i++ {
		blk, err := r.Block(i)
		if err != nil {
			return nil, err
		}
		buf = append(buf, blk...)
	}
	lo := start - int64(first)*bsize
	return buf[lo : lo+length : lo+length], nil
}

// ReadAt implements io.ReaderAt over the decoded payload.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", blockstream.ErrOutOfRange, off)
	}
	size := r.base.Size()
	if off >= size {
		return 0, io.EOF
	}
	n := int64(len(p))
	eof := false
	if off+n > size {
		n = size - off
		eof = true
	}
	out, err := r.ReadRange(off, n)
	if err != nil {
		return 0, err
	}
	copy(p, out)
	if eof {
		return int(n), io.EOF
	}
	return int(n), nil
}

// WriteTo decodes the whole payload into w, reusing cached blocks.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for i := range r.base.Blocks() {
		blk, err := r.Block(i)
		if err != nil {
			return written, err
		}
		n, err := w.Write(blk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
