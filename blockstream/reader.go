// Package blockstream reads and writes seekable block-compressed asset
// streams: a small header naming a compression codec, then the payload
// split into fixed-size blocks that are stored or compressed individually.
// Any byte range of the payload can be decoded by touching only the blocks
// it overlaps.
//
// Stream layout (little-endian): a 4-byte codec magic, uncompressed size
// (u32), block size (u32), then one u32 data offset per block. The first
// offset doubles as the header length, so the offset array bounds itself.
// A block is stored raw when its data span is exactly as long as the
// decoded block would be, and compressed otherwise; the final block's
// decoded length is the payload remainder rather than the block size.
package blockstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hmtools/hpk/compress"
	"github.com/hmtools/hpk/internal/readat"
)

// Sentinel errors returned by stream decoding.
var (
	// ErrHeaderMagic is returned when the stream does not begin with a
	// registered codec magic.
	ErrHeaderMagic = errors.New("blockstream: unrecognized stream magic")

	// ErrTruncatedHeader is returned when the source ends inside the
	// header or offset array.
	ErrTruncatedHeader = errors.New("blockstream: truncated stream header")

	// ErrMalformedHeader is returned when the header's sizes and offsets
	// are inconsistent with each other or with the source length.
	ErrMalformedHeader = errors.New("blockstream: malformed stream header")

	// ErrSizeMismatch is returned when a compressed block decodes to a
	// length other than the block's full size. The affected read fails
	// whole; no short or padded bytes are ever returned.
	ErrSizeMismatch = errors.New("blockstream: decompressed size mismatch")

	// ErrOutOfRange is returned for ranges or block indices beyond the
	// uncompressed size.
	ErrOutOfRange = errors.New("blockstream: request beyond uncompressed size")
)

// errShortData reports a data span that could not be read in full. Header
// validation pins every span inside the source, so this only fires when
// the source itself is inconsistent.
var errShortData = errors.New("blockstream: short data read")

// ByteSource provides random access to an encoded stream.
//
// It matches the root hpk package's interface, so an archive file span can
// be passed straight in.
type ByteSource interface {
	io.ReaderAt
	Size() int64
	SourceID() string
}

// fixedHeaderSize covers magic, uncompressed size, and block size.
const fixedHeaderSize = 12

// Reader decodes byte ranges of a block-compressed stream.
//
// A Reader holds no mutable decode state: every call is independent, and
// concurrent use is safe. Repeated or overlapping range reads always
// return identical bytes. Layer a cache on top for repeated access to the
// same blocks.
type Reader struct {
	src     ByteSource
	codec   compress.Codec
	usize   uint32
	bsize   uint32
	offsets []uint32
	total   int64
}

// Open parses and validates the stream header in src.
//
// The offset count declared by the header's own length must match the
// block count implied by the sizes, offsets must not decrease, and the
// last block's span must end inside the source.
func Open(src ByteSource) (*Reader, error) {
	fixed, err := readat.Section(src, 0, fixedHeaderSize, ErrTruncatedHeader)
	if err != nil {
		return nil, err
	}
	var magic [4]byte
	copy(magic[:], fixed)
	codec, ok := compress.Lookup(magic)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHeaderMagic, fixed[:4])
	}

	r := &Reader{
		src:   src,
		codec: codec,
		usize: binary.LittleEndian.Uint32(fixed[4:]),
		bsize: binary.LittleEndian.Uint32(fixed[8:]),
		total: src.Size(),
	}
	if r.usize == 0 {
		// Empty payload: no blocks and no offset array.
		return r, nil
	}
	if r.bsize == 0 {
		return nil, fmt.Errorf("%w: block size 0 with %d content bytes", ErrMalformedHeader, r.usize)
	}

	implied := (int64(r.usize) + int64(r.bsize) - 1) / int64(r.bsize)
	head, err := readat.Section(src, fixedHeaderSize, 4, ErrTruncatedHeader)
	if err != nil {
		return nil, err
	}
	hdrLen := binary.LittleEndian.Uint32(head)
	if hdrLen < fixedHeaderSize+4 || (hdrLen-fixedHeaderSize)%4 != 0 {
		return nil, fmt.Errorf("%w: first offset 0x%x is not a header length", ErrMalformedHeader, hdrLen)
	}
	if declared := int64(hdrLen-fixedHeaderSize) / 4; declared != implied {
		return nil, fmt.Errorf("%w: %d offsets declared, %d blocks implied", ErrMalformedHeader, declared, implied)
	}

	raw, err := readat.Section(src, fixedHeaderSize, implied*4, ErrTruncatedHeader)
	if err != nil {
		return nil, err
	}
	offsets := make([]uint32, implied)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(raw[4*i:])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("%w: offset %d decreases (0x%x after 0x%x)", ErrMalformedHeader, i, offsets[i], offsets[i-1])
		}
	}
	if last := int64(offsets[len(offsets)-1]); last > r.total {
		return nil, fmt.Errorf("%w: last block at 0x%x beyond stream end 0x%x", ErrMalformedHeader, last, r.total)
	}

	r.offsets = offsets
	return r, nil
}

// Size returns the decoded payload length.
func (r *Reader) Size() int64 { return int64(r.usize) }

// BlockSize returns the decoded length of every block but the last.
func (r *Reader) BlockSize() int { return int(r.bsize) }

// Blocks returns the block count.
func (r *Reader) Blocks() int { return len(r.offsets) }

// Codec returns the codec selected by the stream magic.
func (r *Reader) Codec() compress.Codec { return r.codec }

// SourceID identifies the underlying source; cache keys build on it.
func (r *Reader) SourceID() string { return r.src.SourceID() }

// fullSize returns block i's decoded length: the block size for interior
// blocks, the payload remainder for the final one. An exact multiple
// means a full final block.
func (r *Reader) fullSize(i int) int64 {
	if i < len(r.offsets)-1 {
		return int64(r.bsize)
	}
	if rem := r.usize % r.bsize; rem != 0 {
		return int64(rem)
	}
	return int64(r.bsize)
}

// Block decodes block i in full.
//
// A data span exactly as long as the decoded block is stored and returned
// verbatim; anything else is inflated and must come out at exactly the
// decoded length, or the read fails with ErrSizeMismatch.
func (r *Reader) Block(i int) ([]byte, error) {
	if i < 0 || i >= len(r.offsets) {
		return nil, fmt.Errorf("%w: block %d of %d", ErrOutOfRange, i, len(r.offsets))
	}
	off := int64(r.offsets[i])
	end := r.total
	if i+1 < len(r.offsets) {
		end = int64(r.offsets[i+1])
	}
	declared := end - off
	full := r.fullSize(i)

	data, err := readat.Section(r.src, off, declared, errShortData)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", i, err)
	}
	if declared == full {
		return data, nil
	}
	out, err := r.codec.Inflate(data, int(full))
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", i, err)
	}
	if int64(len(out)) != full {
		return nil, fmt.Errorf("%w: block %d decoded to %d bytes, want %d", ErrSizeMismatch, i, len(out), full)
	}
	return out, nil
}

// ReadRange decodes and returns payload bytes [start, start+length).
// Ranges reaching beyond the payload fail with ErrOutOfRange; nothing is
// clamped.
func (r *Reader) ReadRange(start, length int64) ([]byte, error) {
	if start < 0 || length < 0 {
		return nil, fmt.Errorf("%w: negative range [%d, +%d)", ErrOutOfRange, start, length)
	}
	if end := start + length; end > int64(r.usize) {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, start, end, r.usize)
	}
	if length == 0 {
		return []byte{}, nil
	}

	first := int(start / int64(r.bsize))
	last := int((start + length - 1) / int64(r.bsize))
	buf := make([]byte, 0, int64(last-first+1)*int64(r.bsize))
	for i := first; i <= last; i++ {
		blk, err := r.Block(i)
		if err != nil {
			return nil, err
		}
		buf = append(buf, blk...)
	}
	lo := start - int64(first)*int64(r.bsize)
	return buf[lo : lo+length : lo+length], nil
}

// ReadAt implements io.ReaderAt over the decoded payload, clamping reads
// at the payload end with io.EOF as the interface requires.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrOutOfRange, off)
	}
	size := int64(r.usize)
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

// WriteTo decodes the whole payload into w block by block, never holding
// more than one decoded block in memory.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for i := range r.Blocks() {
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

// Detect reports whether src begins with a registered codec magic.
// Extractors use it to unwrap compressed assets transparently.
func Detect(src ByteSource) bool {
	var b [4]byte
	if _, err := src.ReadAt(b[:], 0); err != nil {
		return false
	}
	_, ok := compress.Lookup(b)
	return ok
}
