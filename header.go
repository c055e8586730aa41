package hpk

import (
	"encoding/binary"
	"fmt"

	"github.com/hmtools/hpk/internal/readat"
)

// Magic is the little-endian u32 at offset 0 of every archive
// (the bytes "BPUL").
const Magic uint32 = 0x4c555042

const (
	headerFixedSize = 0x20
	headerSizeMin   = 0x20
	headerSizeMax   = 0x24

	fileEntrySize    = 8
	nameEntryMinSize = 10
)

// Header is the fixed region at the start of an archive.
//
// The five reserved fields have no documented meaning; they are read
// verbatim and preserved unchanged when a parsed header is rewritten. The
// builder emits the constant values observed in shipped archives.
type Header struct {
	// HeaderSize is the declared length of the header region. Sizes
	// between 0x20 and 0x24 inclusive are accepted.
	HeaderSize uint32

	// Reserved holds the opaque fields at offsets 0x08 through 0x18.
	Reserved [5]uint32

	// FileTableOffset is the byte offset of the file table.
	FileTableOffset uint32

	// TableHint is the raw field at offset 0x20: the file-table entry
	// count or last-used index, depending on the archive's producer. Zero
	// when the header is too short to carry the field.
	TableHint uint32
}

// reservedDefaults are the constant reserved-field values observed in
// shipped archives, emitted by the write path.
var reservedDefaults = [5]uint32{1, 0xFFFFFFFF, 0, 0, 1}

// ParseHeader decodes and validates the fixed header region of src.
func ParseHeader(src ByteSource) (Header, error) {
	buf, err := readat.Section(src, 0, headerFixedSize, ErrMalformedHeader)
	if err != nil {
		return Header{}, err
	}

	if got := binary.LittleEndian.Uint32(buf[0x00:]); got != Magic {
		return Header{}, fmt.Errorf("%w: magic 0x%08x", ErrMalformedHeader, got)
	}

	h := Header{
		HeaderSize:      binary.LittleEndian.Uint32(buf[0x04:]),
		FileTableOffset: binary.LittleEndian.Uint32(buf[0x1c:]),
	}
	for i := range h.Reserved {
		h.Reserved[i] = binary.LittleEndian.Uint32(buf[0x08+4*i:])
	}

	if h.HeaderSize < headerSizeMin {
		return Header{}, fmt.Errorf("%w: header size 0x%x too short", ErrMalformedHeader, h.HeaderSize)
	}
	if h.HeaderSize > headerSizeMax {
		return Header{}, fmt.Errorf("%w: unsupported format variant 0x%x", ErrMalformedHeader, h.HeaderSize)
	}
	if h.FileTableOffset < h.HeaderSize {
		return Header{}, fmt.Errorf("%w: file table at 0x%x overlaps header", ErrMalformedHeader, h.FileTableOffset)
	}

	if h.HeaderSize >= headerSizeMax {
		hint, err := readat.Section(src, headerFixedSize, 4, ErrMalformedHeader)
		if err != nil {
			return Header{}, err
		}
		h.TableHint = binary.LittleEndian.Uint32(hint)
	}

	return h, nil
}

// EntryCountHint returns the header's entry-count field and whether the
// header carries one at all.
func (h Header) EntryCountHint() (uint32, bool) {
	return h.TableHint, h.HeaderSize >= headerSizeMax
}

// appendBinary serializes the header, honoring HeaderSize for whether the
// trailing count field is present.
func (h Header) appendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, Magic)
	dst = binary.LittleEndian.AppendUint32(dst, h.HeaderSize)
	for _, v := range h.Reserved {
		dst = binary.LittleEndian.AppendUint32(dst, v)
	}
	dst = binary.LittleEndian.AppendUint32(dst, h.FileTableOffset)
	n := uint32(headerFixedSize)
	if h.HeaderSize >= headerSizeMax {
		dst = binary.LittleEndian.AppendUint32(dst, h.TableHint)
		n += 4
	}
	// Header sizes strictly between 0x20 and 0x24 pad with zeros.
	for ; n < h.HeaderSize; n++ {
		dst = append(dst, 0)
	}
	return dst
}
