package blockstream

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hmtools/hpk/compress"
)

// DefaultBlockSize is the block granularity used when no option overrides
// it. 32 KiB matches the streams shipped with the games this format comes
// from.
const DefaultBlockSize = 32 * 1024

// EncodeOption configures Encode.
type EncodeOption func(*encoder)

// WithCodec selects the compression codec. The default is zlib, the only
// codec every known consumer handles.
func WithCodec(c compress.Codec) EncodeOption {
	return func(e *encoder) {
		e.codec = c
	}
}

// WithBlockSize sets the block granularity. Values below one byte fall
// back to DefaultBlockSize.
func WithBlockSize(n int) EncodeOption {
	return func(e *encoder) {
		e.blockSize = n
	}
}

type encoder struct {
	codec     compress.Codec
	blockSize int
}

// Encode wraps payload in a seekable block stream.
//
// Each block is compressed independently; blocks that compression does
// not shrink are stored raw, which keeps the reader's length-based
// classification unambiguous. Encode then Open round-trips any payload.
func Encode(payload []byte, opts ...EncodeOption) ([]byte, error) {
	e := encoder{blockSize: DefaultBlockSize}
	for _, opt := range opts {
		opt(&e)
	}
	if e.codec == nil {
		c, ok := compress.Lookup(compress.MagicZlib)
		if !ok {
			return nil, fmt.Errorf("blockstream: zlib codec not registered")
		}
		e.codec = c
	}
	if e.blockSize < 1 {
		e.blockSize = DefaultBlockSize
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("blockstream: payload too large (%d bytes)", len(payload))
	}

	magic := e.codec.Magic()
	out := make([]byte, 0, fixedHeaderSize+len(payload)/2)
	out = append(out, magic[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = binary.LittleEndian.AppendUint32(out, uint32(e.blockSize))
	if len(payload) == 0 {
		return out, nil
	}

	count := (len(payload) + e.blockSize - 1) / e.blockSize
	hdrLen := int64(fixedHeaderSize) + 4*int64(count)

	blocks := make([][]byte, 0, count)
	cur := hdrLen
	offsets := make([]uint32, 0, count)
	for lo := 0; lo < len(payload); lo += e.blockSize {
		raw := payload[lo:min(lo+e.blockSize, len(payload))]
		data := raw
		if comp, err := e.codec.Deflate(raw); err == nil && len(comp) < len(raw) {
			data = comp
		}
		if cur > math.MaxUint32 {
			return nil, fmt.Errorf("blockstream: stream exceeds offset range at block %d", len(blocks))
		}
		offsets = append(offsets, uint32(cur))
		blocks = append(blocks, data)
		cur += int64(len(data))
	}
	if cur > math.MaxUint32 {
		return nil, fmt.Errorf("blockstream: stream exceeds offset range")
	}

	for _, off := range offsets {
		out = binary.LittleEndian.AppendUint32(out, off)
	}
	for _, data := range blocks {
		out = append(out, data...)
	}
	return out, nil
}
