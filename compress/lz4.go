package compress

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// lz4Codec handles "LZ4 " streams using raw LZ4 blocks (no frame).
type lz4Codec struct{}

func (lz4Codec) Magic() [4]byte { return MagicLZ4 }
func (lz4Codec) Name() string   { return "lz4" }

func (lz4Codec) Inflate(src []byte, sizeHint int) ([]byte, error) {
	dst := make([]byte, sizeHint)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	return dst[:n], nil
}

func (lz4Codec) Deflate(src []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if n == 0 {
		// Incompressible. Return a no-gain result; the caller's shorter-than
		// check stores the original bytes.
		return append([]byte(nil), src...), nil
	}
	return dst[:n], nil
}
