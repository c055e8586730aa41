package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdCodec handles "ZSTD" streams. A single decoder/encoder pair is
// shared: DecodeAll and EncodeAll are stateless and safe for concurrent
// use, so no pooling is needed.
type zstdCodec struct {
	once sync.Once
	dec  *zstd.Decoder
	enc  *zstd.Encoder
	err  error
}

func (*zstdCodec) Magic() [4]byte { return MagicZstd }
func (*zstdCodec) Name() string   { return "zstd" }

func (c *zstdCodec) setup() error {
	c.once.Do(func() {
		c.dec, c.err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if c.err != nil {
			return
		}
		c.enc, c.err = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(0))
	})
	return c.err
}

func (c *zstdCodec) Inflate(src []byte, sizeHint int) ([]byte, error) {
	if err := c.setup(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	out, err := c.dec.DecodeAll(src, make([]byte, 0, sizeHint))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, nil
}

func (c *zstdCodec) Deflate(src []byte) ([]byte, error) {
	if err := c.setup(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return c.enc.EncodeAll(src, make([]byte, 0, len(src))), nil
}
