package compression

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdCodec implements Zstandard block compression. Encoders are created
// lazily per level and the decoder on first use; all of them belong to the
// owning Context and are released by Close. EncodeAll and DecodeAll are safe
// for concurrent use and run up to concurrency blocks at once.
type ZstdCodec struct {
	concurrency int

	mu       sync.Mutex
	encoders map[int]*zstd.Encoder
	decoder  *zstd.Decoder
}

// NewZstdCodec returns a codec serving up to concurrency workers.
func NewZstdCodec(concurrency int) *ZstdCodec {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ZstdCodec{concurrency: concurrency}
}

func (c *ZstdCodec) workers() int {
	if c.concurrency < 1 {
		return 1
	}
	return c.concurrency
}

func (c *ZstdCodec) FormatCode() uint8 { return FormatZstd }

func (c *ZstdCodec) encoder(level int) (*zstd.Encoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encoders[level]; ok {
		return enc, nil
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(c.workers()),
	)
	if err != nil {
		return nil, err
	}
	if c.encoders == nil {
		c.encoders = make(map[int]*zstd.Encoder)
	}
	c.encoders[level] = enc
	return enc, nil
}

func (c *ZstdCodec) decoderFor() (*zstd.Decoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decoder != nil {
		return c.decoder, nil
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(c.workers()))
	if err != nil {
		return nil, err
	}
	c.decoder = dec
	return dec, nil
}

func (c *ZstdCodec) Compress(src []byte, level int) ([]byte, error) {
	enc, err := c.encoder(level)
	if err != nil {
		return nil, fmt.Errorf("zstd compress: %w", err)
	}
	return enc.EncodeAll(src, make([]byte, 0, len(src))), nil
}

func (c *ZstdCodec) Decompress(src, dst []byte) error {
	dec, err := c.decoderFor()
	if err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	out, err := dec.DecodeAll(src, dst[:0:len(dst)])
	if err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	if len(out) != len(dst) {
		return errShortBlock(len(out), len(dst))
	}
	copy(dst, out)
	return nil
}

// Close releases the encoders and the decoder.
func (c *ZstdCodec) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for level, enc := range c.encoders {
		if err := enc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.encoders, level)
	}
	if c.decoder != nil {
		c.decoder.Close()
		c.decoder = nil
	}
	return firstErr
}
