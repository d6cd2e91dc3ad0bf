package compression

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4Codec implements LZ4 block compression.
type LZ4Codec struct{}

func (c *LZ4Codec) FormatCode() uint8 { return FormatLZ4 }

func (c *LZ4Codec) Compress(src []byte, _ int) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 {
		// Incompressible, caller stores the block raw.
		return nil, nil
	}
	return dst[:n], nil
}

func (c *LZ4Codec) Decompress(src, dst []byte) error {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != len(dst) {
		return errShortBlock(n, len(dst))
	}
	return nil
}

// LZ4HCCodec is LZ4 with the high-compression match finder. Frames it
// produces decode with LZ4Codec.
type LZ4HCCodec struct {
	LZ4Codec
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func (c *LZ4HCCodec) Compress(src []byte, level int) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	if level < 0 || level >= len(lz4Levels) {
		level = len(lz4Levels) - 1
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlockHC(src, dst, lz4Levels[level], nil, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4hc compress: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return dst[:n], nil
}
