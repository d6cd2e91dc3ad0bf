package compression

import (
	"fmt"

	"github.com/golang/snappy"
)

// SnappyCodec implements Snappy block compression. The level is ignored.
type SnappyCodec struct{}

func (c *SnappyCodec) FormatCode() uint8 { return FormatSnappy }

func (c *SnappyCodec) Compress(src []byte, _ int) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (c *SnappyCodec) Decompress(src, dst []byte) error {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return fmt.Errorf("snappy decompress: %w", err)
	}
	if n != len(dst) {
		return errShortBlock(n, len(dst))
	}
	if _, err := snappy.Decode(dst, src); err != nil {
		return fmt.Errorf("snappy decompress: %w", err)
	}
	return nil
}
