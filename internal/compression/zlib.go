package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ZlibCodec implements zlib (RFC 1950) block compression.
type ZlibCodec struct{}

func (c *ZlibCodec) FormatCode() uint8 { return FormatZlib }

func (c *ZlibCodec) Compress(src []byte, level int) ([]byte, error) {
	if level < zlib.BestSpeed {
		level = zlib.BestSpeed
	} else if level > zlib.BestCompression {
		level = zlib.BestCompression
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *ZlibCodec) Decompress(src, dst []byte) error {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("zlib decompress: %w", err)
	}
	defer r.Close()
	if _, err := io.ReadFull(r, dst); err != nil {
		return fmt.Errorf("zlib decompress: %w", err)
	}
	// The stream must end exactly at len(dst).
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return fmt.Errorf("zlib decompress: output longer than %d bytes", len(dst))
	}
	return nil
}
