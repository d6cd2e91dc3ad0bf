package compression

import (
	"github.com/harshithgowdakt/mrcz/internal/types"
)

// Codec compresses and decompresses the payload of a single frame block.
type Codec interface {
	// FormatCode returns the 3-bit compressor format stored in the frame flags.
	FormatCode() uint8
	// Compress returns the compressed form of src. A nil result or one that
	// is not shorter than src means the block is stored raw.
	Compress(src []byte, level int) ([]byte, error)
	// Decompress fills dst exactly from src.
	Decompress(src, dst []byte) error
}

// Compressor format codes, shared by LZ4 and LZ4HC.
const (
	FormatBloscLZ uint8 = 0
	FormatLZ4     uint8 = 1
	FormatSnappy  uint8 = 2
	FormatZlib    uint8 = 3
	FormatZstd    uint8 = 4
)

// formatCompressor maps a format code back to the compressor used to
// decode it.
var formatCompressor = map[uint8]types.Compressor{
	FormatBloscLZ: types.CompressorBloscLZ,
	FormatLZ4:     types.CompressorLZ4,
	FormatSnappy:  types.CompressorSnappy,
	FormatZlib:    types.CompressorZlib,
	FormatZstd:    types.CompressorZstd,
}
