package mrcz

import (
	"go.uber.org/zap"

	"github.com/harshithgowdakt/mrcz/internal/compression"
	"github.com/harshithgowdakt/mrcz/internal/types"
)

type options struct {
	log        *zap.Logger
	params     *compression.Params
	compressor *types.Compressor
	stats      bool
}

// Option configures Read and Write.
type Option func(*options)

// WithLogger sets the logger. Without it the logger is taken from the
// context passed to Read or Write.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithParams overrides the compression parameters. On write they replace
// the volume header's Params; on read only Threads is used.
func WithParams(p compression.Params) Option {
	return func(o *options) { o.params = &p }
}

// WithCompressor overrides the compressor recorded in the written header.
// CompressorNone writes an uncompressed MRC file.
func WithCompressor(c types.Compressor) Option {
	return func(o *options) { o.compressor = &c }
}

// WithStats recomputes the header's min, max, mean and RMS deviation from
// the data before writing.
func WithStats() Option {
	return func(o *options) { o.stats = true }
}
