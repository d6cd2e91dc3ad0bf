package compression

import (
	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/types"
)

// Compression defaults for new and decoded headers.
const (
	DefaultThreads    = 4
	DefaultBlockSize  = 131072
	DefaultFilter     = types.FilterBitShuffle
	DefaultLevel      = 1
	DefaultCompressor = types.CompressorZstd

	MaxLevel = 9
)

// Params are the per-volume compression settings. They are never persisted
// in the file header; a decoded header always starts from DefaultParams.
type Params struct {
	Threads   int          // workers per codec call; <= 0 means DefaultThreads
	BlockSize int          // bytes per internal block; <= 0 lets the codec choose
	Filter    types.Filter // byte reordering applied before compression
	Level     int          // 0 (store) to 9 (slowest)
}

// DefaultParams returns the parameters a new or decoded header starts with.
func DefaultParams() Params {
	return Params{
		Threads:   DefaultThreads,
		BlockSize: DefaultBlockSize,
		Filter:    DefaultFilter,
		Level:     DefaultLevel,
	}
}

// Validate checks the level and filter ranges.
func (p Params) Validate() error {
	if p.Level < 0 || p.Level > MaxLevel {
		return errs.Compressionf("compression.Params", "level %d out of range [0, %d]", p.Level, MaxLevel)
	}
	if !p.Filter.Valid() {
		return errs.UnsupportedTypef("compression.Params", "unknown filter %d", uint8(p.Filter))
	}
	return nil
}
