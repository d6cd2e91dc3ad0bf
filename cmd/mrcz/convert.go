package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/logger"
	"github.com/harshithgowdakt/mrcz/internal/mrcz"
	"github.com/harshithgowdakt/mrcz/internal/types"
)

// unset marks a numeric option that was not given.
const unset = -1

// minBlockSize is the smallest block size accepted from the command line.
const minBlockSize = 4096

type convertConfig struct {
	Input      string
	Output     string
	Compressor string
	BlockSize  int
	Level      int
	Filter     int
	Threads    int
	Stats      bool
}

// convert reads Input and writes it to Output with the requested
// compression settings applied on top of the input's.
func convert(ctx context.Context, cfg convertConfig) error {
	log := logger.FromContext(ctx)
	if cfg.Input == "" || cfg.Output == "" {
		return errors.New("both --input and --output are required")
	}

	vol, ext, err := mrcz.ReadFile(ctx, cfg.Input)
	if err != nil {
		return err
	}
	h := vol.Header()
	log.Info("Loaded volume",
		zap.String("path", cfg.Input),
		zap.Int32s("dimensions", h.Dimensions[:]),
		zap.Stringer("element_type", h.ElementType),
		zap.Stringer("compressor", h.Compressor),
		zap.Float32("min", h.Min),
		zap.Float32("max", h.Max),
		zap.Float32("mean", h.Mean),
		zap.Int32("extended_header_size", h.ExtendedHeaderSize))

	opts := []mrcz.Option{}
	p := h.Params
	if cfg.Threads != unset {
		p.Threads = cfg.Threads
	}
	switch {
	case cfg.BlockSize > minBlockSize:
		p.BlockSize = cfg.BlockSize
	case cfg.BlockSize != unset:
		log.Warn("Ignoring block size", zap.Int("blocksize", cfg.BlockSize), zap.Int("minimum", minBlockSize+1))
	}
	if cfg.Filter != unset {
		f := types.Filter(cfg.Filter)
		if cfg.Filter < 0 || !f.Valid() {
			return errs.UnsupportedTypef("convert", "unknown filter %d", cfg.Filter)
		}
		p.Filter = f
	}
	if cfg.Level != unset {
		p.Level = cfg.Level
	}
	opts = append(opts, mrcz.WithParams(p))

	if cfg.Compressor != "" {
		c, err := types.ParseCompressor(cfg.Compressor)
		if err != nil {
			return errs.Wrap(errs.UnsupportedType, "convert", err, "compressor %q", cfg.Compressor)
		}
		opts = append(opts, mrcz.WithCompressor(c))
	}
	if cfg.Stats {
		opts = append(opts, mrcz.WithStats())
	}

	if err := mrcz.WriteFile(ctx, cfg.Output, vol, ext, opts...); err != nil {
		return err
	}
	log.Info("Wrote volume",
		zap.String("path", cfg.Output),
		zap.Stringer("compressor", h.Compressor),
		zap.Int("level", h.Params.Level),
		zap.Stringer("filter", h.Params.Filter),
		zap.Int("blocksize", h.Params.BlockSize),
		zap.Int("threads", h.Params.Threads))
	return nil
}
