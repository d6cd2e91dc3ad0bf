// Package mrcz reads and writes MRC and MRCZ volumes.
//
// A file is a 1024-byte header, an extended header of the size the header
// declares, and a data region. Uncompressed files store the elements
// directly; compressed files store one frame per z-slice.
package mrcz

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/harshithgowdakt/mrcz/internal/compression"
	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/logger"
	"github.com/harshithgowdakt/mrcz/internal/stream"
	"github.com/harshithgowdakt/mrcz/internal/volume"
)

// Version of the MRCZ format this package writes.
const Version = "0.1.2"

func buildOptions(ctx context.Context, opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.FromContext(ctx)
	}
	return o
}

// checkThreads replaces a non-positive thread count with the default.
func checkThreads(log *zap.Logger, p compression.Params) compression.Params {
	if p.Threads <= 0 {
		log.Warn("Non-positive thread count, using default",
			zap.Int("threads", p.Threads),
			zap.Int("default", compression.DefaultThreads))
		p.Threads = compression.DefaultThreads
	}
	return p
}

// Read decodes one volume from r. The extended header is returned as read;
// it is nil when the header declares none.
func Read(ctx context.Context, r io.Reader, opts ...Option) (*volume.Volume, []byte, error) {
	o := buildOptions(ctx, opts)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sr := stream.NewReader(r, nil, o.log)
	h, ext, err := sr.ReadHeader()
	if err != nil {
		return nil, nil, err
	}
	if o.params != nil {
		h.Params.Threads = o.params.Threads
	}
	h.Params = checkThreads(o.log, h.Params)

	vol, err := volume.Allocate(h)
	if err != nil {
		return nil, nil, err
	}

	if !h.Compressed() {
		if err := sr.ReadRaw(vol); err != nil {
			return nil, nil, err
		}
		o.log.Debug("Read uncompressed volume", zap.Int("bytes", len(vol.Bytes())))
		return vol, ext, nil
	}

	cctx := compression.NewContext(h.Params)
	sr.SetCodec(cctx)
	err = sr.ReadAndDecompress(vol)
	if cerr := cctx.Close(); err == nil && cerr != nil {
		err = errs.Wrap(errs.Compression, "mrcz.Read", cerr, "closing codec")
	}
	if err != nil {
		return nil, nil, err
	}
	o.log.Debug("Read compressed volume",
		zap.Stringer("compressor", h.Compressor),
		zap.Int("slices", vol.NumSlices()),
		zap.Int64("bytes_read", sr.Offset()))
	return vol, ext, nil
}

// Write encodes vol to w, followed by ext zero-padded to the header's
// extended header size. Options that change the compressor or parameters
// are recorded in vol's header.
func Write(ctx context.Context, w io.Writer, vol *volume.Volume, ext []byte, opts ...Option) error {
	o := buildOptions(ctx, opts)
	if err := ctx.Err(); err != nil {
		return err
	}

	h := vol.Header()
	if o.compressor != nil {
		h.Compressor = *o.compressor
	}
	if o.params != nil {
		h.Params = *o.params
	}
	h.Params = checkThreads(o.log, h.Params)
	if o.stats {
		vol.UpdateHeaderStats()
	}

	if !h.Compressed() {
		sw := stream.NewWriter(w, nil, o.log)
		if err := sw.WriteHeader(h, ext); err != nil {
			return err
		}
		return sw.WriteRaw(vol)
	}

	if err := h.Params.Validate(); err != nil {
		return err
	}
	cctx := compression.NewContext(h.Params)
	sw := stream.NewWriter(w, cctx, o.log)
	err := sw.WriteHeader(h, ext)
	if err == nil {
		err = sw.CompressAndWrite(vol)
	}
	if cerr := cctx.Close(); err == nil && cerr != nil {
		err = errs.Wrap(errs.Compression, "mrcz.Write", cerr, "closing codec")
	}
	if err != nil {
		return err
	}

	raw := len(vol.Bytes())
	packed := sw.Offset() - h.DataOffset()
	fields := []zap.Field{
		zap.Stringer("compressor", h.Compressor),
		zap.Int("level", h.Params.Level),
		zap.Stringer("filter", h.Params.Filter),
		zap.Int("raw_bytes", raw),
		zap.Int64("compressed_bytes", packed),
	}
	if packed > 0 {
		fields = append(fields, zap.Float64("ratio", float64(raw)/float64(packed)))
	}
	o.log.Debug("Wrote compressed volume", fields...)
	return nil
}
