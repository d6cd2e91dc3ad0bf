// Package compression is the block codec used for MRCZ slices. It produces
// self-describing frames in the Blosc1 layout: each frame embeds its own
// total length, so frames can be stored back to back without extra framing.
//
// A Context scopes all codec state to one read or write. Within a single
// Compress or Decompress call the blocks of a frame are processed by up to
// Threads workers; no goroutine outlives the call.
package compression

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/types"
)

// Context holds the thread count, block size and lazily created codec state
// for one operation. It must be closed when the operation ends.
type Context struct {
	threads   int
	blockSize int

	mu     sync.Mutex
	codecs map[types.Compressor]Codec
}

// NewContext creates a codec context from the given parameters. A
// non-positive thread count falls back to DefaultThreads.
func NewContext(p Params) *Context {
	threads := p.Threads
	if threads <= 0 {
		threads = DefaultThreads
	}
	return &Context{
		threads:   threads,
		blockSize: p.BlockSize,
		codecs:    make(map[types.Compressor]Codec),
	}
}

// Threads returns the worker count used within one call.
func (c *Context) Threads() int { return c.threads }

// Close releases codec resources held by the context.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	for id, codec := range c.codecs {
		if cl, ok := codec.(io.Closer); ok {
			err = multierr.Append(err, cl.Close())
		}
		delete(c.codecs, id)
	}
	return err
}

// Codec returns the context's codec for the given compressor.
func (c *Context) Codec(id types.Compressor) (Codec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if codec, ok := c.codecs[id]; ok {
		return codec, nil
	}
	var codec Codec
	switch id {
	case types.CompressorBloscLZ:
		codec = &BloscLZCodec{}
	case types.CompressorLZ4:
		codec = &LZ4Codec{}
	case types.CompressorLZ4HC:
		codec = &LZ4HCCodec{}
	case types.CompressorSnappy:
		codec = &SnappyCodec{}
	case types.CompressorZlib:
		codec = &ZlibCodec{}
	case types.CompressorZstd:
		codec = NewZstdCodec(c.threads)
	default:
		return nil, errs.UnsupportedTypef("compression.Codec", "no block codec for compressor %s", id)
	}
	c.codecs[id] = codec
	return codec, nil
}

// computeBlockSize picks the block size for an input of n bytes. An explicit
// size is honoured; otherwise larger blocks are used for higher levels. The
// result is a multiple of typesize no larger than n.
func (c *Context) computeBlockSize(level, typesize, n int) int {
	bs := c.blockSize
	if bs <= 0 {
		switch {
		case level <= 3:
			bs = 64 << 10
		case level <= 6:
			bs = 128 << 10
		case level <= 8:
			bs = 256 << 10
		default:
			bs = 512 << 10
		}
	}
	if bs > n {
		bs = n
	}
	if bs < MinBufferSize && n >= MinBufferSize {
		bs = MinBufferSize
	}
	if typesize > 1 {
		bs -= bs % typesize
		if bs < typesize {
			bs = typesize
		}
	}
	return bs
}

// Compress packs src into a single frame. typesize is the element width the
// filter operates on.
func (c *Context) Compress(compressor types.Compressor, level int, filter types.Filter, typesize int, src []byte) ([]byte, error) {
	const op = "compression.Compress"
	if level < 0 || level > MaxLevel {
		return nil, errs.Compressionf(op, "level %d out of range [0, %d]", level, MaxLevel)
	}
	if !filter.Valid() {
		return nil, errs.UnsupportedTypef(op, "unknown filter %d", uint8(filter))
	}
	if typesize < 1 || typesize > 255 {
		return nil, errs.Compressionf(op, "typesize %d out of range [1, 255]", typesize)
	}
	if len(src) > MaxBufferSize {
		return nil, errs.Compressionf(op, "input of %d bytes exceeds %d", len(src), MaxBufferSize)
	}
	codec, err := c.Codec(compressor)
	if err != nil {
		return nil, err
	}

	fh := FrameHeader{
		Version:   FrameVersion,
		VersionLZ: FrameVersionLZ,
		Flags:     FlagNoSplit | codec.FormatCode()<<5,
		TypeSize:  typesize,
		NBytes:    len(src),
		BlockSize: c.computeBlockSize(level, typesize, len(src)),
	}
	switch filter {
	case types.FilterShuffle:
		if typesize > 1 {
			fh.Flags |= FlagShuffle
		}
	case types.FilterBitShuffle:
		fh.Flags |= FlagBitShuffle
	}

	if level == 0 || len(src) < MinBufferSize {
		return memcpyedFrame(fh, src), nil
	}

	nblocks := fh.NumBlocks()
	payloads := make([][]byte, nblocks)
	var g errgroup.Group
	g.SetLimit(c.threads)
	for i := 0; i < nblocks; i++ {
		g.Go(func() error {
			in := filterBlock(fh.Flags, blockRange(src, fh.BlockSize, i), typesize)
			out, err := codec.Compress(in, level)
			if err != nil {
				return err
			}
			if out == nil || len(out) >= len(in) {
				// Stored raw; csize == block length marks it on decode.
				out = in
			}
			payloads[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errs.Wrap(errs.Compression, op, err, "%s block", compressor)
	}

	frame := assembleFrame(fh, payloads)
	if len(frame) >= len(src)+FrameHeaderSize {
		return memcpyedFrame(fh, src), nil
	}
	return frame, nil
}

// Decompress unpacks one whole frame into dst, whose length must equal the
// frame's uncompressed size.
func (c *Context) Decompress(frame, dst []byte) error {
	const op = "compression.Decompress"
	fh, err := ParseFrameHeader(frame)
	if err != nil {
		return err
	}
	if fh.CBytes != len(frame) {
		return errs.Compressionf(op, "frame says %d bytes, have %d", fh.CBytes, len(frame))
	}
	if fh.NBytes != len(dst) {
		return errs.Compressionf(op, "frame holds %d bytes, destination is %d", fh.NBytes, len(dst))
	}
	if fh.Memcpyed() {
		if fh.CBytes != FrameHeaderSize+fh.NBytes {
			return errs.Compressionf(op, "memcpyed frame of %d bytes cannot hold %d", fh.CBytes, fh.NBytes)
		}
		none := &NoneCodec{}
		return errs.Wrap(errs.Compression, op, none.Decompress(frame[FrameHeaderSize:], dst), "memcpyed frame")
	}
	if fh.Flags&FlagNoSplit == 0 && fh.TypeSize > 1 {
		return errs.UnsupportedTypef(op, "split blocks are not supported (flags 0x%02x)", fh.Flags)
	}
	if fh.TypeSize < 1 {
		return errs.Compressionf(op, "invalid typesize %d", fh.TypeSize)
	}
	if fh.BlockSize <= 0 && fh.NBytes > 0 {
		return errs.Compressionf(op, "invalid block size %d", fh.BlockSize)
	}
	id, ok := formatCompressor[fh.Format()]
	if !ok {
		return errs.UnsupportedTypef(op, "unknown compressor format %d", fh.Format())
	}
	codec, err := c.Codec(id)
	if err != nil {
		return err
	}

	nblocks := fh.NumBlocks()
	var g errgroup.Group
	g.SetLimit(c.threads)
	for i := 0; i < nblocks; i++ {
		g.Go(func() error {
			payload, err := blockPayload(fh, frame, i)
			if err != nil {
				return err
			}
			out := blockRange(dst, fh.BlockSize, i)
			filtered := fh.Flags&(FlagShuffle|FlagBitShuffle) != 0
			tmp := out
			if filtered {
				tmp = make([]byte, len(out))
			}
			if len(payload) == len(out) {
				copy(tmp, payload)
			} else if err := codec.Decompress(payload, tmp); err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			if filtered {
				unfilterBlock(fh.Flags, out, tmp, fh.TypeSize)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errs.Wrap(errs.Compression, op, err, "%s frame", id)
	}
	return nil
}

// filterBlock applies the frame's filter to raw, returning raw itself when
// no filter is set.
func filterBlock(flags uint8, raw []byte, typesize int) []byte {
	switch {
	case flags&FlagShuffle != 0:
		out := make([]byte, len(raw))
		shuffle(out, raw, typesize)
		return out
	case flags&FlagBitShuffle != 0:
		out := make([]byte, len(raw))
		bitshuffle(out, raw, typesize)
		return out
	}
	return raw
}

func unfilterBlock(flags uint8, dst, src []byte, typesize int) {
	switch {
	case flags&FlagShuffle != 0:
		unshuffle(dst, src, typesize)
	case flags&FlagBitShuffle != 0:
		unbitshuffle(dst, src, typesize)
	default:
		copy(dst, src)
	}
}
