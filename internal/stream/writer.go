// Package stream moves a volume's data region to and from a byte stream.
//
// Compressed volumes are written as one self-describing frame per z-slice,
// back to back with no padding; frame k always precedes frame k+1. Slices
// are handled strictly one at a time. The codec may use several workers
// inside a single slice, but no two slices are ever in flight together.
package stream

import (
	"io"

	"go.uber.org/zap"

	"github.com/harshithgowdakt/mrcz/internal/compression"
	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/header"
	"github.com/harshithgowdakt/mrcz/internal/volume"
)

// Writer writes one volume to w.
type Writer struct {
	w     *offsetWriter
	codec *compression.Context
	log   *zap.Logger

	state State
	marks []Mark
}

// offsetWriter counts the bytes accepted by w.
type offsetWriter struct {
	w io.Writer
	n int64
}

func (ow *offsetWriter) Write(p []byte) (int, error) {
	n, err := ow.w.Write(p)
	ow.n += int64(n)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// NewWriter creates a Writer. codec may be nil for uncompressed volumes; a
// nil log disables logging.
func NewWriter(w io.Writer, codec *compression.Context, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{w: &offsetWriter{w: w}, codec: codec, log: log}
}

// State returns the current state.
func (sw *Writer) State() State { return sw.state }

// Offset returns the number of bytes written so far.
func (sw *Writer) Offset() int64 { return sw.w.n }

// Marks returns one mark per frame written so far.
func (sw *Writer) Marks() []Mark { return sw.marks }

func (sw *Writer) fail(err error) error {
	sw.state = Failed
	return err
}

func (sw *Writer) write(op string, b []byte) error {
	n, err := sw.w.Write(b)
	if err != nil {
		return errs.IOf(op, err, "wrote %d of %d bytes", n, len(b))
	}
	return nil
}

// WriteHeader writes the header followed by exactly h.ExtendedHeaderSize
// bytes of extended header. ext is zero-padded to that size and may be nil.
func (sw *Writer) WriteHeader(h *header.Header, ext []byte) error {
	const op = "stream.WriteHeader"
	if sw.state != NotStarted {
		return errs.Errorf(errs.Internal, op, "stream is %s", sw.state)
	}
	if len(ext) > int(h.ExtendedHeaderSize) {
		return sw.fail(errs.MalformedHeaderf(op, "extended header of %d bytes exceeds declared %d", len(ext), h.ExtendedHeaderSize))
	}
	if err := header.Write(sw.w, h); err != nil {
		return sw.fail(err)
	}
	if h.ExtendedHeaderSize > 0 {
		extBuf := make([]byte, h.ExtendedHeaderSize)
		copy(extBuf, ext)
		if err := sw.write(op, extBuf); err != nil {
			return sw.fail(err)
		}
	}
	sw.state = HeaderDone
	sw.log.Debug("Wrote header",
		zap.Int64("data_offset", sw.w.n),
		zap.Stringer("element_type", h.ElementType),
		zap.Stringer("compressor", h.Compressor))
	return nil
}

func (sw *Writer) begin(op string) error {
	if sw.state != NotStarted && sw.state != HeaderDone {
		return errs.Errorf(errs.Internal, op, "stream is %s", sw.state)
	}
	sw.state = SliceLoop
	return nil
}

// WriteRaw writes the volume's elements uncompressed.
func (sw *Writer) WriteRaw(vol *volume.Volume) error {
	const op = "stream.WriteRaw"
	if err := sw.begin(op); err != nil {
		return err
	}
	if err := sw.write(op, vol.Bytes()); err != nil {
		return sw.fail(err)
	}
	sw.state = Done
	return nil
}

// CompressAndWrite compresses slice k = 0..dz-1 in order and writes each
// frame verbatim. The first failure stops the loop; frames already written
// stay in the output.
func (sw *Writer) CompressAndWrite(vol *volume.Volume) error {
	const op = "stream.CompressAndWrite"
	if err := sw.begin(op); err != nil {
		return err
	}
	if sw.codec == nil {
		return sw.fail(errs.Errorf(errs.Internal, op, "no codec context"))
	}
	h := vol.Header()
	p := h.Params
	if err := p.Validate(); err != nil {
		return sw.fail(err)
	}
	sliceLen := vol.SliceLen()
	if sliceLen > compression.MaxBufferSize {
		return sw.fail(errs.Allocationf(op, "slice of %d bytes exceeds codec limit %d", sliceLen, compression.MaxBufferSize))
	}

	sw.log.Debug("Compressing volume",
		zap.Stringer("compressor", h.Compressor),
		zap.Int("level", p.Level),
		zap.Stringer("filter", p.Filter),
		zap.Int("block_size", p.BlockSize),
		zap.Int("threads", sw.codec.Threads()),
		zap.Int("slices", vol.NumSlices()))

	itemSize := vol.ItemSize()
	for k := 0; k < vol.NumSlices(); k++ {
		frame, err := sw.codec.Compress(h.Compressor, p.Level, p.Filter, itemSize, vol.Slice(k))
		if err != nil {
			sw.log.Error("Slice compression failed", zap.Int("slice", k), zap.Error(err))
			return sw.fail(errs.Wrap(errs.KindOf(err), op, err, "slice %d", k))
		}
		mark := Mark{Slice: k, Offset: sw.w.n, CompressedSize: len(frame), UncompressedSize: sliceLen}
		if err := sw.write(op, frame); err != nil {
			return sw.fail(err)
		}
		sw.marks = append(sw.marks, mark)
		sw.log.Debug("Wrote slice",
			zap.Int("slice", k),
			zap.Int("raw_bytes", sliceLen),
			zap.Int("frame_bytes", len(frame)))
	}
	sw.state = Done
	return nil
}
