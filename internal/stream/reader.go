package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/harshithgowdakt/mrcz/internal/compression"
	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/header"
	"github.com/harshithgowdakt/mrcz/internal/volume"
)

// Reader reads one volume from r.
type Reader struct {
	br    *bufio.Reader
	codec *compression.Context
	log   *zap.Logger

	state  State
	offset int64
	frame  []byte
	marks  []Mark
}

// NewReader creates a Reader. codec may be nil for uncompressed volumes; a
// nil log disables logging.
func NewReader(r io.Reader, codec *compression.Context, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{
		br:    bufio.NewReaderSize(r, 64<<10),
		codec: codec,
		log:   log,
	}
}

// SetCodec sets the codec context used by ReadAndDecompress.
func (sr *Reader) SetCodec(codec *compression.Context) { sr.codec = codec }

// State returns the current state.
func (sr *Reader) State() State { return sr.state }

// Offset returns the number of bytes consumed so far.
func (sr *Reader) Offset() int64 { return sr.offset }

// Marks returns one mark per frame read so far.
func (sr *Reader) Marks() []Mark { return sr.marks }

func (sr *Reader) fail(err error) error {
	sr.state = Failed
	return err
}

func (sr *Reader) readFull(op string, b []byte) error {
	n, err := io.ReadFull(sr.br, b)
	sr.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return errs.IOf(op, err, "read %d of %d bytes at offset %d", n, len(b), sr.offset-int64(n))
	}
	return nil
}

// ReadHeader reads the header and the extended header that follows it.
func (sr *Reader) ReadHeader() (*header.Header, []byte, error) {
	const op = "stream.ReadHeader"
	if sr.state != NotStarted {
		return nil, nil, errs.Errorf(errs.Internal, op, "stream is %s", sr.state)
	}
	h, err := header.Read(sr.br)
	if err != nil {
		return nil, nil, sr.fail(err)
	}
	sr.offset += header.Size

	var ext []byte
	if h.ExtendedHeaderSize > 0 {
		// Grows with the bytes present, not the declared size.
		var buf bytes.Buffer
		n, err := io.CopyN(&buf, sr.br, int64(h.ExtendedHeaderSize))
		sr.offset += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, nil, sr.fail(errs.IOf(op, err, "extended header: read %d of %d bytes", n, h.ExtendedHeaderSize))
		}
		ext = buf.Bytes()
	}
	sr.state = HeaderDone
	sr.log.Debug("Read header",
		zap.Int64("data_offset", sr.offset),
		zap.Int32s("dimensions", h.Dimensions[:]),
		zap.Stringer("element_type", h.ElementType),
		zap.Stringer("compressor", h.Compressor),
		zap.Int32("extended_header_size", h.ExtendedHeaderSize))
	return h, ext, nil
}

func (sr *Reader) begin(op string) error {
	if sr.state != NotStarted && sr.state != HeaderDone {
		return errs.Errorf(errs.Internal, op, "stream is %s", sr.state)
	}
	sr.state = SliceLoop
	return nil
}

// ReadRaw fills the volume with uncompressed elements.
func (sr *Reader) ReadRaw(vol *volume.Volume) error {
	const op = "stream.ReadRaw"
	if err := sr.begin(op); err != nil {
		return err
	}
	if err := sr.readFull(op, vol.Bytes()); err != nil {
		return sr.fail(err)
	}
	sr.state = Done
	return nil
}

// nextFrame peeks the next frame's header without consuming it, then reads
// the whole frame. maxSize bounds the length the header may claim.
func (sr *Reader) nextFrame(op string, k, maxSize int) ([]byte, error) {
	prefix, err := sr.br.Peek(compression.FrameHeaderSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, errs.IOf(op, err, "slice %d: peeking frame header at offset %d", k, sr.offset)
	}
	size, err := compression.FrameSize(prefix)
	if err != nil {
		return nil, errs.Wrap(errs.Compression, op, err, "slice %d", k)
	}
	if size > maxSize {
		return nil, errs.Compressionf(op, "slice %d: frame of %d bytes exceeds %d", k, size, maxSize)
	}
	if cap(sr.frame) < size {
		sr.frame = make([]byte, size)
	}
	frame := sr.frame[:size]
	if err := sr.readFull(op, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// ReadAndDecompress reads frame k = 0..dz-1 in order and decompresses it
// into slice k. The first failure stops the loop; later slices keep their
// allocated contents.
func (sr *Reader) ReadAndDecompress(vol *volume.Volume) error {
	const op = "stream.ReadAndDecompress"
	if err := sr.begin(op); err != nil {
		return err
	}
	if sr.codec == nil {
		return sr.fail(errs.Errorf(errs.Internal, op, "no codec context"))
	}
	sliceLen := vol.SliceLen()
	maxSize := compression.MaxFrameSize(sliceLen)

	for k := 0; k < vol.NumSlices(); k++ {
		offset := sr.offset
		frame, err := sr.nextFrame(op, k, maxSize)
		if err != nil {
			sr.log.Error("Reading frame failed", zap.Int("slice", k), zap.Error(err))
			return sr.fail(err)
		}
		if err := sr.codec.Decompress(frame, vol.Slice(k)); err != nil {
			sr.log.Error("Slice decompression failed", zap.Int("slice", k), zap.Error(err))
			return sr.fail(errs.Wrap(errs.KindOf(err), op, err, "slice %d", k))
		}
		sr.marks = append(sr.marks, Mark{Slice: k, Offset: offset, CompressedSize: len(frame), UncompressedSize: sliceLen})
		sr.log.Debug("Read slice",
			zap.Int("slice", k),
			zap.Int("frame_bytes", len(frame)),
			zap.Int("raw_bytes", sliceLen))
	}
	sr.state = Done
	return nil
}

// ScanFrames walks dz frames without decompressing them and returns their
// marks along with each frame's decoded header.
func (sr *Reader) ScanFrames(dz, sliceLen int) ([]Mark, []compression.FrameHeader, error) {
	const op = "stream.ScanFrames"
	if err := sr.begin(op); err != nil {
		return nil, nil, err
	}
	maxSize := compression.MaxFrameSize(sliceLen)
	fhs := make([]compression.FrameHeader, 0, dz)
	for k := 0; k < dz; k++ {
		offset := sr.offset
		frame, err := sr.nextFrame(op, k, maxSize)
		if err != nil {
			return sr.marks, fhs, sr.fail(err)
		}
		fh, err := compression.ParseFrameHeader(frame)
		if err != nil {
			return sr.marks, fhs, sr.fail(err)
		}
		fhs = append(fhs, fh)
		sr.marks = append(sr.marks, Mark{Slice: k, Offset: offset, CompressedSize: len(frame), UncompressedSize: fh.NBytes})
	}
	sr.state = Done
	return sr.marks, fhs, nil
}
