// Package header encodes and decodes the fixed 1024-byte MRC/MRCZ header.
//
// All multi-byte fields are little-endian. The mode word at offset 12
// carries both the element type and the compressor:
// mode = elementType + 1000*compressor.
package header

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/harshithgowdakt/mrcz/internal/compression"
	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/types"
)

// Size is the length of the standard header.
const Size = 1024

// CompressorRatio multiplies the compressor id in the mode word.
const CompressorRatio = 1000

// Field offsets.
const (
	offDimensions     = 0
	offMode           = 12
	offNStart         = 16
	offMGrid          = 28
	offCellLen        = 40
	offCellAngle      = 52
	offMapColRowSlice = 64
	offMin            = 76
	offMax            = 80
	offMean           = 84
	offSpaceGroup     = 88
	offExtHeaderSize  = 92
	offVoltage        = 132
	offC3             = 136
	offGain           = 140
	offOrigin         = 196
	offEndian         = 212
	offStd            = 216
)

// Header describes one volume.
type Header struct {
	Dimensions     [3]int32 // x, y, z; z is the slowest axis
	ElementType    types.ElementType
	Compressor     types.Compressor
	NStart         [3]int32
	MGrid          [3]int32
	CellLen        [3]float32
	CellAngle      [3]float32
	MapColRowSlice [3]int32

	Min  float32
	Max  float32
	Mean float32

	SpaceGroup         int32
	ExtendedHeaderSize int32

	Origin float32
	Endian [2]byte // reserved, round-tripped but not interpreted
	Std    float32

	Voltage float32 // keV
	C3      float32 // spherical aberration
	Gain    float32 // counts per primary electron

	// Params are not stored on disk.
	Params compression.Params
}

// New returns a header for a volume of the given shape and type, with the
// default compressor and compression parameters.
func New(dims [3]int32, et types.ElementType) *Header {
	return &Header{
		Dimensions:     dims,
		ElementType:    et,
		Compressor:     compression.DefaultCompressor,
		MGrid:          dims,
		CellAngle:      [3]float32{90, 90, 90},
		MapColRowSlice: [3]int32{1, 2, 3},
		Params:         compression.DefaultParams(),
	}
}

// Mode returns the on-disk mode word.
func (h *Header) Mode() int32 {
	return int32(h.ElementType) + CompressorRatio*int32(h.Compressor)
}

// SplitMode separates a mode word into element type and compressor.
func SplitMode(mode int32) (types.ElementType, types.Compressor) {
	if mode >= CompressorRatio {
		return types.ElementType(mode % CompressorRatio), types.Compressor(mode / CompressorRatio)
	}
	return types.ElementType(mode), types.CompressorNone
}

// Compressed reports whether the data region holds compressed frames.
func (h *Header) Compressed() bool { return h.Compressor != types.CompressorNone }

// DataOffset returns the byte offset of the data region.
func (h *Header) DataOffset() int64 {
	return Size + int64(h.ExtendedHeaderSize)
}

// NumElements returns dx*dy*dz, or false if it overflows.
func (h *Header) NumElements() (int, bool) {
	n := 1
	for _, d := range h.Dimensions {
		if d < 1 {
			return 0, false
		}
		if n > math.MaxInt/int(d) {
			return 0, false
		}
		n *= int(d)
	}
	return n, true
}

// SliceElements returns dx*dy.
func (h *Header) SliceElements() int {
	return int(h.Dimensions[0]) * int(h.Dimensions[1])
}

// Validate checks the header invariants.
func (h *Header) Validate() error {
	const op = "header.Validate"
	if !h.ElementType.Valid() {
		return errs.UnsupportedTypef(op, "unknown element type %d", int32(h.ElementType))
	}
	if !h.Compressor.Valid() {
		return errs.UnsupportedTypef(op, "unknown compressor id %d", int32(h.Compressor))
	}
	if h.ExtendedHeaderSize < 0 {
		return errs.MalformedHeaderf(op, "negative extended header size %d", h.ExtendedHeaderSize)
	}
	for i, d := range h.Dimensions {
		if d < 1 {
			return errs.MalformedHeaderf(op, "dimension %d is %d, must be at least 1", i, d)
		}
	}
	return nil
}

// Decode parses the first Size bytes of b.
func Decode(b []byte) (*Header, error) {
	if len(b) < Size {
		return nil, errs.MalformedHeaderf("header.Decode", "need %d bytes, have %d", Size, len(b))
	}
	h := &Header{Params: compression.DefaultParams()}

	getInt32s(b, offDimensions, h.Dimensions[:])
	h.ElementType, h.Compressor = SplitMode(getInt32(b, offMode))
	getInt32s(b, offNStart, h.NStart[:])
	getInt32s(b, offMGrid, h.MGrid[:])
	getFloat32s(b, offCellLen, h.CellLen[:])
	getFloat32s(b, offCellAngle, h.CellAngle[:])
	getInt32s(b, offMapColRowSlice, h.MapColRowSlice[:])

	h.Min = getFloat32(b, offMin)
	h.Max = getFloat32(b, offMax)
	h.Mean = getFloat32(b, offMean)
	h.SpaceGroup = getInt32(b, offSpaceGroup)
	h.ExtendedHeaderSize = getInt32(b, offExtHeaderSize)

	h.Voltage = getFloat32(b, offVoltage)
	h.C3 = getFloat32(b, offC3)
	h.Gain = getFloat32(b, offGain)

	h.Origin = getFloat32(b, offOrigin)
	copy(h.Endian[:], b[offEndian:offEndian+2])
	h.Std = getFloat32(b, offStd)

	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Encode serialises h into a new Size-byte buffer.
func Encode(h *Header) ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	b := make([]byte, Size)

	putInt32s(b, offDimensions, h.Dimensions[:])
	putInt32(b, offMode, h.Mode())
	putInt32s(b, offNStart, h.NStart[:])
	putInt32s(b, offMGrid, h.MGrid[:])
	putFloat32s(b, offCellLen, h.CellLen[:])
	putFloat32s(b, offCellAngle, h.CellAngle[:])
	putInt32s(b, offMapColRowSlice, h.MapColRowSlice[:])

	putFloat32(b, offMin, h.Min)
	putFloat32(b, offMax, h.Max)
	putFloat32(b, offMean, h.Mean)
	putInt32(b, offSpaceGroup, h.SpaceGroup)
	putInt32(b, offExtHeaderSize, h.ExtendedHeaderSize)

	putFloat32(b, offVoltage, h.Voltage)
	putFloat32(b, offC3, h.C3)
	putFloat32(b, offGain, h.Gain)

	putFloat32(b, offOrigin, h.Origin)
	copy(b[offEndian:offEndian+2], h.Endian[:])
	putFloat32(b, offStd, h.Std)
	return b, nil
}

// Read reads and decodes a header from r. A short read is reported as a
// malformed header; any other read failure as an I/O error.
func Read(r io.Reader) (*Header, error) {
	buf := make([]byte, Size)
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, errs.MalformedHeaderf("header.Read", "need %d bytes, have %d", Size, n)
	}
	if err != nil {
		return nil, errs.IOf("header.Read", err, "reading header")
	}
	return Decode(buf)
}

// Write encodes h and writes it to w.
func Write(w io.Writer, h *Header) error {
	b, err := Encode(h)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return errs.IOf("header.Write", err, "writing header")
	}
	return nil
}

func getInt32(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off:]))
}

func getFloat32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func getInt32s(b []byte, off int, dst []int32) {
	for i := range dst {
		dst[i] = getInt32(b, off+4*i)
	}
}

func getFloat32s(b []byte, off int, dst []float32) {
	for i := range dst {
		dst[i] = getFloat32(b, off+4*i)
	}
}

func putInt32(b []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(b[off:], uint32(v))
}

func putFloat32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

func putInt32s(b []byte, off int, src []int32) {
	for i, v := range src {
		putInt32(b, off+4*i, v)
	}
}

func putFloat32s(b []byte, off int, src []float32) {
	for i, v := range src {
		putFloat32(b, off+4*i, v)
	}
}
