// Package volume holds an in-memory 3-D array together with its header.
package volume

import (
	"fmt"
	"math"

	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/header"
)

// Volume owns one header and one element buffer of the header's type.
type Volume struct {
	header *header.Header
	buf    Buffer
}

// Allocate returns a zeroed volume sized by h.
func Allocate(h *header.Header) (*Volume, error) {
	const op = "volume.Allocate"
	n, err := checkShape(op, h)
	if err != nil {
		return nil, err
	}
	alloc := bufferKinds[h.ElementType]
	return &Volume{header: h, buf: alloc(n)}, nil
}

// New wraps caller-supplied data. The buffer variant must match the header's
// element type and hold exactly dx*dy*dz elements.
func New(h *header.Header, buf Buffer) (*Volume, error) {
	const op = "volume.New"
	n, err := checkShape(op, h)
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, errs.Allocationf(op, "nil buffer")
	}
	if buf.ElementType() != h.ElementType {
		return nil, errs.UnsupportedTypef(op, "buffer holds %s, header says %s", buf.ElementType(), h.ElementType)
	}
	if buf.Len() != n {
		return nil, errs.Allocationf(op, "buffer holds %d elements, header needs %d", buf.Len(), n)
	}
	return &Volume{header: h, buf: buf}, nil
}

func checkShape(op string, h *header.Header) (int, error) {
	if !hostLittleEndian {
		return 0, errs.UnsupportedTypef(op, "big-endian hosts are not supported")
	}
	if h == nil {
		return 0, errs.MalformedHeaderf(op, "nil header")
	}
	if err := h.Validate(); err != nil {
		return 0, err
	}
	n, ok := h.NumElements()
	if !ok {
		return 0, errs.Allocationf(op, "element count of %v overflows", h.Dimensions)
	}
	width := h.ElementType.FixedSize()
	if n > math.MaxInt/width {
		return 0, errs.Allocationf(op, "%d elements of %d bytes overflows", n, width)
	}
	return n, nil
}

// Header returns the volume's header.
func (v *Volume) Header() *header.Header { return v.header }

// Buffer returns the active element buffer.
func (v *Volume) Buffer() Buffer { return v.buf }

// ItemSize returns the width of one element in bytes.
func (v *Volume) ItemSize() int { return v.header.ElementType.FixedSize() }

// Bytes returns the whole buffer as bytes, sharing memory with it.
func (v *Volume) Bytes() []byte { return v.buf.Bytes() }

// NumSlices returns dz.
func (v *Volume) NumSlices() int { return int(v.header.Dimensions[2]) }

// SliceLen returns the byte length of one z-slice.
func (v *Volume) SliceLen() int { return v.header.SliceElements() * v.ItemSize() }

// Slice returns the bytes of z-slice k.
func (v *Volume) Slice(k int) []byte {
	n := v.SliceLen()
	return v.Bytes()[k*n : (k+1)*n]
}

// The typed accessors panic when the volume holds a different element type;
// asking for the wrong variant is a programming error.

func (v *Volume) Int8s() []int8           { return mustBuffer[*Int8Buffer](v).Data }
func (v *Volume) Int16s() []int16         { return mustBuffer[*Int16Buffer](v).Data }
func (v *Volume) Float32s() []float32     { return mustBuffer[*Float32Buffer](v).Data }
func (v *Volume) Complex64s() []complex64 { return mustBuffer[*Complex64Buffer](v).Data }
func (v *Volume) UInt16s() []uint16       { return mustBuffer[*UInt16Buffer](v).Data }

func mustBuffer[B Buffer](v *Volume) B {
	b, ok := v.buf.(B)
	if !ok {
		panic(fmt.Sprintf("volume: buffer holds %s", v.buf.ElementType()))
	}
	return b
}
