package volume

import (
	"unsafe"

	"github.com/harshithgowdakt/mrcz/internal/types"
)

// Buffer is the element storage of a volume. Exactly one implementation
// backs each volume, selected by the header's element type.
type Buffer interface {
	ElementType() types.ElementType
	Len() int
	// Bytes returns the elements as little-endian bytes sharing memory
	// with the buffer.
	Bytes() []byte
}

type Int8Buffer struct{ Data []int8 }
type Int16Buffer struct{ Data []int16 }
type Float32Buffer struct{ Data []float32 }
type Complex64Buffer struct{ Data []complex64 }
type UInt16Buffer struct{ Data []uint16 }

func (b *Int8Buffer) ElementType() types.ElementType      { return types.TypeInt8 }
func (b *Int16Buffer) ElementType() types.ElementType     { return types.TypeInt16 }
func (b *Float32Buffer) ElementType() types.ElementType   { return types.TypeFloat32 }
func (b *Complex64Buffer) ElementType() types.ElementType { return types.TypeComplex64 }
func (b *UInt16Buffer) ElementType() types.ElementType    { return types.TypeUInt16 }

func (b *Int8Buffer) Len() int      { return len(b.Data) }
func (b *Int16Buffer) Len() int     { return len(b.Data) }
func (b *Float32Buffer) Len() int   { return len(b.Data) }
func (b *Complex64Buffer) Len() int { return len(b.Data) }
func (b *UInt16Buffer) Len() int    { return len(b.Data) }

func (b *Int8Buffer) Bytes() []byte      { return asBytes(b.Data) }
func (b *Int16Buffer) Bytes() []byte     { return asBytes(b.Data) }
func (b *Float32Buffer) Bytes() []byte   { return asBytes(b.Data) }
func (b *Complex64Buffer) Bytes() []byte { return asBytes(b.Data) }
func (b *UInt16Buffer) Bytes() []byte    { return asBytes(b.Data) }

// asBytes reinterprets a slice of fixed-size elements as bytes. Host byte
// order is little-endian (checked in Allocate and New), matching the file.
func asBytes[T int8 | int16 | float32 | complex64 | uint16](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

var hostLittleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// bufferKinds is the single table from element type to allocation.
var bufferKinds = map[types.ElementType]func(n int) Buffer{
	types.TypeInt8:      func(n int) Buffer { return &Int8Buffer{Data: make([]int8, n)} },
	types.TypeInt16:     func(n int) Buffer { return &Int16Buffer{Data: make([]int16, n)} },
	types.TypeFloat32:   func(n int) Buffer { return &Float32Buffer{Data: make([]float32, n)} },
	types.TypeComplex64: func(n int) Buffer { return &Complex64Buffer{Data: make([]complex64, n)} },
	types.TypeUInt16:    func(n int) Buffer { return &UInt16Buffer{Data: make([]uint16, n)} },
}
