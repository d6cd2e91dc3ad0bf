package types

import (
	"fmt"
	"strings"
)

// ElementType is the MRC element type stored in the low part of the mode field.
type ElementType int32

const (
	TypeInt8      ElementType = 0
	TypeInt16     ElementType = 1
	TypeFloat32   ElementType = 2
	TypeComplex64 ElementType = 4 // pair of float32 (real, imaginary)
	TypeUInt16    ElementType = 6
)

// TypeInfo holds metadata about an element type.
type TypeInfo struct {
	Type      ElementType
	Name      string
	FixedSize int // bytes per element
}

var typeInfoList = []TypeInfo{
	{TypeInt8, "Int8", 1},
	{TypeInt16, "Int16", 2},
	{TypeFloat32, "Float32", 4},
	{TypeComplex64, "Complex64", 8},
	{TypeUInt16, "UInt16", 2},
}

// TypeInfoMap maps ElementType to its TypeInfo.
var TypeInfoMap map[ElementType]TypeInfo

func init() {
	TypeInfoMap = make(map[ElementType]TypeInfo, len(typeInfoList))
	for _, ti := range typeInfoList {
		TypeInfoMap[ti.Type] = ti
	}
}

// ElementTypes returns every supported element type in on-disk code order.
func ElementTypes() []ElementType {
	out := make([]ElementType, len(typeInfoList))
	for i, ti := range typeInfoList {
		out[i] = ti.Type
	}
	return out
}

// Valid reports whether et is one of the supported element types.
func (et ElementType) Valid() bool {
	_, ok := TypeInfoMap[et]
	return ok
}

// Name returns the string name of the ElementType.
func (et ElementType) Name() string {
	if ti, ok := TypeInfoMap[et]; ok {
		return ti.Name
	}
	return "Unknown"
}

func (et ElementType) String() string { return et.Name() }

// FixedSize returns the byte width of one element, 0 for unknown types.
func (et ElementType) FixedSize() int {
	if ti, ok := TypeInfoMap[et]; ok {
		return ti.FixedSize
	}
	return 0
}

// Compressor identifies the block compressor stored in the high part of the
// mode field. Values are one above the Blosc compressor codes so that zero
// means an uncompressed file.
type Compressor int32

const (
	CompressorNone Compressor = iota
	CompressorBloscLZ
	CompressorLZ4
	CompressorLZ4HC
	CompressorSnappy
	CompressorZlib
	CompressorZstd
)

var compressorNames = []string{"none", "blosclz", "lz4", "lz4hc", "snappy", "zlib", "zstd"}

// Compressors returns every known compressor, None included.
func Compressors() []Compressor {
	out := make([]Compressor, len(compressorNames))
	for i := range compressorNames {
		out[i] = Compressor(i)
	}
	return out
}

// ParseCompressor converts a compressor name as accepted on the command line.
func ParseCompressor(name string) (Compressor, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, cn := range compressorNames {
		if cn == n {
			return Compressor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown compressor: %s", name)
}

// Valid reports whether c is a known compressor id.
func (c Compressor) Valid() bool {
	return c >= 0 && int(c) < len(compressorNames)
}

func (c Compressor) String() string {
	if c.Valid() {
		return compressorNames[c]
	}
	return fmt.Sprintf("compressor(%d)", int32(c))
}

// Filter is the pre-compression byte reordering applied inside a frame.
type Filter uint8

const (
	FilterNone Filter = iota
	FilterShuffle
	FilterBitShuffle
)

// Valid reports whether f is a known filter.
func (f Filter) Valid() bool { return f <= FilterBitShuffle }

func (f Filter) String() string {
	switch f {
	case FilterNone:
		return "none"
	case FilterShuffle:
		return "shuffle"
	case FilterBitShuffle:
		return "bitshuffle"
	}
	return fmt.Sprintf("filter(%d)", uint8(f))
}
