package volume

import (
	"math"
	"math/cmplx"
)

// Stats are the summary values stored in the header.
type Stats struct {
	Min, Max, Mean, Std float64
}

// ComputeStats scans the buffer. Complex elements contribute their modulus.
func (v *Volume) ComputeStats() Stats {
	switch b := v.buf.(type) {
	case *Int8Buffer:
		return statsOf(b.Data, func(x int8) float64 { return float64(x) })
	case *Int16Buffer:
		return statsOf(b.Data, func(x int16) float64 { return float64(x) })
	case *Float32Buffer:
		return statsOf(b.Data, func(x float32) float64 { return float64(x) })
	case *Complex64Buffer:
		return statsOf(b.Data, func(x complex64) float64 { return cmplx.Abs(complex128(x)) })
	case *UInt16Buffer:
		return statsOf(b.Data, func(x uint16) float64 { return float64(x) })
	}
	return Stats{}
}

// UpdateHeaderStats writes ComputeStats into the header.
func (v *Volume) UpdateHeaderStats() {
	s := v.ComputeStats()
	v.header.Min = float32(s.Min)
	v.header.Max = float32(s.Max)
	v.header.Mean = float32(s.Mean)
	v.header.Std = float32(s.Std)
}

func statsOf[T any](data []T, toFloat64 func(T) float64) Stats {
	if len(data) == 0 {
		return Stats{}
	}
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, x := range data {
		f := toFloat64(x)
		if f < s.Min {
			s.Min = f
		}
		if f > s.Max {
			s.Max = f
		}
		sum += f
	}
	s.Mean = sum / float64(len(data))
	var sq float64
	for _, x := range data {
		d := toFloat64(x) - s.Mean
		sq += d * d
	}
	s.Std = math.Sqrt(sq / float64(len(data)))
	return s
}
