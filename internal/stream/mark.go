package stream

// Mark records where one slice's frame sits in the file. The stream keeps a
// mark per slice as it goes so callers can report or verify the layout.
type Mark struct {
	Slice            int
	Offset           int64 // absolute file offset of the frame
	CompressedSize   int   // frame length, header included
	UncompressedSize int
}

// Ratio returns uncompressed/compressed size.
func (m Mark) Ratio() float64 {
	if m.CompressedSize == 0 {
		return 0
	}
	return float64(m.UncompressedSize) / float64(m.CompressedSize)
}
