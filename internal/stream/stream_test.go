package stream

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshithgowdakt/mrcz/internal/compression"
	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/header"
	"github.com/harshithgowdakt/mrcz/internal/types"
	"github.com/harshithgowdakt/mrcz/internal/volume"
)

func newFloatVolume(t *testing.T, dims [3]int32) *volume.Volume {
	t.Helper()
	vol, err := volume.Allocate(header.New(dims, types.TypeFloat32))
	require.NoError(t, err)
	for i := range vol.Float32s() {
		vol.Float32s()[i] = float32(math.Sin(float64(i)/40)) * 100
	}
	return vol
}

func newCodec(t *testing.T, p compression.Params) *compression.Context {
	t.Helper()
	cctx := compression.NewContext(p)
	t.Cleanup(func() { cctx.Close() })
	return cctx
}

func writeVolume(t *testing.T, vol *volume.Volume) ([]byte, []Mark) {
	t.Helper()
	var buf bytes.Buffer
	sw := NewWriter(&buf, newCodec(t, vol.Header().Params), nil)
	require.NoError(t, sw.WriteHeader(vol.Header(), nil))
	require.NoError(t, sw.CompressAndWrite(vol))
	assert.Equal(t, Done, sw.State())
	assert.Equal(t, int64(buf.Len()), sw.Offset())
	return buf.Bytes(), sw.Marks()
}

func TestWriteReadCompressed(t *testing.T) {
	vol := newFloatVolume(t, [3]int32{64, 32, 5})
	data, marks := writeVolume(t, vol)

	require.Len(t, marks, 5)
	off := vol.Header().DataOffset()
	for k, m := range marks {
		assert.Equal(t, k, m.Slice)
		assert.Equal(t, off, m.Offset, "frames are contiguous")
		assert.Equal(t, vol.SliceLen(), m.UncompressedSize)
		off += int64(m.CompressedSize)
	}
	assert.Equal(t, int64(len(data)), off)

	sr := NewReader(bytes.NewReader(data), newCodec(t, compression.DefaultParams()), nil)
	h, ext, err := sr.ReadHeader()
	require.NoError(t, err)
	assert.Empty(t, ext)
	assert.Equal(t, HeaderDone, sr.State())

	out, err := volume.Allocate(h)
	require.NoError(t, err)
	require.NoError(t, sr.ReadAndDecompress(out))
	assert.Equal(t, Done, sr.State())
	assert.Equal(t, vol.Float32s(), out.Float32s())
	assert.Equal(t, marks, sr.Marks())
}

func TestExtendedHeaderPadding(t *testing.T) {
	h := header.New([3]int32{4, 4, 1}, types.TypeInt8)
	h.ExtendedHeaderSize = 10

	var buf bytes.Buffer
	sw := NewWriter(&buf, nil, nil)
	require.NoError(t, sw.WriteHeader(h, []byte("abc")))
	assert.Equal(t, 1034, buf.Len())

	sr := NewReader(bytes.NewReader(buf.Bytes()), nil, nil)
	_, ext, err := sr.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\x00\x00\x00\x00\x00\x00\x00"), ext)
	assert.Equal(t, int64(1034), sr.Offset())

	h.ExtendedHeaderSize = 2
	sw = NewWriter(io.Discard, nil, nil)
	err = sw.WriteHeader(h, []byte("abc"))
	assert.True(t, errs.Is(err, errs.MalformedHeader))
	assert.Equal(t, Failed, sw.State())
}

func TestRawFileSize(t *testing.T) {
	h := header.New([3]int32{4, 4, 2}, types.TypeFloat32)
	h.Compressor = types.CompressorNone
	vol, err := volume.Allocate(h)
	require.NoError(t, err)

	var buf bytes.Buffer
	sw := NewWriter(&buf, nil, nil)
	require.NoError(t, sw.WriteHeader(h, nil))
	require.NoError(t, sw.WriteRaw(vol))
	assert.Equal(t, 1152, buf.Len())

	sr := NewReader(&buf, nil, nil)
	h2, _, err := sr.ReadHeader()
	require.NoError(t, err)
	out, err := volume.Allocate(h2)
	require.NoError(t, err)
	require.NoError(t, sr.ReadRaw(out))
	assert.Equal(t, vol.Float32s(), out.Float32s())
}

// Frames carry no slice index, so swapping two of them still decodes but
// puts the data in the wrong slices.
func TestPermutedFramesMisplaceData(t *testing.T) {
	vol := newFloatVolume(t, [3]int32{32, 32, 2})
	data, marks := writeVolume(t, vol)
	require.Len(t, marks, 2)

	f0 := data[marks[0].Offset : marks[0].Offset+int64(marks[0].CompressedSize)]
	f1 := data[marks[1].Offset : marks[1].Offset+int64(marks[1].CompressedSize)]
	var swapped []byte
	swapped = append(swapped, data[:marks[0].Offset]...)
	swapped = append(swapped, f1...)
	swapped = append(swapped, f0...)

	sr := NewReader(bytes.NewReader(swapped), newCodec(t, compression.DefaultParams()), nil)
	h, _, err := sr.ReadHeader()
	require.NoError(t, err)
	out, err := volume.Allocate(h)
	require.NoError(t, err)
	require.NoError(t, sr.ReadAndDecompress(out))

	assert.NotEqual(t, vol.Float32s(), out.Float32s())
	assert.Equal(t, vol.Slice(0), out.Slice(1))
	assert.Equal(t, vol.Slice(1), out.Slice(0))
}

func TestTruncatedFrame(t *testing.T) {
	vol := newFloatVolume(t, [3]int32{32, 32, 3})
	data, marks := writeVolume(t, vol)

	cut := data[:marks[2].Offset+int64(marks[2].CompressedSize)-1]
	sr := NewReader(bytes.NewReader(cut), newCodec(t, compression.DefaultParams()), nil)
	h, _, err := sr.ReadHeader()
	require.NoError(t, err)
	out, err := volume.Allocate(h)
	require.NoError(t, err)

	err = sr.ReadAndDecompress(out)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.IO))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, Failed, sr.State())
	assert.Len(t, sr.Marks(), 2)
	assert.Equal(t, vol.Slice(1), out.Slice(1))

	err = sr.ReadAndDecompress(out)
	assert.True(t, errs.Is(err, errs.Internal))
}

func TestOversizedFrameRejected(t *testing.T) {
	vol := newFloatVolume(t, [3]int32{16, 16, 1})
	data, marks := writeVolume(t, vol)

	bad := append([]byte(nil), data...)
	sizeAt := marks[0].Offset + compression.FrameSizeOffset
	bad[sizeAt], bad[sizeAt+1], bad[sizeAt+2], bad[sizeAt+3] = 0xff, 0xff, 0xff, 0x0f

	sr := NewReader(bytes.NewReader(bad), newCodec(t, compression.DefaultParams()), nil)
	h, _, err := sr.ReadHeader()
	require.NoError(t, err)
	out, err := volume.Allocate(h)
	require.NoError(t, err)
	err = sr.ReadAndDecompress(out)
	assert.True(t, errs.Is(err, errs.Compression))
}

func TestCorruptFrameStopsLoop(t *testing.T) {
	h := header.New([3]int32{64, 64, 2}, types.TypeFloat32)
	h.Compressor = types.CompressorLZ4
	h.Params.Filter = types.FilterNone
	vol, err := volume.Allocate(h)
	require.NoError(t, err)
	for i := range vol.Float32s() {
		vol.Float32s()[i] = float32(i % 7)
	}
	data, marks := writeVolume(t, vol)
	require.False(t, marks[0].CompressedSize == compression.FrameHeaderSize+vol.SliceLen(), "slice should compress")

	bad := append([]byte(nil), data...)
	bstart := marks[0].Offset + compression.FrameHeaderSize
	bad[bstart], bad[bstart+1], bad[bstart+2], bad[bstart+3] = 0xff, 0xff, 0xff, 0x00

	sr := NewReader(bytes.NewReader(bad), newCodec(t, compression.DefaultParams()), nil)
	_, _, err = sr.ReadHeader()
	require.NoError(t, err)
	out, err := volume.Allocate(h)
	require.NoError(t, err)
	err = sr.ReadAndDecompress(out)
	assert.True(t, errs.Is(err, errs.Compression))
	assert.Equal(t, Failed, sr.State())
	assert.Empty(t, sr.Marks())
}

type failingWriter struct {
	n     int
	limit int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		return 0, errors.New("disk full")
	}
	w.n += len(p)
	return len(p), nil
}

func TestWriterFailureMidStream(t *testing.T) {
	vol := newFloatVolume(t, [3]int32{32, 32, 4})
	_, marks := writeVolume(t, vol)

	limit := int(marks[2].Offset)
	fw := &failingWriter{limit: limit}
	sw := NewWriter(fw, newCodec(t, vol.Header().Params), nil)
	require.NoError(t, sw.WriteHeader(vol.Header(), nil))
	err := sw.CompressAndWrite(vol)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.IO))
	assert.Equal(t, Failed, sw.State())
	assert.Len(t, sw.Marks(), 2)
	assert.Equal(t, limit, fw.n, "frames before the failure stay written")

	err = sw.CompressAndWrite(vol)
	assert.True(t, errs.Is(err, errs.Internal))
}

func TestWriterRejectsBadParams(t *testing.T) {
	vol := newFloatVolume(t, [3]int32{8, 8, 1})
	vol.Header().Params.Level = 12
	sw := NewWriter(io.Discard, newCodec(t, compression.DefaultParams()), nil)
	err := sw.CompressAndWrite(vol)
	assert.True(t, errs.Is(err, errs.Compression))
	assert.Equal(t, Failed, sw.State())
}

func TestScanFrames(t *testing.T) {
	vol := newFloatVolume(t, [3]int32{32, 16, 3})
	data, marks := writeVolume(t, vol)

	sr := NewReader(bytes.NewReader(data), nil, nil)
	h, _, err := sr.ReadHeader()
	require.NoError(t, err)
	got, fhs, err := sr.ScanFrames(int(h.Dimensions[2]), vol.SliceLen())
	require.NoError(t, err)
	assert.Equal(t, marks, got)
	require.Len(t, fhs, 3)
	for _, fh := range fhs {
		assert.Equal(t, vol.SliceLen(), fh.NBytes)
		assert.Equal(t, 4, fh.TypeSize)
		assert.Equal(t, uint8(compression.FrameVersion), fh.Version)
	}
}

func TestReadHeaderShort(t *testing.T) {
	sr := NewReader(bytes.NewReader(make([]byte, 100)), nil, nil)
	_, _, err := sr.ReadHeader()
	assert.True(t, errs.Is(err, errs.MalformedHeader))
	assert.Equal(t, Failed, sr.State())
}

func TestExtendedHeaderLongerThanFile(t *testing.T) {
	h := header.New([3]int32{4, 4, 1}, types.TypeInt8)
	h.ExtendedHeaderSize = 1<<31 - 1
	b, err := header.Encode(h)
	require.NoError(t, err)
	b = append(b, "only a few bytes"...)

	sr := NewReader(bytes.NewReader(b), nil, nil)
	_, _, err = sr.ReadHeader()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.IO))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, int64(len(b)), sr.Offset())
	assert.Equal(t, Failed, sr.State())
}

func TestWriteHeaderFailure(t *testing.T) {
	h := header.New([3]int32{4, 4, 1}, types.TypeInt8)
	sw := NewWriter(&failingWriter{limit: 100}, nil, nil)
	err := sw.WriteHeader(h, nil)
	assert.True(t, errs.Is(err, errs.IO))
	assert.Equal(t, Failed, sw.State())
	assert.Zero(t, sw.Offset())
}
