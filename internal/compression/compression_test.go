package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/types"
)

// smoothFloats returns little-endian float32 data that compresses well.
func smoothFloats(n int) []byte {
	buf := make([]byte, 4*n)
	for i := 0; i < n; i++ {
		v := float32(math.Sin(float64(i)/50) * 100)
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func randomBytes(n int, seed int64) []byte {
	buf := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(buf)
	return buf
}

var blockCompressors = []types.Compressor{
	types.CompressorBloscLZ,
	types.CompressorLZ4,
	types.CompressorLZ4HC,
	types.CompressorSnappy,
	types.CompressorZlib,
	types.CompressorZstd,
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	src := smoothFloats(20000)
	filters := []types.Filter{types.FilterNone, types.FilterShuffle, types.FilterBitShuffle}

	for _, comp := range blockCompressors {
		for _, filter := range filters {
			for _, level := range []int{0, 1, 5, 9} {
				t.Run(fmt.Sprintf("%s/%s/level%d", comp, filter, level), func(t *testing.T) {
					ctx := NewContext(Params{Threads: 3, BlockSize: 8192})
					defer func() { require.NoError(t, ctx.Close()) }()

					frame, err := ctx.Compress(comp, level, filter, 4, src)
					require.NoError(t, err)

					n, err := FrameSize(frame[:FrameHeaderSize])
					require.NoError(t, err)
					assert.Equal(t, len(frame), n)

					dst := make([]byte, len(src))
					require.NoError(t, ctx.Decompress(frame, dst))
					assert.True(t, bytes.Equal(src, dst))
				})
			}
		}
	}
}

func TestCompressShrinksSmoothData(t *testing.T) {
	src := smoothFloats(20000)
	ctx := NewContext(DefaultParams())
	defer ctx.Close()

	for _, comp := range blockCompressors {
		frame, err := ctx.Compress(comp, 5, types.FilterShuffle, 4, src)
		require.NoError(t, err)
		fh, err := ParseFrameHeader(frame)
		require.NoError(t, err)
		assert.False(t, fh.Memcpyed(), comp.String())
		assert.Less(t, len(frame), len(src), comp.String())
	}
}

func TestCompressIncompressibleFallsBackToMemcpy(t *testing.T) {
	src := randomBytes(4096, 1)
	ctx := NewContext(DefaultParams())
	defer ctx.Close()

	frame, err := ctx.Compress(types.CompressorLZ4, 9, types.FilterNone, 1, src)
	require.NoError(t, err)
	fh, err := ParseFrameHeader(frame)
	require.NoError(t, err)
	assert.True(t, fh.Memcpyed())
	assert.Equal(t, FrameHeaderSize+len(src), len(frame))
	assert.Equal(t, src, frame[FrameHeaderSize:])

	dst := make([]byte, len(src))
	require.NoError(t, ctx.Decompress(frame, dst))
	assert.Equal(t, src, dst)
}

func TestCompressSmallInputIsMemcpyed(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	ctx := NewContext(DefaultParams())
	defer ctx.Close()

	frame, err := ctx.Compress(types.CompressorZstd, 5, types.FilterBitShuffle, 2, src)
	require.NoError(t, err)
	fh, err := ParseFrameHeader(frame)
	require.NoError(t, err)
	assert.True(t, fh.Memcpyed())
	assert.Equal(t, len(src), fh.NBytes)
	assert.Equal(t, 2, fh.TypeSize)
}

func TestFrameHeaderLayout(t *testing.T) {
	src := smoothFloats(1000)
	ctx := NewContext(Params{Threads: 1, BlockSize: 1000})
	defer ctx.Close()

	frame, err := ctx.Compress(types.CompressorZlib, 3, types.FilterShuffle, 4, src)
	require.NoError(t, err)

	assert.Equal(t, uint8(FrameVersion), frame[0])
	assert.Equal(t, uint8(4), frame[3])
	assert.Equal(t, uint32(len(src)), binary.LittleEndian.Uint32(frame[4:8]))
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(frame[8:12]))
	assert.Equal(t, uint32(len(frame)), binary.LittleEndian.Uint32(frame[FrameSizeOffset:]))

	fh, err := ParseFrameHeader(frame)
	require.NoError(t, err)
	assert.Equal(t, FormatZlib, fh.Format())
	assert.NotZero(t, fh.Flags&FlagShuffle)
	assert.NotZero(t, fh.Flags&FlagNoSplit)
	assert.Equal(t, 4, fh.NumBlocks())
}

func TestCompressRejectsBadArguments(t *testing.T) {
	ctx := NewContext(DefaultParams())
	defer ctx.Close()
	src := smoothFloats(100)

	_, err := ctx.Compress(types.CompressorLZ4, 10, types.FilterNone, 4, src)
	assert.True(t, errs.Is(err, errs.Compression))

	_, err = ctx.Compress(types.CompressorLZ4, 1, types.Filter(7), 4, src)
	assert.True(t, errs.Is(err, errs.UnsupportedType))

	_, err = ctx.Compress(types.CompressorNone, 1, types.FilterNone, 4, src)
	assert.True(t, errs.Is(err, errs.UnsupportedType))

	_, err = ctx.Compress(types.CompressorLZ4, 1, types.FilterNone, 0, src)
	assert.True(t, errs.Is(err, errs.Compression))
}

func TestDecompressRejectsCorruptFrames(t *testing.T) {
	src := smoothFloats(5000)
	ctx := NewContext(DefaultParams())
	defer ctx.Close()

	frame, err := ctx.Compress(types.CompressorLZ4, 5, types.FilterShuffle, 4, src)
	require.NoError(t, err)
	dst := make([]byte, len(src))

	t.Run("short", func(t *testing.T) {
		err := ctx.Decompress(frame[:10], dst)
		assert.ErrorIs(t, err, errs.ErrCompression)
	})
	t.Run("truncated", func(t *testing.T) {
		err := ctx.Decompress(frame[:len(frame)-1], dst)
		assert.ErrorIs(t, err, errs.ErrCompression)
	})
	t.Run("wrong destination", func(t *testing.T) {
		err := ctx.Decompress(frame, make([]byte, len(src)-4))
		assert.ErrorIs(t, err, errs.ErrCompression)
	})
	t.Run("bad version", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[0] = 9
		assert.ErrorIs(t, ctx.Decompress(bad, dst), errs.ErrCompression)
	})
	t.Run("bad bstart", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		binary.LittleEndian.PutUint32(bad[FrameHeaderSize:], uint32(len(bad)+100))
		assert.ErrorIs(t, ctx.Decompress(bad, dst), errs.ErrCompression)
	})
	t.Run("unknown format", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[2] = bad[2]&0x1f | 7<<5
		assert.ErrorIs(t, ctx.Decompress(bad, dst), errs.ErrUnsupportedType)
	})
}

func TestFrameSizeNeedsFullPrefix(t *testing.T) {
	_, err := FrameSize(make([]byte, FrameHeaderSize-1))
	assert.ErrorIs(t, err, errs.ErrCompression)
}

func TestShuffleInverse(t *testing.T) {
	src := randomBytes(1003, 7)
	for _, typesize := range []int{1, 2, 4, 8} {
		tmp := make([]byte, len(src))
		out := make([]byte, len(src))

		shuffle(tmp, src, typesize)
		unshuffle(out, tmp, typesize)
		assert.Equal(t, src, out, "shuffle typesize %d", typesize)

		bitshuffle(tmp, src, typesize)
		unbitshuffle(out, tmp, typesize)
		assert.Equal(t, src, out, "bitshuffle typesize %d", typesize)
	}
}

func TestShuffleGroupsBytes(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	dst := make([]byte, len(src))
	shuffle(dst, src, 2)
	assert.Equal(t, []byte{1, 3, 5, 2, 4, 6}, dst)
}

func TestBitshuffleTransposesBits(t *testing.T) {
	// Eight one-byte elements with only bit 0 set land in the first byte.
	src := []byte{1, 1, 1, 1, 1, 1, 1, 1}
	dst := make([]byte, len(src))
	bitshuffle(dst, src, 1)
	assert.Equal(t, []byte{0xff, 0, 0, 0, 0, 0, 0, 0}, dst)
}

func TestBloscLZRoundTrip(t *testing.T) {
	codec := &BloscLZCodec{}
	long := bytes.Repeat([]byte{'z'}, 5000)
	mixed := append(bytes.Repeat([]byte("mrcz slice "), 300), randomBytes(700, 3)...)

	for name, src := range map[string][]byte{"long run": long, "mixed": mixed, "pattern": bytes.Repeat(randomBytes(64, 5), 100)} {
		t.Run(name, func(t *testing.T) {
			out, err := codec.Compress(src, 5)
			require.NoError(t, err)
			require.NotNil(t, out)
			assert.Less(t, len(out), len(src))

			dst := make([]byte, len(src))
			require.NoError(t, codec.Decompress(out, dst))
			assert.Equal(t, src, dst)
		})
	}
}

func TestBloscLZIncompressible(t *testing.T) {
	out, err := (&BloscLZCodec{}).Compress(randomBytes(2048, 11), 5)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestBloscLZRejectsBadDistance(t *testing.T) {
	// A literal of one byte followed by a match reaching 40 bytes back.
	bad := []byte{0x00, 'a', 1<<5 | 0, 39}
	err := (&BloscLZCodec{}).Decompress(bad, make([]byte, 10))
	assert.Error(t, err)
}

func TestContextCloseReleasesCodecs(t *testing.T) {
	ctx := NewContext(Params{})
	assert.Equal(t, DefaultThreads, ctx.Threads())

	_, err := ctx.Compress(types.CompressorZstd, 3, types.FilterNone, 1, smoothFloats(1000))
	require.NoError(t, err)
	require.NoError(t, ctx.Close())
	assert.Empty(t, ctx.codecs)
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.Error(t, Params{Level: 10}.Validate())
	assert.Error(t, Params{Level: 1, Filter: 3}.Validate())
}

// zstdFrame builds a single-block zstd frame that claims nbytes of output
// but whose payload decodes to payload.
func zstdFrame(t *testing.T, nbytes int, payload []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	packed := enc.EncodeAll(payload, nil)
	require.NotEqual(t, nbytes, len(packed))

	fh := FrameHeader{
		Version:   FrameVersion,
		VersionLZ: FrameVersionLZ,
		Flags:     FlagNoSplit | FormatZstd<<5,
		TypeSize:  1,
		NBytes:    nbytes,
		BlockSize: nbytes,
	}
	return assembleFrame(fh, [][]byte{packed})
}

func TestDecompressOversizedBlockStaysInBounds(t *testing.T) {
	frame := zstdFrame(t, 128, bytes.Repeat([]byte{'A'}, 512))

	ctx := NewContext(Params{Threads: 2})
	defer ctx.Close()
	buf := make([]byte, 1024)
	err := ctx.Decompress(frame, buf[:128])
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Compression))
	assert.Equal(t, make([]byte, 1024-128), buf[128:], "bytes past the destination untouched")
}

func TestDecompressOversizedBlockKeepsNeighbours(t *testing.T) {
	// Block 0 of a two-block frame overflows; block 1 must still hold its
	// own data and nothing of block 0's excess.
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	good := bytes.Repeat([]byte{'b'}, 256)
	fh := FrameHeader{
		Version:   FrameVersion,
		VersionLZ: FrameVersionLZ,
		Flags:     FlagNoSplit | FormatZstd<<5,
		TypeSize:  1,
		NBytes:    512,
		BlockSize: 256,
	}
	frame := assembleFrame(fh, [][]byte{
		enc.EncodeAll(bytes.Repeat([]byte{'A'}, 1024), nil),
		enc.EncodeAll(good, nil),
	})

	ctx := NewContext(Params{Threads: 1})
	defer ctx.Close()
	buf := make([]byte, 2048)
	require.Error(t, ctx.Decompress(frame, buf[:512]))
	assert.NotContains(t, string(buf[256:]), "A")
}

func TestBlockRangeIsCapped(t *testing.T) {
	buf := make([]byte, 1000)
	b := blockRange(buf, 300, 1)
	assert.Len(t, b, 300)
	assert.Equal(t, 300, cap(b))
	assert.Equal(t, 100, cap(blockRange(buf, 300, 3)))
}

func TestZstdEncoderPoolFollowsThreads(t *testing.T) {
	ctx := NewContext(Params{Threads: 3})
	defer ctx.Close()
	codec, err := ctx.Codec(types.CompressorZstd)
	require.NoError(t, err)
	assert.Equal(t, 3, codec.(*ZstdCodec).workers())

	assert.Equal(t, 1, NewZstdCodec(0).workers())
}
