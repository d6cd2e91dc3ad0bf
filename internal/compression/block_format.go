package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/harshithgowdakt/mrcz/internal/errs"
)

// Frame format (Blosc1 layout, one frame per compressed unit):
//
//	[version (1)] [versionlz (1)] [flags (1)] [typesize (1)]
//	[nbytes (4 LE)] [blocksize (4 LE)] [cbytes (4 LE)]
//	[bstarts: one 4-byte LE offset per block]
//	per block: [csize (4 LE)] [payload (csize)]
//
// cbytes is the length of the whole frame including this header, so a reader
// can find the end of a frame from its first FrameHeaderSize bytes. A block
// whose csize equals its uncompressed length is stored raw. A memcpyed frame
// has no bstarts and carries nbytes raw bytes right after the header.

const (
	FrameHeaderSize = 16
	FrameSizeOffset = 12

	FrameVersion   = 2
	FrameVersionLZ = 1

	// MinBufferSize is the smallest input that is worth compressing.
	MinBufferSize = 128
	// MaxBufferSize is the largest input a frame can describe.
	MaxBufferSize = 1<<31 - 1 - FrameHeaderSize
)

// Flag bits.
const (
	FlagShuffle    uint8 = 0x01
	FlagMemcpyed   uint8 = 0x02
	FlagBitShuffle uint8 = 0x04
	FlagNoSplit    uint8 = 0x10
)

// FrameHeader is the decoded fixed prefix of a frame.
type FrameHeader struct {
	Version   uint8
	VersionLZ uint8
	Flags     uint8
	TypeSize  int
	NBytes    int // uncompressed length
	BlockSize int
	CBytes    int // total frame length
}

// Format returns the compressor format code from the flags.
func (fh FrameHeader) Format() uint8 { return fh.Flags >> 5 }

// Memcpyed reports whether the payload is stored without compression.
func (fh FrameHeader) Memcpyed() bool { return fh.Flags&FlagMemcpyed != 0 }

// NumBlocks returns the number of blocks the frame is split into.
func (fh FrameHeader) NumBlocks() int {
	if fh.BlockSize <= 0 {
		return 0
	}
	return (fh.NBytes + fh.BlockSize - 1) / fh.BlockSize
}

// ParseFrameHeader decodes the fixed prefix of a frame.
func ParseFrameHeader(data []byte) (FrameHeader, error) {
	if len(data) < FrameHeaderSize {
		return FrameHeader{}, errs.Compressionf("compression.ParseFrameHeader",
			"not enough data for frame header: %d bytes", len(data))
	}
	fh := FrameHeader{
		Version:   data[0],
		VersionLZ: data[1],
		Flags:     data[2],
		TypeSize:  int(data[3]),
		NBytes:    int(binary.LittleEndian.Uint32(data[4:8])),
		BlockSize: int(binary.LittleEndian.Uint32(data[8:12])),
		CBytes:    int(binary.LittleEndian.Uint32(data[12:16])),
	}
	if fh.Version == 0 || fh.Version > FrameVersion {
		return FrameHeader{}, errs.Compressionf("compression.ParseFrameHeader",
			"unsupported frame version %d", fh.Version)
	}
	if fh.CBytes < FrameHeaderSize {
		return FrameHeader{}, errs.Compressionf("compression.ParseFrameHeader",
			"frame length %d shorter than its header", fh.CBytes)
	}
	return fh, nil
}

// FrameSize returns the total length of the frame starting at prefix, read
// from the cbytes field.
func FrameSize(prefix []byte) (int, error) {
	fh, err := ParseFrameHeader(prefix)
	if err != nil {
		return 0, err
	}
	return fh.CBytes, nil
}

func (fh FrameHeader) put(dst []byte) {
	dst[0] = fh.Version
	dst[1] = fh.VersionLZ
	dst[2] = fh.Flags
	dst[3] = uint8(fh.TypeSize)
	binary.LittleEndian.PutUint32(dst[4:8], uint32(fh.NBytes))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(fh.BlockSize))
	binary.LittleEndian.PutUint32(dst[12:16], uint32(fh.CBytes))
}

// memcpyedFrame builds a frame that stores src verbatim.
func memcpyedFrame(fh FrameHeader, src []byte) []byte {
	fh.Flags = (fh.Flags &^ (FlagShuffle | FlagBitShuffle)) | FlagMemcpyed
	fh.CBytes = FrameHeaderSize + len(src)
	frame := make([]byte, fh.CBytes)
	fh.put(frame)
	copy(frame[FrameHeaderSize:], src)
	return frame
}

// assembleFrame lays out the block payloads after the header and bstarts.
func assembleFrame(fh FrameHeader, payloads [][]byte) []byte {
	nblocks := len(payloads)
	total := FrameHeaderSize + 4*nblocks
	for _, p := range payloads {
		total += 4 + len(p)
	}
	fh.CBytes = total
	frame := make([]byte, total)
	fh.put(frame)

	pos := FrameHeaderSize + 4*nblocks
	for i, p := range payloads {
		binary.LittleEndian.PutUint32(frame[FrameHeaderSize+4*i:], uint32(pos))
		binary.LittleEndian.PutUint32(frame[pos:], uint32(len(p)))
		pos += 4
		pos += copy(frame[pos:], p)
	}
	return frame
}

// blockPayload returns the stored payload of block i of a non-memcpyed frame.
func blockPayload(fh FrameHeader, frame []byte, i int) ([]byte, error) {
	bstartAt := FrameHeaderSize + 4*i
	if bstartAt+4 > len(frame) {
		return nil, fmt.Errorf("block %d: bstarts truncated", i)
	}
	start := int(binary.LittleEndian.Uint32(frame[bstartAt:]))
	if start < FrameHeaderSize+4*fh.NumBlocks() || start+4 > len(frame) {
		return nil, fmt.Errorf("block %d: start %d out of range", i, start)
	}
	csize := int(binary.LittleEndian.Uint32(frame[start:]))
	if csize < 0 || start+4+csize > len(frame) {
		return nil, fmt.Errorf("block %d: size %d exceeds frame", i, csize)
	}
	return frame[start+4 : start+4+csize], nil
}

// blockRange returns block i of buf for the given block size, capped so
// nothing appended to it can reach the next block.
func blockRange(buf []byte, blockSize, i int) []byte {
	start := i * blockSize
	end := start + blockSize
	if end > len(buf) {
		end = len(buf)
	}
	return buf[start:end:end]
}

func errShortBlock(got, want int) error {
	return fmt.Errorf("decompressed %d bytes, expected %d", got, want)
}

// MaxFrameSize bounds the length of a valid frame holding nbytes, assuming
// blocks of at least MinBufferSize bytes.
func MaxFrameSize(nbytes int) int {
	nblocks := nbytes/MinBufferSize + 1
	return FrameHeaderSize + nbytes + 8*nblocks
}
