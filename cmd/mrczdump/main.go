package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/harshithgowdakt/mrcz/internal/cli"
	"github.com/harshithgowdakt/mrcz/internal/compression"
	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/header"
	"github.com/harshithgowdakt/mrcz/internal/stream"
)

type headerJSON struct {
	Dimensions         [3]int32   `json:"dimensions"`
	Mode               int32      `json:"mode"`
	ElementType        string     `json:"element_type"`
	Compressor         string     `json:"compressor"`
	NStart             [3]int32   `json:"nstart"`
	MGrid              [3]int32   `json:"mgrid"`
	CellLen            [3]float32 `json:"cell_len"`
	CellAngle          [3]float32 `json:"cell_angle"`
	MapColRowSlice     [3]int32   `json:"map_crs"`
	Min                float32    `json:"min"`
	Max                float32    `json:"max"`
	Mean               float32    `json:"mean"`
	Std                float32    `json:"rms"`
	SpaceGroup         int32      `json:"space_group"`
	ExtendedHeaderSize int32      `json:"extended_header_size"`
	Origin             float32    `json:"origin"`
	Voltage            float32    `json:"voltage"`
	C3                 float32    `json:"c3"`
	Gain               float32    `json:"gain"`
	DataOffset         int64      `json:"data_offset"`
}

type frameJSON struct {
	Slice            int     `json:"slice"`
	Offset           int64   `json:"offset"`
	CompressedBytes  int     `json:"compressed_bytes"`
	UncompressedSize int     `json:"uncompressed_bytes"`
	Ratio            float64 `json:"ratio"`
	Flags            uint8   `json:"flags"`
	Memcpyed         bool    `json:"memcpyed"`
	TypeSize         int     `json:"typesize"`
	BlockSize        int     `json:"blocksize"`
	Blocks           int     `json:"blocks"`
}

type dumpJSON struct {
	File     string      `json:"file"`
	FileSize int64       `json:"file_size"`
	Header   headerJSON  `json:"header"`
	RawBytes int         `json:"raw_bytes,omitempty"`
	Frames   []frameJSON `json:"frames,omitempty"`
}

func main() {
	var path string
	var frames bool

	cmd, err := cli.NewCommand(viper.New(), &cli.Program{
		Name:  "mrczdump",
		Short: "Print an MRC/MRCZ header and frame layout as JSON",
		Run: func(cmd *cobra.Command) error {
			if path == "" {
				return fmt.Errorf("missing required --input")
			}
			out, err := dumpFile(path, frames)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
		Opts: []cli.Opt{
			{DestP: &path, Flag: "input", Short: "i", Desc: "MRC/MRCZ file to inspect"},
			{DestP: &frames, Flag: "frames", Default: true, Desc: "list the per-slice frames of compressed files"},
		},
	})
	if err != nil {
		fatalf("%v", err)
	}
	if err := cmd.Execute(); err != nil {
		fatalf("%v", err)
	}
}

func dumpFile(path string, frames bool) (out *dumpJSON, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IOf("mrczdump", err, "opening %s", path)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	fi, err := f.Stat()
	if err != nil {
		return nil, errs.IOf("mrczdump", err, "stat %s", path)
	}
	out, err = dump(f, frames)
	if err != nil {
		return nil, err
	}
	out.File = path
	out.FileSize = fi.Size()
	return out, nil
}

func dump(r io.Reader, frames bool) (*dumpJSON, error) {
	sr := stream.NewReader(r, nil, nil)
	h, _, err := sr.ReadHeader()
	if err != nil {
		return nil, err
	}
	out := &dumpJSON{Header: toHeaderJSON(h)}

	sliceLen := h.SliceElements() * h.ElementType.FixedSize()
	if !h.Compressed() {
		out.RawBytes = sliceLen * int(h.Dimensions[2])
		return out, nil
	}
	if !frames {
		return out, nil
	}

	marks, fhs, err := sr.ScanFrames(int(h.Dimensions[2]), sliceLen)
	for i, m := range marks {
		out.Frames = append(out.Frames, toFrameJSON(m, fhs[i]))
	}
	return out, err
}

func toHeaderJSON(h *header.Header) headerJSON {
	return headerJSON{
		Dimensions:         h.Dimensions,
		Mode:               h.Mode(),
		ElementType:        h.ElementType.String(),
		Compressor:         h.Compressor.String(),
		NStart:             h.NStart,
		MGrid:              h.MGrid,
		CellLen:            h.CellLen,
		CellAngle:          h.CellAngle,
		MapColRowSlice:     h.MapColRowSlice,
		Min:                h.Min,
		Max:                h.Max,
		Mean:               h.Mean,
		Std:                h.Std,
		SpaceGroup:         h.SpaceGroup,
		ExtendedHeaderSize: h.ExtendedHeaderSize,
		Origin:             h.Origin,
		Voltage:            h.Voltage,
		C3:                 h.C3,
		Gain:               h.Gain,
		DataOffset:         h.DataOffset(),
	}
}

func toFrameJSON(m stream.Mark, fh compression.FrameHeader) frameJSON {
	return frameJSON{
		Slice:            m.Slice,
		Offset:           m.Offset,
		CompressedBytes:  m.CompressedSize,
		UncompressedSize: m.UncompressedSize,
		Ratio:            m.Ratio(),
		Flags:            fh.Flags,
		Memcpyed:         fh.Memcpyed(),
		TypeSize:         fh.TypeSize,
		BlockSize:        fh.BlockSize,
		Blocks:           fh.NumBlocks(),
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
