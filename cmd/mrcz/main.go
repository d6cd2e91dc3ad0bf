package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/harshithgowdakt/mrcz/internal/cli"
	"github.com/harshithgowdakt/mrcz/internal/logger"
	"github.com/harshithgowdakt/mrcz/internal/mrcz"
)

func main() {
	var cfg convertConfig
	var logLevel, logFormat string

	cmd, err := cli.NewCommand(viper.New(), &cli.Program{
		Name:  "mrcz",
		Short: "Convert between MRC and compressed MRCZ volumes",
		Long: "Takes an input MRC/MRCZ file and writes it as a compressed or\n" +
			"uncompressed MRC/MRCZ file. All options apply to the output file only.",
		Run: func(cmd *cobra.Command) error {
			var lc = logger.NewConfig()
			lc.Format = logFormat
			if err := lc.Level.Set(logLevel); err != nil {
				return fmt.Errorf("parsing log level: %w", err)
			}
			log, err := lc.New(os.Stderr)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			ctx = logger.NewContextWithLogger(ctx, log)
			return convert(ctx, cfg)
		},
		Opts: []cli.Opt{
			{DestP: &cfg.Input, Flag: "input", Short: "i", Desc: "input MRC/MRCZ file"},
			{DestP: &cfg.Output, Flag: "output", Short: "o", Desc: "output MRC/MRCZ file"},
			{DestP: &cfg.Compressor, Flag: "compressor", Short: "c",
				Desc: "one of none, blosclz, lz4, lz4hc, snappy, zlib, zstd (default: keep the input's)"},
			{DestP: &cfg.BlockSize, Flag: "blocksize", Short: "B", Default: unset,
				Desc: "compression block size in bytes, used when above 4096 (default 131072)"},
			{DestP: &cfg.Level, Flag: "level", Short: "l", Default: unset,
				Desc: "compression level, 0 stores, 9 is slowest (default 1)"},
			{DestP: &cfg.Filter, Flag: "filter", Short: "f", Default: unset,
				Desc: "filter: 0 none, 1 byte shuffle, 2 bit shuffle (default 2)"},
			{DestP: &cfg.Threads, Flag: "threads", Short: "n", Default: unset,
				Desc: "worker threads per slice (default 4)"},
			{DestP: &cfg.Stats, Flag: "stats", Desc: "recompute min, max, mean and RMS in the output header"},
			{DestP: &logLevel, Flag: "log-level", Default: zapcore.InfoLevel.String(), Desc: "log level"},
			{DestP: &logFormat, Flag: "log-format", Default: "console", Desc: "log format: console or json"},
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mrcz: %v\n", err)
		os.Exit(1)
	}
	cmd.Version = mrcz.Version

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
