package mrcz

import (
	"bufio"
	"context"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/harshithgowdakt/mrcz/internal/errs"
	"github.com/harshithgowdakt/mrcz/internal/volume"
)

// ReadFile reads the volume stored at path.
func ReadFile(ctx context.Context, path string, opts ...Option) (vol *volume.Volume, ext []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errs.IOf("mrcz.ReadFile", err, "opening %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, errs.IOf("mrcz.ReadFile", cerr, "closing %s", path))
		}
	}()

	o := buildOptions(ctx, opts)
	o.log.Info("Reading volume", zap.String("path", path))
	return Read(ctx, f, append(opts, WithLogger(o.log))...)
}

// WriteFile writes vol to path, creating or truncating it. A failure
// part way through leaves a truncated file behind.
func WriteFile(ctx context.Context, path string, vol *volume.Volume, ext []byte, opts ...Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errs.IOf("mrcz.WriteFile", err, "creating %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, errs.IOf("mrcz.WriteFile", cerr, "closing %s", path))
		}
	}()

	o := buildOptions(ctx, opts)
	o.log.Info("Writing volume", zap.String("path", path))
	bw := bufio.NewWriterSize(f, 1<<20)
	err = Write(ctx, bw, vol, ext, append(opts, WithLogger(o.log))...)
	if ferr := bw.Flush(); err == nil && ferr != nil {
		err = errs.IOf("mrcz.WriteFile", ferr, "flushing %s", path)
	}
	return err
}
