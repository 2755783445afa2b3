// Package loader reads WHO reference tables from a directory of xlsx or csv files and builds
// the repository partitions from them.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/okian/growthchart/internal/adapters/repository"
	"github.com/okian/growthchart/internal/domain/reference"
	"github.com/okian/growthchart/pkg/logger"
	"github.com/okian/growthchart/pkg/metrics"
)

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithLogger sets the logger used for skipped and loaded files.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithStrict makes files with unrecognised names an error instead of being skipped.
func WithStrict(strict bool) Option {
	return func(ld *Loader) {
		ld.strict = strict
	}
}

// Loader turns reference files into a repository.Builder.
type Loader struct {
	logger logger.Logger
	strict bool
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	ld := &Loader{logger: logger.Nop()}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// LoadDir reads every reference file in dir.
func (ld *Loader) LoadDir(ctx context.Context, dir string) (*repository.Builder, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reference directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("reference directory %q is not a directory", dir)
	}
	return ld.LoadFS(ctx, os.DirFS(dir))
}

// LoadFS reads every reference file at the root of fsys. Files whose names do not follow the
// reference naming convention are skipped unless the loader is strict; a recognised file that
// fails to parse aborts the load.
func (ld *Loader) LoadFS(ctx context.Context, fsys fs.FS) (*repository.Builder, error) {
	start := time.Now()

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list reference files: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	b := repository.NewBuilder()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}

		fi, err := ParseFilename(e.Name())
		if err != nil {
			if ld.strict {
				return nil, err
			}
			metrics.RecordLoaderReject("unrecognised_name")
			ld.logger.Debug(ctx, "skipping file", logger.String("file", e.Name()), logger.Error(err))
			continue
		}

		table, err := ld.readFile(fsys, e.Name(), fi.Format)
		if err != nil {
			metrics.RecordLoaderReject("malformed")
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		b.Add(fi.Sex, fi.Metric, fi.Range, table, e.Name())

		ld.logger.Debug(ctx, "reference table read",
			logger.String("file", e.Name()),
			logger.String("sex", string(fi.Sex)),
			logger.String("metric", string(fi.Metric)),
			logger.String("range", fi.Range.String()),
			logger.Int("rows", table.Len()))
	}

	ms := float64(time.Since(start).Milliseconds())
	metrics.RecordTableLoadDuration(ms)
	if b.Len() == 0 {
		return nil, errors.New("no reference tables found")
	}
	ld.logger.Info(ctx, "reference tables read", logger.Int("files", b.Len()), logger.Float64("duration_ms", ms))
	return b, nil
}

func (ld *Loader) readFile(fsys fs.FS, name string, format Format) (_ *reference.Table, err error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Read(f, format)
}
