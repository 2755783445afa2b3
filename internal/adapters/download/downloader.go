package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/okian/growthchart/pkg/logger"
	"github.com/okian/growthchart/pkg/metrics"
)

// Download statuses recorded in metrics.
const (
	statusOK      = "ok"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

// Result is the outcome of one dataset.
type Result struct {
	Dataset Dataset
	Path    string
	Bytes   int64
	Skipped bool
	Err     error
}

// OK reports whether the dataset is on disk.
func (r Result) OK() bool { return r.Err == nil }

// Downloader saves datasets into a directory. A dataset whose file already exists is not fetched again.
type Downloader struct {
	dir         string
	client      *http.Client
	concurrency int
	timeout     time.Duration
	logger      logger.Logger
}

// New creates a Downloader writing into dir.
func New(dir string, opts ...Option) *Downloader {
	d := &Downloader{
		dir:         dir,
		client:      http.DefaultClient,
		concurrency: 4,
		timeout:     60 * time.Second,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadAll fetches every dataset with bounded concurrency and returns one Result per dataset,
// in manifest order. Individual failures are reported in their Result, not as an error.
func (d *Downloader) DownloadAll(ctx context.Context, datasets []Dataset) ([]Result, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	results := make([]Result, len(datasets))
	var eg errgroup.Group
	eg.SetLimit(d.concurrency)
	for i, ds := range datasets {
		eg.Go(func() error {
			results[i] = d.Download(ctx, ds)
			return nil
		})
	}
	_ = eg.Wait()
	return results, ctx.Err()
}

// Download fetches one dataset.
func (d *Downloader) Download(ctx context.Context, ds Dataset) Result {
	res := Result{Dataset: ds, Path: filepath.Join(d.dir, ds.Filename())}

	if err := ds.Validate(); err != nil {
		return d.failed(ctx, res, err)
	}
	if _, err := os.Stat(res.Path); err == nil {
		res.Skipped = true
		metrics.RecordDownload(statusSkipped)
		d.logger.Warn(ctx, "file already exists, skipping download", logger.String("file", res.Path))
		return res
	}

	d.logger.Debug(ctx, "downloading dataset",
		logger.String("metric", ds.Metric),
		logger.String("gender", ds.Gender),
		logger.String("age_range", ds.AgeRange),
		logger.String("url", ds.URL))

	n, err := d.fetch(ctx, ds.URL, res.Path)
	if err != nil {
		return d.failed(ctx, res, err)
	}
	res.Bytes = n

	metrics.RecordDownload(statusOK)
	metrics.AddDownloadBytes(n)
	d.logger.Info(ctx, "dataset downloaded",
		logger.String("file", res.Path),
		logger.String("size", humanize.Bytes(uint64(n))))
	return res
}

func (d *Downloader) failed(ctx context.Context, res Result, err error) Result {
	res.Err = err
	metrics.RecordDownload(statusFailed)
	d.logger.Error(ctx, "failed to download dataset", logger.String("file", res.Path), logger.Error(err))
	return res
}

// fetch streams url into a temporary file next to dst and renames it into place, so a failed
// transfer never leaves a partial file that would be skipped next time.
func (d *Downloader) fetch(ctx context.Context, url, dst string) (n int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err = io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	return n, nil
}

// Failed returns the results that did not succeed.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Err joins the errors of every failed result.
func Err(results []Result) error {
	var errs []error
	for _, r := range Failed(results) {
		errs = append(errs, fmt.Errorf("%s: %w", r.Dataset.Filename(), r.Err))
	}
	return errors.Join(errs...)
}
