package download

import (
	"net/http"
	"time"

	"github.com/okian/growthchart/pkg/logger"
)

// Option applies a configuration option to the Downloader.
type Option func(*Downloader)

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.client = c
		}
	}
}

// WithConcurrency bounds the number of simultaneous fetches.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithTimeout bounds each fetch.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the logger for download progress.
func WithLogger(l logger.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}
