// Package blob fetches remote mount sources over HTTP.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/ioprogress"
	"github.com/pkg/errors"

	"github.com/stagecraft/stagecraft/internal/style"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

//go:generate mockgen -package testmocks -destination ../mount/testmocks/mock_fetcher.go github.com/stagecraft/stagecraft/internal/blob Fetcher

// Fetcher streams the body of a remote resource.
type Fetcher interface {
	// Fetch issues a GET for uri. The caller must close the returned body.
	Fetch(ctx context.Context, uri string) (io.ReadCloser, error)
}

type downloader struct {
	logger logging.Logger
	client *http.Client
}

type DownloaderOption func(*downloader)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *downloader) {
		d.client = client
	}
}

func NewDownloader(logger logging.Logger, opts ...DownloaderOption) downloader { //nolint:revive
	d := downloader{
		logger: logger,
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d downloader) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "creating request for %s", style.Symbol(uri))
	}

	resp, err := d.client.Do(req) //nolint:bodyclose
	if err != nil {
		return nil, errors.Wrapf(err, "requesting %s", style.Symbol(uri))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf(
			"could not download from %s, code http status %s",
			style.Symbol(uri), style.SymbolF("%d", resp.StatusCode),
		)
	}

	d.logger.Debugf("Downloading from %s", style.Symbol(uri))
	return d.withProgress(uri, resp.Body, resp.ContentLength), nil
}

func (d downloader) withProgress(uri string, rc io.ReadCloser, length int64) io.ReadCloser {
	counter := &countingReader{r: rc}
	return &progressReader{
		Reader: &ioprogress.Reader{
			Reader:   counter,
			Size:     length,
			DrawFunc: ioprogress.DrawTerminalf(logging.GetWriterForLevel(d.logger, logging.InfoLevel), ioprogress.DrawTextFormatBytes),
		},
		closer: rc,
		done: func() {
			d.logger.Debugf("Downloaded %s from %s", humanize.Bytes(uint64(counter.n)), style.Symbol(uri))
		},
	}
}

type progressReader struct {
	*ioprogress.Reader
	closer io.Closer
	done   func()
}

func (p *progressReader) Close() error {
	p.done()
	return p.closer.Close()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
