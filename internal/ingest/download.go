// Package ingest downloads the booking and facility workbooks and flattens
// them into the typed tables the pipeline consumes. Ingestion fails fast:
// a missing required column or an unreadable workbook aborts the run with
// no partial output.
package ingest

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	apperrors "custodyetl/internal/errors"
)

// Downloader fetches workbooks whose URLs live in small text files next to
// the binary, so the links never end up in config or source control.
type Downloader struct {
	client *http.Client
}

// NewDownloader builds a downloader with the given total request timeout.
func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{client: &http.Client{Timeout: timeout}}
}

// FetchFromURLFile reads the URL in urlFile and downloads the body.
func (d *Downloader) FetchFromURLFile(ctx context.Context, urlFile string) ([]byte, error) {
	raw, err := os.ReadFile(urlFile)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDownloadFailed, "read url file %s", urlFile)
	}
	url := strings.TrimSpace(string(raw))
	if url == "" {
		return nil, apperrors.New(apperrors.CodeDownloadFailed, "url file %s is empty", urlFile)
	}
	return d.Fetch(ctx, url)
}

// Fetch downloads one URL and buffers the body. Any non-2xx status is fatal.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDownloadFailed, "build request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDownloadFailed, "download workbook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.New(apperrors.CodeDownloadFailed, "download workbook: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDownloadFailed, "read workbook body")
	}
	return body, nil
}
