package discord

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/runixer/mediagrab/internal/download"
)

// HTTPFileDownloader fetches attachment bodies from the Discord CDN.
type HTTPFileDownloader struct {
	httpClient *http.Client
	maxBytes   int64
}

var _ download.Fetcher = (*HTTPFileDownloader)(nil)

// NewHTTPFileDownloader creates a new HTTPFileDownloader.
//
// HTTP client configured with:
// - timeout for the whole transfer, large videos need minutes
// - reasonable timeouts for dial/TLS/headers
//
// maxBytes <= 0 disables the size ceiling.
func NewHTTPFileDownloader(timeout time.Duration, maxBytes int64) *HTTPFileDownloader {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	}

	return &HTTPFileDownloader{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxBytes: maxBytes,
	}
}

// Fetch streams the body at url into w and returns the bytes written.
func (d *HTTPFileDownloader) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to download file: status code %d", resp.StatusCode)
	}

	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return 0, fmt.Errorf("%w: %d bytes, limit %d", download.ErrTooLarge, resp.ContentLength, d.maxBytes)
	}

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}

	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("failed to read response body: %w", err)
	}
	if d.maxBytes > 0 && n > d.maxBytes {
		return n, fmt.Errorf("%w: more than %d bytes", download.ErrTooLarge, d.maxBytes)
	}
	return n, nil
}
