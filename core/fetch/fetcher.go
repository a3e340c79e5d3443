// Package fetch downloads source documents given by URL on the command line.
// The response Content-Type travels with the body so the input format can be
// detected without a file extension.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gaurav-prasanna/flatdoc/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "flatdoc/1.0 (https://github.com/gaurav-prasanna/flatdoc)"
	// acceptFormats lists the media types flatdoc reads natively, ahead of
	// the XML article format and anything pandoc might handle.
	acceptFormats = "application/json, text/markdown, text/html, application/xml;q=0.9, */*;q=0.5"
	// maxBodySize caps a downloaded source document.
	maxBodySize = 32 << 20
)

// ErrBodyTooLarge is returned when a source document exceeds the size cap.
var ErrBodyTooLarge = errors.New("source document too large")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s) for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// HTTPFetcher is the core.Fetcher used for http(s) inputs.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

var _ core.Fetcher = (*HTTPFetcher)(nil)

// New creates an HTTPFetcher with a 30 second timeout.
func New() *HTTPFetcher {
	return NewWithClient(&http.Client{Timeout: defaultTimeout})
}

// NewWithClient creates an HTTPFetcher using c, e.g. an httptest client.
func NewWithClient(c *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: c, maxSize: maxBodySize}
}

// Fetch downloads url. Redirects are followed by the client; the result
// keeps the requested URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", acceptFormats)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, f.maxSize)
	}

	return &core.FetchResult{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
