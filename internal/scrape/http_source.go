// ABOUTME: Plain HTTP page source for server-rendered sites
// ABOUTME: Any transport failure or non-2xx status becomes a SourceFetchError
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harper/sitechat/internal/models"
)

// maxPageBytes bounds how much of a response body is read
const maxPageBytes = 8 << 20

// HTTPSource fetches pages with a GET request
type HTTPSource struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// NewHTTPSource creates an HTTPSource with the given per-request timeout
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
	}
}

// Fetch loads the locator's HTML
func (s *HTTPSource) Fetch(ctx context.Context, locator string) (Page, error) {
	target, err := ResolveLocator(s.baseURL, locator)
	if err != nil {
		return Page{}, &models.SourceFetchError{Locator: locator, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, &models.SourceFetchError{Locator: locator, Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return Page{}, &models.SourceFetchError{Locator: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, &models.SourceFetchError{Locator: locator, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Page{}, &models.SourceFetchError{Locator: locator, Err: fmt.Errorf("read body: %w", err)}
	}

	return Page{Locator: locator, URL: target, HTML: string(body)}, nil
}
