// ABOUTME: Content sources that load a site page's HTML for a locator
// ABOUTME: Locators are site-relative paths resolved against the base URL; absolute URLs pass through
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent identifies the scraper to the site
const DefaultUserAgent = "sitechat-ingest/1.0"

// Page is the raw result of fetching one locator
type Page struct {
	Locator string
	URL     string
	HTML    string
}

// Source loads a page for a locator
type Source interface {
	Fetch(ctx context.Context, locator string) (Page, error)
}

// ResolveLocator turns a site-relative path into an absolute URL
func ResolveLocator(baseURL, locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", fmt.Errorf("empty locator")
	}

	ref, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("invalid locator %q: %w", locator, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	if baseURL == "" {
		return "", fmt.Errorf("locator %q is relative and no site URL is configured", locator)
	}
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("invalid site URL %q", baseURL)
	}
	return base.ResolveReference(ref).String(), nil
}

// NewSource returns the fetcher for a kind name
func NewSource(kind, baseURL string, timeout time.Duration) (Source, error) {
	switch kind {
	case "", "http":
		return NewHTTPSource(baseURL, timeout), nil
	case "chromedp":
		return NewChromedpSource(baseURL, timeout), nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q", kind)
	}
}
