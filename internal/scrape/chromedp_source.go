// ABOUTME: Headless Chrome page source for client-rendered sites
// ABOUTME: Navigates, waits for the body, and captures the rendered DOM
package scrape

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/harper/sitechat/internal/models"
)

// ChromedpSource renders pages in headless Chrome before extracting HTML
type ChromedpSource struct {
	baseURL   string
	timeout   time.Duration
	userAgent string
}

// NewChromedpSource creates a ChromedpSource; each fetch is bounded by timeout
func NewChromedpSource(baseURL string, timeout time.Duration) *ChromedpSource {
	return &ChromedpSource{
		baseURL:   baseURL,
		timeout:   timeout,
		userAgent: DefaultUserAgent,
	}
}

// Fetch renders the locator and returns the page's outer HTML
func (s *ChromedpSource) Fetch(ctx context.Context, locator string) (Page, error) {
	target, err := ResolveLocator(s.baseURL, locator)
	if err != nil {
		return Page{}, &models.SourceFetchError{Locator: locator, Err: err}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	html, err := s.render(ctx, target)
	if err != nil {
		return Page{}, &models.SourceFetchError{Locator: locator, Err: err}
	}
	return Page{Locator: locator, URL: target, HTML: html}, nil
}

func (s *ChromedpSource) render(ctx context.Context, target string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(s.userAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
