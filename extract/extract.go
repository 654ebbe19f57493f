// Package extract pulls readable article text from a web page, used
// when a feed entry ships only a teaser instead of the full body.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Pages larger than this are cut off before extraction
const maxPageBytes = 2 << 20

// Extractor fetches article pages and strips them down to their text
type Extractor struct {
	client *http.Client
}

// New creates an extractor with a per-request timeout
func New(timeout time.Duration) *Extractor {
	return &Extractor{
		client: &http.Client{Timeout: timeout},
	}
}

// Text fetches the page at pageURL and returns its readable text
// content. Callers fall back to the feed-provided description when
// this fails.
func (e *Extractor) Text(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for '%s': %w", pageURL, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article page at '%s': %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("article page at '%s' returned status %d", pageURL, resp.StatusCode)
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil // readability can work without a base URL
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), parsed)
	if err != nil {
		return "", fmt.Errorf("failed to extract readable text from '%s': %w", pageURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no readable text found at '%s'", pageURL)
	}

	return text, nil
}
