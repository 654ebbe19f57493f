package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// RSSFetcher fetches RSS/Atom feeds using gofeed
type RSSFetcher struct {
	parser *gofeed.Parser
}

// NewRSSFetcher creates a new RSS fetcher with a per-request timeout
func NewRSSFetcher(timeout time.Duration) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &RSSFetcher{parser: parser}
}

// Fetch retrieves and parses a feed from the given URL
func (f *RSSFetcher) Fetch(ctx context.Context, url string) (Feed, error) {
	var feed Feed

	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return feed, fmt.Errorf("failed to fetch feed at '%s' with %w", url, err)
	}

	feed.Title = parsed.Title
	feed.Description = parsed.Description
	feed.Items = make([]Item, 0, len(parsed.Items))

	for _, item := range parsed.Items {
		entry := Item{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			GUID:        item.GUID,
		}

		// Prefer the full content block over the short description
		if item.Content != "" {
			entry.Description = item.Content
		}

		if item.PublishedParsed != nil {
			entry.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			entry.Published = *item.UpdatedParsed
		}

		feed.Items = append(feed.Items, entry)
	}

	return feed, nil
}
