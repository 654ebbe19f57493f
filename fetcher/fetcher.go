package fetcher

import (
	"context"
	"time"
)

// Feed represents a collection of entries from a feed source
type Feed struct {
	Title       string
	Description string
	Items       []Item
}

// Item represents a single entry in a feed
type Item struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
	GUID        string
}

// ID returns the stable identifier used for deduplication: the GUID
// when the feed provides one, otherwise the link.
func (it Item) ID() string {
	if it.GUID != "" {
		return it.GUID
	}
	return it.Link
}

// Fetcher retrieves and parses a feed document from a URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Feed, error)
}
