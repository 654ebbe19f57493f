// Package summarizer condenses article text through a hosted
// OpenAI-compatible completion API.
package summarizer

import "context"

// Summarizer turns an article title and body into a short
// natural-language summary.
type Summarizer interface {
	// Summarize returns the summary text for the given article
	Summarize(ctx context.Context, title, content string) (string, error)

	// Name identifies the backing model, used as the summary cache key
	Name() string
}
