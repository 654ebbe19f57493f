package fetcher

import (
	"context"
	"sync"
)

// Result pairs a fetched feed with the source URL it came from. Feed is
// nil when the fetch failed; other sources are unaffected.
type Result struct {
	URL  string
	Feed *Feed
	Err  error
}

// FetchAll fetches every URL with at most workers concurrent requests
// and returns results in source order. A single worker degrades to the
// plain sequential loop.
func FetchAll(ctx context.Context, f Fetcher, urls []string, workers int) []Result {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(urls))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			results[i] = Result{URL: url, Err: err}
			continue
		}

		select {
		case <-ctx.Done():
			results[i] = Result{URL: url, Err: ctx.Err()}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			defer func() { <-sem }()

			feed, err := f.Fetch(ctx, url)
			if err != nil {
				results[i] = Result{URL: url, Err: err}
				return
			}
			results[i] = Result{URL: url, Feed: &feed}
		}(i, url)
	}

	wg.Wait()
	return results
}
