package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"feeddigest/config"
	"feeddigest/extract"
	"feeddigest/fetcher"
	"feeddigest/filter"
	"feeddigest/notes"
	"feeddigest/notifier"
	"feeddigest/seen"
	"feeddigest/summarizer"
)

// pipeline wires the stages of one run: fetch → filter → seen check →
// extract → summarize → deliver → mark seen.
type pipeline struct {
	fetcher    fetcher.Fetcher
	tracker    *seen.Tracker
	filters    *filter.FilterPipeline
	extractor  *extract.Extractor // nil disables full-page extraction
	summarizer summarizer.Summarizer
	notifier   notifier.Notifier
	notes      *notes.Writer // nil disables the notes archive

	dryRun       bool
	minBodyChars int
}

// runStats accounts for what one run did
type runStats struct {
	Fetched     int
	Filtered    int
	AlreadySeen int
	Summarized  int
	Delivered   int
	Failed      int
}

// run processes every configured feed once. Per-feed and per-entry
// failures are logged and skipped; the returned error aggregates them
// for the caller's log line and never aborts remaining work.
func (p *pipeline) run(ctx context.Context, feeds []config.FeedConfig, workers int) (runStats, error) {
	var stats runStats
	var errs []error

	enabled := make([]config.FeedConfig, 0, len(feeds))
	urls := make([]string, 0, len(feeds))
	for _, f := range feeds {
		if !f.IsEnabled() {
			slog.Debug("skipping disabled feed", "url", f.URL)
			continue
		}
		enabled = append(enabled, f)
		urls = append(urls, f.URL)
	}

	results := fetcher.FetchAll(ctx, p.fetcher, urls, workers)
	for i, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("'%s' fetch failed with %w", res.URL, res.Err))
			continue
		}
		stats.Fetched += len(res.Feed.Items)

		src := enabled[i]
		for _, item := range res.Feed.Items {
			// Check for cancellation before processing each entry
			select {
			case <-ctx.Done():
				return stats, errors.Join(append(errs, ctx.Err())...)
			default:
			}

			if err := p.processItem(ctx, src, item, &stats); err != nil {
				stats.Failed++
				errs = append(errs, fmt.Errorf("'%s': %w", item.ID(), err))
				slog.Error("entry processing failed", "title", item.Title, "url", item.Link, "error", err)
			}
		}
	}

	return stats, errors.Join(errs...)
}

// processItem runs one entry through the tail of the pipeline. The
// entry is marked seen only after successful delivery, so any failure
// leaves it eligible for the next run.
func (p *pipeline) processItem(ctx context.Context, src config.FeedConfig, item fetcher.Item, stats *runStats) error {
	id := item.ID()

	isNew, err := p.tracker.IsNew(id)
	if err != nil {
		return fmt.Errorf("seen lookup failed: %w", err)
	}
	if !isNew {
		stats.AlreadySeen++
		slog.Debug("skipping already seen entry", "title", item.Title, "url", item.Link)
		return nil
	}

	if include, reason := p.filters.ShouldInclude(item, src.FilterNames); !include {
		stats.Filtered++
		slog.Debug("entry filtered out", "title", item.Title, "reason", reason, "url", item.Link)
		return nil
	}

	content := item.Description
	if p.extractor != nil && len(content) < p.minBodyChars && item.Link != "" {
		extracted, err := p.extractor.Text(ctx, item.Link)
		if err != nil {
			slog.Warn("full-text extraction failed, using feed description", "url", item.Link, "error", err)
		} else {
			content = extracted
		}
	}

	summary, cached, err := p.tracker.GetSummary(id, p.summarizer.Name())
	if err == nil && cached {
		slog.Debug("summary cache hit", "url", item.Link)
	} else {
		summary, err = p.summarizer.Summarize(ctx, item.Title, content)
		if err != nil {
			return fmt.Errorf("summarization failed: %w", err)
		}
		stats.Summarized++
		if err := p.tracker.SetSummary(id, p.summarizer.Name(), summary); err != nil {
			slog.Warn("failed to cache summary", "error", err)
		}
	}

	if p.notes != nil {
		if path, err := p.notes.Save(item.Title, item.Link, summary); err != nil {
			slog.Warn("failed to save note", "title", item.Title, "error", err)
		} else {
			slog.Debug("note saved", "path", path)
		}
	}

	msg := notifier.Message{Title: item.Title, Link: item.Link, Summary: summary}
	if err := p.notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}
	stats.Delivered++

	// A dry run must not consume entries: they stay new for the real run
	if p.dryRun {
		return nil
	}

	if err := p.tracker.MarkSeen(id, src.URL, item.Title); err != nil {
		slog.Warn("delivered but failed to mark entry seen, duplicate possible next run", "id", id, "error", err)
	}
	return nil
}
