package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"feeddigest/config"
	"feeddigest/fetcher"
	"feeddigest/filter"
	"feeddigest/notes"
	"feeddigest/notifier"
	"feeddigest/seen"
)

// stubFetcher returns canned feeds keyed by URL
type stubFetcher struct {
	feeds map[string]fetcher.Feed
	fail  map[string]bool
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (fetcher.Feed, error) {
	if s.fail[url] {
		return fetcher.Feed{}, errors.New("fetch failed")
	}
	return s.feeds[url], nil
}

// countingSummarizer records attempts and can fail per entry title
type countingSummarizer struct {
	attempts map[string]int
	failFor  map[string]bool
}

func newCountingSummarizer() *countingSummarizer {
	return &countingSummarizer{attempts: make(map[string]int), failFor: make(map[string]bool)}
}

func (c *countingSummarizer) Name() string {
	return "test/model"
}

func (c *countingSummarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	c.attempts[title]++
	if c.failFor[title] {
		return "", errors.New("upstream overloaded")
	}
	return "summary of " + title, nil
}

// recordingNotifier collects deliveries and can fail per entry title
type recordingNotifier struct {
	delivered []notifier.Message
	failFor   map[string]bool
}

func (r *recordingNotifier) Notify(ctx context.Context, msg notifier.Message) error {
	if r.failFor[msg.Title] {
		return errors.New("user cannot be messaged")
	}
	r.delivered = append(r.delivered, msg)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }

const feedURL = "https://example.com/feed.xml"

func twoEntryFeed() map[string]fetcher.Feed {
	return map[string]fetcher.Feed{
		feedURL: {
			Title: "Example",
			Items: []fetcher.Item{
				{Title: "A", Link: "https://example.com/a", GUID: "entry-a", Description: "body of A"},
				{Title: "B", Link: "https://example.com/b", GUID: "entry-b", Description: "body of B"},
			},
		},
	}
}

func newTestPipeline(t *testing.T, f fetcher.Fetcher) (*pipeline, *countingSummarizer, *recordingNotifier) {
	t.Helper()

	tracker, err := seen.New(filepath.Join(t.TempDir(), "seen.db"))
	if err != nil {
		t.Fatalf("failed to open tracker: %v", err)
	}
	t.Cleanup(func() { tracker.Close() })

	filters, err := filter.NewFilterPipeline(nil)
	if err != nil {
		t.Fatalf("failed to build filters: %v", err)
	}

	sum := newCountingSummarizer()
	sink := &recordingNotifier{failFor: make(map[string]bool)}

	return &pipeline{
		fetcher:    f,
		tracker:    tracker,
		filters:    filters,
		summarizer: sum,
		notifier:   sink,
	}, sum, sink
}

func testFeeds() []config.FeedConfig {
	return []config.FeedConfig{{URL: feedURL}}
}

func TestPipeline_FreshEntriesDeliveredAndMarkedSeen(t *testing.T) {
	p, sum, sink := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})

	stats, err := p.run(context.Background(), testFeeds(), 1)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if stats.Delivered != 2 {
		t.Errorf("expected 2 deliveries, got %d", stats.Delivered)
	}
	if len(sink.delivered) != 2 {
		t.Fatalf("expected 2 DMs, got %d", len(sink.delivered))
	}
	if sum.attempts["A"] != 1 || sum.attempts["B"] != 1 {
		t.Errorf("expected exactly one summarization attempt per entry, got %v", sum.attempts)
	}

	for _, id := range []string{"entry-a", "entry-b"} {
		isNew, _ := p.tracker.IsNew(id)
		if isNew {
			t.Errorf("entry %s should be marked seen after delivery", id)
		}
	}
}

func TestPipeline_SecondRunIsIdempotent(t *testing.T) {
	p, sum, sink := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})

	if _, err := p.run(context.Background(), testFeeds(), 1); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	stats, err := p.run(context.Background(), testFeeds(), 1)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if stats.Delivered != 0 {
		t.Errorf("second run should deliver nothing, got %d", stats.Delivered)
	}
	if stats.AlreadySeen != 2 {
		t.Errorf("second run should skip 2 seen entries, got %d", stats.AlreadySeen)
	}
	if len(sink.delivered) != 2 {
		t.Errorf("no additional DMs expected, got %d total", len(sink.delivered))
	}
	if sum.attempts["A"] != 1 || sum.attempts["B"] != 1 {
		t.Errorf("seen entries must not be re-summarized, got %v", sum.attempts)
	}
}

func TestPipeline_OnlyUnseenEntriesProcessed(t *testing.T) {
	p, sum, sink := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})

	// Pre-seed A as seen
	if err := p.tracker.MarkSeen("entry-a", feedURL, "A"); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	if _, err := p.run(context.Background(), testFeeds(), 1); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sum.attempts["A"] != 0 {
		t.Error("seen entry A must not be summarized")
	}
	if len(sink.delivered) != 1 || sink.delivered[0].Title != "B" {
		t.Errorf("only B should be delivered, got %v", sink.delivered)
	}

	isNew, _ := p.tracker.IsNew("entry-b")
	if isNew {
		t.Error("entry B should now be seen")
	}
}

func TestPipeline_SummarizeFailureLeavesEntryUnseen(t *testing.T) {
	p, sum, sink := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})
	sum.failFor["B"] = true

	stats, err := p.run(context.Background(), testFeeds(), 1)
	if err == nil {
		t.Fatal("expected aggregated error for the failed entry")
	}

	// A is unaffected by B's failure
	if len(sink.delivered) != 1 || sink.delivered[0].Title != "A" {
		t.Errorf("A should still be delivered, got %v", sink.delivered)
	}
	if stats.Failed != 1 {
		t.Errorf("expected 1 failed entry, got %d", stats.Failed)
	}

	// B stays eligible for the next run
	isNew, _ := p.tracker.IsNew("entry-b")
	if !isNew {
		t.Error("failed entry must not be marked seen")
	}

	// Next run retries B only
	sum.failFor["B"] = false
	if _, err := p.run(context.Background(), testFeeds(), 1); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if sum.attempts["A"] != 1 {
		t.Errorf("A should not be re-summarized, got %d attempts", sum.attempts["A"])
	}
	if len(sink.delivered) != 2 {
		t.Errorf("B should be delivered on the second run, got %d DMs", len(sink.delivered))
	}
}

func TestPipeline_DeliveryFailureLeavesEntryUnseen(t *testing.T) {
	p, _, sink := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})
	sink.failFor["B"] = true

	if _, err := p.run(context.Background(), testFeeds(), 1); err == nil {
		t.Fatal("expected aggregated error for the failed delivery")
	}

	isNew, _ := p.tracker.IsNew("entry-b")
	if !isNew {
		t.Error("undelivered entry must not be marked seen")
	}
	isNew, _ = p.tracker.IsNew("entry-a")
	if isNew {
		t.Error("delivered entry A should be marked seen")
	}
}

func TestPipeline_DeliveryFailureReusesCachedSummary(t *testing.T) {
	p, sum, sink := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})
	sink.failFor["B"] = true

	p.run(context.Background(), testFeeds(), 1)

	// Delivery now works; the summary must come from the cache
	sink.failFor["B"] = false
	if _, err := p.run(context.Background(), testFeeds(), 1); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if sum.attempts["B"] != 1 {
		t.Errorf("summary should be cached across delivery retries, got %d attempts", sum.attempts["B"])
	}
	if len(sink.delivered) != 2 {
		t.Errorf("expected B delivered on retry, got %d DMs", len(sink.delivered))
	}
}

func TestPipeline_FeedFailureIsolation(t *testing.T) {
	badURL := "https://bad.example/feed.xml"
	feeds := twoEntryFeed()
	f := &stubFetcher{feeds: feeds, fail: map[string]bool{badURL: true}}

	p, _, sink := newTestPipeline(t, f)

	sources := []config.FeedConfig{{URL: badURL}, {URL: feedURL}}
	_, err := p.run(context.Background(), sources, 1)
	if err == nil {
		t.Fatal("expected aggregated fetch error")
	}

	if len(sink.delivered) != 2 {
		t.Errorf("healthy feed should be fully processed despite the broken one, got %d DMs", len(sink.delivered))
	}
}

func TestPipeline_DisabledFeedSkipped(t *testing.T) {
	disabled := false
	p, sum, _ := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})

	sources := []config.FeedConfig{{URL: feedURL, Enabled: &disabled}}
	stats, err := p.run(context.Background(), sources, 1)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if stats.Fetched != 0 || len(sum.attempts) != 0 {
		t.Error("disabled feed must not be fetched or summarized")
	}
}

func TestPipeline_FiltersApplied(t *testing.T) {
	p, sum, sink := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})

	filters, err := filter.NewFilterPipeline(map[string]config.Filter{
		"interests": {IncludeKeywords: []string{"body of a"}},
	})
	if err != nil {
		t.Fatalf("failed to build filters: %v", err)
	}
	p.filters = filters

	sources := []config.FeedConfig{{URL: feedURL, FilterNames: []string{"interests"}}}
	stats, err := p.run(context.Background(), sources, 1)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if stats.Filtered != 1 {
		t.Errorf("expected 1 filtered entry, got %d", stats.Filtered)
	}
	if len(sink.delivered) != 1 || sink.delivered[0].Title != "A" {
		t.Errorf("only A matches the interests, got %v", sink.delivered)
	}
	if sum.attempts["B"] != 0 {
		t.Error("filtered entries must not be summarized")
	}

	// Filtered entries are not marked seen either
	isNew, _ := p.tracker.IsNew("entry-b")
	if !isNew {
		t.Error("filtered entry should stay new")
	}
}

func TestPipeline_DryRunDoesNotMarkSeen(t *testing.T) {
	p, _, sink := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})
	p.dryRun = true

	stats, err := p.run(context.Background(), testFeeds(), 1)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if stats.Delivered != 2 || len(sink.delivered) != 2 {
		t.Errorf("dry run still exercises the notifier, got %d", len(sink.delivered))
	}
	for _, id := range []string{"entry-a", "entry-b"} {
		isNew, _ := p.tracker.IsNew(id)
		if !isNew {
			t.Errorf("dry run must not mark %s seen", id)
		}
	}
}

func TestPipeline_NotesWritten(t *testing.T) {
	p, _, _ := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})
	dir := t.TempDir()
	p.notes = notes.NewWriter(dir)

	if _, err := p.run(context.Background(), testFeeds(), 1); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read notes dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(entries))
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".txt") {
			t.Errorf("unexpected note filename: %s", e.Name())
		}
	}
}

func TestPipeline_CancelledContextStopsRun(t *testing.T) {
	p, sum, _ := newTestPipeline(t, &stubFetcher{feeds: twoEntryFeed()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.run(ctx, testFeeds(), 1)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if len(sum.attempts) != 0 {
		t.Error("no entry should be summarized after cancellation")
	}
}
