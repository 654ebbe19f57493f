package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"feeddigest/config"
	"feeddigest/extract"
	"feeddigest/fetcher"
	"feeddigest/filter"
	"feeddigest/notes"
	"feeddigest/notifier"
	"feeddigest/seen"
	"feeddigest/summarizer"
)

func main() {
	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var cfgPath string
	var dryRun bool
	var clean bool
	var interval time.Duration
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML config")
	flag.BoolVar(&dryRun, "dry-run", false, "log deliveries instead of sending, do not mark entries seen")
	flag.BoolVar(&clean, "clean", false, "clear the seen store and exit")
	flag.DurationVar(&interval, "interval", 0, "poll every interval instead of running once (e.g. 15m)")
	flag.Parse()

	// Load .env before anything reads the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	// Read config and create if default is missing
	conf, err := config.Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		if err := config.Write(cfgPath, conf); err != nil {
			log.Fatalf("failed to write default config with %s", err)
		}
	} else if err != nil {
		log.Fatalf("failed to read config with %s", err)
	}

	// Load credentials: creds file overlaid with environment variables
	creds, err := config.ReadCredentials(config.DefaultCredentialsPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to read credentials: %s", err)
	}
	creds.ApplyEnv()

	// Open the seen store early so -clean works without credentials
	tracker, err := seen.New(conf.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open seen store at '%s' with %s", conf.DatabasePath, err)
	}
	defer tracker.Close()

	if clean {
		if err := tracker.Clear(); err != nil {
			log.Fatalf("failed to clear seen store: %v", err)
		}
		slog.Info("seen store cleared")
		return
	}

	// Everything below needs a valid config; fail fast listing every problem
	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid config at '%s':\n%s", cfgPath, err)
	}
	if dryRun {
		if !creds.OpenRouter.IsValid() {
			log.Fatal("openrouter api_key and model are required even for a dry run")
		}
	} else if err := creds.Validate(); err != nil {
		log.Fatalf("missing credentials:\n%s", err)
	}

	if stats, err := tracker.Stats(); err != nil {
		slog.Warn("failed to get seen store stats", "error", err)
	} else {
		slog.Info("seen store opened",
			"seen_entries", stats.SeenEntries,
			"cached_summaries", stats.CachedSummaries)
	}

	// Optional interests file becomes the "interests" keyword filter
	filters := conf.Filters
	if conf.InterestsPath != "" {
		keywords, err := filter.LoadInterests(conf.InterestsPath)
		if err != nil {
			log.Fatalf("failed to load interests: %s", err)
		}
		if filters == nil {
			filters = make(map[string]config.Filter)
		}
		f := filters["interests"]
		f.IncludeKeywords = append(f.IncludeKeywords, keywords...)
		filters["interests"] = f
		slog.Info("loaded interests", "keywords", len(keywords))
	}

	filterPipeline, err := filter.NewFilterPipeline(filters)
	if err != nil {
		log.Fatalf("failed to initialize filters: %s", err)
	}

	sum, err := summarizer.New(creds.OpenRouter, conf.MaxArticleChars, conf.MaxSummaryTokens)
	if err != nil {
		log.Fatalf("failed to initialize summarizer: %s", err)
	}

	// Authenticate with Discord before any feed is fetched; a bad token
	// aborts the whole run with a non-zero exit.
	var sink notifier.Notifier
	if dryRun {
		sink = notifier.NewDryRun()
	} else {
		sink, err = notifier.NewDiscord(creds.Discord.BotToken, creds.Discord.UserID)
		if err != nil {
			log.Fatalf("failed to initialize notifier: %s", err)
		}
	}
	defer sink.Close()

	var noteWriter *notes.Writer
	if conf.NotesDirectory != "" {
		noteWriter = notes.NewWriter(conf.NotesDirectory)
	}

	p := &pipeline{
		fetcher:      fetcher.NewRSSFetcher(conf.FetchTimeout.Duration),
		tracker:      tracker,
		filters:      filterPipeline,
		extractor:    extract.New(conf.FetchTimeout.Duration),
		summarizer:   summarizer.WithRetry(sum, summarizer.DefaultRetryConfig()),
		notifier:     sink,
		notes:        noteWriter,
		dryRun:       dryRun,
		minBodyChars: conf.MinBodyChars,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func() {
		stats, err := p.run(ctx, conf.Feeds, conf.FetchWorkers)
		slog.Info("run complete",
			"fetched", stats.Fetched,
			"already_seen", stats.AlreadySeen,
			"filtered", stats.Filtered,
			"summarized", stats.Summarized,
			"delivered", stats.Delivered,
			"failed", stats.Failed)
		if err != nil {
			slog.Error("run finished with errors", "errors", err.Error())
		}
	}

	runOnce()
	if interval <= 0 {
		return
	}

	slog.Info("polling", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("interrupted, exiting gracefully")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
