package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/BurntSushi/toml"
)

const baseCfgPath = "feeddigest/config.toml"

type Config struct {
	Feeds            []FeedConfig      `toml:"feeds"`
	DatabasePath     string            `toml:"database_path"`
	NotesDirectory   string            `toml:"notes_directory"` // Directory for summary note files ("" disables notes)
	InterestsPath    string            `toml:"interests_path"`  // File with interest keywords, registered as the "interests" filter
	MaxArticleChars  int               `toml:"max_article_chars"`
	MaxSummaryTokens int               `toml:"max_summary_tokens"`
	MinBodyChars     int               `toml:"min_body_chars"` // Below this the article page is fetched for full text
	FetchWorkers     int               `toml:"fetch_workers"`
	FetchTimeout     duration          `toml:"fetch_timeout"`
	Filters          map[string]Filter `toml:"filters"` // Named filters that can be referenced by feeds
}

type FeedConfig struct {
	URL         string   `toml:"url"`
	Name        string   `toml:"name"`
	Enabled     *bool    `toml:"enabled"` // Whether this feed is active (defaults to true if not set)
	FilterNames []string `toml:"filters"` // Names of filters to apply (pipeline)
}

// Filter defines rules for filtering feed entries
type Filter struct {
	MinLength         int      `toml:"min_length"`         // Minimum character count (0 = no limit)
	MinWords          int      `toml:"min_words"`          // Minimum word count (0 = no limit)
	ExcludePatterns   []string `toml:"exclude_patterns"`   // Regex patterns to exclude
	IncludeKeywords   []string `toml:"include_keywords"`   // Entry must mention at least one (empty = no requirement)
	RequireParagraphs bool     `toml:"require_paragraphs"` // Must have multiple lines/paragraphs
}

// duration wraps time.Duration for TOML decoding ("30s", "2m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsEnabled returns true if the feed is enabled (defaults to true if not explicitly set)
func (f FeedConfig) IsEnabled() bool {
	if f.Enabled == nil {
		return true
	}
	return *f.Enabled
}

// DisplayName returns the configured name, falling back to the URL.
func (f FeedConfig) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.URL
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	slog.Info("config written", "at", cfgPath)
	return nil
}

// Validate reports every problem at once so a broken config can be
// fixed in a single pass.
func (c Config) Validate() error {
	var errs []error
	enabled := 0
	for i, f := range c.Feeds {
		if f.URL == "" {
			errs = append(errs, fmt.Errorf("feeds[%d]: url is required", i))
		}
		if f.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		errs = append(errs, errors.New("at least one enabled feed is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.MaxArticleChars <= 0 {
		errs = append(errs, errors.New("max_article_chars must be positive"))
	}
	if c.FetchWorkers <= 0 {
		errs = append(errs, errors.New("fetch_workers must be positive"))
	}
	return errors.Join(errs...)
}

func Default() Config {
	var dbBase = path.Join(os.Getenv("HOME"), ".local/share/feeddigest")
	var home = os.Getenv("HOME")
	return Config{
		DatabasePath:     path.Join(dbBase, "data.db"),
		NotesDirectory:   path.Join(home, "feeddigest", "notes"),
		MaxArticleChars:  8000,
		MaxSummaryTokens: 200,
		MinBodyChars:     280,
		FetchWorkers:     1,
		FetchTimeout:     duration{30 * time.Second},
		Feeds:            []FeedConfig{},
	}
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	panic("unclear where to search for the config file")
}
