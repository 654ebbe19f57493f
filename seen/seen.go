package seen

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Tracker persists processed entry identifiers across runs, plus a
// summary cache so a delivery failure does not re-bill the
// summarization API on the next run.
type Tracker struct {
	db *sql.DB
}

// Stats contains tracker statistics
type Stats struct {
	SeenEntries     int
	CachedSummaries int
	OldestEntry     time.Time
}

// New initializes the tracker database at the given path
func New(dbPath string) (*Tracker, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create tracker directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracker database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tracker schema: %w", err)
	}

	return &Tracker{db: db}, nil
}

// IsNew reports whether the entry has not been processed yet. A read
// error degrades to "new" with a warning: a duplicate notification is
// preferable to losing one.
func (t *Tracker) IsNew(id string) (bool, error) {
	var exists int
	err := t.db.QueryRow("SELECT 1 FROM seen_entries WHERE id = ?", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		slog.Warn("seen store read error, treating entry as new", "error", err, "id", truncate(id, 50))
		return true, nil
	}
	return false, nil
}

// MarkSeen records the entry as processed. Entries are never removed.
func (t *Tracker) MarkSeen(id, feedURL, title string) error {
	_, err := t.db.Exec(`
		INSERT OR REPLACE INTO seen_entries (id, feed_url, title, seen_at)
		VALUES (?, ?, ?, ?)
	`, id, feedURL, title, time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to mark entry seen: %w", err)
	}
	return nil
}

// GetSummary retrieves a cached summary for the entry and model.
// Returns: (summary, found, error)
func (t *Tracker) GetSummary(entryID, model string) (string, bool, error) {
	var summary string
	err := t.db.QueryRow(
		"SELECT summary FROM summary_cache WHERE entry_id = ? AND model = ?",
		entryID, model,
	).Scan(&summary)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		slog.Warn("summary cache read error", "error", err, "id", truncate(entryID, 50))
		return "", false, nil // Treat errors as cache miss
	}

	return summary, true, nil
}

// SetSummary stores a summary in the cache
func (t *Tracker) SetSummary(entryID, model, summary string) error {
	_, err := t.db.Exec(`
		INSERT OR REPLACE INTO summary_cache (entry_id, model, summary, created_at)
		VALUES (?, ?, ?, ?)
	`, entryID, model, summary, time.Now().Unix())

	if err != nil {
		slog.Warn("summary cache write error", "error", err, "id", truncate(entryID, 50))
		return err
	}
	return nil
}

// Clear removes all seen entries and cached summaries
func (t *Tracker) Clear() error {
	if _, err := t.db.Exec("DELETE FROM seen_entries"); err != nil {
		return fmt.Errorf("failed to clear seen entries: %w", err)
	}
	if _, err := t.db.Exec("DELETE FROM summary_cache"); err != nil {
		return fmt.Errorf("failed to clear summary cache: %w", err)
	}
	return nil
}

// Stats returns tracker statistics
func (t *Tracker) Stats() (Stats, error) {
	var stats Stats

	err := t.db.QueryRow("SELECT COUNT(*) FROM seen_entries").Scan(&stats.SeenEntries)
	if err != nil {
		return stats, err
	}

	err = t.db.QueryRow("SELECT COUNT(*) FROM summary_cache").Scan(&stats.CachedSummaries)
	if err != nil {
		return stats, err
	}

	var oldestUnix sql.NullInt64
	err = t.db.QueryRow("SELECT MIN(seen_at) FROM seen_entries").Scan(&oldestUnix)
	if err != nil && err != sql.ErrNoRows {
		return stats, err
	}
	if oldestUnix.Valid && oldestUnix.Int64 > 0 {
		stats.OldestEntry = time.Unix(oldestUnix.Int64, 0)
	}

	return stats, nil
}

// Close closes the tracker database
func (t *Tracker) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
