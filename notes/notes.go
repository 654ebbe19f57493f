// Package notes archives every delivered summary as a local text file.
package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Titles are cut to this many characters when used as filenames
const maxFilenameChars = 50

// Writer saves summary notes under a single directory
type Writer struct {
	dir string
}

// NewWriter creates a notes writer rooted at dir
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Save writes one note and returns its path. An existing note for the
// same title is overwritten.
func (w *Writer) Save(title, link, summary string) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create notes directory at '%s': %w", w.dir, err)
	}

	path := filepath.Join(w.dir, Filename(title))
	content := fmt.Sprintf("Title: %s\nURL: %s\n\nAI Summary:\n%s\n", title, link, summary)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write note at '%s': %w", path, err)
	}

	return path, nil
}

// Filename derives a safe note filename from an entry title: only
// alphanumerics and a small punctuation set survive, length capped.
func Filename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("-_ ()[]", r):
			b.WriteRune(r)
		}
	}

	safe := b.String()
	if runes := []rune(safe); len(runes) > maxFilenameChars {
		safe = string(runes[:maxFilenameChars])
	}
	safe = strings.TrimSpace(safe)
	if safe == "" {
		safe = "untitled"
	}

	return safe + ".txt"
}
