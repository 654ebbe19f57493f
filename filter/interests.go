package filter

import (
	"fmt"
	"os"
	"strings"
)

// LoadInterests reads interest keywords from a file: whitespace
// separated words, one topic per token, case-insensitive, duplicates
// collapsed. The result is meant to feed a keyword filter so only
// entries touching the user's interests get delivered.
func LoadInterests(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interests file at '%s': %w", path, err)
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, field := range strings.Fields(string(data)) {
		kw := strings.ToLower(field)
		if seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}

	return keywords, nil
}
