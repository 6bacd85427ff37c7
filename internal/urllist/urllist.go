// Package urllist reads and writes newline separated URL files.
package urllist

import (
	"os"
	"strings"
)

// Save writes one URL per line.
func Save(filename string, urls []string) error {
	content := strings.Join(urls, "\n")
	if content != "" {
		content += "\n"
	}
	return os.WriteFile(filename, []byte(content), 0o644)
}

// Load reads a URL file, skipping blank lines and # comments.
func Load(filename string) ([]string, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(string(bytes)), nil
}

// Parse splits text into URLs the way Load does.
func Parse(text string) []string {
	urls := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}
