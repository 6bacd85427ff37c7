package cache

import "time"

// CurrentVersion is the on-disk format tag. Bumping it hides every entry
// written under an older tag unless a migration is registered for it.
const CurrentVersion = 1

// Entry is one cached GET result.
type Entry struct {
	Version    int       `json:"version"`
	RequestURL string    `json:"request_url"`
	StatusCode int       `json:"status_code"`
	Content    []byte    `json:"content"`
	URL        string    `json:"url"`
	Encoding   string    `json:"encoding"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// MigrateFunc lifts an entry from version N to N+1 in place.
type MigrateFunc func(e *Entry) error
