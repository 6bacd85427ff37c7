// Package resolver holds the site-specific lookups that derive a successor URL
// from a fetched page.
package resolver

import (
	"context"

	"github.com/pfczx/legiurls/internal/fetcher"
)

// Fetcher is the part of fetcher.Fetcher the resolvers use.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)
}
