// Package batch canonicalizes lists of URLs, one after another or in parallel.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pfczx/legiurls/internal/logger"
)

// Canonicalizer is what a batch runs.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, url string) (string, error)
}

// Result is the outcome for one input URL.
type Result struct {
	Raw       string
	Canonical string
	Err       error
}

// Run canonicalizes urls and streams results on the returned channel, which is
// closed once every URL is done. Sequential runs keep input order; parallel
// runs use up to workers goroutines. Errors stay in Result and never stop the run.
func Run(ctx context.Context, c Canonicalizer, urls []string, parallel bool, workers int, log logger.Interface) <-chan Result {
	if log == nil {
		log = logger.NewNop()
	}
	if workers <= 0 || !parallel {
		workers = 1
	}
	out := make(chan Result)

	go func() {
		defer close(out)

		g := new(errgroup.Group)
		g.SetLimit(workers)

		for _, u := range urls {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res := canonicalize(ctx, c, u, log)
				select {
				case <-ctx.Done():
				case out <- res:
				}
				return nil
			})
		}
		_ = g.Wait()
		log.Info("batch finished", "urls", len(urls), "parallel", parallel)
	}()

	return out
}

func canonicalize(ctx context.Context, c Canonicalizer, raw string, log logger.Interface) Result {
	canonical, err := c.Canonicalize(ctx, raw)
	if err != nil {
		log.Error("canonicalization failed", "url", raw, "error", err)
		return Result{Raw: raw, Err: err}
	}
	log.Debug("canonicalized", "url", raw, "canonical", canonical)
	return Result{Raw: raw, Canonical: canonical}
}
