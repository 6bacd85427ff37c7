// Package canonical rewrites references to French legislative documents into
// one stable form per resource.
package canonical

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pfczx/legiurls/internal/logger"
	"github.com/pfczx/legiurls/internal/resolver"
)

// DefaultMaxHops bounds the chain of URLs re-derived from fetched pages.
const DefaultMaxHops = 10

// ErrTooManyHops means the rewrite chain did not settle within MaxHops.
var ErrTooManyHops = errors.New("too many rewrite hops")

const (
	assembleeHost   = "assemblee-nationale.fr"
	assembleeBase   = "http://www.assemblee-nationale.fr"
	councilHost     = "conseil-constitutionnel.fr"
	councilFragment = "www.conseil-constitutionnel.fr"
	legifranceHost  = "legifrance.gouv.fr"
	senatHost       = "senat.fr"
)

var reCleanEndingDigits = regexp.MustCompile(`(\d+\.asp)[\dl]+$`)

// Resolver derives a successor URL from a fetched page.
type Resolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// Canonicalizer applies the rewrite rules. It holds no per-call state.
type Canonicalizer struct {
	fetcher resolver.Fetcher
	stable  Resolver
	jo      Resolver
	maxHops int
	log     logger.Interface
}

// Option configures a Canonicalizer.
type Option func(*Canonicalizer)

// WithLogger injects the logger.
func WithLogger(l logger.Interface) Option {
	return func(c *Canonicalizer) { c.log = l }
}

// WithMaxHops overrides DefaultMaxHops.
func WithMaxHops(n int) Option {
	return func(c *Canonicalizer) { c.maxHops = n }
}

// New returns a Canonicalizer whose resolvers fetch through f.
func New(f resolver.Fetcher, opts ...Option) *Canonicalizer {
	c := &Canonicalizer{
		fetcher: f,
		maxHops: DefaultMaxHops,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stable = resolver.NewStableLink(f, c.log)
	c.jo = resolver.NewJOLink(f, c.log)
	return c
}

// Canonicalize returns the canonical form of rawURL. URLs no rule recognizes
// come back with only generic repairs applied. Errors come from fetches
// made while resolving, or from a chain longer than MaxHops.
func (c *Canonicalizer) Canonicalize(ctx context.Context, rawURL string) (string, error) {
	return c.canonicalize(ctx, rawURL, 0)
}

func (c *Canonicalizer) follow(ctx context.Context, from, to string, hops int) (string, error) {
	if hops >= c.maxHops {
		return "", fmt.Errorf("%w: %d hops from %s", ErrTooManyHops, hops, from)
	}
	c.log.Debug("following rewritten url", "from", from, "to", to, "hop", hops+1)
	return c.canonicalize(ctx, to, hops+1)
}

func (c *Canonicalizer) canonicalize(ctx context.Context, rawURL string, hops int) (string, error) {
	s := preClean(strings.TrimSpace(rawURL))
	s = repairScheme(s)

	if strings.Contains(s, councilHost) {
		s = extractCouncil(s)
		resolved, err := c.stable.Resolve(ctx, s)
		if err != nil {
			return "", err
		}
		s = resolved
	}

	p := split(s)

	if strings.Contains(p.host, legifranceHost) {
		next, done, err := c.legifrance(ctx, s, &p)
		if err != nil {
			return "", err
		}
		if done {
			return c.follow(ctx, s, next, hops)
		}
	}

	if strings.Contains(p.host, senatHost) {
		senat(&p)
	}

	if p.host == "webdim" {
		p.host = "www." + assembleeHost
	}

	if p.host != "" && !strings.Contains(p.host, assembleeHost) && !strings.Contains(p.host, councilHost) {
		p.scheme = "https"
	}

	// Tracking fragments go before the dossier lookup, which reads the
	// fragment as a slug.
	if strings.Contains(p.fragment, "xtor") {
		p.fragment = ""
	}

	// webdim URLs become Assemblée URLs above, so look at the host too.
	if strings.Contains(s, assembleeHost) || strings.Contains(p.host, assembleeHost) {
		p.path = reCleanEndingDigits.ReplaceAllString(p.path, "${1}")
		if strings.Contains(p.path, "/dossiers/") {
			if dossier, ok := assembleeDossier(p.String()); ok {
				return dossier, nil
			}
		}
	}

	return p.String(), nil
}

// legifrance applies the Légifrance rules to p. It reports done with the
// next URL to canonicalize when a fetched page points elsewhere.
func (c *Canonicalizer) legifrance(ctx context.Context, s string, p *parts) (string, bool, error) {
	p.params = ""
	params, _ := url.ParseQuery(p.query)

	if strings.Contains(p.path, "WAspad") {
		resp, err := c.fetcher.Fetch(ctx, s)
		if err != nil {
			return "", false, err
		}
		if resp.URL != s {
			return resp.URL, true, nil
		}
	}

	if params.Has("cidTexte") {
		p.query = "cidTexte=" + params.Get("cidTexte")
	} else if strings.HasSuffix(p.path, "jo/texte") {
		next, err := c.jo.Resolve(ctx, s)
		if err != nil {
			return "", false, err
		}
		if next != s {
			return next, true, nil
		}
	}

	if p.host == legifranceHost {
		p.host = "www." + legifranceHost
	}

	if strings.Contains(p.path, "jo_pdf.do") && params.Has("id") {
		p.path = "/affichTexte.do"
		p.query = "cidTexte=" + params.Get("id")
	}

	if strings.HasPrefix(p.query, "cidTexte") {
		p.query += resolver.InitialVersionSuffix
	}

	p.path = strings.ReplaceAll(p.path, "./affichTexte.do", "affichTexte.do")
	return "", false, nil
}

func senat(p *parts) {
	p.path = strings.ReplaceAll(p.path, "leg/../", "")
	p.path = strings.ReplaceAll(p.path, "dossierleg/", "dossier-legislatif/")
	if strings.Contains(p.path, "/dossier-legislatif/") {
		p.query = ""
		p.fragment = ""
	}
}

func assembleeDossier(u string) (string, bool) {
	legislature, slug := ExtractLegislatureAndSlug(u)
	if legislature == 0 || slug == "" {
		return "", false
	}
	if legislature <= lastLegacyLegislature {
		return fmt.Sprintf("%s/%d/dossiers/%s.asp", assembleeBase, legislature, slug), true
	}
	return fmt.Sprintf("%s/dyn/%d/dossiers/%s", assembleeBase, legislature, slug), true
}

// preClean fixes references scraped without a scheme or behind a /leg/ prefix.
func preClean(s string) string {
	if strings.HasPrefix(s, "www") {
		s = "http://" + s
	}
	if strings.HasPrefix(s, "/leg/http") {
		s = s[len("/leg/"):]
	}
	return s
}

// repairScheme keeps what follows the last scheme marker when two URLs were
// glued together, e.g. pjl09-518.htmlhttp://www.assemblee-nationale.fr/13/ta/ta0518.asp.
func repairScheme(s string) string {
	if i := strings.LastIndex(s, "https://"); i > 0 {
		s = s[i:]
	}
	if i := strings.LastIndex(s, "http://"); i > 0 {
		s = s[i:]
	}
	return s
}

// extractCouncil cuts a Council URL glued onto another one, e.g.
// http://www.senat.fr/dossier-legislatif/www.conseil-constitutionnel.fr/decision/2012/2012646dc.htm.
func extractCouncil(s string) string {
	i := strings.Index(s, councilFragment)
	if i <= 0 {
		return s
	}
	switch s[:i] {
	case "http://", "https://", "//":
		return s
	}
	return "http://" + s[i:]
}
