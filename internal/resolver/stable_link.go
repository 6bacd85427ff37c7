package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfczx/legiurls/internal/logger"
)

const (
	councilBase = "https://www.conseil-constitutionnel.fr"
	// breadcrumbSelector covers the legacy #navpath trail and the current one.
	breadcrumbSelector = `#navpath a, .breadcrumb a, nav[aria-label="breadcrumb"] a, [class*="breadcrumb"] a`
)

// legacyDecisionURLs maps known dead decision pages to their stable address.
var legacyDecisionURLs = map[string]string{
	"http://www.conseil-constitutionnel.fr/conseil-constitutionnel/francais/les-decisions/acces-par-date/decisions-depuis-1959/2013/2013-681-dc/decision-n-2013-681-dc-du-5-decembre-2013.138883.html": councilBase + "/decision/2013/2013681DC.htm",
}

var (
	reStableDecision = regexp.MustCompile(`/decision/\d{4}/[^/]+\.htm$`)
	reDecisionByDate = regexp.MustCompile(`/(\d{4})/(?:[^/]+/)*decision-n-(\d{4})-(\d+)-dc-`)
)

// StableLink resolves Conseil constitutionnel decision pages to their
// long-term /decision/{year}/{year}{num}DC.htm address.
type StableLink struct {
	fetcher Fetcher
	log     logger.Interface
}

// NewStableLink returns a StableLink resolver.
func NewStableLink(f Fetcher, log logger.Interface) *StableLink {
	if log == nil {
		log = logger.NewNop()
	}
	return &StableLink{fetcher: f, log: log}
}

// Resolve returns the stable link for a decision URL, or the best URL known
// when none can be derived. Only fetch failures are returned as errors.
func (s *StableLink) Resolve(ctx context.Context, decisionURL string) (string, error) {
	if fixed, ok := legacyDecisionURLs[decisionURL]; ok {
		return fixed, nil
	}

	resp, err := s.fetcher.Fetch(ctx, decisionURL)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		if probe, ok := fallbackDecisionURL(decisionURL); ok {
			probed, err := s.fetcher.Fetch(ctx, probe)
			if err != nil {
				return "", err
			}
			if probed.StatusCode == http.StatusOK {
				return probed.URL, nil
			}
		}
		s.log.Warn("no stable link for decision", "url", decisionURL, "status", resp.StatusCode)
		return resp.URL, nil
	}

	if reStableDecision.MatchString(resp.URL) {
		return resp.URL, nil
	}
	if link, ok := breadcrumbLink(resp.URL, resp.Text()); ok {
		return link, nil
	}

	s.log.Warn("decision breadcrumb not found", "url", decisionURL)
	return resp.URL, nil
}

// fallbackDecisionURL synthesizes the stable address from an access-by-date path,
// e.g. .../2013/2013-681-dc/decision-n-2013-681-dc-du-5-decembre-2013.html.
func fallbackDecisionURL(decisionURL string) (string, bool) {
	m := reDecisionByDate.FindStringSubmatch(decisionURL)
	if m == nil {
		return "", false
	}
	year, num := m[1], m[3]
	return fmt.Sprintf("%s/decision/%s/%s%sDC.htm", councilBase, year, year, num), true
}

// breadcrumbLink returns the last breadcrumb entry pointing at a decision.
func breadcrumbLink(pageURL, html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	var found string
	doc.Find(breadcrumbSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(href, "/decision/") {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		found = base.ResolveReference(ref).String()
	})
	return found, found != ""
}
