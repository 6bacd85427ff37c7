package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/pfczx/legiurls/internal/logger"
)

const legifranceBase = "https://www.legifrance.gouv.fr/"

// InitialVersionSuffix makes Légifrance show the text as first published.
const InitialVersionSuffix = "&categorieLien=id"

var reAffichTexte = regexp.MustCompile(`affichTexte\.do\?cidTexte=[A-Za-z0-9]+(?:&amp;|&)dateTexte=[0-9]*`)

// JOLink turns a Légifrance .../jo/texte page into the affichTexte.do link it embeds.
type JOLink struct {
	fetcher Fetcher
	log     logger.Interface
}

// NewJOLink returns a JOLink resolver.
func NewJOLink(f Fetcher, log logger.Interface) *JOLink {
	if log == nil {
		log = logger.NewNop()
	}
	return &JOLink{fetcher: f, log: log}
}

// Resolve returns the embedded official text link, or joURL unchanged when
// the page has none.
func (j *JOLink) Resolve(ctx context.Context, joURL string) (string, error) {
	resp, err := j.fetcher.Fetch(ctx, joURL)
	if err != nil {
		return "", err
	}

	link := reAffichTexte.FindString(resp.Text())
	if link == "" {
		j.log.Warn("official text link not found", "url", joURL)
		return joURL, nil
	}
	link = strings.ReplaceAll(link, "&amp;", "&")
	return legifranceBase + link + InitialVersionSuffix, nil
}
