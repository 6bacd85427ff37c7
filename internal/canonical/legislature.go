package canonical

import (
	"regexp"
	"strconv"
)

// lastLegacyLegislature is the last legislature served by the .asp site.
const lastLegacyLegislature = 14

var (
	reLegislature = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.-]*://)?[^/]+/(?:dyn/)?(\d+)/`)
	reSlug        = regexp.MustCompile(`/([\w-]+)(?:\.asp)?(?:#([\w-]+))?$`)
)

// ExtractLegislatureAndSlug reads the legislature number and dossier slug of an
// Assemblée nationale URL. Zero and "" mean not found.
//
// Above legislature 14 the .asp page is a redirect shell and the fragment, when
// present, names the real dossier.
func ExtractLegislatureAndSlug(rawURL string) (legislature int, slug string) {
	m := reLegislature.FindStringSubmatch(rawURL)
	if m == nil {
		return 0, ""
	}
	legislature, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, ""
	}

	s := reSlug.FindStringSubmatch(rawURL)
	if s == nil {
		return legislature, ""
	}
	if legislature > lastLegacyLegislature && s[2] != "" {
		return legislature, s[2]
	}
	return legislature, s[1]
}
