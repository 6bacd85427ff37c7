package canonical

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// parts is a URL split the way the rewrite rules need it. Path, query and
// fragment stay escaped so untouched components round-trip byte for byte.
type parts struct {
	scheme   string
	host     string
	path     string
	params   string
	query    string
	fragment string
}

var reDuplicateSlashes = regexp.MustCompile(`/{2,}`)

// split decomposes raw. Input net/url rejects, such as a stray % in the path,
// is cut on the delimiters alone so the rules still apply to it.
func split(raw string) parts {
	u, err := url.Parse(raw)
	if err != nil || u.Opaque != "" {
		return splitLenient(raw)
	}
	purell.NormalizeURL(u, purell.FlagRemoveDuplicateSlashes)

	p := parts{
		scheme:   u.Scheme,
		host:     u.Host,
		query:    u.RawQuery,
		fragment: u.EscapedFragment(),
	}
	if u.User != nil {
		p.host = u.User.String() + "@" + u.Host
	}
	p.path, p.params = splitParams(u.EscapedPath())
	return p
}

func splitLenient(raw string) parts {
	var p parts
	rest := raw
	if i := strings.Index(rest, "#"); i >= 0 {
		rest, p.fragment = rest[:i], rest[i+1:]
	}
	if i := strings.Index(rest, "?"); i >= 0 {
		rest, p.query = rest[:i], rest[i+1:]
	}
	if i := strings.Index(rest, "://"); i > 0 && !strings.ContainsAny(rest[:i], "/.") {
		p.scheme, rest = strings.ToLower(rest[:i]), rest[i+len("://"):]
		if j := strings.Index(rest, "/"); j >= 0 {
			p.host, rest = rest[:j], rest[j:]
		} else {
			p.host, rest = rest, ""
		}
	}
	p.path, p.params = splitParams(reDuplicateSlashes.ReplaceAllString(rest, "/"))
	return p
}

// splitParams separates ;params from the last path segment.
func splitParams(path string) (string, string) {
	slash := strings.LastIndex(path, "/")
	i := strings.Index(path[slash+1:], ";")
	if i < 0 {
		return path, ""
	}
	i += slash + 1
	return path[:i], path[i+1:]
}

func (p parts) String() string {
	var b strings.Builder
	if p.scheme != "" {
		b.WriteString(p.scheme)
		b.WriteString(":")
	}
	if p.host != "" || p.scheme != "" {
		b.WriteString("//")
		b.WriteString(p.host)
		if p.path != "" && !strings.HasPrefix(p.path, "/") {
			b.WriteString("/")
		}
	}
	b.WriteString(p.path)
	if p.params != "" {
		b.WriteString(";")
		b.WriteString(p.params)
	}
	if p.query != "" {
		b.WriteString("?")
		b.WriteString(p.query)
	}
	if p.fragment != "" {
		b.WriteString("#")
		b.WriteString(p.fragment)
	}
	return b.String()
}
