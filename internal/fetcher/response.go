package fetcher

import (
	"mime"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/pfczx/legiurls/internal/cache"
)

// Response is the subset of an HTTP response the resolvers need.
type Response struct {
	StatusCode int
	Content    []byte
	Encoding   string
	// URL is the location after redirects.
	URL string
}

// Text decodes Content using Encoding, or the document's own declaration when
// no charset was sent. Undeclared content that is valid UTF-8 is read as such.
func (r *Response) Text() string {
	contentType := "text/html"
	if r.Encoding != "" {
		contentType += "; charset=" + r.Encoding
	}
	enc, _, certain := charset.DetermineEncoding(r.Content, contentType)
	// Detection only sniffs the first 1024 bytes and defaults to windows-1252.
	if !certain && utf8.Valid(r.Content) {
		return string(r.Content)
	}
	out, err := enc.NewDecoder().Bytes(r.Content)
	if err != nil {
		return string(r.Content)
	}
	return string(out)
}

func (r *Response) entry() cache.Entry {
	return cache.Entry{
		StatusCode: r.StatusCode,
		Content:    r.Content,
		URL:        r.URL,
		Encoding:   r.Encoding,
	}
}

func fromEntry(e *cache.Entry) *Response {
	return &Response{
		StatusCode: e.StatusCode,
		Content:    e.Content,
		Encoding:   e.Encoding,
		URL:        e.URL,
	}
}

func encodingOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
