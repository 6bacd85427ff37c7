// Package fetchertest serves canned responses for hard-coded hosts so tests
// never leave the process.
package fetchertest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Page is a canned answer.
type Page struct {
	Status      int
	Body        string
	ContentType string
	// Location makes the page a 302 redirect.
	Location string
}

// Transport is an http.RoundTripper answering from a URL-keyed table.
// Unknown URLs get a 404.
type Transport struct {
	mu    sync.Mutex
	pages map[string][]Page
	hits  map[string]int
	agent []string
}

// New returns an empty Transport.
func New() *Transport {
	return &Transport{
		pages: make(map[string][]Page),
		hits:  make(map[string]int),
	}
}

// Handle registers pages answered in order for url; the last one repeats.
func (t *Transport) Handle(url string, pages ...Page) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages[url] = append(t.pages[url], pages...)
	return t
}

// Client wraps the transport in an http.Client.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// Hits returns how many requests url received.
func (t *Transport) Hits(url string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hits[url]
}

// UserAgents returns the User-Agent of every request seen.
func (t *Transport) UserAgents() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.agent...)
}

// ErrRefused simulates a connection failure.
var ErrRefused = errors.New("connection refused")

// Refused is a Page status answered with ErrRefused instead of a response.
const Refused = -1

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()

	t.mu.Lock()
	n := t.hits[url]
	t.hits[url]++
	t.agent = append(t.agent, req.Header.Get("User-Agent"))
	pages := t.pages[url]
	t.mu.Unlock()

	if len(pages) == 0 {
		return respond(req, Page{Status: http.StatusNotFound, Body: "not found"}), nil
	}
	page := pages[len(pages)-1]
	if n < len(pages) {
		page = pages[n]
	}
	if page.Status == Refused {
		return nil, fmt.Errorf("dial %s: %w", req.URL.Host, ErrRefused)
	}
	return respond(req, page), nil
}

func respond(req *http.Request, page Page) *http.Response {
	status := page.Status
	if status == 0 {
		status = http.StatusOK
	}
	header := make(http.Header)
	if page.ContentType != "" {
		header.Set("Content-Type", page.ContentType)
	}
	if page.Location != "" {
		if page.Status == 0 {
			status = http.StatusFound
		}
		header.Set("Location", page.Location)
	}
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(page.Body)),
		ContentLength: int64(len(page.Body)),
		Request:       req,
	}
}
