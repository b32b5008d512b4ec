package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is the raw markup fetched for a single URL.
type Page struct {
	// URL is the address that was requested.
	URL string

	// StatusCode is the HTTP status code. Cached pages report 200.
	StatusCode int

	// Headers are the response HTTP headers, empty for cached pages.
	Headers http.Header

	// Body is the raw markup.
	Body []byte

	// FromCache is true when the body was served by the on-disk cache.
	FromCache bool

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when this page was received.
	FetchedAt time.Time

	doc *goquery.Document
}

// NewPage creates a Page from a fetched body.
func NewPage(rawURL string, statusCode int, headers http.Header, body []byte, duration time.Duration) *Page {
	if headers == nil {
		headers = make(http.Header)
	}
	return &Page{
		URL:           rawURL,
		StatusCode:    statusCode,
		Headers:       headers,
		Body:          body,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// Markup returns the body as a string.
func (p *Page) Markup() string {
	return string(p.Body)
}

// Document returns a parsed goquery document, lazily initializing it.
func (p *Page) Document() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	p.doc = doc
	return doc, nil
}
