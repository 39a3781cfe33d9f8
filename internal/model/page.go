package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// PageRecord is the SEO metadata snapshot produced for one crawled URL.
// A record is immutable once the crawler emits it.
//
// A StatusCode of 0 means the fetch failed at the transport level (DNS
// failure, connection refused, timeout) and no HTTP response was received.
// For non-HTML or non-2xx responses only URL and StatusCode are populated;
// all metadata fields keep their zero values.
type PageRecord struct {
	// URL is the normalized URL of the page.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code, or 0 on transport failure.
	StatusCode int `json:"statusCode"`

	// Title is the trimmed text of the first <title> element.
	Title string `json:"title"`

	// MetaDescription is the content attribute of <meta name="description">.
	MetaDescription string `json:"metaDescription"`

	// Canonical is the href attribute of <link rel="canonical">, as written
	// in the page. It is reported verbatim, not normalized.
	Canonical string `json:"canonical"`

	// H1 is the trimmed text of the first <h1> element.
	H1 string `json:"h1"`

	// H2Count is the number of <h2> elements on the page.
	H2Count int `json:"h2Count"`

	// ImgCount is the number of <img> elements on the page.
	ImgCount int `json:"imgCount"`

	// ImgWithAlt is the number of <img> elements carrying an alt attribute.
	// An empty alt value still counts: alt="" is a deliberate accessibility
	// choice, unlike a missing attribute.
	ImgWithAlt int `json:"imgWithAlt"`

	// WordCount is the number of whitespace-delimited tokens in the visible
	// text of <body>.
	WordCount int `json:"wordCount"`

	// ContentType is the MIME type from the Content-Type response header.
	// Internal only; it is not part of the event stream payload.
	ContentType string `json:"-"`

	// ContentHash is the hex BLAKE2b-256 digest of the raw response body.
	// Used by the duplicate-content audit check and the crawl archive.
	// Empty when no body was read.
	ContentHash string `json:"-"`
}

// ComputeHash calculates and sets the BLAKE2b-256 hash of the page body.
// Call it after the body has been read; an empty body clears the hash.
func (p *PageRecord) ComputeHash(body []byte) {
	if len(body) == 0 {
		p.ContentHash = ""
		return
	}
	sum := blake2b.Sum256(body)
	p.ContentHash = hex.EncodeToString(sum[:])
}

// Succeeded reports whether the fetch completed with an HTTP 2xx status.
// Link discovery and metadata extraction only happen for successful pages.
func (p *PageRecord) Succeeded() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// IsHTML reports whether the response content type indicates an HTML
// document. Content types may carry a charset suffix such as
// "text/html; charset=utf-8".
func (p *PageRecord) IsHTML() bool {
	return IsHTMLContentType(p.ContentType)
}

// IsHTMLContentType reports whether a Content-Type header value names an
// HTML document.
func IsHTMLContentType(contentType string) bool {
	mediaType := contentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
