package crawler

import (
	"strings"
	"testing"
)

func TestParsePage(t *testing.T) {
	t.Parallel()

	t.Run("extracts all metadata fields", func(t *testing.T) {
		t.Parallel()

		const page = `<!DOCTYPE html>
<html>
<head>
	<title>  Widgets — Example Shop  </title>
	<meta name="description" content="All about widgets.">
	<link rel="canonical" href="https://example.com/widgets">
</head>
<body>
	<h1> Widgets </h1>
	<h2>Small widgets</h2>
	<h2>Large widgets</h2>
	<p>We sell fine widgets here.</p>
	<img src="a.png" alt="a widget">
	<img src="b.png" alt="">
	<img src="c.png">
	<a href="/about">About</a>
	<a href="/contact">Contact</a>
</body>
</html>`

		meta, err := ParsePage(strings.NewReader(page))
		if err != nil {
			t.Fatalf("ParsePage() unexpected error: %v", err)
		}

		if meta.Title != "Widgets — Example Shop" {
			t.Errorf("Title = %q, want %q", meta.Title, "Widgets — Example Shop")
		}
		if meta.MetaDescription != "All about widgets." {
			t.Errorf("MetaDescription = %q, want %q", meta.MetaDescription, "All about widgets.")
		}
		if meta.Canonical != "https://example.com/widgets" {
			t.Errorf("Canonical = %q, want %q", meta.Canonical, "https://example.com/widgets")
		}
		if meta.H1 != "Widgets" {
			t.Errorf("H1 = %q, want %q", meta.H1, "Widgets")
		}
		if meta.H2Count != 2 {
			t.Errorf("H2Count = %d, want 2", meta.H2Count)
		}
		if meta.ImgCount != 3 {
			t.Errorf("ImgCount = %d, want 3", meta.ImgCount)
		}
		// Empty alt="" still counts as present; a missing alt does not.
		if meta.ImgWithAlt != 2 {
			t.Errorf("ImgWithAlt = %d, want 2", meta.ImgWithAlt)
		}
		if len(meta.Hrefs) != 2 || meta.Hrefs[0] != "/about" || meta.Hrefs[1] != "/contact" {
			t.Errorf("Hrefs = %v, want [/about /contact]", meta.Hrefs)
		}
	})

	t.Run("first occurrence wins for singular fields", func(t *testing.T) {
		t.Parallel()

		const page = `<html><head>
<title>First</title>
<title>Second</title>
<meta name="description" content="first desc">
<meta name="description" content="second desc">
<link rel="canonical" href="/first">
<link rel="canonical" href="/second">
</head><body>
<h1>First Heading</h1>
<h1>Second Heading</h1>
</body></html>`

		meta, err := ParsePage(strings.NewReader(page))
		if err != nil {
			t.Fatalf("ParsePage() unexpected error: %v", err)
		}

		if meta.Title != "First" {
			t.Errorf("Title = %q, want %q", meta.Title, "First")
		}
		if meta.MetaDescription != "first desc" {
			t.Errorf("MetaDescription = %q, want %q", meta.MetaDescription, "first desc")
		}
		if meta.Canonical != "/first" {
			t.Errorf("Canonical = %q, want %q", meta.Canonical, "/first")
		}
		if meta.H1 != "First Heading" {
			t.Errorf("H1 = %q, want %q", meta.H1, "First Heading")
		}
	})

	t.Run("missing fields stay at defaults", func(t *testing.T) {
		t.Parallel()

		meta, err := ParsePage(strings.NewReader("<html><body><p>just text</p></body></html>"))
		if err != nil {
			t.Fatalf("ParsePage() unexpected error: %v", err)
		}

		if meta.Title != "" || meta.MetaDescription != "" || meta.Canonical != "" || meta.H1 != "" {
			t.Errorf("singular fields not empty: %+v", meta)
		}
		if meta.H2Count != 0 || meta.ImgCount != 0 || meta.ImgWithAlt != 0 {
			t.Errorf("counts not zero: %+v", meta)
		}
		if meta.WordCount != 2 {
			t.Errorf("WordCount = %d, want 2", meta.WordCount)
		}
	})

	t.Run("word count skips script and style text", func(t *testing.T) {
		t.Parallel()

		const page = `<html><head>
<style>body { color: red; }</style>
</head><body>
<p>one two three</p>
<script>var ignored = "these words do not count";</script>
<noscript>also ignored entirely here</noscript>
</body></html>`

		meta, err := ParsePage(strings.NewReader(page))
		if err != nil {
			t.Fatalf("ParsePage() unexpected error: %v", err)
		}
		if meta.WordCount != 3 {
			t.Errorf("WordCount = %d, want 3", meta.WordCount)
		}
	})

	t.Run("word count ignores head text", func(t *testing.T) {
		t.Parallel()

		const page = `<html><head><title>Five Words In The Title</title></head><body>only these count</body></html>`

		meta, err := ParsePage(strings.NewReader(page))
		if err != nil {
			t.Fatalf("ParsePage() unexpected error: %v", err)
		}
		if meta.WordCount != 3 {
			t.Errorf("WordCount = %d, want 3", meta.WordCount)
		}
	})

	t.Run("rel attribute with multiple tokens", func(t *testing.T) {
		t.Parallel()

		const page = `<html><head><link rel="alternate canonical" href="/multi"></head><body></body></html>`

		meta, err := ParsePage(strings.NewReader(page))
		if err != nil {
			t.Fatalf("ParsePage() unexpected error: %v", err)
		}
		if meta.Canonical != "/multi" {
			t.Errorf("Canonical = %q, want %q", meta.Canonical, "/multi")
		}
	})

	t.Run("attribute names match case-insensitively", func(t *testing.T) {
		t.Parallel()

		const page = `<html><head><META NAME="Description" CONTENT="upper"></head><body><IMG SRC="x.png" ALT="pic"></body></html>`

		meta, err := ParsePage(strings.NewReader(page))
		if err != nil {
			t.Fatalf("ParsePage() unexpected error: %v", err)
		}
		if meta.MetaDescription != "upper" {
			t.Errorf("MetaDescription = %q, want %q", meta.MetaDescription, "upper")
		}
		if meta.ImgWithAlt != 1 {
			t.Errorf("ImgWithAlt = %d, want 1", meta.ImgWithAlt)
		}
	})

	t.Run("malformed HTML still parses", func(t *testing.T) {
		t.Parallel()

		// Unclosed tags are the norm on the real web, not the exception.
		const page = `<html><body><h1>Heading<p>some text<a href="/link">go`

		meta, err := ParsePage(strings.NewReader(page))
		if err != nil {
			t.Fatalf("ParsePage() unexpected error: %v", err)
		}
		if len(meta.Hrefs) != 1 || meta.Hrefs[0] != "/link" {
			t.Errorf("Hrefs = %v, want [/link]", meta.Hrefs)
		}
	})

	t.Run("anchor without href contributes nothing", func(t *testing.T) {
		t.Parallel()

		meta, err := ParsePage(strings.NewReader(`<html><body><a name="anchor">here</a></body></html>`))
		if err != nil {
			t.Fatalf("ParsePage() unexpected error: %v", err)
		}
		if len(meta.Hrefs) != 0 {
			t.Errorf("Hrefs = %v, want empty", meta.Hrefs)
		}
	})
}
