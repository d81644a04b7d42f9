package links

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractSameHost(t *testing.T) {
	markup := `<html><body>
		<a href="/blog">Blog</a>
		<a href="#top">Top</a>
		<a href="https://other.com/x">Other</a>
	</body></html>`
	got := Extract(markup, "https://site.com/", nil)
	if diff := cmp.Diff([]string{"https://site.com/blog"}, got); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractSkipsSchemesAndDuplicates(t *testing.T) {
	markup := `
		<a href="javascript:void(0)">js</a>
		<a href="mailto:me@site.com">mail</a>
		<a href="TEL:123">tel</a>
		<a href="about/">About</a>
		<a href="/shop/about#team">About team</a>
		<a href="/shop/about">About again</a>
		<a href="ftp://site.com/file">ftp</a>
		<a>no href</a>`
	got := Extract(markup, "https://site.com/shop/", nil)
	if diff := cmp.Diff([]string{"https://site.com/shop/about"}, got); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractSkipsAnalyzed(t *testing.T) {
	markup := `<a href="/">Home</a><a href="/contact/">Contact</a><a href="/blog?page=2">Page 2</a>`
	analyzed := map[string]bool{"https://site.com": true}
	got := Extract(markup, "https://site.com/blog", func(u string) bool { return analyzed[u] })
	want := []string{"https://site.com/contact", "https://site.com/blog?page=2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"https://site.com/":          "https://site.com",
		"https://site.com/blog/#top": "https://site.com/blog",
		"https://site.com/a?b=c":     "https://site.com/a?b=c",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSameHost(t *testing.T) {
	if !SameHost("https://Site.com/x", "https://site.com") {
		t.Fatal("Expected same host")
	}
	if SameHost("https://other.com/x", "https://site.com") {
		t.Fatal("Expected different host")
	}
	if SameHost("/relative", "https://site.com") {
		t.Fatal("Relative URL has no host")
	}
}
