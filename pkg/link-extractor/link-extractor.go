// Package links pulls same-host navigable links out of HTML pages.
package links

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

var skippedSchemes = []string{"javascript:", "mailto:", "tel:"}

// Extract returns the same-host links of markup, resolved against pageURL
// and normalized, in document order. Links for which analyzed returns true
// are left out, as are duplicates. A nil analyzed keeps everything.
func Extract(markup string, pageURL string, analyzed func(string) bool) []string {
	base, err := url.Parse(pageURL)
	if err != nil || base.Hostname() == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var found []string
	seen := make(map[string]bool)
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if link, ok := resolve(base, attr(n, "href")); ok && !seen[link] {
				seen[link] = true
				if analyzed == nil || !analyzed(link) {
					found = append(found, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return found
}

// Normalize drops the fragment and a trailing path slash, so that
// "https://site.com/blog/#top" and "https://site.com/blog" are the same page.
// Unparseable input is returned as is.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return normalize(u)
}

// SameHost reports whether rawURL points at the host of baseURL.
func SameHost(rawURL, baseURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return u.Hostname() != "" && strings.EqualFold(u.Hostname(), base.Hostname())
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(abs.Hostname(), base.Hostname()) {
		return "", false
	}
	return normalize(abs), true
}

func normalize(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.RawFragment = ""
	n.Path = strings.TrimSuffix(n.Path, "/")
	n.RawPath = strings.TrimSuffix(n.RawPath, "/")
	return n.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
