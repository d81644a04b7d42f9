package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

type WordPressInfo struct {
	IsWordPress bool           `json:"isWordPress"`
	Version     string         `json:"wpVersion,omitempty"`
	Name        string         `json:"siteName,omitempty"`
	Description string         `json:"siteDescription,omitempty"`
	Namespaces  []string       `json:"namespaces"`
	RESTPlugins []string       `json:"restPlugins"`
	SiteHealth  map[string]any `json:"siteHealth,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// WordPress introspects a site through its public REST API.
type WordPress struct {
	Fetcher Fetcher
}

func NewWordPress(fetcher Fetcher) *WordPress {
	return &WordPress{Fetcher: fetcher}
}

// namespaces registered by core
var coreNamespaces = map[string]bool{
	"wp":                true,
	"oembed":            true,
	"wp-site-health":    true,
	"wp-block-editor":   true,
	"wp-abilities":      true,
	"wp-block-patterns": true,
}

var restNamespacePlugins = map[string]string{
	"litespeed":            "LiteSpeed Cache",
	"wp-rocket":            "WP Rocket",
	"w3tc":                 "W3 Total Cache",
	"wpsc":                 "WP Super Cache",
	"sg-cachepress":        "SG Optimizer",
	"siteground-optimizer": "SG Optimizer",
	"hummingbird":          "Hummingbird",
	"autoptimize":          "Autoptimize",
	"breeze":               "Breeze",
	"yoast":                "Yoast SEO",
	"rankmath":             "Rank Math",
	"wc":                   "WooCommerce",
	"wc-analytics":         "WooCommerce",
	"jetpack":              "Jetpack",
	"contact-form-7":       "Contact Form 7",
	"elementor":            "Elementor",
	"redirection":          "Redirection",
	"wordfence":            "Wordfence",
}

// SiteHealth reads /wp-json/ and, when exposed, the page-cache site health test.
// REST failures are reported in WordPressInfo.Error rather than as an error.
func (w *WordPress) SiteHealth(ctx context.Context, rawURL string) (*WordPressInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	root := u.Scheme + "://" + u.Host
	info := &WordPressInfo{Namespaces: []string{}, RESTPlugins: []string{}}

	index, err := w.Fetcher.Fetch(ctx, root+"/wp-json/", http.Header{"Accept": {"application/json"}})
	switch {
	case err != nil:
		info.Error = err.Error()
	case index.StatusCode != http.StatusOK:
		info.Error = fmt.Sprintf("/wp-json/ returned status %d", index.StatusCode)
	default:
		var body struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Namespaces  []string `json:"namespaces"`
		}
		if err := json.Unmarshal(index.Body, &body); err != nil {
			info.Error = "/wp-json/ is not JSON: " + err.Error()
			break
		}
		info.IsWordPress = len(body.Namespaces) > 0
		info.Name = body.Name
		info.Description = body.Description
		info.Namespaces = append(info.Namespaces, body.Namespaces...)
		info.RESTPlugins = RESTPlugins(body.Namespaces)
	}

	if info.IsWordPress {
		health, err := w.Fetcher.Fetch(ctx, root+"/wp-json/wp-site-health/v1/tests/page-cache", http.Header{"Accept": {"application/json"}})
		if err == nil && health.StatusCode == http.StatusOK {
			var result map[string]any
			if json.Unmarshal(health.Body, &result) == nil {
				info.SiteHealth = result
			}
		}
	}

	if home, err := w.Fetcher.Fetch(ctx, root+"/", nil); err == nil {
		if version := GeneratorVersion(home.Body); version != "" {
			info.IsWordPress = true
			info.Version = version
		}
	} else if ctx.Err() != nil {
		return info, ctx.Err()
	}
	return info, nil
}

// RESTPlugins names the plugins behind non-core REST namespaces.
// Unknown namespaces are reported by their vendor prefix.
func RESTPlugins(namespaces []string) []string {
	seen := make(map[string]bool)
	plugins := []string{}
	for _, ns := range namespaces {
		vendor, _, _ := strings.Cut(ns, "/")
		if vendor == "" || coreNamespaces[vendor] {
			continue
		}
		name, ok := restNamespacePlugins[vendor]
		if !ok {
			name = vendor
		}
		if !seen[name] {
			seen[name] = true
			plugins = append(plugins, name)
		}
	}
	sort.Strings(plugins)
	return plugins
}

// GeneratorVersion returns the version from a <meta name="generator"
// content="WordPress x.y"> tag, or "".
func GeneratorVersion(markup []byte) string {
	tokenizer := html.NewTokenizer(strings.NewReader(string(markup)))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "meta" {
				continue
			}
			var name, content string
			for _, a := range token.Attr {
				switch strings.ToLower(a.Key) {
				case "name":
					name = strings.ToLower(a.Val)
				case "content":
					content = a.Val
				}
			}
			if name == "generator" && strings.HasPrefix(content, "WordPress") {
				return strings.TrimSpace(strings.TrimPrefix(content, "WordPress"))
			}
		}
	}
}
