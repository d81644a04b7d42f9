// Package analyzer derives caching facts from a fetched page and its
// double-hit probe: plugins, CDNs, hosting, conflicts and whether the
// cache actually served the second request.
package analyzer

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	cachehit "github.com/always-cache/cache-investigator/pkg/cache-hit"
	"github.com/always-cache/cache-investigator/probe"
	"github.com/always-cache/cache-investigator/rfc9111"
	"github.com/always-cache/cache-investigator/rfc9211"
	"golang.org/x/net/html"
)

// MinImprovement is the TTFB improvement, in percent, taken as a sign of a
// cache hit when no header says so.
const MinImprovement = 50.0

type Analysis struct {
	IsWordPress bool        `json:"isWordPress"`
	CacheStatus CacheStatus `json:"cacheStatus"`
	Timing      Timing      `json:"timing"`
	Plugins     []Detection `json:"plugins"`
	CDNs        []Detection `json:"cdns"`
	Conflicts   []Conflict  `json:"conflicts"`
	ServerSpecs ServerSpecs `json:"serverSpecs"`
	Hosting     Hosting     `json:"hosting"`
	// Raw Cache-Control of the page and the lifetime it gives shared caches.
	CacheControl string `json:"cacheControl,omitempty"`
	Freshness    string `json:"freshness"`
	// Whether the page was still fresh on arrival, and its age then.
	Fresh      bool  `json:"fresh"`
	AgeSeconds int64 `json:"ageSeconds"`
	// What shared caches may do once the page is stale.
	StalePolicy string `json:"stalePolicy,omitempty"`
	// Request fields the response varies on, lowercased.
	Vary []string `json:"vary,omitempty"`
}

type CacheStatus struct {
	Working     bool   `json:"working"`
	Header      string `json:"header,omitempty"`
	Value       string `json:"value,omitempty"`
	Explanation string `json:"explanation"`
}

// Timing in milliseconds. Improvement is the percentage by which the second
// request was faster than the first.
type Timing struct {
	FirstTTFB   int64   `json:"firstTTFB"`
	SecondTTFB  int64   `json:"secondTTFB"`
	Improvement float64 `json:"improvement"`
}

type Detection struct {
	Name     string `json:"name"`
	Kind     string `json:"kind,omitempty"`
	Evidence string `json:"evidence"`
}

type Conflict struct {
	Plugins  []string `json:"plugins"`
	Reason   string   `json:"reason"`
	Severity string   `json:"severity"`
}

// Key identifies a conflict across pages.
func (c Conflict) Key() string {
	return strings.Join(c.Plugins, " + ") + ": " + c.Reason
}

type ServerSpecs struct {
	Server     string `json:"server,omitempty"`
	PoweredBy  string `json:"poweredBy,omitempty"`
	PHPVersion string `json:"phpVersion,omitempty"`
}

type Hosting struct {
	Provider    string `json:"provider,omitempty"`
	Evidence    string `json:"evidence,omitempty"`
	ServerCache bool   `json:"serverCache"`
}

// Analyzer is stateless; the zero value is ready to use.
type Analyzer struct{}

func New() *Analyzer {
	return &Analyzer{}
}

// Analyze never fails. Missing inputs just mean less is detected.
func (a *Analyzer) Analyze(page *probe.FetchResult, cacheProbe *probe.CacheProbe) *Analysis {
	analysis := &Analysis{
		Plugins:   []Detection{},
		CDNs:      []Detection{},
		Conflicts: []Conflict{},
	}
	if page == nil {
		analysis.CacheStatus.Explanation = "page could not be fetched"
		analysis.Freshness = "unknown"
		return analysis
	}

	header := page.Header
	if header == nil {
		header = http.Header{}
	}
	signals := markupSignals(page.Body)

	analysis.IsWordPress = containsAny(signals, wordPressMarkers) ||
		strings.Contains(header.Get("Link"), "api.w.org")

	for _, r := range pluginRules {
		if evidence, ok := r.match(header, signals); ok {
			analysis.Plugins = append(analysis.Plugins, Detection{Name: r.name, Kind: r.kind, Evidence: evidence})
		}
	}

	// the probe responses may come from a different edge, look at all of them
	headers := []http.Header{header}
	if cacheProbe != nil {
		for _, res := range []*probe.FetchResult{cacheProbe.DoubleHit.First, cacheProbe.DoubleHit.Second} {
			if res != nil && res.Header != nil {
				headers = append(headers, res.Header)
			}
		}
	}
	for _, r := range cdnRules {
		for _, h := range headers {
			if evidence, ok := r.match(h, ""); ok {
				analysis.CDNs = append(analysis.CDNs, Detection{Name: r.name, Evidence: evidence})
				break
			}
		}
	}
	for _, r := range hostingRules {
		if evidence, ok := r.match(header, signals); ok {
			analysis.Hosting = Hosting{Provider: r.name, Evidence: evidence, ServerCache: r.serverCache}
			break
		}
	}

	analysis.ServerSpecs = serverSpecs(header)
	analysis.CacheControl = strings.Join(header.Values("Cache-Control"), ", ")
	receivedAt := page.FetchedAt.Add(page.Timing.TTFB)
	analysis.Freshness = rfc9111.FreshnessLifetime(header, receivedAt).String()
	analysis.Fresh = rfc9111.IsFresh(header, page.FetchedAt, receivedAt)
	analysis.AgeSeconds = int64(rfc9111.InitialAge(header, page.FetchedAt, receivedAt).Seconds())
	analysis.Vary, _ = rfc9111.VaryFields(header)
	analysis.StalePolicy = rfc9111.ResponseCacheControl(header).StalePolicy().String()
	analysis.Timing, analysis.CacheStatus = cacheStatus(page, cacheProbe)
	analysis.Conflicts = conflicts(analysis, page)
	return analysis
}

func cacheStatus(page *probe.FetchResult, cacheProbe *probe.CacheProbe) (Timing, CacheStatus) {
	var timing Timing
	first, second := page, page
	if cacheProbe != nil && cacheProbe.DoubleHit.First != nil && cacheProbe.DoubleHit.Second != nil {
		first, second = cacheProbe.DoubleHit.First, cacheProbe.DoubleHit.Second
		timing = Timing{
			FirstTTFB:  first.Timing.TTFB.Milliseconds(),
			SecondTTFB: second.Timing.TTFB.Milliseconds(),
		}
		if first.Timing.TTFB > 0 {
			timing.Improvement = float64(first.Timing.TTFB-second.Timing.TTFB) / float64(first.Timing.TTFB) * 100
		}
	} else {
		timing.FirstTTFB = page.Timing.TTFB.Milliseconds()
	}

	header := second.Header
	if header == nil {
		header = http.Header{}
	}
	name, value, hit := cachehit.Lookup(header)
	if hit {
		return timing, CacheStatus{Working: true, Header: name, Value: value,
			Explanation: fmt.Sprintf("%s reports a hit on the second request", name)}
	}
	if entry, ok := rfc9211.Closest(rfc9211.Parse(header)); ok && entry.Hit {
		return timing, CacheStatus{Working: true, Header: "cache-status", Value: entry.String(),
			Explanation: fmt.Sprintf("Cache-Status reports a hit from %s", entry.Cache)}
	}
	if age, ok := rfc9111.Age(header); ok && age > 0 {
		return timing, CacheStatus{Working: true, Header: "age", Value: header.Get("Age"),
			Explanation: fmt.Sprintf("second response is %s old, so it was served from a cache", age)}
	}
	if first != second && timing.Improvement >= MinImprovement {
		return timing, CacheStatus{Working: true, Header: name, Value: value,
			Explanation: fmt.Sprintf("no hit header, but the second request was %.0f%% faster", timing.Improvement)}
	}

	status := CacheStatus{Header: name, Value: value}
	cc := rfc9111.ResponseCacheControl(header)
	switch {
	case name != "":
		status.Explanation = fmt.Sprintf("%s is %q on the second request", name, value)
	case cc.NoStore() || cc.Private():
		status.Explanation = "Cache-Control forbids shared caching"
	default:
		status.Explanation = "no cache hit signals on the second request"
	}
	return timing, status
}

func conflicts(analysis *Analysis, page *probe.FetchResult) []Conflict {
	found := []Conflict{}
	var pageCaches []string
	for _, p := range analysis.Plugins {
		if p.Kind == KindPageCache {
			pageCaches = append(pageCaches, p.Name)
		}
	}
	if len(pageCaches) > 1 {
		found = append(found, Conflict{
			Plugins:  pageCaches,
			Reason:   "multiple page caching plugins active",
			Severity: "high",
		})
	}
	if analysis.Hosting.ServerCache {
		for _, name := range pageCaches {
			found = append(found, Conflict{
				Plugins:  []string{name},
				Reason:   fmt.Sprintf("page caching plugin running behind %s server-level cache", analysis.Hosting.Provider),
				Severity: "medium",
			})
		}
	}

	if page.StatusCode == http.StatusOK && isHTML(page.Header) {
		blamed := pageCaches
		if len(blamed) == 0 {
			blamed = []string{"origin"}
		}
		cc := rfc9111.ResponseCacheControl(page.Header)
		if cc.NoStore() || cc.Private() {
			found = append(found, Conflict{
				Plugins:  blamed,
				Reason:   fmt.Sprintf("Cache-Control %q prevents shared caching of HTML", analysis.CacheControl),
				Severity: "high",
			})
		}
		if _, wildcard := rfc9111.VaryFields(page.Header); wildcard {
			found = append(found, Conflict{
				Plugins:  blamed,
				Reason:   "Vary: * makes every request a cache miss",
				Severity: "high",
			})
		}
		for _, field := range analysis.Vary {
			if field == "cookie" || field == "user-agent" {
				found = append(found, Conflict{
					Plugins:  blamed,
					Reason:   fmt.Sprintf("Vary: %s splits the shared cache into many variants", field),
					Severity: "medium",
				})
			}
		}
		if len(page.Header.Values("Set-Cookie")) > 0 && len(pageCaches) > 0 {
			found = append(found, Conflict{
				Plugins:  blamed,
				Reason:   "Set-Cookie on HTML response makes most page caches skip it",
				Severity: "medium",
			})
		}
	}
	return found
}

var phpVersion = regexp.MustCompile(`(?i)php/([0-9][0-9.]*)`)

func serverSpecs(header http.Header) ServerSpecs {
	specs := ServerSpecs{
		Server:    header.Get("Server"),
		PoweredBy: header.Get("X-Powered-By"),
	}
	if m := phpVersion.FindStringSubmatch(specs.PoweredBy); m != nil {
		specs.PHPVersion = m[1]
	}
	return specs
}

func isHTML(header http.Header) bool {
	ct := header.Get("Content-Type")
	return ct == "" || strings.Contains(strings.ToLower(ct), "text/html")
}

func (r rule) match(header http.Header, signals string) (string, bool) {
	names := make([]string, 0, len(r.headers))
	for name := range r.headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, val := range header.Values(name) {
			if strings.Contains(strings.ToLower(val), r.headers[name]) {
				return fmt.Sprintf("header %s: %s", name, val), true
			}
		}
	}
	for _, marker := range r.markers {
		if strings.Contains(signals, marker) {
			return "markup: " + marker, true
		}
	}
	return "", false
}

// markupSignals returns the lowercased comments and attribute values of
// markup, where plugins leave their footprints.
func markupSignals(markup []byte) string {
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(string(markup)))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.ToLower(b.String())
		case html.CommentToken:
			b.Write(tokenizer.Text())
			b.WriteByte('\n')
		case html.StartTagToken, html.SelfClosingTagToken:
			for _, a := range tokenizer.Token().Attr {
				b.WriteString(a.Val)
				b.WriteByte('\n')
			}
		}
	}
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
