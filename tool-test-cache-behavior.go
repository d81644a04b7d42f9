package investigator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	cachehit "github.com/always-cache/cache-investigator/pkg/cache-hit"
	cachekey "github.com/always-cache/cache-investigator/pkg/cache-key"
	"github.com/always-cache/cache-investigator/probe"
)

const (
	testBypassHeader = "bypass_header"
	testVaryEncoding = "vary_encoding"
	testWithCookie   = "with_cookie"
	testQueryString  = "query_string"
	testMobileUA     = "mobile_ua"
	// advertised, but without a request variant
	testPostRequest = "post_request"
)

const mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

type testCacheInput struct {
	URL        string `json:"url"`
	TestType   string `json:"test_type"`
	Hypothesis string `json:"hypothesis"`
}

func (in *testCacheInput) validate() error {
	return required(map[string]string{"url": in.URL, "test_type": in.TestType, "hypothesis": in.Hypothesis})
}

var testCacheBehaviorTool = typedTool[testCacheInput]{
	name: "test_cache_behavior",
	description: "Test a hypothesis by requesting a variant of a URL twice, 500ms apart, and checking " +
		"whether the second request is a cache hit. bypass_header sends Cache-Control/Pragma no-cache, " +
		"vary_encoding sends Accept-Encoding: identity, with_cookie sends a cookie, query_string appends " +
		"a cache-busting parameter, mobile_ua uses a mobile browser User-Agent.",
	inputSchema: `{
  "type": "object",
  "properties": {
    "url": {"type": "string", "description": "Absolute URL to test"},
    "test_type": {
      "type": "string",
      "enum": ["bypass_header", "vary_encoding", "with_cookie", "query_string", "mobile_ua", "post_request"]
    },
    "hypothesis": {"type": "string", "description": "What this test is meant to confirm or refute"}
  },
  "required": ["url", "test_type", "hypothesis"]
}`,
	handler: testCacheBehavior,
}

// variant is the request a test type sends.
type variant struct {
	url         string
	header      http.Header
	description string
}

func buildVariant(testType, rawURL string, now time.Time) (variant, bool) {
	v := variant{url: rawURL, header: make(http.Header)}
	switch testType {
	case testBypassHeader:
		v.header.Set("Cache-Control", "no-cache")
		v.header.Set("Pragma", "no-cache")
	case testVaryEncoding:
		v.header.Set("Accept-Encoding", "identity")
	case testWithCookie:
		v.header.Set("Cookie", fmt.Sprintf("cache_test=%d", now.UnixNano()))
	case testQueryString:
		u, err := url.Parse(rawURL)
		if err != nil {
			return v, false
		}
		q := u.Query()
		q.Set("cache_bust", fmt.Sprint(now.UnixNano()))
		u.RawQuery = q.Encode()
		v.url = u.String()
	case testMobileUA:
		v.header.Set("User-Agent", mobileUserAgent)
	default:
		return v, false
	}
	v.description = describeVariant(v)
	return v, true
}

func describeVariant(v variant) string {
	var parts []string
	for _, name := range sortedKeys(v.header) {
		parts = append(parts, name+": "+v.header.Get(name))
	}
	desc := "GET " + v.url + " twice"
	if len(parts) > 0 {
		desc += " with " + strings.Join(parts, ", ")
	}
	return desc
}

type requestReport struct {
	StatusCode   int               `json:"statusCode"`
	TTFBMs       int64             `json:"ttfbMs"`
	CacheHit     bool              `json:"cacheHit"`
	CacheHeaders map[string]string `json:"cacheHeaders"`
	// Key a shared cache would store the response under, given its Vary.
	CacheKey string `json:"cacheKey"`
}

type testCacheOutput struct {
	TestType       string          `json:"testType"`
	URL            string          `json:"url"`
	Requests       []requestReport `json:"requests"`
	Interpretation map[string]bool `json:"interpretation"`
	// Whether the variant maps to the same cache entry as a plain GET of
	// the URL. A miss on a shared entry points at cache configuration
	// rather than at Vary.
	SharesPlainEntry bool `json:"sharesPlainEntry"`
}

func testCacheBehavior(ctx context.Context, inv *Investigator, s *Session, in testCacheInput) (string, error) {
	v, ok := buildVariant(in.TestType, in.URL, time.Now())
	if !ok {
		return fmt.Sprintf("Unknown test type: %s", in.TestType), nil
	}

	keyer := cachekey.NewCacheKeyer(inv.baseURL.Host)
	var reports []requestReport
	var last http.Header
	for i := 0; i < 2; i++ {
		if i > 0 {
			if err := probe.Sleep(ctx, inv.config.ExperimentDelay); err != nil {
				return "", err
			}
		}
		callCtx, cancel := inv.callContext(ctx)
		res, err := inv.config.Fetcher.Fetch(callCtx, v.url, v.header.Clone())
		cancel()
		if err != nil {
			return "", fmt.Errorf("request %d: %w", i+1, err)
		}
		key, _ := keyer.Key(http.MethodGet, v.url, v.header, res.Header)
		reports = append(reports, requestReport{
			StatusCode:   res.StatusCode,
			TTFBMs:       res.Timing.TTFB.Milliseconds(),
			CacheHit:     cachehit.IsHit(res.Header),
			CacheHeaders: cachehit.Relevant(res.Header),
			CacheKey:     key,
		})
		last = res.Header
	}
	plainKey, _ := keyer.Key(http.MethodGet, in.URL, http.Header{}, last)

	interpretation := interpret(in.TestType, reports[0], reports[1])
	s.Memory.AddExperiment(ExperimentResult{
		TestName:   in.TestType,
		Hypothesis: in.Hypothesis,
		Method:     v.description + fmt.Sprintf(", %s apart", inv.config.ExperimentDelay),
		Result:     describeReports(reports, interpretation),
	})
	s.emit(Event{Kind: EventExperiment, Tool: in.TestType, URL: v.url, Message: in.Hypothesis})

	return toJSON(testCacheOutput{
		TestType:         in.TestType,
		URL:              v.url,
		Requests:         reports,
		Interpretation:   interpretation,
		SharesPlainEntry: cachekey.SameEntry(reports[1].CacheKey, plainKey),
	})
}

// interpret derives naive flags from the two requests. They are hints for
// the oracle, not conclusions.
func interpret(testType string, first, second requestReport) map[string]bool {
	flags := map[string]bool{
		"becameCached": !first.CacheHit && second.CacheHit,
	}
	switch testType {
	case testBypassHeader:
		flags["cacheBypassed"] = !second.CacheHit
	case testVaryEncoding:
		flags["cachedWithoutEncoding"] = second.CacheHit
	case testWithCookie:
		flags["cookieBypassesCache"] = !first.CacheHit && !second.CacheHit
	case testQueryString:
		flags["queryStringCached"] = second.CacheHit
	case testMobileUA:
		flags["mobileCached"] = second.CacheHit
	}
	return flags
}

func describeReports(reports []requestReport, flags map[string]bool) string {
	var parts []string
	for i, r := range reports {
		parts = append(parts, fmt.Sprintf("request %d: status %d, ttfb %dms, cache hit %v", i+1, r.StatusCode, r.TTFBMs, r.CacheHit))
	}
	for _, name := range sortedKeys(flags) {
		parts = append(parts, fmt.Sprintf("%s=%v", name, flags[name]))
	}
	return strings.Join(parts, "; ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
