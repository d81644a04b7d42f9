package investigator

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestToolboxIsComplete(t *testing.T) {
	want := []string{
		"fetch_page", "test_cache_behavior", "dns_lookup", "check_wordpress_api",
		"record_observation", "form_hypothesis", "complete_analysis",
	}
	var got []string
	for _, schema := range toolSchemas() {
		got = append(got, schema.Name)
		if !json.Valid(schema.InputSchema) {
			t.Errorf("%s has an invalid input schema", schema.Name)
		}
		if schema.Description == "" {
			t.Errorf("%s has no description", schema.Name)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownTool(t *testing.T) {
	_, inv := newFixture(t)
	out, isErr := runTool(inv, newSession(inv), "delete_site", map[string]string{})
	if !isErr || out != "Unknown tool: delete_site" {
		t.Fatalf("Output is %q", out)
	}
}

func TestMalformedInputNeverPanics(t *testing.T) {
	inputs := []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(`{`), json.RawMessage(`[]`), json.RawMessage(`{}`), json.RawMessage(`{"url": 42}`)}
	for _, schema := range toolSchemas() {
		for _, input := range inputs {
			f, inv := newFixture(t)
			s := newSession(inv)
			out, isErr := inv.dispatch(context.Background(), s, ToolUseBlock("x", schema.Name, input))
			if !isErr || !strings.HasPrefix(out, "Error executing "+schema.Name) {
				t.Errorf("%s(%s): %v %q", schema.Name, input, isErr, out)
			}
			if f.fetcher.count() != 0 || s.completed {
				t.Errorf("%s(%s) had side effects", schema.Name, input)
			}
		}
	}
}

func TestToolPanicIsRecovered(t *testing.T) {
	_, inv := newFixture(t)
	inv.config.Analyzer = panickingAnalyzer{}
	out, isErr := runTool(inv, newSession(inv), "fetch_page", map[string]string{"url": "https://site.com/"})
	if !isErr || !strings.Contains(out, "analyzer exploded") {
		t.Fatalf("Output is %q", out)
	}
}

func TestFetchPageRejectsOtherHosts(t *testing.T) {
	f, inv := newFixture(t)
	s := newSession(inv)
	for _, u := range []string{"https://other.com/", "https://sub.site.com/", "/relative", "not a url"} {
		out, isErr := runTool(inv, s, "fetch_page", map[string]string{"url": u})
		if isErr || !strings.HasPrefix(out, "Cannot fetch "+u) {
			t.Errorf("%s: %q", u, out)
		}
	}
	if f.fetcher.count() != 0 || f.prober.calls != 0 {
		t.Fatal("Network collaborators were called")
	}
	if len(s.Memory.Pages()) != 0 {
		t.Fatal("Memory changed")
	}
}

func TestFetchPageOutput(t *testing.T) {
	_, inv := newFixture(t)
	s := newSession(inv)
	out, isErr := runTool(inv, s, "fetch_page", map[string]string{"url": "https://site.com/"})
	if isErr {
		t.Fatal(out)
	}
	var res fetchPageOutput
	mustJSON(t, out, &res)
	if res.StatusCode != http.StatusOK || !res.CacheStatus.Working || !res.IsWordPress {
		t.Fatalf("Output is %+v", res)
	}
	if diff := cmp.Diff([]string{"https://site.com/blog", "https://site.com/about"}, res.NewLinks); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}

	// the blog links back home, which is analyzed by now
	out, _ = runTool(inv, s, "fetch_page", map[string]string{"url": "https://site.com/blog"})
	mustJSON(t, out, &res)
	if diff := cmp.Diff([]string{"https://site.com/blog/post-1"}, res.NewLinks); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPageUpsertsInPlace(t *testing.T) {
	_, inv := newFixture(t)
	s := newSession(inv)
	runTool(inv, s, "fetch_page", map[string]string{"url": "https://site.com/"})
	runTool(inv, s, "fetch_page", map[string]string{"url": "https://site.com/blog"})
	runTool(inv, s, "fetch_page", map[string]string{"url": "https://site.com"})

	var urls []string
	for _, p := range s.Memory.Pages() {
		urls = append(urls, p.URL)
	}
	if diff := cmp.Diff([]string{"https://site.com", "https://site.com/blog"}, urls); diff != "" {
		t.Fatalf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPageManyLinks(t *testing.T) {
	f, inv := newFixture(t)
	var markup strings.Builder
	for i := 0; i < 15; i++ {
		markup.WriteString(`<a href="/p` + string(rune('a'+i)) + `">x</a>`)
	}
	f.fetcher.pages["https://site.com/"].Body = []byte(markup.String())

	s := newSession(inv)
	out, _ := runTool(inv, s, "fetch_page", map[string]string{"url": "https://site.com/"})
	var res fetchPageOutput
	mustJSON(t, out, &res)
	if len(res.NewLinks) != maxNewLinks {
		t.Fatalf("Got %d new links", len(res.NewLinks))
	}
	if n := len(s.Memory.Discovered()); n != 16 {
		t.Fatalf("Discovered %d URLs", n)
	}
}

func TestFetchPageFetchError(t *testing.T) {
	f, inv := newFixture(t)
	f.fetcher.err = context.DeadlineExceeded
	out, isErr := runTool(inv, newSession(inv), "fetch_page", map[string]string{"url": "https://site.com/"})
	if !isErr || !strings.Contains(out, "deadline exceeded") {
		t.Fatalf("Output is %q", out)
	}
}

func TestTestCacheBehaviorVariants(t *testing.T) {
	tests := []struct {
		testType string
		header   string
		value    string
	}{
		{"bypass_header", "Cache-Control", "no-cache"},
		{"bypass_header", "Pragma", "no-cache"},
		{"vary_encoding", "Accept-Encoding", "identity"},
		{"with_cookie", "Cookie", "cache_test="},
		{"mobile_ua", "User-Agent", "iPhone"},
	}
	for _, test := range tests {
		f, inv := newFixture(t)
		s := newSession(inv)
		out, isErr := runTool(inv, s, "test_cache_behavior", map[string]string{
			"url": "https://site.com/", "test_type": test.testType, "hypothesis": "h",
		})
		if isErr {
			t.Fatalf("%s: %s", test.testType, out)
		}
		if len(f.fetcher.headers) != 2 {
			t.Fatalf("%s: %d requests", test.testType, len(f.fetcher.headers))
		}
		for _, h := range f.fetcher.headers {
			if !strings.Contains(h.Get(test.header), test.value) {
				t.Errorf("%s: %s is %q", test.testType, test.header, h.Get(test.header))
			}
		}
		experiments := s.Memory.Experiments()
		if len(experiments) != 1 || experiments[0].TestName != test.testType || experiments[0].Conclusion != "" {
			t.Fatalf("Experiments are %+v", experiments)
		}
	}
}

func TestTestCacheBehaviorQueryString(t *testing.T) {
	f, inv := newFixture(t)
	out, _ := runTool(inv, newSession(inv), "test_cache_behavior", map[string]string{
		"url": "https://site.com/?page=2", "test_type": "query_string", "hypothesis": "query strings bust the cache",
	})
	var res testCacheOutput
	mustJSON(t, out, &res)
	if !strings.Contains(res.URL, "page=2") || !strings.Contains(res.URL, "cache_bust=") {
		t.Fatalf("URL is %s", res.URL)
	}
	if f.fetcher.calls[0] != f.fetcher.calls[1] || f.fetcher.calls[0] != res.URL {
		t.Fatalf("Calls are %v", f.fetcher.calls)
	}
	if len(res.Requests) != 2 {
		t.Fatalf("Requests are %+v", res.Requests)
	}
	if _, ok := res.Interpretation["queryStringCached"]; !ok {
		t.Fatalf("Interpretation is %v", res.Interpretation)
	}
	if res.SharesPlainEntry || !strings.Contains(res.Requests[0].CacheKey, "cache_bust=") {
		t.Fatalf("Cache-busting variant should have its own key, got %q", res.Requests[0].CacheKey)
	}
}

func TestTestCacheBehaviorInterpretation(t *testing.T) {
	_, inv := newFixture(t)
	out, _ := runTool(inv, newSession(inv), "test_cache_behavior", map[string]string{
		"url": "https://site.com/", "test_type": "with_cookie", "hypothesis": "cookies bypass",
	})
	var res testCacheOutput
	mustJSON(t, out, &res)
	// the fake site answers HIT regardless of cookies
	want := map[string]bool{"becameCached": false, "cookieBypassesCache": false}
	if diff := cmp.Diff(want, res.Interpretation); diff != "" {
		t.Fatalf("interpretation mismatch (-want +got):\n%s", diff)
	}
	if !res.Requests[0].CacheHit || res.Requests[0].CacheHeaders["cf-cache-status"] != "HIT" {
		t.Fatalf("Requests are %+v", res.Requests)
	}
	if !res.SharesPlainEntry {
		t.Fatal("Cookie variant should share the plain entry when the site does not vary on Cookie")
	}
}

func TestTestCacheBehaviorPostRequestUnsupported(t *testing.T) {
	f, inv := newFixture(t)
	s := newSession(inv)
	for _, testType := range []string{"post_request", "teleport"} {
		out, isErr := runTool(inv, s, "test_cache_behavior", map[string]string{
			"url": "https://site.com/", "test_type": testType, "hypothesis": "h",
		})
		if isErr || out != "Unknown test type: "+testType {
			t.Fatalf("Output is %q", out)
		}
	}
	if f.fetcher.count() != 0 || len(s.Memory.Experiments()) != 0 {
		t.Fatal("Unsupported test had side effects")
	}
}

func TestTestCacheBehaviorWaits(t *testing.T) {
	f, inv := newFixture(t)
	inv.config.ExperimentDelay = 30 * time.Millisecond
	start := time.Now()
	runTool(inv, newSession(inv), "test_cache_behavior", map[string]string{
		"url": "https://site.com/", "test_type": "bypass_header", "hypothesis": "h",
	})
	if took := time.Since(start); took < 30*time.Millisecond || f.fetcher.count() != 2 {
		t.Fatalf("Took %s for %d requests", took, f.fetcher.count())
	}
}

func TestPassThroughTools(t *testing.T) {
	f, inv := newFixture(t)
	s := newSession(inv)

	out, isErr := runTool(inv, s, "dns_lookup", map[string]string{"url": "https://site.com"})
	if isErr || !strings.Contains(out, `"detected": "Cloudflare"`) || f.resolver.calls != 1 {
		t.Fatalf("dns_lookup: %q", out)
	}

	out, isErr = runTool(inv, s, "check_wordpress_api", map[string]string{"url": "https://site.com"})
	if !isErr || out != "Error executing check_wordpress_api: wp-json unreachable" {
		t.Fatalf("check_wordpress_api: %q", out)
	}
}

func TestObservationsAndHypothesesKeepOrder(t *testing.T) {
	_, inv := newFixture(t)
	s := newSession(inv)
	var wantObs, wantHyp []string
	for i, text := range []string{"one", "two", "three", "two"} {
		if i%2 == 0 {
			out, _ := runTool(inv, s, "record_observation", map[string]string{"observation": text})
			if out != "Observation recorded: "+text {
				t.Fatalf("Output is %q", out)
			}
			wantObs = append(wantObs, text)
		}
		out, _ := runTool(inv, s, "form_hypothesis", map[string]string{"hypothesis": text})
		if out != "Hypothesis formed: "+text+". You can now test it with test_cache_behavior." {
			t.Fatalf("Output is %q", out)
		}
		wantHyp = append(wantHyp, text)
	}
	if diff := cmp.Diff(wantObs, s.Memory.Observations()); diff != "" {
		t.Fatalf("observations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantHyp, s.Memory.Hypotheses()); diff != "" {
		t.Fatalf("hypotheses mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteAnalysis(t *testing.T) {
	_, inv := newFixture(t)
	s := newSession(inv)

	out, isErr := runTool(inv, s, "complete_analysis", map[string]any{"summary": "s", "confidence": "certain", "recommendations": []string{}})
	if !isErr || !strings.Contains(out, "confidence must be") || s.completed {
		t.Fatalf("Output is %q", out)
	}
	out, isErr = runTool(inv, s, "complete_analysis", map[string]any{"summary": "s", "confidence": "low"})
	if !isErr || !strings.Contains(out, "recommendations") {
		t.Fatalf("Output is %q", out)
	}

	out, isErr = runTool(inv, s, "complete_analysis", map[string]any{
		"summary": "done", "confidence": "Medium", "recommendations": []string{}, "gaps": []string{"no DNS"},
	})
	if isErr || out != "Analysis complete." || !s.completed {
		t.Fatalf("Output is %q", out)
	}
	want := &FinalAnalysis{Summary: "done", Confidence: ConfidenceMedium, Recommendations: []string{}, Gaps: []string{"no DNS"}}
	if diff := cmp.Diff(want, s.Final); diff != "" {
		t.Fatalf("final mismatch (-want +got):\n%s", diff)
	}
}
