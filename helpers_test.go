package investigator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/always-cache/cache-investigator/analyzer"
	"github.com/always-cache/cache-investigator/probe"
	"github.com/rs/zerolog"
)

// scriptedOracle replays canned responses. Once the script is exhausted it
// returns err if set, or a turn without tool calls.
type scriptedOracle struct {
	responses []Response
	err       error
	requests  []Request
}

func (o *scriptedOracle) Decide(ctx context.Context, req Request) (Response, error) {
	o.requests = append(o.requests, req)
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	i := len(o.requests) - 1
	if i >= len(o.responses) {
		if o.err != nil {
			return Response{}, o.err
		}
		return Response{Blocks: []Block{TextBlock("Thinking about it.")}, Stop: StopEndTurn}, nil
	}
	return o.responses[i], nil
}

func call(id, name string, input any) Block {
	raw, err := json.Marshal(input)
	if err != nil {
		panic(err)
	}
	return ToolUseBlock(id, name, raw)
}

func turn(blocks ...Block) Response {
	return Response{Blocks: blocks, Stop: StopToolUse}
}

func completion(id string) Block {
	return call(id, "complete_analysis", map[string]any{
		"summary":         "Cloudflare caches the home page.",
		"recommendations": []string{"Keep it that way."},
		"confidence":      "high",
	})
}

// fakeFetcher serves canned responses per URL and counts calls.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*probe.FetchResult
	calls   []string
	headers []http.Header
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, header http.Header) (*probe.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	f.headers = append(f.headers, header)
	if f.err != nil {
		return nil, f.err
	}
	if page, ok := f.pages[rawURL]; ok {
		copied := *page
		return &copied, nil
	}
	return &probe.FetchResult{URL: rawURL, StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeProber struct {
	fetcher *fakeFetcher
	calls   int
}

func (p *fakeProber) Probe(ctx context.Context, rawURL string) (*probe.CacheProbe, error) {
	p.calls++
	first, _ := p.fetcher.Fetch(ctx, rawURL, nil)
	second, _ := p.fetcher.Fetch(ctx, rawURL, nil)
	return &probe.CacheProbe{DoubleHit: probe.HitPair{First: first, Second: second}}, nil
}

type fakeResolver struct {
	calls int
}

func (r *fakeResolver) Lookup(ctx context.Context, rawURL string) (*probe.DNSResult, error) {
	r.calls++
	return &probe.DNSResult{Hostname: "site.com", Addresses: []string{"203.0.113.1"}, Detected: "Cloudflare"}, nil
}

type fakeWordPress struct {
	calls int
}

func (w *fakeWordPress) SiteHealth(ctx context.Context, rawURL string) (*probe.WordPressInfo, error) {
	w.calls++
	return nil, errors.New("wp-json unreachable")
}

type panickingAnalyzer struct{}

func (panickingAnalyzer) Analyze(*probe.FetchResult, *probe.CacheProbe) *analyzer.Analysis {
	panic("analyzer exploded")
}

const homePage = `<html><head><link rel="https://api.w.org/" href="/wp-json/"></head><body>
<a href="/blog/">Blog</a>
<a href="/about">About</a>
<a href="#main">Skip</a>
<a href="https://elsewhere.com/">Elsewhere</a>
</body></html>`

func siteFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]*probe.FetchResult{
		"https://site.com/": {
			URL:        "https://site.com/",
			StatusCode: http.StatusOK,
			Header:     http.Header{"Cf-Cache-Status": {"HIT"}, "Cf-Ray": {"8a1"}, "Content-Type": {"text/html"}},
			Body:       []byte(homePage),
		},
		"https://site.com/blog": {
			URL:        "https://site.com/blog",
			StatusCode: http.StatusOK,
			Header:     http.Header{"Cf-Cache-Status": {"DYNAMIC"}, "Content-Type": {"text/html"}},
			Body:       []byte(`<a href="/">Home</a><a href="/blog/post-1">Post</a>`),
		},
	}}
}

type fixture struct {
	oracle    *scriptedOracle
	fetcher   *fakeFetcher
	prober    *fakeProber
	resolver  *fakeResolver
	wordpress *fakeWordPress
	events    []Event
}

func newFixture(t *testing.T, responses ...Response) (*fixture, *Investigator) {
	t.Helper()
	f := &fixture{
		oracle:    &scriptedOracle{responses: responses},
		fetcher:   siteFetcher(),
		resolver:  &fakeResolver{},
		wordpress: &fakeWordPress{},
	}
	f.prober = &fakeProber{fetcher: f.fetcher}
	logger := zerolog.Nop()
	inv, err := New(Config{
		BaseURL:         "https://site.com/",
		Oracle:          f.oracle,
		MaxIterations:   5,
		ExperimentDelay: -1,
		Fetcher:         f.fetcher,
		Prober:          f.prober,
		Resolver:        f.resolver,
		WordPress:       f.wordpress,
		Observer:        ObserverFunc(func(e Event) { f.events = append(f.events, e) }),
		Logger:          &logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	return f, inv
}

func (f *fixture) eventKinds() []EventKind {
	var kinds []EventKind
	for _, e := range f.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// newSession starts a session the way Run does, for calling tools directly.
func newSession(inv *Investigator) *Session {
	return &Session{
		ID:           "test",
		BaseURL:      inv.config.BaseURL,
		State:        StateExecutingTools,
		Memory:       NewMemory(inv.config.BaseURL),
		Conversation: &Conversation{},
		observer:     inv.config.Observer,
	}
}

func runTool(inv *Investigator, s *Session, name string, input any) (string, bool) {
	return inv.dispatch(context.Background(), s, call("t1", name, input))
}

func mustJSON(t *testing.T, content string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(content), v); err != nil {
		t.Fatalf("%s is not JSON: %s", content, err)
	}
}

