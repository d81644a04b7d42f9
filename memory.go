package investigator

import (
	"encoding/json"
	"time"

	"github.com/always-cache/cache-investigator/analyzer"
	links "github.com/always-cache/cache-investigator/pkg/link-extractor"
	"github.com/always-cache/cache-investigator/probe"
)

// PageResult is everything learned from one fetch_page call.
type PageResult struct {
	URL        string             `json:"url"`
	Fetch      *probe.FetchResult `json:"fetch"`
	CacheProbe *probe.CacheProbe  `json:"cacheProbe,omitempty"`
	Analysis   *analyzer.Analysis `json:"analysis"`
	Timestamp  time.Time          `json:"timestamp"`
}

type ExperimentResult struct {
	TestName   string `json:"testName"`
	Hypothesis string `json:"hypothesis"`
	Method     string `json:"method"`
	Result     string `json:"result"`
	// Left for the oracle to fill in its own words; never set by the tools.
	Conclusion string `json:"conclusion"`
}

// Memory is the evidence gathered during one run. Apart from analyzed pages,
// which a re-fetch replaces in place, everything in it only ever grows.
type Memory struct {
	pages      map[string]*PageResult
	pageOrder  []string
	discovered map[string]struct{}
	discOrder  []string

	experiments  []ExperimentResult
	observations []string
	hypotheses   []string
}

func NewMemory(baseURL string) *Memory {
	m := &Memory{
		pages:      make(map[string]*PageResult),
		discovered: make(map[string]struct{}),
	}
	m.Discover(baseURL)
	return m
}

// UpsertPage stores page under its normalized URL. A page fetched before
// is overwritten but keeps its original position.
func (m *Memory) UpsertPage(page PageResult) {
	key := links.Normalize(page.URL)
	if _, ok := m.pages[key]; !ok {
		m.pageOrder = append(m.pageOrder, key)
	}
	m.pages[key] = &page
}

func (m *Memory) Page(rawURL string) (PageResult, bool) {
	page, ok := m.pages[links.Normalize(rawURL)]
	if !ok {
		return PageResult{}, false
	}
	return *page, true
}

// Analyzed reports whether rawURL has been fetched with fetch_page.
func (m *Memory) Analyzed(rawURL string) bool {
	_, ok := m.pages[links.Normalize(rawURL)]
	return ok
}

// Pages returns the analyzed pages in first-fetch order.
func (m *Memory) Pages() []PageResult {
	pages := make([]PageResult, 0, len(m.pageOrder))
	for _, key := range m.pageOrder {
		pages = append(pages, *m.pages[key])
	}
	return pages
}

// Discover adds URLs to the discovered set and returns the ones that were new.
func (m *Memory) Discover(urls ...string) []string {
	var added []string
	for _, u := range urls {
		u = links.Normalize(u)
		if _, ok := m.discovered[u]; ok {
			continue
		}
		m.discovered[u] = struct{}{}
		m.discOrder = append(m.discOrder, u)
		added = append(added, u)
	}
	return added
}

func (m *Memory) Discovered() []string {
	return append([]string(nil), m.discOrder...)
}

func (m *Memory) AddExperiment(e ExperimentResult) {
	m.experiments = append(m.experiments, e)
}

func (m *Memory) Experiments() []ExperimentResult {
	return append([]ExperimentResult(nil), m.experiments...)
}

func (m *Memory) AddObservation(observation string) {
	m.observations = append(m.observations, observation)
}

func (m *Memory) Observations() []string {
	return append([]string(nil), m.observations...)
}

func (m *Memory) AddHypothesis(hypothesis string) {
	m.hypotheses = append(m.hypotheses, hypothesis)
}

func (m *Memory) Hypotheses() []string {
	return append([]string(nil), m.hypotheses...)
}

// MemorySnapshot is the serializable form of Memory.
type MemorySnapshot struct {
	AnalyzedPages  []PageResult       `json:"analyzedPages"`
	DiscoveredURLs []string           `json:"discoveredUrls"`
	Experiments    []ExperimentResult `json:"experiments"`
	Observations   []string           `json:"observations"`
	Hypotheses     []string           `json:"hypotheses"`
}

func (m *Memory) Snapshot() MemorySnapshot {
	return MemorySnapshot{
		AnalyzedPages:  m.Pages(),
		DiscoveredURLs: nonNil(m.Discovered()),
		Experiments:    nonNil(m.Experiments()),
		Observations:   nonNil(m.Observations()),
		Hypotheses:     nonNil(m.Hypotheses()),
	}
}

func (m *Memory) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
