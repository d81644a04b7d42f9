package investigator

import (
	"encoding/json"
	"testing"

	"github.com/always-cache/cache-investigator/probe"
	"github.com/google/go-cmp/cmp"
)

func TestMemorySeedsBaseURL(t *testing.T) {
	m := NewMemory("https://site.com/")
	if diff := cmp.Diff([]string{"https://site.com"}, m.Discovered()); diff != "" {
		t.Fatalf("discovered mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryDiscoverOnlyGrows(t *testing.T) {
	m := NewMemory("https://site.com")
	added := m.Discover("https://site.com/a", "https://site.com/b/", "https://site.com/a#x")
	if diff := cmp.Diff([]string{"https://site.com/a", "https://site.com/b"}, added); diff != "" {
		t.Fatalf("added mismatch (-want +got):\n%s", diff)
	}
	if added := m.Discover("https://site.com/b"); len(added) != 0 {
		t.Fatalf("Re-added %v", added)
	}
	if n := len(m.Discovered()); n != 3 {
		t.Fatalf("Discovered %d", n)
	}
}

func TestMemoryUpsertKeepsPosition(t *testing.T) {
	m := NewMemory("https://site.com")
	m.UpsertPage(PageResult{URL: "https://site.com/", Fetch: &probe.FetchResult{StatusCode: 500}})
	m.UpsertPage(PageResult{URL: "https://site.com/blog"})
	m.UpsertPage(PageResult{URL: "https://site.com", Fetch: &probe.FetchResult{StatusCode: 200}})

	pages := m.Pages()
	if len(pages) != 2 || pages[0].Fetch.StatusCode != 200 || pages[1].URL != "https://site.com/blog" {
		t.Fatalf("Pages are %+v", pages)
	}
	if !m.Analyzed("https://site.com/#top") || m.Analyzed("https://site.com/about") {
		t.Fatal("Analyzed lookup is wrong")
	}
	if page, ok := m.Page("https://site.com/blog/"); !ok || page.URL != "https://site.com/blog" {
		t.Fatalf("Page is %+v", page)
	}
}

func TestMemoryAccessorsCopy(t *testing.T) {
	m := NewMemory("https://site.com")
	m.AddObservation("a")
	obs := m.Observations()
	obs[0] = "changed"
	if m.Observations()[0] != "a" {
		t.Fatal("Observations can be modified from outside")
	}
}

func TestMemoryJSON(t *testing.T) {
	m := NewMemory("https://site.com")
	m.UpsertPage(PageResult{URL: "https://site.com/", Fetch: &probe.FetchResult{StatusCode: 200, Body: []byte("secret body")}})
	m.AddExperiment(ExperimentResult{TestName: "with_cookie"})

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var snapshot MemorySnapshot
	if err := json.Unmarshal(b, &snapshot); err != nil {
		t.Fatal(err)
	}
	if len(snapshot.AnalyzedPages) != 1 || snapshot.AnalyzedPages[0].Fetch.Body != nil {
		t.Fatalf("Snapshot is %+v", snapshot)
	}
	if snapshot.Observations == nil || len(snapshot.Experiments) != 1 {
		t.Fatalf("Snapshot is %+v", snapshot)
	}
}
