package investigator

import (
	"context"
	"fmt"

	"github.com/always-cache/cache-investigator/analyzer"
	links "github.com/always-cache/cache-investigator/pkg/link-extractor"
)

// maxNewLinks is how many extracted links fetch_page reports back.
const maxNewLinks = 10

type urlInput struct {
	URL string `json:"url"`
}

func (in *urlInput) validate() error {
	return required(map[string]string{"url": in.URL})
}

const urlInputSchema = `{
  "type": "object",
  "properties": {
    "url": {"type": "string", "description": "Absolute URL"}
  },
  "required": ["url"]
}`

var fetchPageTool = typedTool[urlInput]{
	name: "fetch_page",
	description: "Fetch a page of the site under investigation, request it twice to probe the cache, " +
		"and analyze headers and markup for cache plugins, CDNs, hosting and conflicts. " +
		"Only URLs on the investigated hostname are allowed. Returns newly discovered links.",
	inputSchema: urlInputSchema,
	handler:     fetchPage,
}

type fetchPageOutput struct {
	URL          string               `json:"url"`
	StatusCode   int                  `json:"statusCode"`
	IsWordPress  bool                 `json:"isWordPress"`
	CacheStatus  analyzer.CacheStatus `json:"cacheStatus"`
	Timing       analyzer.Timing      `json:"timing"`
	CacheControl string               `json:"cacheControl,omitempty"`
	Freshness    string               `json:"freshness"`
	Fresh        bool                 `json:"fresh"`
	AgeSeconds   int64                `json:"ageSeconds"`
	StalePolicy  string               `json:"stalePolicy,omitempty"`
	Vary         []string             `json:"vary,omitempty"`
	Plugins      []string             `json:"plugins"`
	CDNs         []string             `json:"cdns"`
	Conflicts    []string             `json:"conflicts"`
	NewLinks     []string             `json:"newLinks"`
	Server       analyzer.ServerSpecs `json:"server"`
	Hosting      analyzer.Hosting     `json:"hosting"`
}

func fetchPage(ctx context.Context, inv *Investigator, s *Session, in urlInput) (string, error) {
	if !inv.sameHost(in.URL) {
		return fmt.Sprintf("Cannot fetch %s: only pages on %s can be analyzed in this investigation. "+
			"Use an absolute URL on that hostname.", in.URL, inv.baseURL.Hostname()), nil
	}

	fetchCtx, cancel := inv.callContext(ctx)
	page, err := inv.config.Fetcher.Fetch(fetchCtx, in.URL, nil)
	cancel()
	if err != nil {
		return "", err
	}
	if page == nil {
		return "", fmt.Errorf("no response for %s", in.URL)
	}

	probeCtx, cancel := inv.callContext(ctx)
	cacheProbe, err := inv.config.Prober.Probe(probeCtx, in.URL)
	cancel()
	if err != nil {
		// the page itself is still worth analyzing
		inv.log.Warn().Err(err).Str("url", in.URL).Msg("Cache probe failed")
		cacheProbe = nil
	}

	analysis := inv.config.Analyzer.Analyze(page, cacheProbe)
	if analysis == nil {
		analysis = &analyzer.Analysis{}
	}
	s.Memory.UpsertPage(PageResult{
		URL:        in.URL,
		Fetch:      page,
		CacheProbe: cacheProbe,
		Analysis:   analysis,
		Timestamp:  page.FetchedAt,
	})

	newLinks := links.Extract(string(page.Body), in.URL, s.Memory.Analyzed)
	s.Memory.Discover(newLinks...)
	if len(newLinks) > maxNewLinks {
		newLinks = newLinks[:maxNewLinks]
	}
	s.emit(Event{Kind: EventPageAnalyzed, URL: in.URL, Message: analysis.CacheStatus.Explanation})

	return toJSON(fetchPageOutput{
		URL:          in.URL,
		StatusCode:   page.StatusCode,
		IsWordPress:  analysis.IsWordPress,
		CacheStatus:  analysis.CacheStatus,
		Timing:       analysis.Timing,
		CacheControl: analysis.CacheControl,
		Freshness:    analysis.Freshness,
		Fresh:        analysis.Fresh,
		AgeSeconds:   analysis.AgeSeconds,
		StalePolicy:  analysis.StalePolicy,
		Vary:         analysis.Vary,
		Plugins:      detectionNames(analysis.Plugins),
		CDNs:         detectionNames(analysis.CDNs),
		Conflicts:    conflictKeys(analysis.Conflicts),
		NewLinks:     nonNil(newLinks),
		Server:       analysis.ServerSpecs,
		Hosting:      analysis.Hosting,
	})
}

func detectionNames(detections []analyzer.Detection) []string {
	names := make([]string, 0, len(detections))
	for _, d := range detections {
		names = append(names, d.Name)
	}
	return names
}

func conflictKeys(conflicts []analyzer.Conflict) []string {
	keys := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		keys = append(keys, c.Key())
	}
	return keys
}
