package investigator

// Summary is the condensed outcome of a run.
type Summary struct {
	BaseURL         string             `json:"baseUrl"`
	PagesAnalyzed   int                `json:"pagesAnalyzed"`
	CacheWorking    bool               `json:"cacheWorking"`
	Plugins         []string           `json:"plugins"`
	CDNs            []string           `json:"cdns"`
	Conflicts       []string           `json:"conflicts"`
	Experiments     []ExperimentResult `json:"experiments"`
	Observations    []string           `json:"observations"`
	Hypotheses      []string           `json:"hypotheses"`
	FinalAnalysis   string             `json:"finalAnalysis"`
	Recommendations []string           `json:"recommendations"`
	Confidence      Confidence         `json:"confidence,omitempty"`
	Gaps            []string           `json:"gaps,omitempty"`
}

// Summarize reduces memory and the final analysis, which may be nil.
func Summarize(baseURL string, m *Memory, final *FinalAnalysis) Summary {
	summary := Summary{
		BaseURL:         baseURL,
		Plugins:         []string{},
		CDNs:            []string{},
		Conflicts:       []string{},
		Experiments:     nonNil(m.Experiments()),
		Observations:    nonNil(m.Observations()),
		Hypotheses:      nonNil(m.Hypotheses()),
		FinalAnalysis:   incompleteAnalysis,
		Recommendations: []string{},
	}

	seenPlugins := make(map[string]bool)
	seenCDNs := make(map[string]bool)
	seenConflicts := make(map[string]bool)
	working := 0
	pages := m.Pages()
	for _, page := range pages {
		a := page.Analysis
		if a == nil {
			continue
		}
		if a.CacheStatus.Working {
			working++
		}
		for _, p := range a.Plugins {
			if !seenPlugins[p.Name] {
				seenPlugins[p.Name] = true
				summary.Plugins = append(summary.Plugins, p.Name)
			}
		}
		for _, c := range a.CDNs {
			if !seenCDNs[c.Name] {
				seenCDNs[c.Name] = true
				summary.CDNs = append(summary.CDNs, c.Name)
			}
		}
		for _, c := range a.Conflicts {
			if key := c.Key(); !seenConflicts[key] {
				seenConflicts[key] = true
				summary.Conflicts = append(summary.Conflicts, key)
			}
		}
	}
	summary.PagesAnalyzed = len(pages)
	// strict majority; no pages means no evidence
	summary.CacheWorking = working*2 > len(pages)

	if final != nil {
		summary.FinalAnalysis = final.Summary
		summary.Recommendations = nonNil(append([]string(nil), final.Recommendations...))
		summary.Confidence = final.Confidence
		summary.Gaps = final.Gaps
	}
	return summary
}
