package investigator

import "fmt"

const systemPrompt = `You are an expert in HTTP caching, CDNs and WordPress performance.
You are investigating why caching does or does not work on a website.

Work like a scientist:
1. Fetch the home page and a few representative pages with fetch_page.
2. Record what you notice with record_observation.
3. Form explicit hypotheses with form_hypothesis.
4. Test them with test_cache_behavior, dns_lookup and check_wordpress_api.
5. When the evidence is sufficient, call complete_analysis with a summary,
   concrete recommendations, your confidence and any gaps in the evidence.

Rules:
- fetch_page only works for pages on the site being investigated.
- Every request you make hits the live site, so prefer a few targeted
  requests over crawling.
- Always end the investigation with complete_analysis.`

func initialPrompt(baseURL string) string {
	return fmt.Sprintf("Investigate the HTTP caching setup of %s. "+
		"Find out which caches sit in front of it, whether they actually serve cached pages, "+
		"and what prevents caching where it fails. Start by fetching the home page.", baseURL)
}

const nudgePrompt = "Continue the investigation by calling one of the tools. " +
	"If you have enough evidence, call complete_analysis."

const skippedResult = "skipped: analysis already completed"

const incompleteAnalysis = "Analysis incomplete - the investigation did not reach a conclusion."

func exhaustedAnalysis(maxIterations int) *FinalAnalysis {
	return &FinalAnalysis{
		Summary: fmt.Sprintf("The investigation stopped after %d iterations without a conclusion. "+
			"The observations, hypotheses and experiments gathered so far are included.", maxIterations),
		Recommendations: []string{
			fmt.Sprintf("Re-run the investigation with a higher -max-iterations than %d to let it finish.", maxIterations),
		},
		Confidence: ConfidenceLow,
	}
}
