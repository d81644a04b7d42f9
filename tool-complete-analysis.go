package investigator

import (
	"context"
	"fmt"
	"strings"
)

type completeInput struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	Confidence      string   `json:"confidence"`
	Gaps            []string `json:"gaps"`
}

func (in *completeInput) validate() error {
	if err := required(map[string]string{"summary": in.Summary, "confidence": in.Confidence}); err != nil {
		return err
	}
	// an empty list is fine, a missing one is not
	if in.Recommendations == nil {
		return fmt.Errorf("missing required field(s): recommendations")
	}
	switch Confidence(strings.ToLower(strings.TrimSpace(in.Confidence))) {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return nil
	}
	return fmt.Errorf("confidence must be low, medium or high, not %q", in.Confidence)
}

var completeAnalysisTool = typedTool[completeInput]{
	name: "complete_analysis",
	description: "Finish the investigation with a summary of findings, prioritized recommendations, " +
		"your confidence and the gaps in the evidence. Nothing after this call is executed.",
	inputSchema: `{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "recommendations": {"type": "array", "items": {"type": "string"}},
    "confidence": {"type": "string", "enum": ["low", "medium", "high"]},
    "gaps": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["summary", "recommendations", "confidence"]
}`,
	handler: completeAnalysis,
}

func completeAnalysis(ctx context.Context, inv *Investigator, s *Session, in completeInput) (string, error) {
	if s.completed {
		return "Analysis already completed.", nil
	}
	s.Final = &FinalAnalysis{
		Summary:         in.Summary,
		Recommendations: in.Recommendations,
		Confidence:      Confidence(strings.ToLower(strings.TrimSpace(in.Confidence))),
		Gaps:            in.Gaps,
	}
	s.completed = true
	s.emit(Event{Kind: EventLog, Message: "Analysis completed with " + string(s.Final.Confidence) + " confidence"})
	return "Analysis complete.", nil
}
