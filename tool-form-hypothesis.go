package investigator

import (
	"context"
	"fmt"
)

type hypothesisInput struct {
	Hypothesis string `json:"hypothesis"`
}

func (in *hypothesisInput) validate() error {
	return required(map[string]string{"hypothesis": in.Hypothesis})
}

var formHypothesisTool = typedTool[hypothesisInput]{
	name:        "form_hypothesis",
	description: "State a hypothesis about why caching behaves the way it does, to be tested next.",
	inputSchema: `{
  "type": "object",
  "properties": {
    "hypothesis": {"type": "string"}
  },
  "required": ["hypothesis"]
}`,
	handler: formHypothesis,
}

func formHypothesis(ctx context.Context, inv *Investigator, s *Session, in hypothesisInput) (string, error) {
	s.Memory.AddHypothesis(in.Hypothesis)
	s.emit(Event{Kind: EventHypothesis, Message: in.Hypothesis})
	return fmt.Sprintf("Hypothesis formed: %s. You can now test it with test_cache_behavior.", in.Hypothesis), nil
}
