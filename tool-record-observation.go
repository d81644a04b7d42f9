package investigator

import (
	"context"
	"fmt"
)

type observationInput struct {
	Observation string `json:"observation"`
}

func (in *observationInput) validate() error {
	return required(map[string]string{"observation": in.Observation})
}

var recordObservationTool = typedTool[observationInput]{
	name:        "record_observation",
	description: "Record a factual observation about the site's caching for the final report.",
	inputSchema: `{
  "type": "object",
  "properties": {
    "observation": {"type": "string"}
  },
  "required": ["observation"]
}`,
	handler: recordObservation,
}

func recordObservation(ctx context.Context, inv *Investigator, s *Session, in observationInput) (string, error) {
	s.Memory.AddObservation(in.Observation)
	s.emit(Event{Kind: EventObservation, Message: in.Observation})
	return fmt.Sprintf("Observation recorded: %s", in.Observation), nil
}
