package investigator

import (
	"encoding/json"
	"time"
)

type EventKind string

const (
	EventThinking     EventKind = "thinking"
	EventToolUse      EventKind = "tool_use"
	EventToolResult   EventKind = "tool_result"
	EventObservation  EventKind = "observation"
	EventHypothesis   EventKind = "hypothesis"
	EventPageAnalyzed EventKind = "page_analyzed"
	EventExperiment   EventKind = "experiment"
	EventLog          EventKind = "log"
	EventError        EventKind = "error"
	EventComplete     EventKind = "complete"
)

// Event is a progress notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind       `json:"kind"`
	RunID     string          `json:"runId"`
	Iteration int             `json:"iteration"`
	Time      time.Time       `json:"time"`
	Message   string          `json:"message,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Duration  time.Duration   `json:"duration,omitempty"`
	Failed    bool            `json:"failed,omitempty"`
	URL       string          `json:"url,omitempty"`
	State     State           `json:"state,omitempty"`
	Err       error           `json:"-"`
}

// Observer receives progress events. It is called synchronously from the
// investigation loop and must not block.
type Observer interface {
	Observe(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Observers fans an event out to several observers.
type Observers []Observer

func (o Observers) Observe(e Event) {
	for _, observer := range o {
		if observer != nil {
			observer.Observe(e)
		}
	}
}

func (s *Session) emit(e Event) {
	if s.observer == nil {
		return
	}
	e.RunID = s.ID
	e.Iteration = s.Iterations
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.observer.Observe(e)
}
