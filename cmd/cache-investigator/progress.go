package main

import (
	investigator "github.com/always-cache/cache-investigator"
	"github.com/rs/zerolog/log"
)

// progress logs investigation events as they happen.
type progress struct {
	verbose bool
}

func (p progress) Observe(e investigator.Event) {
	switch e.Kind {
	case investigator.EventThinking:
		log.Info().Int("iteration", e.Iteration).Msg(e.Message)
	case investigator.EventToolUse:
		ev := log.Info().Int("iteration", e.Iteration).Str("tool", e.Tool)
		if p.verbose && len(e.Input) > 0 {
			ev = ev.RawJSON("input", e.Input)
		}
		ev.Msg("Calling tool")
	case investigator.EventToolResult:
		ev := log.Debug().Str("tool", e.Tool).Dur("took", e.Duration).Bool("failed", e.Failed)
		if p.verbose {
			ev = ev.Str("output", e.Message)
		}
		ev.Msg("Tool finished")
	case investigator.EventPageAnalyzed:
		log.Info().Str("url", e.URL).Msg(e.Message)
	case investigator.EventObservation:
		log.Info().Msg("Observation: " + e.Message)
	case investigator.EventHypothesis:
		log.Info().Msg("Hypothesis: " + e.Message)
	case investigator.EventExperiment:
		log.Info().Str("test", e.Tool).Str("url", e.URL).Msg("Experiment: " + e.Message)
	case investigator.EventError:
		log.Error().Err(e.Err).Msg(e.Message)
	case investigator.EventLog:
		log.Debug().Msg(e.Message)
	}
}
