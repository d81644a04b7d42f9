// Package metrics exposes investigation progress as Prometheus metrics.
//
// Metrics implements investigator.Observer, so it can be passed as
// Config.Observer (alone or inside investigator.Observers).
package metrics

import (
	investigator "github.com/always-cache/cache-investigator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cache_investigator"

type Metrics struct {
	// Labels: tool, outcome (ok, error)
	ToolCalls *prometheus.CounterVec
	// Labels: tool
	ToolDuration *prometheus.HistogramVec
	// Labels: test
	Experiments   *prometheus.CounterVec
	PagesAnalyzed prometheus.Counter
	OracleTurns   prometheus.Counter
	OracleErrors  prometheus.Counter
	// Labels: state (terminal state of the run)
	Runs *prometheus.CounterVec
}

// New registers the metrics with reg. Pass prometheus.DefaultRegisterer to
// expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and outcome",
		}, []string{"tool", "outcome"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool execution time in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"tool"}),
		Experiments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "experiments_total",
			Help:      "Cache behavior experiments by test type",
		}, []string{"test"}),
		PagesAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_analyzed_total",
			Help:      "Pages fetched and analyzed",
		}),
		OracleTurns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_turns_total",
			Help:      "Iterations of the investigation loop",
		}),
		OracleErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_errors_total",
			Help:      "Oracle calls that failed and aborted a run",
		}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished investigations by terminal state",
		}, []string{"state"}),
	}
}

func (m *Metrics) Observe(e investigator.Event) {
	switch e.Kind {
	case investigator.EventToolResult:
		outcome := "ok"
		if e.Failed {
			outcome = "error"
		}
		m.ToolCalls.WithLabelValues(e.Tool, outcome).Inc()
		m.ToolDuration.WithLabelValues(e.Tool).Observe(e.Duration.Seconds())
	case investigator.EventPageAnalyzed:
		m.PagesAnalyzed.Inc()
	case investigator.EventExperiment:
		m.Experiments.WithLabelValues(e.Tool).Inc()
	case investigator.EventError:
		m.OracleErrors.Inc()
	case investigator.EventComplete:
		m.OracleTurns.Add(float64(e.Iteration))
		m.Runs.WithLabelValues(string(e.State)).Inc()
	}
}
