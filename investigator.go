// Package investigator runs an LLM-driven investigation of a website's HTTP
// caching. An Oracle picks diagnostic actions turn by turn; the investigator
// executes them against the site, keeps the evidence in Memory and reduces
// it to a Summary when the oracle completes or the iteration cap is hit.
package investigator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/always-cache/cache-investigator/analyzer"
	links "github.com/always-cache/cache-investigator/pkg/link-extractor"
	"github.com/always-cache/cache-investigator/probe"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxIterations   = 15
	DefaultTimeout         = 30 * time.Second
	DefaultExperimentDelay = probe.DefaultDelay
)

type Config struct {
	// Site to investigate. fetch_page is restricted to its hostname.
	BaseURL string
	// Oracle deciding the next action. Required.
	Oracle Oracle
	// Upper bound for oracle round-trips.
	MaxIterations int
	// Deadline of each collaborator call (fetch, probe, DNS, WordPress).
	Timeout time.Duration
	// Deadline of each oracle call. Zero means none.
	OracleTimeout time.Duration
	// Pause between the two requests of test_cache_behavior.
	ExperimentDelay time.Duration
	// Tool results older than this many turns are shortened before being
	// sent to the oracle. Zero keeps the full conversation.
	CompactAfter int
	// Log tool inputs and outputs.
	Verbose bool

	// Collaborators. The probe and analyzer packages are used for the ones left nil.
	Fetcher   Fetcher
	Prober    CacheProber
	Resolver  Resolver
	WordPress WordPressProber
	Analyzer  Analyzer

	// Optional progress observer.
	Observer Observer
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

type Investigator struct {
	config  Config
	baseURL *url.URL
	tools   []ToolSchema
	log     zerolog.Logger
}

// New validates config and fills in defaults.
func New(config Config) (*Investigator, error) {
	base, err := ParseTarget(config.BaseURL)
	if err != nil {
		return nil, err
	}
	config.BaseURL = base.String()
	if config.Oracle == nil {
		return nil, fmt.Errorf("no oracle configured")
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultMaxIterations
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.ExperimentDelay == 0 {
		config.ExperimentDelay = DefaultExperimentDelay
	}

	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	logger = logger.With().Str("target", base.Host).Logger()

	if config.Fetcher == nil {
		config.Fetcher = probe.NewHTTPClient(probe.Config{Logger: &logger})
	}
	if config.Prober == nil {
		config.Prober = &probe.DoubleHitProber{Fetcher: config.Fetcher, Delay: config.ExperimentDelay}
	}
	if config.Resolver == nil {
		config.Resolver = probe.NewDNS()
	}
	if config.WordPress == nil {
		config.WordPress = probe.NewWordPress(config.Fetcher)
	}
	if config.Analyzer == nil {
		config.Analyzer = analyzer.New()
	}

	return &Investigator{
		config:  config,
		baseURL: base,
		tools:   toolSchemas(),
		log:     logger,
	}, nil
}

// ParseTarget accepts absolute http(s) URLs, and bare hostnames which are
// taken as https.
func ParseTarget(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("no URL given")
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL %q: scheme must be http or https", rawURL)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid URL %q: no hostname", rawURL)
	}
	return u, nil
}

// Session is the mutable state of one run. It is owned by the goroutine
// executing Run.
type Session struct {
	ID           string
	BaseURL      string
	State        State
	Iterations   int
	Memory       *Memory
	Conversation *Conversation
	Final        *FinalAnalysis
	StartedAt    time.Time

	completed bool
	observer  Observer
}

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

type FinalAnalysis struct {
	Summary         string     `json:"summary"`
	Recommendations []string   `json:"recommendations"`
	Confidence      Confidence `json:"confidence"`
	Gaps            []string   `json:"gaps,omitempty"`
}

type Result struct {
	ID         string         `json:"id"`
	BaseURL    string         `json:"baseUrl"`
	State      State          `json:"state"`
	Iterations int            `json:"iterations"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Final      *FinalAnalysis `json:"finalAnalysis,omitempty"`
	Summary    Summary        `json:"summary"`
	Memory     *Memory        `json:"memory"`
	// Full transcript, as stored before any compaction.
	Conversation []Turn `json:"-"`
}

// Run investigates the site until the oracle completes the analysis or the
// iteration cap is reached. If the oracle fails, Run returns the partial
// result together with an error wrapping ErrOracle.
func (inv *Investigator) Run(ctx context.Context) (*Result, error) {
	s := &Session{
		ID:           uuid.NewString(),
		BaseURL:      inv.config.BaseURL,
		State:        StateInit,
		Memory:       NewMemory(inv.config.BaseURL),
		Conversation: &Conversation{},
		StartedAt:    time.Now(),
		observer:     inv.config.Observer,
	}
	logger := inv.log.With().Str("run", s.ID).Logger()
	logger.Info().Int("maxIterations", inv.config.MaxIterations).Msg("Starting investigation")
	s.emit(Event{Kind: EventLog, Message: "Starting investigation of " + s.BaseURL})

	s.Conversation.Append(Turn{Role: RoleUser, Blocks: []Block{TextBlock(initialPrompt(s.BaseURL))}})

	var runErr error
	for !s.State.Terminal() {
		s.transition(StateAwaitingOracle)
		if s.Iterations >= inv.config.MaxIterations {
			s.transition(StateExhausted)
			s.Final = exhaustedAnalysis(inv.config.MaxIterations)
			logger.Warn().Int("iterations", s.Iterations).Msg("Iteration cap reached without completion")
			s.emit(Event{Kind: EventLog, Message: "Iteration cap reached", State: s.State})
			break
		}
		s.Iterations++
		logger.Debug().Int("iteration", s.Iterations).Msg("Asking oracle")

		res, err := inv.decide(ctx, s)
		if err != nil {
			s.transition(StateAborted)
			runErr = fmt.Errorf("%w: iteration %d: %w", ErrOracle, s.Iterations, err)
			logger.Error().Err(err).Int("iteration", s.Iterations).Msg("Oracle call failed")
			s.emit(Event{Kind: EventError, Message: "Oracle call failed", Err: err, State: s.State})
			break
		}
		for _, b := range res.Blocks {
			if b.Type == BlockText && strings.TrimSpace(b.Text) != "" {
				s.emit(Event{Kind: EventThinking, Message: b.Text})
			}
		}

		uses := res.ToolUses()
		if len(uses) == 0 {
			logger.Debug().Str("stop", string(res.Stop)).Msg("Oracle made no tool call, nudging")
			s.Conversation.Append(Turn{Role: RoleAssistant, Blocks: res.Blocks})
			s.Conversation.Append(Turn{Role: RoleUser, Blocks: []Block{TextBlock(nudgePrompt)}})
			continue
		}

		s.transition(StateExecutingTools)
		results := make([]Block, 0, len(uses))
		for _, use := range uses {
			if s.completed {
				results = append(results, ToolResultBlock(use.ID, skippedResult, false))
				logger.Debug().Str("tool", use.Name).Msg("Skipping tool call after completion")
				continue
			}
			results = append(results, inv.execute(ctx, s, use))
		}
		s.Conversation.Append(Turn{Role: RoleAssistant, Blocks: res.Blocks})
		s.Conversation.Append(Turn{Role: RoleUser, Blocks: results})

		if s.completed {
			s.transition(StateCompleted)
		}
	}

	result := &Result{
		ID:         s.ID,
		BaseURL:    s.BaseURL,
		State:      s.State,
		Iterations: s.Iterations,
		StartedAt:  s.StartedAt,
		FinishedAt: time.Now(),
		Final:      s.Final,
		Summary:    Summarize(s.BaseURL, s.Memory, s.Final),
		Memory:     s.Memory,

		Conversation: s.Conversation.Turns(),
	}
	logger.Info().
		Str("state", string(s.State)).
		Int("iterations", s.Iterations).
		Int("pages", result.Summary.PagesAnalyzed).
		Dur("took", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Investigation finished")
	s.emit(Event{Kind: EventComplete, State: s.State, Message: result.Summary.FinalAnalysis, Err: runErr})
	return result, runErr
}

func (inv *Investigator) decide(ctx context.Context, s *Session) (Response, error) {
	if inv.config.OracleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.config.OracleTimeout)
		defer cancel()
	}
	return inv.config.Oracle.Decide(ctx, Request{
		System:       systemPrompt,
		Tools:        inv.tools,
		Conversation: s.Conversation.view(inv.config.CompactAfter),
	})
}

// callContext bounds a single collaborator call.
func (inv *Investigator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, inv.config.Timeout)
}

func (inv *Investigator) sameHost(rawURL string) bool {
	return links.SameHost(rawURL, inv.config.BaseURL)
}
