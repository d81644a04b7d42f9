package investigator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	toolFetchPage = iota
	toolTestCacheBehavior
	toolDNSLookup
	toolCheckWordPressAPI
	toolRecordObservation
	toolFormHypothesis
	toolCompleteAnalysis
	toolCount
)

var toolbox = [...]tool{
	toolFetchPage:         fetchPageTool,
	toolTestCacheBehavior: testCacheBehaviorTool,
	toolDNSLookup:         dnsLookupTool,
	toolCheckWordPressAPI: checkWordPressAPITool,
	toolRecordObservation: recordObservationTool,
	toolFormHypothesis:    formHypothesisTool,
	toolCompleteAnalysis:  completeAnalysisTool,
}

// every tool constant has an entry
var _ [toolCount]struct{} = [len(toolbox)]struct{}{}

var toolsByName = func() map[string]tool {
	m := make(map[string]tool, len(toolbox))
	for _, t := range toolbox {
		m[t.schema().Name] = t
	}
	return m
}()

type tool interface {
	schema() ToolSchema
	run(ctx context.Context, inv *Investigator, s *Session, input json.RawMessage) (string, error)
}

// validator is implemented by tool inputs with required fields.
type validator interface {
	validate() error
}

// typedTool decodes its JSON input into In before calling the handler.
type typedTool[In any] struct {
	name        string
	description string
	inputSchema string
	handler     func(ctx context.Context, inv *Investigator, s *Session, in In) (string, error)
}

func (t typedTool[In]) schema() ToolSchema {
	return ToolSchema{
		Name:        t.name,
		Description: t.description,
		InputSchema: json.RawMessage(t.inputSchema),
	}
}

func (t typedTool[In]) run(ctx context.Context, inv *Investigator, s *Session, input json.RawMessage) (string, error) {
	var in In
	if len(input) == 0 || string(input) == "null" {
		return "", errInvalidInput("no input given")
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return "", errInvalidInput(err.Error())
	}
	if v, ok := any(&in).(validator); ok {
		if err := v.validate(); err != nil {
			return "", errInvalidInput(err.Error())
		}
	}
	return t.handler(ctx, inv, s, in)
}

var ErrInvalidInput = errors.New("invalid input")

func errInvalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func required(fields map[string]string) error {
	var missing []string
	for _, name := range sortedKeys(fields) {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func toolSchemas() []ToolSchema {
	schemas := make([]ToolSchema, 0, len(toolbox))
	for _, t := range toolbox {
		schemas = append(schemas, t.schema())
	}
	return schemas
}

// execute runs one tool invocation and turns its outcome, whatever it is,
// into a tool result block.
func (inv *Investigator) execute(ctx context.Context, s *Session, use Block) Block {
	s.emit(Event{Kind: EventToolUse, Tool: use.Name, Input: use.Input})
	logger := inv.log.With().Str("run", s.ID).Str("tool", use.Name).Logger()
	if inv.config.Verbose {
		logger.Debug().RawJSON("input", validJSON(use.Input)).Msg("Calling tool")
	}

	start := time.Now()
	content, isError := inv.dispatch(ctx, s, use)
	took := time.Since(start)

	if isError {
		logger.Warn().Dur("took", took).Msg(content)
	} else if inv.config.Verbose {
		logger.Debug().Dur("took", took).Str("output", content).Msg("Tool finished")
	} else {
		logger.Trace().Dur("took", took).Msg("Tool finished")
	}
	s.emit(Event{Kind: EventToolResult, Tool: use.Name, Duration: took, Failed: isError, Message: content})
	return ToolResultBlock(use.ID, content, isError)
}

// dispatch never panics and never returns an error: whatever goes wrong is
// reported to the oracle as text.
func (inv *Investigator) dispatch(ctx context.Context, s *Session, use Block) (content string, isError bool) {
	t, ok := toolsByName[use.Name]
	if !ok {
		return fmt.Sprintf("Unknown tool: %s", use.Name), true
	}
	defer func() {
		if r := recover(); r != nil {
			inv.log.Error().Str("tool", use.Name).Interface("panic", r).Msg("Recovered from tool panic")
			content = fmt.Sprintf("Error executing %s: internal error: %v", use.Name, r)
			isError = true
		}
	}()
	out, err := t.run(ctx, inv, s, use.Input)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %s", use.Name, err), true
	}
	return out, false
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

func validJSON(raw json.RawMessage) []byte {
	if json.Valid(raw) {
		return raw
	}
	b, _ := json.Marshal(string(raw))
	return b
}
