// Package openai is a decision oracle backed by the OpenAI chat completions
// API with function calling.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	investigator "github.com/always-cache/cache-investigator"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel     = openai.GPT4o
	DefaultMaxTokens = 4096
)

type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL overrides the API root, e.g. for a compatible gateway.
	BaseURL string
	Logger  *zerolog.Logger
}

type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
	log       zerolog.Logger
}

func New(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai: no API key")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     config.Model,
		maxTokens: config.MaxTokens,
		log:       logger.With().Str("oracle", "openai").Str("model", config.Model).Logger(),
	}, nil
}

func (c *Client) Decide(ctx context.Context, req investigator.Request) (investigator.Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:               c.model,
		MaxCompletionTokens: c.maxTokens,
		Messages:            messages(req.System, req.Conversation),
		Tools:               tools(req.Tools),
	}

	start := time.Now()
	res, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return investigator.Response{}, fmt.Errorf("openai returned status %d: %w", apiErr.HTTPStatusCode, err)
		}
		return investigator.Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(res.Choices) == 0 {
		return investigator.Response{}, fmt.Errorf("openai returned no choices")
	}

	choice := res.Choices[0]
	out := response(choice)
	c.log.Debug().
		Str("id", res.ID).
		Str("finish", string(choice.FinishReason)).
		Int("toolCalls", len(choice.Message.ToolCalls)).
		Dur("took", time.Since(start)).
		Msg("Oracle responded")
	return out, nil
}

func tools(schemas []investigator.ToolSchema) []openai.Tool {
	var out []openai.Tool
	for _, s := range schemas {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.InputSchema,
			},
		})
	}
	return out
}

// messages flattens block turns into chat messages. Tool results become
// one "tool" message each, answering the assistant's tool calls by ID.
func messages(system string, turns []investigator.Turn) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, turn := range turns {
		var text []string
		var calls []openai.ToolCall
		for _, b := range turn.Blocks {
			switch b.Type {
			case investigator.BlockText:
				text = append(text, b.Text)
			case investigator.BlockToolUse:
				calls = append(calls, openai.ToolCall{
					ID:   b.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      b.Name,
						Arguments: string(b.Input),
					},
				})
			case investigator.BlockToolResult:
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    b.Content,
					ToolCallID: b.ToolUseID,
				})
			}
		}
		if turn.Role == investigator.RoleAssistant {
			out = append(out, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   strings.Join(text, "\n"),
				ToolCalls: calls,
			})
		} else if len(text) > 0 {
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: strings.Join(text, "\n"),
			})
		}
	}
	return out
}

func response(choice openai.ChatCompletionChoice) investigator.Response {
	var out investigator.Response
	if choice.Message.Content != "" {
		out.Blocks = append(out.Blocks, investigator.TextBlock(choice.Message.Content))
	}
	for _, call := range choice.Message.ToolCalls {
		out.Blocks = append(out.Blocks, investigator.ToolUseBlock(call.ID, call.Function.Name, arguments(call.Function.Arguments)))
	}

	switch {
	case choice.FinishReason == openai.FinishReasonToolCalls || len(choice.Message.ToolCalls) > 0:
		out.Stop = investigator.StopToolUse
	case choice.FinishReason == openai.FinishReasonLength:
		out.Stop = investigator.StopMaxTokens
	default:
		out.Stop = investigator.StopEndTurn
	}
	return out
}

// arguments keeps the conversation valid JSON even when the model emits
// broken arguments; the tool then rejects the input.
func arguments(args string) json.RawMessage {
	args = strings.TrimSpace(args)
	if args == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	quoted, _ := json.Marshal(args)
	return quoted
}
