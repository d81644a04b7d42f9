// Package anthropic is a decision oracle backed by the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	investigator "github.com/always-cache/cache-investigator"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	apiVersion       = "2023-06-01"
	DefaultBaseURL   = "https://api.anthropic.com/v1/messages"
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL is the full messages endpoint.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

type Client struct {
	config Config
	log    zerolog.Logger
}

func New(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: no API key")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &Client{
		config: config,
		log:    logger.With().Str("oracle", "anthropic").Str("model", config.Model).Logger(),
	}, nil
}

type request struct {
	Model     string                    `json:"model"`
	MaxTokens int                       `json:"max_tokens"`
	System    string                    `json:"system,omitempty"`
	Tools     []investigator.ToolSchema `json:"tools,omitempty"`
	Messages  []investigator.Turn       `json:"messages"`
}

type response struct {
	ID         string               `json:"id"`
	Content    []investigator.Block `json:"content"`
	StopReason string               `json:"stop_reason"`
	Error      *apiError            `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Decide sends the whole conversation and returns the model's next turn.
// Blocks other than text and tool_use (e.g. thinking) are dropped.
func (c *Client) Decide(ctx context.Context, req investigator.Request) (investigator.Response, error) {
	payload, err := json.Marshal(request{
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
		System:    req.System,
		Tools:     req.Tools,
		Messages:  req.Conversation,
	})
	if err != nil {
		return investigator.Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return investigator.Response{}, err
	}
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	httpReq.Header.Set("content-type", "application/json")

	c.log.Trace().Int("turns", len(req.Conversation)).Int("bytes", len(payload)).Msg("Sending messages request")
	start := time.Now()
	httpRes, err := c.config.HTTPClient.Do(httpReq)
	if err != nil {
		return investigator.Response{}, fmt.Errorf("messages request: %w", err)
	}
	defer httpRes.Body.Close()
	body, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return investigator.Response{}, fmt.Errorf("read response: %w", err)
	}

	var res response
	if err := json.Unmarshal(body, &res); err != nil {
		if httpRes.StatusCode != http.StatusOK {
			return investigator.Response{}, fmt.Errorf("anthropic returned status %d: %s", httpRes.StatusCode, truncate(body, 200))
		}
		return investigator.Response{}, fmt.Errorf("parse response: %w", err)
	}
	if res.Error != nil {
		return investigator.Response{}, fmt.Errorf("anthropic returned status %d: %s: %s", httpRes.StatusCode, res.Error.Type, res.Error.Message)
	}
	if httpRes.StatusCode != http.StatusOK {
		return investigator.Response{}, fmt.Errorf("anthropic returned status %d", httpRes.StatusCode)
	}

	out := investigator.Response{Stop: investigator.StopReason(res.StopReason)}
	for _, b := range res.Content {
		switch b.Type {
		case investigator.BlockText, investigator.BlockToolUse:
			out.Blocks = append(out.Blocks, b)
		default:
			c.log.Trace().Str("type", string(b.Type)).Msg("Dropping content block")
		}
	}
	c.log.Debug().
		Str("id", res.ID).
		Str("stop", res.StopReason).
		Int("blocks", len(out.Blocks)).
		Dur("took", time.Since(start)).
		Msg("Oracle responded")
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
