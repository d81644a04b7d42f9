package investigator

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrOracle wraps every failure of the decision oracle. Such failures end
// the run.
var ErrOracle = errors.New("oracle failed")

type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Block is one piece of a conversation turn. Which fields are set depends
// on Type.
type Block struct {
	Type BlockType `json:"type"`
	// text
	Text string `json:"text,omitempty"`
	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

func ToolUseBlock(id, name string, input json.RawMessage) Block {
	return Block{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role   Role    `json:"role"`
	Blocks []Block `json:"content"`
}

// ToolSchema describes one action to the oracle.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type StopReason string

const (
	// more tool turns are expected
	StopToolUse StopReason = "tool_use"
	// the oracle considers its turn final
	StopEndTurn   StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
)

type Request struct {
	System       string
	Tools        []ToolSchema
	Conversation []Turn
}

type Response struct {
	Blocks []Block
	Stop   StopReason
}

// ToolUses returns the tool invocations of the response, in order.
func (r Response) ToolUses() []Block {
	var uses []Block
	for _, b := range r.Blocks {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// Oracle decides the next action given the whole conversation so far.
type Oracle interface {
	Decide(ctx context.Context, req Request) (Response, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, req Request) (Response, error)

func (f OracleFunc) Decide(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
