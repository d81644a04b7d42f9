package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	investigator "github.com/always-cache/cache-investigator"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	r := chi.NewRouter()
	r.Post("/v1/chat/completions", handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	logger := zerolog.Nop()
	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Logger: &logger})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDecideToolCalls(t *testing.T) {
	var sent openai.ChatCompletionRequest
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization is %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Error(err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "choices": [{
    "index": 0,
    "message": {
      "role": "assistant",
      "tool_calls": [
        {"id": "call_1", "type": "function", "function": {"name": "fetch_page", "arguments": "{\"url\":\"https://site.com\"}"}},
        {"id": "call_2", "type": "function", "function": {"name": "dns_lookup", "arguments": ""}}
      ]
    },
    "finish_reason": "tool_calls"
  }]
}`))
	})

	res, err := c.Decide(context.Background(), investigator.Request{
		System: "be thorough",
		Tools:  []investigator.ToolSchema{{Name: "fetch_page", Description: "d", InputSchema: json.RawMessage(`{"type":"object"}`)}},
		Conversation: []investigator.Turn{
			{Role: investigator.RoleUser, Blocks: []investigator.Block{investigator.TextBlock("go")}},
			{Role: investigator.RoleAssistant, Blocks: []investigator.Block{
				investigator.TextBlock("checking"),
				investigator.ToolUseBlock("call_0", "dns_lookup", json.RawMessage(`{"url":"x"}`)),
			}},
			{Role: investigator.RoleUser, Blocks: []investigator.Block{investigator.ToolResultBlock("call_0", "ok", false)}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := investigator.Response{
		Stop: investigator.StopToolUse,
		Blocks: []investigator.Block{
			investigator.ToolUseBlock("call_1", "fetch_page", json.RawMessage(`{"url":"https://site.com"}`)),
			investigator.ToolUseBlock("call_2", "dns_lookup", json.RawMessage(`{}`)),
		},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("Response mismatch (-want +got):\n%s", diff)
	}

	roles := []string{}
	for _, m := range sent.Messages {
		roles = append(roles, m.Role)
	}
	if diff := cmp.Diff([]string{"system", "user", "assistant", "tool"}, roles); diff != "" {
		t.Fatalf("Roles mismatch (-want +got):\n%s", diff)
	}
	if call := sent.Messages[2].ToolCalls; len(call) != 1 || call[0].Function.Arguments != `{"url":"x"}` {
		t.Fatalf("Assistant tool calls sent as %+v", call)
	}
	if sent.Messages[3].ToolCallID != "call_0" || sent.Messages[3].Content != "ok" {
		t.Fatalf("Tool result sent as %+v", sent.Messages[3])
	}
	if len(sent.Tools) != 1 || sent.Tools[0].Function.Name != "fetch_page" {
		t.Fatalf("Tools sent as %+v", sent.Tools)
	}
}

func TestDecideText(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"Done."},"finish_reason":"stop"}]}`))
	})
	res, err := c.Decide(context.Background(), investigator.Request{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stop != investigator.StopEndTurn || len(res.Blocks) != 1 || res.Blocks[0].Text != "Done." {
		t.Fatalf("Response is %+v", res)
	}
}

func TestDecideAPIError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})
	_, err := c.Decide(context.Background(), investigator.Request{})
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected API error, got %v", err)
	}
}

func TestArguments(t *testing.T) {
	if got := string(arguments("not json")); got != `"not json"` {
		t.Fatalf("Invalid arguments became %s", got)
	}
}
