// Package llm provides an abstraction for LLM chat completion clients.
package llm

import (
	"context"
	"encoding/json"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Message is one chat message in provider-neutral form.
type Message struct {
	Role       string // system, user, assistant, tool
	Content    string
	ToolCalls  []ToolCall // assistant messages only
	ToolCallID string     // tool messages only
}

// Request is one chat completion request, including the scoped tool catalog.
type Request struct {
	System   string
	Messages []Message
	Tools    []Tool
}

// Tool is a function-calling tool definition passed to the provider.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Response is the model's reply: text, tool call requests, or both.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Client defines the interface for LLM chat completion operations.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
