package domain

import "encoding/json"

// ChatRequest is the body of POST /agent/v2/chat and /agent/shadow/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	Mode      Mode   `json:"mode,omitempty"`
}

// ToolCallSummary is one dispatched tool call as exposed to API callers.
type ToolCallSummary struct {
	Tool      string          `json:"tool"`
	Args      json.RawMessage `json:"args"`
	OK        bool            `json:"ok"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Simulated bool            `json:"simulated"`
}

// ChatResponse is the normal-completion shape of POST /agent/v2/chat.
type ChatResponse struct {
	SessionID string            `json:"sessionId"`
	Message   string            `json:"message"`
	ToolCalls []ToolCallSummary `json:"toolCalls,omitempty"`
	Mode      Mode              `json:"mode"`
}

// ConfirmationResponse is returned instead of a final reply when a high-risk
// tool call needs explicit approval before running for real.
type ConfirmationResponse struct {
	SessionID       string          `json:"sessionId"`
	ConfirmRequired bool            `json:"confirmRequired"`
	ConfirmationID  string          `json:"confirmationId"`
	Tool            string          `json:"tool"`
	Args            json.RawMessage `json:"args"`
	Reason          string          `json:"reason"`
	Message         string          `json:"message"`
}

// ConfirmRequest is the body of POST /agent/v2/confirm/:confirmation_id.
type ConfirmRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// ShadowChatResponse is the body of POST /agent/shadow/chat. It exposes the
// legacy response plus timing only; V2 internals stay invisible to callers.
type ShadowChatResponse struct {
	SessionID  string `json:"sessionId"`
	Message    string `json:"message"`
	ShadowMode bool   `json:"shadowMode"`
	V1Duration int64  `json:"v1Duration"`
	V2Duration int64  `json:"v2Duration"`
}
