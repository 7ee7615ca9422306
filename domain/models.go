package domain

import (
	"encoding/json"
	"time"
)

// Session represents one conversation thread. Scopes are frozen at creation
// time from the caller's role; a role change never retroactively widens or
// narrows an open session. Sessions are retained forever for audit.
type Session struct {
	SessionID string    `json:"session_id"`
	StudioID  string    `json:"studio_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Mode      Mode      `json:"mode"`
	Scopes    []Scope   `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasScope reports whether the session was granted the given scope.
func (s *Session) HasScope(scope Scope) bool {
	for _, g := range s.Scopes {
		if g == scope {
			return true
		}
	}
	return false
}

// Message is one turn in a session's transcript. Append-only, ordered by
// creation time.
type Message struct {
	MessageID string          `json:"message_id"`
	SessionID string          `json:"session_id"`
	Role      string          `json:"role"` // user, assistant, tool
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToolInvocation is one immutable audit ledger entry. Exactly one is written
// per dispatch attempt, whatever the outcome.
type ToolInvocation struct {
	InvocationID string            `json:"invocation_id"`
	SessionID    string            `json:"session_id"`
	ToolName     string            `json:"tool_name"`
	Args         json.RawMessage   `json:"args"`
	Result       json.RawMessage   `json:"result,omitempty"`
	Outcome      InvocationOutcome `json:"outcome"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
	Simulated    bool              `json:"simulated"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Confirmation holds a tool call that was paused pending human approval.
// The pending -> approved transition is the exactly-once execution guard.
type Confirmation struct {
	ConfirmationID string             `json:"confirmation_id"`
	SessionID      string             `json:"session_id"`
	ToolName       string             `json:"tool_name"`
	Args           json.RawMessage    `json:"args"`
	Reason         string             `json:"reason"`
	Status         ConfirmationStatus `json:"status"`
	DecidedBy      string             `json:"decided_by,omitempty"`
	DecidedAt      *time.Time         `json:"decided_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// ShadowDiff records one shadow-mode turn: the legacy outcome, the dry-run
// plan and results of the next-gen path, and a match indicator. Immutable.
type ShadowDiff struct {
	DiffID       string          `json:"diff_id"`
	SessionID    string          `json:"session_id"`
	V1Response   string          `json:"v1_response"`
	V1Error      string          `json:"v1_error,omitempty"`
	V1DurationMs int64           `json:"v1_duration_ms"`
	V2Plan       json.RawMessage `json:"v2_plan,omitempty"`
	V2Results    json.RawMessage `json:"v2_results,omitempty"`
	V2Error      string          `json:"v2_error,omitempty"`
	V2DurationMs int64           `json:"v2_duration_ms"`
	Match        bool            `json:"match"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ShadowStats aggregates shadow diff records for offline review.
type ShadowStats struct {
	Total         int     `json:"total"`
	Matches       int     `json:"matches"`
	Mismatches    int     `json:"mismatches"`
	Errors        int     `json:"errors"`
	AvgV1Duration float64 `json:"avg_v1_duration_ms"`
	AvgV2Duration float64 `json:"avg_v2_duration_ms"`
}

// Client is a CRM client record the built-in tools read and write.
type Client struct {
	ClientID  string    `json:"client_id"`
	StudioID  string    `json:"studio_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientUpdate carries the optional fields of a client update; nil fields are
// left untouched.
type ClientUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// Invoice is an invoicing record scoped to a studio.
type Invoice struct {
	InvoiceID   string    `json:"invoice_id"`
	StudioID    string    `json:"studio_id"`
	ClientID    string    `json:"client_id"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	DueDate     string    `json:"due_date,omitempty"` // YYYY-MM-DD
	CreatedAt   time.Time `json:"created_at"`
}

// Appointment is a calendar entry scoped to a studio.
type Appointment struct {
	AppointmentID string    `json:"appointment_id"`
	StudioID      string    `json:"studio_id"`
	ClientID      string    `json:"client_id,omitempty"`
	Title         string    `json:"title"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
