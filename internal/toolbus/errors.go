package toolbus

import (
	"fmt"

	"github.com/lensfolio/agent-gateway/domain"
)

// ToolNotFoundError reports a dispatch against a tool name nobody registered.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Tool)
}

// ValidationError reports arguments that failed the tool's parameter schema.
type ValidationError struct {
	Tool   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Detail)
}

// AuthorizationError reports a dispatch the caller's scopes or mode do not
// permit. Scope denials populate Required; mode denials populate Mode and
// Risk. Either way the details reach the caller for diagnostics; this is
// never downgraded to a generic error.
type AuthorizationError struct {
	Tool     string
	Reason   string
	Required []domain.Scope
	Granted  []domain.Scope
	Mode     domain.Mode     // set when the denial came from mode/risk gating
	Risk     domain.RiskTier // risk tier of the blocked tool
}

func (e *AuthorizationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("not authorized to run %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("not authorized to run %s: requires scope %v, granted %v", e.Tool, e.Required, e.Granted)
}

// ExecutionError wraps any failure thrown by a tool executor, including
// timeouts. Not fatal to a turn; the assistant gets to explain it.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
