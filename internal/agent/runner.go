// Package agent hosts the two conversational agent implementations: the
// legacy keyword-driven responder and the tool-bus orchestrator.
package agent

import (
	"context"
	"encoding/json"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/toolbus"
)

// Identity is the caller as established by the platform's auth layer.
type Identity struct {
	UserID   string
	StudioID string
	Role     domain.Role
}

// TurnInput is one conversational turn request.
type TurnInput struct {
	SessionID string
	Message   string
	Mode      domain.Mode // optional per-turn override
	Identity  Identity
	DryRun    bool // shadow execution: no tool side effects, no transcript writes
}

// TurnOutput is the result of one turn.
type TurnOutput struct {
	SessionID    string
	Message      string
	Mode         domain.Mode
	ToolCalls    []domain.ToolCallSummary
	Actions      []string // names of the actions/tools the runner performed
	Confirmation *toolbus.PendingConfirmation
}

// AgentRunner runs exactly one conversational turn. The shadow comparator
// depends only on this interface, never on a concrete implementation.
type AgentRunner interface {
	Run(ctx context.Context, in TurnInput) (TurnOutput, error)
}

func rawArgs(args json.RawMessage) json.RawMessage {
	if len(args) == 0 {
		return json.RawMessage(`{}`)
	}
	return args
}
