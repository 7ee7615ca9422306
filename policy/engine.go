package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/lensfolio/agent-gateway/domain"
)

// Decision is the outcome of consulting the mode/risk table for one dispatch.
type Decision struct {
	Allow               bool
	RequireConfirmation bool
}

// Engine evaluates the mode/risk decision table. The rego module below is the
// single source of truth for risk gating; no tool may bypass it.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the decision query. Called once at process start.
func NewEngine(ctx context.Context) (*Engine, error) {
	r := rego.New(
		rego.Query("data.agent_gateway.decision"),
		rego.Module("agent_gateway.rego", decisionPolicy),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Decide returns whether a tool of the given risk tier may execute in the
// given mode, and whether it first needs human confirmation. Any evaluation
// failure degrades to deny.
func (e *Engine) Decide(ctx context.Context, mode domain.Mode, risk domain.RiskTier) Decision {
	input := map[string]interface{}{
		"mode": string(mode),
		"risk": string(risk),
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil || len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{}
	}

	decision, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return Decision{}
	}

	switch decision {
	case "allow":
		return Decision{Allow: true}
	case "require_approval":
		return Decision{Allow: true, RequireConfirmation: true}
	default: // "block"
		return Decision{}
	}
}

// decisionPolicy encodes the mode x risk table:
//
//	read_only  allows low only
//	auto_safe  allows low and medium freely, high with confirmation
//	auto_full  allows everything without confirmation
const decisionPolicy = `
package agent_gateway

import rego.v1

default decision := "block"

decision := "allow" if {
	input.mode == "read_only"
	input.risk == "low"
}

decision := "allow" if {
	input.mode == "auto_safe"
	input.risk != "high"
}

decision := "require_approval" if {
	input.mode == "auto_safe"
	input.risk == "high"
}

decision := "allow" if {
	input.mode == "auto_full"
}
`
