package toolbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/policy"
	"github.com/lensfolio/agent-gateway/store"
)

// PendingConfirmation is the result variant returned when a dispatch was
// paused for human approval. Distinguishable without string matching.
type PendingConfirmation struct {
	ConfirmationID string          `json:"confirmationId"`
	Tool           string          `json:"tool"`
	Args           json.RawMessage `json:"args"`
	Reason         string          `json:"reason"`
}

// Result is the outcome of one dispatch. Exactly one of Data, Err or
// Confirmation is meaningful.
type Result struct {
	OK           bool
	Data         json.RawMessage
	Err          error
	Confirmation *PendingConfirmation
}

// Bus mediates every tool execution: lookup, schema validation, scope check,
// mode/risk gating, confirm-or-execute, and exactly one audit record per
// dispatch attempt whatever the branch taken.
type Bus struct {
	registry    *Registry
	store       store.Store
	policy      *policy.Engine
	logger      *zap.Logger
	toolTimeout time.Duration
}

// New creates a Bus. toolTimeout bounds every executor call.
func New(registry *Registry, st store.Store, engine *policy.Engine, logger *zap.Logger, toolTimeout time.Duration) *Bus {
	if toolTimeout <= 0 {
		toolTimeout = 30 * time.Second
	}
	return &Bus{
		registry:    registry,
		store:       st,
		policy:      engine,
		logger:      logger,
		toolTimeout: toolTimeout,
	}
}

// Registry exposes the bus's tool catalog.
func (b *Bus) Registry() *Registry {
	return b.registry
}

// Dispatch is the single execution entry point for tools.
func (b *Bus) Dispatch(ctx context.Context, ec ExecContext, toolName string, args json.RawMessage) Result {
	start := time.Now()
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	rt := b.registry.get(toolName)
	if rt == nil {
		err := &ToolNotFoundError{Tool: toolName}
		b.audit(ctx, ec, toolName, args, nil, domain.OutcomeNotFound, err, start)
		return Result{Err: err}
	}
	b.registry.recordUse(toolName)

	// Validate args against the tool's declared parameter schema.
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		verr := &ValidationError{Tool: toolName, Detail: "arguments are not valid JSON"}
		b.audit(ctx, ec, toolName, args, nil, domain.OutcomeValidationError, verr, start)
		return Result{Err: verr}
	}
	if err := rt.schema.Validate(decoded); err != nil {
		verr := &ValidationError{Tool: toolName, Detail: err.Error()}
		b.audit(ctx, ec, toolName, args, nil, domain.OutcomeValidationError, verr, start)
		return Result{Err: verr}
	}

	// Scope check.
	if !ec.HasScope(rt.def.Scope) {
		aerr := &AuthorizationError{
			Tool:     toolName,
			Required: []domain.Scope{rt.def.Scope},
			Granted:  ec.Scopes,
		}
		b.audit(ctx, ec, toolName, args, nil, domain.OutcomeAuthorizationError, aerr, start)
		return Result{Err: aerr}
	}

	// Mode/risk gating. The policy table is authoritative; no tool bypasses it.
	decision := b.policy.Decide(ctx, ec.Mode, rt.def.Risk)
	if !decision.Allow {
		aerr := &AuthorizationError{
			Tool:    toolName,
			Reason:  fmt.Sprintf("mode %s does not permit %s risk tools", ec.Mode, rt.def.Risk),
			Granted: ec.Scopes,
			Mode:    ec.Mode,
			Risk:    rt.def.Risk,
		}
		b.audit(ctx, ec, toolName, args, nil, domain.OutcomeAuthorizationError, aerr, start)
		return Result{Err: aerr}
	}

	if decision.RequireConfirmation && !ec.Confirmed {
		conf := &domain.Confirmation{
			ConfirmationID: "cf_" + uuid.New().String(),
			SessionID:      ec.SessionID,
			ToolName:       toolName,
			Args:           args,
			Reason:         fmt.Sprintf("%s is a %s risk action; mode %s requires explicit confirmation before it runs", toolName, rt.def.Risk, ec.Mode),
			Status:         domain.ConfirmationPending,
			CreatedAt:      time.Now().UTC(),
		}
		// Dry runs report the pause without holding a real confirmation row.
		if !ec.DryRun {
			if err := b.store.CreateConfirmation(ctx, conf); err != nil {
				eerr := &ExecutionError{Tool: toolName, Err: fmt.Errorf("failed to persist confirmation: %w", err)}
				b.audit(ctx, ec, toolName, args, nil, domain.OutcomeExecutionError, eerr, start)
				return Result{Err: eerr}
			}
		}
		// A confirmation pause is its own auditable outcome, not a silent gap.
		b.audit(ctx, ec, toolName, args, nil, domain.OutcomeConfirmationRequired, nil, start)
		return Result{Confirmation: &PendingConfirmation{
			ConfirmationID: conf.ConfirmationID,
			Tool:           toolName,
			Args:           args,
			Reason:         conf.Reason,
		}}
	}

	// Execute, bounded by the tool timeout. A timed-out executor is an
	// ExecutionError for this tool, not a crash of the whole turn.
	execCtx, cancel := context.WithTimeout(ctx, b.toolTimeout)
	defer cancel()
	data, err := rt.def.Execute(execCtx, ec, args)
	if err != nil {
		eerr := &ExecutionError{Tool: toolName, Err: err}
		b.audit(ctx, ec, toolName, args, nil, domain.OutcomeExecutionError, eerr, start)
		return Result{Err: eerr}
	}

	b.audit(ctx, ec, toolName, args, data, domain.OutcomeOK, nil, start)
	return Result{OK: true, Data: data}
}

// audit writes exactly one invocation record. A failed write is logged, never
// propagated, so audit trouble cannot mask a tool outcome.
func (b *Bus) audit(ctx context.Context, ec ExecContext, toolName string, args, result json.RawMessage, outcome domain.InvocationOutcome, dispatchErr error, start time.Time) {
	inv := &domain.ToolInvocation{
		InvocationID: "ti_" + uuid.New().String(),
		SessionID:    ec.SessionID,
		ToolName:     toolName,
		Args:         args,
		Result:       result,
		Outcome:      outcome,
		Success:      outcome == domain.OutcomeOK,
		DurationMs:   time.Since(start).Milliseconds(),
		Simulated:    ec.DryRun,
		CreatedAt:    time.Now().UTC(),
	}
	if dispatchErr != nil {
		inv.Error = dispatchErr.Error()
	}
	if err := b.store.CreateToolInvocation(ctx, inv); err != nil {
		b.logger.Warn("failed to write tool invocation record",
			zap.String("tool", toolName),
			zap.String("session_id", ec.SessionID),
			zap.Error(err))
	}
}
