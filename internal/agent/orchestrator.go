package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/llm"
	"github.com/lensfolio/agent-gateway/internal/toolbus"
	"github.com/lensfolio/agent-gateway/store"
)

// Orchestrator is the tool-bus agent. It drives one LLM turn: session
// resolution, durable user message, scoped tool catalog, dispatch loop,
// final reply, transcript persistence.
type Orchestrator struct {
	store  store.Store
	bus    *toolbus.Bus
	llm    llm.Client
	logger *zap.Logger
}

// Ensure Orchestrator implements AgentRunner.
var _ AgentRunner = (*Orchestrator)(nil)

// NewOrchestrator wires the tool-bus agent.
func NewOrchestrator(st store.Store, bus *toolbus.Bus, client llm.Client, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{store: st, bus: bus, llm: client, logger: logger}
}

// Run executes one conversational turn.
func (o *Orchestrator) Run(ctx context.Context, in TurnInput) (TurnOutput, error) {
	if in.Message == "" {
		return TurnOutput{}, errors.New("message is required")
	}

	sess, err := ResolveSession(ctx, o.store, in)
	if err != nil {
		return TurnOutput{}, err
	}
	mode := turnMode(sess, in.Mode)

	// Persist the user message before any LLM call so the transcript is
	// durable even when the call fails. Shadow dry runs leave the transcript
	// to the production path.
	if !in.DryRun {
		if err := o.appendMessage(ctx, sess.SessionID, domain.MessageRoleUser, in.Message, nil); err != nil {
			return TurnOutput{}, err
		}
	}

	catalog := o.bus.Registry().ListForScopes(sess.Scopes)
	history, err := o.history(ctx, sess.SessionID, in)
	if err != nil {
		return TurnOutput{}, err
	}

	planned, err := o.llm.Complete(ctx, llm.Request{
		System:   systemPrompt(mode),
		Messages: history,
		Tools:    catalog,
	})
	if err != nil {
		return TurnOutput{}, fmt.Errorf("llm call failed: %w", err)
	}

	out := TurnOutput{SessionID: sess.SessionID, Mode: mode}

	if len(planned.ToolCalls) == 0 {
		out.Message = planned.Content
		if !in.DryRun {
			if err := o.appendMessage(ctx, sess.SessionID, domain.MessageRoleAssistant, planned.Content, nil); err != nil {
				return TurnOutput{}, err
			}
			o.touch(ctx, sess.SessionID)
		}
		return out, nil
	}

	ec := toolbus.ExecContext{
		SessionID: sess.SessionID,
		StudioID:  sess.StudioID,
		UserID:    sess.UserID,
		Mode:      mode,
		Scopes:    sess.Scopes,
		DryRun:    in.DryRun,
	}

	toolMsgs := make([]llm.Message, 0, len(planned.ToolCalls))
	for _, call := range planned.ToolCalls {
		res := o.bus.Dispatch(ctx, ec, call.Name, rawArgs(call.Arguments))

		if res.Confirmation != nil {
			// Stop here: the caller decides before anything else runs.
			out.Confirmation = res.Confirmation
			out.Message = res.Confirmation.Reason
			if !in.DryRun {
				meta, _ := json.Marshal(res.Confirmation)
				if err := o.appendMessage(ctx, sess.SessionID, domain.MessageRoleAssistant,
					fmt.Sprintf("Awaiting confirmation to run %s.", res.Confirmation.Tool), meta); err != nil {
					return TurnOutput{}, err
				}
				o.touch(ctx, sess.SessionID)
			}
			return out, nil
		}

		var authErr *toolbus.AuthorizationError
		if errors.As(res.Err, &authErr) {
			// Scope rejections reach the caller as-is, never retried and
			// never downgraded to a generic failure.
			return TurnOutput{}, authErr
		}

		summary := domain.ToolCallSummary{
			Tool:      call.Name,
			Args:      rawArgs(call.Arguments),
			OK:        res.OK,
			Result:    res.Data,
			Simulated: in.DryRun,
		}
		content := string(res.Data)
		if res.Err != nil {
			summary.Error = res.Err.Error()
			payload, _ := json.Marshal(map[string]string{"error": res.Err.Error()})
			content = string(payload)
		}
		out.ToolCalls = append(out.ToolCalls, summary)
		out.Actions = append(out.Actions, call.Name)
		toolMsgs = append(toolMsgs, llm.Message{
			Role:       domain.MessageRoleTool,
			Content:    content,
			ToolCallID: call.ID,
		})
	}

	// Feed every tool result back for the final natural-language reply.
	// Executor failures are part of the conversation, not fatal.
	followup := append(history, llm.Message{
		Role:      domain.MessageRoleAssistant,
		Content:   planned.Content,
		ToolCalls: planned.ToolCalls,
	})
	followup = append(followup, toolMsgs...)

	final, err := o.llm.Complete(ctx, llm.Request{
		System:   systemPrompt(mode),
		Messages: followup,
		Tools:    catalog,
	})
	if err != nil {
		return TurnOutput{}, fmt.Errorf("llm call failed: %w", err)
	}
	out.Message = final.Content

	if !in.DryRun {
		meta, _ := json.Marshal(out.ToolCalls)
		if err := o.appendMessage(ctx, sess.SessionID, domain.MessageRoleAssistant, final.Content, meta); err != nil {
			return TurnOutput{}, err
		}
		o.touch(ctx, sess.SessionID)
	}
	return out, nil
}

// history builds the LLM message list for the turn. Dry runs splice the
// incoming user message in memory since nothing was persisted for them.
func (o *Orchestrator) history(ctx context.Context, sessionID string, in TurnInput) ([]llm.Message, error) {
	stored, err := o.store.GetMessages(ctx, sessionID, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	msgs := make([]llm.Message, 0, len(stored)+1)
	for _, m := range stored {
		if m.Role != domain.MessageRoleUser && m.Role != domain.MessageRoleAssistant {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	if in.DryRun {
		msgs = append(msgs, llm.Message{Role: domain.MessageRoleUser, Content: in.Message})
	}
	return msgs, nil
}

func (o *Orchestrator) appendMessage(ctx context.Context, sessionID, role, content string, metadata json.RawMessage) error {
	msg := &domain.Message{
		MessageID: "msg_" + uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to persist %s message: %w", role, err)
	}
	return nil
}

func (o *Orchestrator) touch(ctx context.Context, sessionID string) {
	if err := o.store.TouchSession(ctx, sessionID); err != nil {
		o.logger.Warn("failed to touch session", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func systemPrompt(mode domain.Mode) string {
	base := "You are the studio assistant for a photography business. " +
		"You help staff manage clients, invoices, appointments and email using the tools available to you. " +
		"Answer concisely and only claim actions a tool result confirms."
	switch mode {
	case domain.ModeReadOnly:
		return base + " You are in read-only mode: you may look data up but must not change anything."
	case domain.ModeAutoFull:
		return base + " You may perform any permitted action without asking for confirmation."
	default:
		return base + " Routine actions run directly; sensitive actions pause for the user's confirmation first."
	}
}
