// Package shadow runs the legacy agent and the tool-bus orchestrator side by
// side on the same input, returning only the legacy outcome to the caller and
// persisting a diff record for offline quality comparison.
package shadow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/agent"
	"github.com/lensfolio/agent-gateway/store"
)

// Outcome is the result of one shadow turn: the user-visible legacy output
// plus timing for both sides.
type Outcome struct {
	Turn       agent.TurnOutput
	V1Duration int64
	V2Duration int64
}

// Comparator orchestrates one shadow turn. A failure anywhere on the V2 side
// must never change what the caller receives; that isolation is the
// load-bearing invariant here.
type Comparator struct {
	v1      agent.AgentRunner
	v2      agent.AgentRunner
	store   store.Store
	matcher Matcher
	logger  *zap.Logger
}

// New wires a comparator. A nil matcher gets the default PlanTextMatcher.
func New(v1, v2 agent.AgentRunner, st store.Store, matcher Matcher, logger *zap.Logger) *Comparator {
	if matcher == nil {
		matcher = PlanTextMatcher{}
	}
	return &Comparator{v1: v1, v2: v2, store: st, matcher: matcher, logger: logger}
}

// Run executes one shadow turn. The returned outcome is always the legacy
// path's; a legacy error surfaces its text as the response rather than
// failing the turn.
func (c *Comparator) Run(ctx context.Context, in TurnRequest) (Outcome, error) {
	// Resolve the session up front so both paths share one thread and the
	// dry-run side never has to create anything.
	sess, err := agent.ResolveSession(ctx, c.store, in.TurnInput())
	if err != nil {
		return Outcome{}, err
	}
	v1In := in.TurnInput()
	v1In.SessionID = sess.SessionID
	v2In := v1In
	v2In.DryRun = true

	var (
		v1Out, v2Out agent.TurnOutput
		v1Err, v2Err error
		v1Ms, v2Ms   int64
	)

	// Both paths run concurrently and are joined unconditionally; neither
	// goroutine returns an error so one side can never cancel the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		v1Out, v1Err = c.v1.Run(gctx, v1In)
		v1Ms = time.Since(start).Milliseconds()
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				v2Err = fmt.Errorf("shadow path panicked: %v", r)
			}
			// Set in the defer so the panic path records a duration too.
			v2Ms = time.Since(start).Milliseconds()
		}()
		v2Out, v2Err = c.v2.Run(gctx, v2In)
		return nil
	})
	_ = g.Wait()

	c.persistDiff(ctx, sess.SessionID, v1Out, v1Err, v1Ms, v2Out, v2Err, v2Ms)

	if v1Err != nil {
		// Legacy behavior: its error text is the user-visible response.
		v1Out.SessionID = sess.SessionID
		v1Out.Message = v1Err.Error()
	}
	return Outcome{Turn: v1Out, V1Duration: v1Ms, V2Duration: v2Ms}, nil
}

func (c *Comparator) persistDiff(ctx context.Context, sessionID string, v1Out agent.TurnOutput, v1Err error, v1Ms int64, v2Out agent.TurnOutput, v2Err error, v2Ms int64) {
	diff := &domain.ShadowDiff{
		DiffID:       "sd_" + uuid.New().String(),
		SessionID:    sessionID,
		V1Response:   v1Out.Message,
		V1DurationMs: v1Ms,
		V2DurationMs: v2Ms,
		CreatedAt:    time.Now().UTC(),
	}
	if v1Err != nil {
		diff.V1Error = v1Err.Error()
	}
	if v2Err != nil {
		diff.V2Error = v2Err.Error()
	}

	plan := make([]map[string]interface{}, 0, len(v2Out.ToolCalls))
	for _, tc := range v2Out.ToolCalls {
		plan = append(plan, map[string]interface{}{
			"tool": tc.Tool,
			"args": tc.Args,
		})
	}
	if len(plan) > 0 {
		diff.V2Plan, _ = json.Marshal(plan)
	}
	if len(v2Out.ToolCalls) > 0 {
		diff.V2Results, _ = json.Marshal(v2Out.ToolCalls)
	}
	if v2Err == nil && len(v2Out.ToolCalls) == 0 && v2Out.Message != "" {
		diff.V2Results, _ = json.Marshal(map[string]string{"message": v2Out.Message})
	}

	if v1Err == nil && v2Err == nil {
		diff.Match = c.matcher.Match(v1Out, v2Out)
	}

	if err := c.store.CreateShadowDiff(ctx, diff); err != nil {
		c.logger.Warn("failed to persist shadow diff",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// TurnRequest is the shadow chat input.
type TurnRequest struct {
	SessionID string
	Message   string
	Mode      domain.Mode
	Identity  agent.Identity
}

// TurnInput converts the request to an agent turn input.
func (r TurnRequest) TurnInput() agent.TurnInput {
	return agent.TurnInput{
		SessionID: r.SessionID,
		Message:   r.Message,
		Mode:      r.Mode,
		Identity:  r.Identity,
	}
}
