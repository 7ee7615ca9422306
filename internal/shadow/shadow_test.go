package shadow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/agent"
	"github.com/lensfolio/agent-gateway/internal/shadow"
	"github.com/lensfolio/agent-gateway/tests/helpers"
)

type stubRunner struct {
	out   agent.TurnOutput
	err   error
	panic bool
	delay time.Duration
	calls []agent.TurnInput
}

func (r *stubRunner) Run(ctx context.Context, in agent.TurnInput) (agent.TurnOutput, error) {
	r.calls = append(r.calls, in)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.panic {
		panic("shadow runner exploded")
	}
	out := r.out
	out.SessionID = in.SessionID
	return out, r.err
}

func shadowRequest() shadow.TurnRequest {
	return shadow.TurnRequest{
		Message: "any unpaid invoices?",
		Identity: agent.Identity{
			UserID:   "u1",
			StudioID: "studio1",
			Role:     domain.RoleOwner,
		},
	}
}

func TestShadowMatchingTurn(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	v1 := &stubRunner{out: agent.TurnOutput{Message: "Found 1 invoice(s)", Actions: []string{"list_invoices"}}}
	v2 := &stubRunner{out: agent.TurnOutput{
		Message:   "You have one overdue invoice.",
		ToolCalls: []domain.ToolCallSummary{{Tool: "list_invoices", OK: true, Simulated: true}},
	}}
	c := shadow.New(v1, v2, s, nil, zap.NewNop())
	ctx := context.Background()

	out, err := c.Run(ctx, shadowRequest())
	require.NoError(t, err)
	assert.Equal(t, "Found 1 invoice(s)", out.Turn.Message)

	// Both sides ran against the same session, V2 as a dry run.
	require.Len(t, v1.calls, 1)
	require.Len(t, v2.calls, 1)
	assert.Equal(t, v1.calls[0].SessionID, v2.calls[0].SessionID)
	assert.False(t, v1.calls[0].DryRun)
	assert.True(t, v2.calls[0].DryRun)

	diffs, err := s.ListShadowDiffs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.True(t, diffs[0].Match)
	assert.Empty(t, diffs[0].V2Error)
}

func TestShadowPlanMismatch(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	v1 := &stubRunner{out: agent.TurnOutput{Message: "listed", Actions: []string{"list_invoices"}}}
	v2 := &stubRunner{out: agent.TurnOutput{
		Message:   "listed clients instead",
		ToolCalls: []domain.ToolCallSummary{{Tool: "list_clients", OK: true}},
	}}
	c := shadow.New(v1, v2, s, nil, zap.NewNop())

	_, err := c.Run(context.Background(), shadowRequest())
	require.NoError(t, err)

	diffs, err := s.ListShadowDiffs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.False(t, diffs[0].Match)
}

func TestShadowV2ErrorNeverReachesCaller(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	v1 := &stubRunner{out: agent.TurnOutput{Message: "legacy answer"}}
	v2 := &stubRunner{err: errors.New("orchestrator broke")}
	c := shadow.New(v1, v2, s, nil, zap.NewNop())

	out, err := c.Run(context.Background(), shadowRequest())
	require.NoError(t, err)
	assert.Equal(t, "legacy answer", out.Turn.Message)

	diffs, err := s.ListShadowDiffs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Contains(t, diffs[0].V2Error, "orchestrator broke")
	assert.False(t, diffs[0].Match)
}

func TestShadowV2PanicIsContained(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	v1 := &stubRunner{out: agent.TurnOutput{Message: "legacy answer"}}
	v2 := &stubRunner{panic: true, delay: 30 * time.Millisecond}
	c := shadow.New(v1, v2, s, nil, zap.NewNop())

	out, err := c.Run(context.Background(), shadowRequest())
	require.NoError(t, err)
	assert.Equal(t, "legacy answer", out.Turn.Message)

	diffs, err := s.ListShadowDiffs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Contains(t, diffs[0].V2Error, "panic")
	// Time spent before the panic still counts toward the recorded duration.
	assert.GreaterOrEqual(t, diffs[0].V2DurationMs, int64(20))
}

func TestShadowV1ErrorSurfacesAsMessage(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	v1 := &stubRunner{err: errors.New("legacy db down")}
	v2 := &stubRunner{out: agent.TurnOutput{Message: "fine"}}
	c := shadow.New(v1, v2, s, nil, zap.NewNop())

	out, err := c.Run(context.Background(), shadowRequest())
	require.NoError(t, err)
	assert.Contains(t, out.Turn.Message, "legacy db down")

	diffs, err := s.ListShadowDiffs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Contains(t, diffs[0].V1Error, "legacy db down")
}

func TestPlanTextMatcher(t *testing.T) {
	m := shadow.PlanTextMatcher{}

	// Same action sets match regardless of order or duplicates.
	assert.True(t, m.Match(
		agent.TurnOutput{Actions: []string{"list_invoices", "list_clients", "list_clients"}},
		agent.TurnOutput{ToolCalls: []domain.ToolCallSummary{
			{Tool: "list_clients"}, {Tool: "list_invoices"},
		}},
	))

	// One side acting and the other not is a mismatch.
	assert.False(t, m.Match(
		agent.TurnOutput{Actions: []string{"list_invoices"}},
		agent.TurnOutput{Message: "I cannot help with that."},
	))

	// Pure text turns fall back to word overlap.
	assert.True(t, m.Match(
		agent.TurnOutput{Message: "The studio opens at 9am on weekdays."},
		agent.TurnOutput{Message: "We open at 9am on weekdays."},
	))
	assert.False(t, m.Match(
		agent.TurnOutput{Message: "The studio opens at 9am."},
		agent.TurnOutput{Message: "Your invoice total is overdue."},
	))
}
