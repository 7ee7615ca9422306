package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/agent"
	"github.com/lensfolio/agent-gateway/internal/llm"
	"github.com/lensfolio/agent-gateway/store"
	"github.com/lensfolio/agent-gateway/tests/helpers"
)

func newLegacyFixture(t *testing.T, mock *llm.Mock) (*agent.Legacy, *store.SQLiteStore) {
	t.Helper()
	s := helpers.NewTestSQLiteStore(t)
	return agent.NewLegacy(s, mock, zap.NewNop()), s
}

func seedInvoice(t *testing.T, s *store.SQLiteStore, invoiceID, status string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	client, err := s.GetClient(ctx, "c1")
	require.NoError(t, err)
	if client == nil {
		require.NoError(t, s.CreateClient(ctx, &domain.Client{
			ClientID: "c1", StudioID: "studio1", Name: "Ana", CreatedAt: now, UpdatedAt: now,
		}))
	}
	require.NoError(t, s.CreateInvoice(ctx, &domain.Invoice{
		InvoiceID: invoiceID, StudioID: "studio1", ClientID: "c1",
		AmountCents: 10000, Status: status, CreatedAt: now,
	}))
}

func TestLegacyInvoiceIntent(t *testing.T) {
	l, s := newLegacyFixture(t, llm.NewMock())
	seedInvoice(t, s, "i1", domain.InvoiceStatusDraft)
	seedInvoice(t, s, "i2", domain.InvoiceStatusOverdue)

	out, err := l.Run(context.Background(), ownerInput("show me my invoices"))
	require.NoError(t, err)
	assert.Equal(t, []string{"list_invoices"}, out.Actions)
	assert.Contains(t, out.Message, "2 invoice(s)")
}

func TestLegacyOverdueInvoiceIntent(t *testing.T) {
	l, s := newLegacyFixture(t, llm.NewMock())
	seedInvoice(t, s, "i1", domain.InvoiceStatusDraft)
	seedInvoice(t, s, "i2", domain.InvoiceStatusOverdue)

	out, err := l.Run(context.Background(), ownerInput("any unpaid invoices?"))
	require.NoError(t, err)
	assert.Contains(t, out.Message, "1 invoice(s)")
	assert.Contains(t, out.Message, "i2")
}

func TestLegacyClientIntent(t *testing.T) {
	l, s := newLegacyFixture(t, llm.NewMock())
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.CreateClient(ctx, &domain.Client{
		ClientID: "c1", StudioID: "studio1", Name: "Ana Reyes", Email: "ana@example.com",
		CreatedAt: now, UpdatedAt: now,
	}))

	out, err := l.Run(ctx, ownerInput("list my clients"))
	require.NoError(t, err)
	assert.Equal(t, []string{"list_clients"}, out.Actions)
	assert.Contains(t, out.Message, "Ana Reyes")
}

func TestLegacyAppointmentIntent(t *testing.T) {
	l, _ := newLegacyFixture(t, llm.NewMock())

	out, err := l.Run(context.Background(), ownerInput("what's on the schedule?"))
	require.NoError(t, err)
	assert.Equal(t, []string{"list_appointments"}, out.Actions)
	assert.Equal(t, "No appointments found.", out.Message)
}

func TestLegacyFallbackUsesLLM(t *testing.T) {
	mock := llm.NewMock(llm.Response{Content: "We open at 9am."})
	l, s := newLegacyFixture(t, mock)
	ctx := context.Background()

	out, err := l.Run(ctx, ownerInput("when do you open?"))
	require.NoError(t, err)
	assert.Equal(t, "We open at 9am.", out.Message)
	assert.Empty(t, out.Actions)
	require.Len(t, mock.Requests, 1)
	assert.Empty(t, mock.Requests[0].Tools)

	// Transcript persisted like any other turn.
	msgs, err := s.GetMessages(ctx, out.SessionID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}
