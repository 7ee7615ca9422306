package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/llm"
	"github.com/lensfolio/agent-gateway/store"
)

// Legacy is the first-generation agent: keyword intent matching over direct
// read-only store queries, with a plain text LLM fallback. It predates the
// tool bus and stays around as the production path while the orchestrator is
// validated in shadow mode.
type Legacy struct {
	store  store.Store
	llm    llm.Client
	logger *zap.Logger
}

// Ensure Legacy implements AgentRunner.
var _ AgentRunner = (*Legacy)(nil)

// NewLegacy wires the legacy agent.
func NewLegacy(st store.Store, client llm.Client, logger *zap.Logger) *Legacy {
	return &Legacy{store: st, llm: client, logger: logger}
}

// Run executes one legacy turn.
func (l *Legacy) Run(ctx context.Context, in TurnInput) (TurnOutput, error) {
	if in.Message == "" {
		return TurnOutput{}, errors.New("message is required")
	}

	sess, err := ResolveSession(ctx, l.store, in)
	if err != nil {
		return TurnOutput{}, err
	}

	if err := l.appendMessage(ctx, sess.SessionID, domain.MessageRoleUser, in.Message); err != nil {
		return TurnOutput{}, err
	}

	out := TurnOutput{SessionID: sess.SessionID, Mode: sess.Mode}
	lower := strings.ToLower(in.Message)

	switch {
	case strings.Contains(lower, "invoice"):
		status := ""
		if strings.Contains(lower, "unpaid") || strings.Contains(lower, "overdue") || strings.Contains(lower, "outstanding") {
			status = domain.InvoiceStatusOverdue
		}
		invoices, err := l.store.ListInvoices(ctx, sess.StudioID, status, 25)
		if err != nil {
			return TurnOutput{}, fmt.Errorf("failed to list invoices: %w", err)
		}
		out.Message = formatInvoices(invoices)
		out.Actions = []string{"list_invoices"}

	case strings.Contains(lower, "client"):
		clients, err := l.store.ListClients(ctx, sess.StudioID, "", 25)
		if err != nil {
			return TurnOutput{}, fmt.Errorf("failed to list clients: %w", err)
		}
		out.Message = formatClients(clients)
		out.Actions = []string{"list_clients"}

	case strings.Contains(lower, "appointment") || strings.Contains(lower, "schedule") || strings.Contains(lower, "calendar"):
		appts, err := l.store.ListAppointments(ctx, sess.StudioID, time.Time{}, time.Time{})
		if err != nil {
			return TurnOutput{}, fmt.Errorf("failed to list appointments: %w", err)
		}
		out.Message = formatAppointments(appts)
		out.Actions = []string{"list_appointments"}

	default:
		resp, err := l.llm.Complete(ctx, llm.Request{
			System: "You are the studio assistant for a photography business. " +
				"Answer the user's question in one or two sentences. You cannot perform actions.",
			Messages: []llm.Message{{Role: domain.MessageRoleUser, Content: in.Message}},
		})
		if err != nil {
			return TurnOutput{}, fmt.Errorf("llm call failed: %w", err)
		}
		out.Message = resp.Content
	}

	if err := l.appendMessage(ctx, sess.SessionID, domain.MessageRoleAssistant, out.Message); err != nil {
		return TurnOutput{}, err
	}
	if err := l.store.TouchSession(ctx, sess.SessionID); err != nil {
		l.logger.Warn("failed to touch session", zap.String("session_id", sess.SessionID), zap.Error(err))
	}
	return out, nil
}

func (l *Legacy) appendMessage(ctx context.Context, sessionID, role, content string) error {
	msg := &domain.Message{
		MessageID: "msg_" + uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to persist %s message: %w", role, err)
	}
	return nil
}

func formatInvoices(invoices []domain.Invoice) string {
	if len(invoices) == 0 {
		return "No matching invoices found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d invoice(s):\n", len(invoices))
	for _, inv := range invoices {
		fmt.Fprintf(&b, "- %s: %.2f (%s)", inv.InvoiceID, float64(inv.AmountCents)/100, inv.Status)
		if inv.DueDate != "" {
			fmt.Fprintf(&b, ", due %s", inv.DueDate)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatClients(clients []domain.Client) string {
	if len(clients) == 0 {
		return "No clients found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d client(s):\n", len(clients))
	for _, c := range clients {
		fmt.Fprintf(&b, "- %s", c.Name)
		if c.Email != "" {
			fmt.Fprintf(&b, " <%s>", c.Email)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAppointments(appts []domain.Appointment) string {
	if len(appts) == 0 {
		return "No appointments found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d appointment(s):\n", len(appts))
	for _, a := range appts {
		fmt.Fprintf(&b, "- %s at %s\n", a.Title, a.StartsAt.Format(time.RFC3339))
	}
	return strings.TrimRight(b.String(), "\n")
}
