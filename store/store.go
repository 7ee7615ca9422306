// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"time"

	"github.com/lensfolio/agent-gateway/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	TouchSession(ctx context.Context, sessionID string) error

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)

	// Tool invocation ledger (append-only)
	CreateToolInvocation(ctx context.Context, inv *domain.ToolInvocation) error
	GetToolInvocations(ctx context.Context, sessionID string, limit int) ([]domain.ToolInvocation, error)

	// Confirmation operations
	CreateConfirmation(ctx context.Context, conf *domain.Confirmation) error
	GetConfirmation(ctx context.Context, confirmationID string) (*domain.Confirmation, error)
	// DecideConfirmation transitions a pending confirmation to the given
	// status. Returns false when the confirmation was already decided, so a
	// held tool call can never execute twice.
	DecideConfirmation(ctx context.Context, confirmationID string, status domain.ConfirmationStatus, decidedBy string) (bool, error)

	// Shadow diff operations
	CreateShadowDiff(ctx context.Context, diff *domain.ShadowDiff) error
	ListShadowDiffs(ctx context.Context, limit int) ([]domain.ShadowDiff, error)
	ShadowStats(ctx context.Context) (*domain.ShadowStats, error)

	// CRM collaborator tables, consumed by the built-in tool executors.
	CreateClient(ctx context.Context, client *domain.Client) error
	GetClient(ctx context.Context, clientID string) (*domain.Client, error)
	ListClients(ctx context.Context, studioID, query string, limit int) ([]domain.Client, error)
	UpdateClient(ctx context.Context, clientID string, update domain.ClientUpdate) error

	CreateInvoice(ctx context.Context, invoice *domain.Invoice) error
	GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, studioID, status string, limit int) ([]domain.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, invoiceID, status string) error

	CreateAppointment(ctx context.Context, appt *domain.Appointment) error
	ListAppointments(ctx context.Context, studioID string, from, to time.Time) ([]domain.Appointment, error)

	// Lifecycle
	Close() error
}
