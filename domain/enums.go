// Package domain defines the core domain models for the agent gateway.
package domain

// Mode is a session-wide policy controlling whether risk-gated tools
// require human confirmation before executing.
type Mode string

const (
	ModeReadOnly Mode = "read_only"
	ModeAutoSafe Mode = "auto_safe"
	ModeAutoFull Mode = "auto_full"
)

// Valid reports whether m is one of the known execution modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeReadOnly, ModeAutoSafe, ModeAutoFull:
		return true
	}
	return false
}

// RiskTier classifies a tool for confirmation gating.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Scope is a named capability grant controlling which tools a caller may invoke.
type Scope string

const (
	ScopeCRMRead       Scope = "CRM_READ"
	ScopeCRMWrite      Scope = "CRM_WRITE"
	ScopeInvoiceRead   Scope = "INV_READ"
	ScopeInvoiceWrite  Scope = "INV_WRITE"
	ScopeCalendarRead  Scope = "CAL_READ"
	ScopeCalendarWrite Scope = "CAL_WRITE"
	ScopeEmailSend     Scope = "EMAIL_SEND"
)

// Known reports whether s is one of the defined capability scopes.
func (s Scope) Known() bool {
	switch s {
	case ScopeCRMRead, ScopeCRMWrite, ScopeInvoiceRead, ScopeInvoiceWrite,
		ScopeCalendarRead, ScopeCalendarWrite, ScopeEmailSend:
		return true
	}
	return false
}

// Role is the caller's role as established by the platform's auth layer.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleAdmin        Role = "admin"
	RolePhotographer Role = "photographer"
	RoleAssistant    Role = "assistant"
	RoleViewer       Role = "viewer"
)

// InvocationOutcome classifies how a single tool dispatch attempt ended.
// Rejections are first-class outcomes so the audit ledger has no gaps.
type InvocationOutcome string

const (
	OutcomeOK                   InvocationOutcome = "ok"
	OutcomeNotFound             InvocationOutcome = "not_found"
	OutcomeValidationError      InvocationOutcome = "validation_error"
	OutcomeAuthorizationError   InvocationOutcome = "authorization_error"
	OutcomeConfirmationRequired InvocationOutcome = "confirmation_required"
	OutcomeExecutionError       InvocationOutcome = "execution_error"
)

// ConfirmationStatus represents the state of a pending confirmation.
type ConfirmationStatus string

const (
	ConfirmationPending  ConfirmationStatus = "pending"
	ConfirmationApproved ConfirmationStatus = "approved"
	ConfirmationRejected ConfirmationStatus = "rejected"
	ConfirmationExpired  ConfirmationStatus = "expired"
)

// Message roles within a session transcript.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleTool      = "tool"
)

// Invoice statuses.
const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSent    = "sent"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)
