// Package policy maps caller roles to capability scopes and decides whether a
// given execution mode may run a tool of a given risk tier.
package policy

import "github.com/lensfolio/agent-gateway/domain"

// readOnlyScopes is the floor every unknown role falls back to.
var readOnlyScopes = []domain.Scope{
	domain.ScopeCRMRead,
	domain.ScopeInvoiceRead,
	domain.ScopeCalendarRead,
}

var allScopes = []domain.Scope{
	domain.ScopeCRMRead,
	domain.ScopeCRMWrite,
	domain.ScopeInvoiceRead,
	domain.ScopeInvoiceWrite,
	domain.ScopeCalendarRead,
	domain.ScopeCalendarWrite,
	domain.ScopeEmailSend,
}

var roleScopes = map[domain.Role][]domain.Scope{
	domain.RoleOwner: allScopes,
	domain.RoleAdmin: allScopes,
	domain.RolePhotographer: {
		domain.ScopeCRMRead,
		domain.ScopeCRMWrite,
		domain.ScopeInvoiceRead,
		domain.ScopeInvoiceWrite,
		domain.ScopeCalendarRead,
		domain.ScopeCalendarWrite,
		domain.ScopeEmailSend,
	},
	domain.RoleAssistant: {
		domain.ScopeCRMRead,
		domain.ScopeCRMWrite,
		domain.ScopeInvoiceRead,
		domain.ScopeCalendarRead,
		domain.ScopeCalendarWrite,
	},
	domain.RoleViewer: readOnlyScopes,
}

// ScopesForRole returns the scopes granted to a role. Total: unknown roles get
// the read-only scope set. Callers receive a copy they may mutate.
func ScopesForRole(role domain.Role) []domain.Scope {
	scopes, ok := roleScopes[role]
	if !ok {
		scopes = readOnlyScopes
	}
	out := make([]domain.Scope, len(scopes))
	copy(out, scopes)
	return out
}

// RecommendedMode returns the default execution mode for a role. Total:
// unknown roles get read_only.
func RecommendedMode(role domain.Role) domain.Mode {
	switch role {
	case domain.RoleOwner, domain.RoleAdmin, domain.RolePhotographer:
		return domain.ModeAutoSafe
	default:
		return domain.ModeReadOnly
	}
}
