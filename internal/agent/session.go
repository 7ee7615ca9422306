package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/policy"
	"github.com/lensfolio/agent-gateway/store"
)

// ResolveSession loads the session named by the input or creates a fresh one.
// Scopes and mode are derived from the caller's role at creation time and
// frozen for the session's lifetime.
func ResolveSession(ctx context.Context, st store.Store, in TurnInput) (*domain.Session, error) {
	if in.SessionID != "" {
		sess, err := st.GetSession(ctx, in.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		if sess == nil {
			return nil, fmt.Errorf("session %s not found", in.SessionID)
		}
		return sess, nil
	}

	mode := in.Mode
	if !mode.Valid() {
		mode = policy.RecommendedMode(in.Identity.Role)
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID: "sess_" + uuid.New().String(),
		StudioID:  in.Identity.StudioID,
		UserID:    in.Identity.UserID,
		Role:      in.Identity.Role,
		Mode:      mode,
		Scopes:    policy.ScopesForRole(in.Identity.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// turnMode picks the effective mode for one turn: a valid per-turn override
// wins, otherwise the session's frozen mode applies.
func turnMode(sess *domain.Session, override domain.Mode) domain.Mode {
	if override.Valid() {
		return override
	}
	return sess.Mode
}
