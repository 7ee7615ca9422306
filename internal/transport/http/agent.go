package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/agent"
	"github.com/lensfolio/agent-gateway/internal/toolbus"
	"github.com/lensfolio/agent-gateway/policy"
)

// Chat handles POST /agent/v2/chat.
func (h *Handler) Chat(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if req.Mode != "" && !req.Mode.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown mode: "+string(req.Mode))
	}

	out, err := h.orchestrator.Run(c.Request().Context(), agent.TurnInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		Mode:      req.Mode,
		Identity:  id,
	})
	if err != nil {
		var aerr *toolbus.AuthorizationError
		if errors.As(err, &aerr) {
			body := map[string]any{
				"error":      "authorization_error",
				"message":    aerr.Error(),
				"userScopes": aerr.Granted,
			}
			if len(aerr.Required) > 0 {
				body["requiredScopes"] = aerr.Required
			}
			if aerr.Mode != "" {
				body["mode"] = aerr.Mode
				body["risk"] = aerr.Risk
			}
			return c.JSON(http.StatusForbidden, body)
		}
		h.logger.Error("chat turn failed", zap.String("user_id", id.UserID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process message")
	}

	if out.Confirmation != nil {
		return c.JSON(http.StatusOK, domain.ConfirmationResponse{
			SessionID:       out.SessionID,
			ConfirmRequired: true,
			ConfirmationID:  out.Confirmation.ConfirmationID,
			Tool:            out.Confirmation.Tool,
			Args:            out.Confirmation.Args,
			Reason:          out.Confirmation.Reason,
			Message:         out.Message,
		})
	}

	return c.JSON(http.StatusOK, domain.ChatResponse{
		SessionID: out.SessionID,
		Message:   out.Message,
		ToolCalls: out.ToolCalls,
		Mode:      out.Mode,
	})
}

// Confirm handles POST /agent/v2/confirm/:confirmation_id. Approval runs the
// held tool call exactly once; rejection just settles the record.
func (h *Handler) Confirm(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	confirmationID := c.Param("confirmation_id")

	var req domain.ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	conf, err := h.store.GetConfirmation(ctx, confirmationID)
	if err != nil {
		h.logger.Error("failed to load confirmation", zap.String("confirmation_id", confirmationID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load confirmation")
	}
	if conf == nil {
		return echo.NewHTTPError(http.StatusNotFound, "confirmation not found")
	}

	sess, err := h.store.GetSession(ctx, conf.SessionID)
	if err != nil || sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if sess.StudioID != id.StudioID {
		return echo.NewHTTPError(http.StatusForbidden, "confirmation belongs to another studio")
	}

	status := domain.ConfirmationApproved
	if !req.Approve {
		status = domain.ConfirmationRejected
	}
	decided, err := h.store.DecideConfirmation(ctx, confirmationID, status, id.UserID)
	if err != nil {
		h.logger.Error("failed to decide confirmation", zap.String("confirmation_id", confirmationID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to decide confirmation")
	}
	if !decided {
		return echo.NewHTTPError(http.StatusConflict, "confirmation already decided")
	}

	if !req.Approve {
		return c.JSON(http.StatusOK, map[string]any{
			"confirmationId": confirmationID,
			"status":         domain.ConfirmationRejected,
			"message":        "Action cancelled.",
		})
	}

	// Approved: run the held call with the confirmation requirement satisfied.
	res := h.bus.Dispatch(ctx, toolbus.ExecContext{
		SessionID: sess.SessionID,
		StudioID:  sess.StudioID,
		UserID:    id.UserID,
		Mode:      sess.Mode,
		Scopes:    sess.Scopes,
		Confirmed: true,
	}, conf.ToolName, conf.Args)
	if res.Err != nil {
		return c.JSON(http.StatusOK, map[string]any{
			"confirmationId": confirmationID,
			"status":         domain.ConfirmationApproved,
			"tool":           conf.ToolName,
			"ok":             false,
			"error":          res.Err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"confirmationId": confirmationID,
		"status":         domain.ConfirmationApproved,
		"tool":           conf.ToolName,
		"ok":             true,
		"result":         res.Data,
	})
}

// GetSession handles GET /agent/v2/session/:session_id. Returns the session,
// its transcript and its audit trail.
func (h *Handler) GetSession(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	sessionID := c.Param("session_id")

	ctx := c.Request().Context()
	sess, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		h.logger.Error("failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
	}
	if sess == nil || sess.StudioID != id.StudioID {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	messages, err := h.store.GetMessages(ctx, sessionID, 200)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load messages")
	}
	invocations, err := h.store.GetToolInvocations(ctx, sessionID, 200)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load audit log")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"session":  sess,
		"messages": messages,
		"auditLog": invocations,
	})
}

// Stats handles GET /agent/v2/stats.
func (h *Handler) Stats(c echo.Context) error {
	counts := h.bus.Registry().UsageCounts()
	var total int64
	for _, n := range counts {
		total += n
	}
	return c.JSON(http.StatusOK, map[string]any{
		"totalDispatches": total,
		"toolUsage":       counts,
	})
}

// ListTools handles GET /agent/v2/tools: the catalog as the caller's role
// would see it, with scope and schema for each tool.
func (h *Handler) ListTools(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	scopes := policy.ScopesForRole(id.Role)
	tools := h.bus.Registry().ListForScopes(scopes)

	type toolInfo struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	}
	out := make([]toolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolInfo{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"role":   id.Role,
		"scopes": scopes,
		"tools":  out,
	})
}

func queryLimit(c echo.Context, def, max int) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
