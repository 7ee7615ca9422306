package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/shadow"
)

// ShadowChat handles POST /agent/shadow/chat. Callers get the legacy answer;
// the next-gen path runs dry alongside and only its timing is exposed.
func (h *Handler) ShadowChat(c echo.Context) error {
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

	out, err := h.shadow.Run(c.Request().Context(), shadow.TurnRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
		Mode:      req.Mode,
		Identity:  id,
	})
	if err != nil {
		h.logger.Error("shadow turn failed", zap.String("user_id", id.UserID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process message")
	}

	return c.JSON(http.StatusOK, domain.ShadowChatResponse{
		SessionID:  out.Turn.SessionID,
		Message:    out.Turn.Message,
		ShadowMode: true,
		V1Duration: out.V1Duration,
		V2Duration: out.V2Duration,
	})
}

// ShadowStats handles GET /agent/shadow/stats.
func (h *Handler) ShadowStats(c echo.Context) error {
	stats, err := h.store.ShadowStats(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to load shadow stats", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load shadow stats")
	}
	return c.JSON(http.StatusOK, stats)
}

// ShadowDiffs handles GET /agent/shadow/diffs?limit=N, newest first.
func (h *Handler) ShadowDiffs(c echo.Context) error {
	limit := queryLimit(c, 50, 500)
	diffs, err := h.store.ListShadowDiffs(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("failed to list shadow diffs", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list shadow diffs")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"count": len(diffs),
		"diffs": diffs,
	})
}
