// Package http provides the echo HTTP surface for the agent gateway.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/agent"
	"github.com/lensfolio/agent-gateway/internal/shadow"
	"github.com/lensfolio/agent-gateway/internal/toolbus"
	"github.com/lensfolio/agent-gateway/store"
)

// Identity headers set by the fronting auth proxy. Session/auth mechanics
// live outside this service.
const (
	headerUserID   = "X-User-ID"
	headerStudioID = "X-Studio-ID"
	headerRole     = "X-Role"
)

// Handler handles HTTP requests.
type Handler struct {
	store        store.Store
	bus          *toolbus.Bus
	orchestrator *agent.Orchestrator
	shadow       *shadow.Comparator
	logger       *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(st store.Store, bus *toolbus.Bus, orchestrator *agent.Orchestrator, comparator *shadow.Comparator, logger *zap.Logger) *Handler {
	return &Handler{
		store:        st,
		bus:          bus,
		orchestrator: orchestrator,
		shadow:       comparator,
		logger:       logger,
	}
}

// NewServer creates and configures the echo server.
func NewServer(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	h.RegisterRoutes(e)
	return e
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/agent/v2/chat", h.Chat)
	e.POST("/agent/v2/confirm/:confirmation_id", h.Confirm)
	e.GET("/agent/v2/session/:session_id", h.GetSession)
	e.GET("/agent/v2/stats", h.Stats)
	e.GET("/agent/v2/tools", h.ListTools)

	e.POST("/agent/shadow/chat", h.ShadowChat)
	e.GET("/agent/shadow/stats", h.ShadowStats)
	e.GET("/agent/shadow/diffs", h.ShadowDiffs)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "2.0.0",
	})
}

// identity extracts the caller identity established by the auth proxy.
func identity(c echo.Context) (agent.Identity, error) {
	id := agent.Identity{
		UserID:   c.Request().Header.Get(headerUserID),
		StudioID: c.Request().Header.Get(headerStudioID),
		Role:     domain.Role(c.Request().Header.Get(headerRole)),
	}
	if id.UserID == "" || id.StudioID == "" {
		return agent.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
	}
	return id, nil
}
