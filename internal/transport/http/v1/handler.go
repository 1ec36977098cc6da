// Package v1 provides the versioned HTTP handlers for the orchestrator.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arenalab/orchestrator/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Run lifecycle API (for the submission service)
	e.POST("/v1/runs", h.StartRun)
	e.GET("/v1/runs/:run_id", h.GetRunStatus)
	e.POST("/v1/runs/:run_id/cancel", h.CancelRun)

	e.GET("/health", h.Health)
}

// Health returns the probe result.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Probe(c.Request().Context()))
}
