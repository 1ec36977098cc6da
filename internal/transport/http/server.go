// Package http provides the HTTP server implementation for the orchestrator.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/arenalab/orchestrator/internal/service"
	v1 "github.com/arenalab/orchestrator/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. This server handles run
// submission, status polling, cancellation, and the health probe.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)

	return e
}
