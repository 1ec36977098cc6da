package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arenalab/orchestrator/internal/domain"
)

// StartRun accepts a run request and returns the run handle immediately.
func (h *Handler) StartRun(c echo.Context) error {
	var req domain.StartRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.StartRun(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, resp)
}

// GetRunStatus returns the poll-based run view.
func (h *Handler) GetRunStatus(c echo.Context) error {
	runID := c.Param("run_id")

	resp, err := h.service.GetRunStatus(c.Request().Context(), runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if resp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	return c.JSON(http.StatusOK, resp)
}

// CancelRun requests cancellation of a run.
func (h *Handler) CancelRun(c echo.Context) error {
	runID := c.Param("run_id")

	resp, err := h.service.CancelRun(c.Request().Context(), runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if resp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	return c.JSON(http.StatusOK, resp)
}
