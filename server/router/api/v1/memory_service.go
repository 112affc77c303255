package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	memerrors "github.com/hrygo/mnemos/internal/errors"
	"github.com/hrygo/mnemos/server/internal/observability"
	"github.com/hrygo/mnemos/store"
)

func userIDFromQuery(c echo.Context) (int32, error) {
	raw := c.QueryParam("user_id")
	if raw == "" {
		return 0, memerrors.InvalidArgument("user_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, memerrors.InvalidArgument("user_id must be a positive integer")
	}
	return int32(id), nil
}

// GetMemoryStatus handles GET /api/v1/memory/status.
func (s *APIV1Service) GetMemoryStatus(c echo.Context) error {
	if s.Memory == nil {
		return capabilityUnavailable(c)
	}
	userID, err := userIDFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	status, err := s.Memory.Status(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

type consolidateRequest struct {
	UserID   int32  `json:"user_id"`
	ThreadID string `json:"thread_id"`
	Limit    int    `json:"limit"`
	Force    bool   `json:"force"`
}

// TriggerConsolidation handles POST /api/v1/memory/consolidate.
func (s *APIV1Service) TriggerConsolidation(c echo.Context) error {
	if s.Memory == nil {
		return capabilityUnavailable(c)
	}
	var req consolidateRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, memerrors.InvalidArgument("malformed request body"))
	}
	if req.UserID <= 0 {
		return writeError(c, memerrors.InvalidArgument("user_id must be a positive integer"))
	}

	reqCtx := observability.NewRequestContext(slog.Default(), "consolidation", req.UserID)
	report, err := s.Memory.Consolidate(c.Request().Context(), req.UserID, req.ThreadID, req.Limit, req.Force)
	if err != nil {
		reqCtx.Error("consolidation failed", err)
		return writeError(c, err)
	}
	reqCtx.Info("consolidation finished", slog.Int64("duration_ms", reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, report)
}

// SearchConcepts handles GET /api/v1/memory/concepts/search.
func (s *APIV1Service) SearchConcepts(c echo.Context) error {
	if s.Memory == nil {
		return capabilityUnavailable(c)
	}
	userID, err := userIDFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	query := c.QueryParam("q")
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return writeError(c, memerrors.InvalidArgument("limit must be a positive integer"))
		}
		limit = parsed
	}

	matches, err := s.Memory.SearchConcepts(c.Request().Context(), userID, query, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, matches)
}

type maintainRequest struct {
	UserID *int32 `json:"user_id,omitempty"`
	Hard   bool   `json:"hard"`
}

// TriggerMaintenance handles POST /api/v1/memory/maintain.
func (s *APIV1Service) TriggerMaintenance(c echo.Context) error {
	if s.Memory == nil {
		return capabilityUnavailable(c)
	}
	var req maintainRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, memerrors.InvalidArgument("malformed request body"))
	}

	report, err := s.Memory.Maintain(c.Request().Context(), req.UserID, req.Hard)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// ListMemoryEvents handles GET /api/v1/memory/events.
func (s *APIV1Service) ListMemoryEvents(c echo.Context) error {
	userID, err := userIDFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	find := &store.FindMemoryEvent{UserID: &userID}
	if eventType := c.QueryParam("type"); eventType != "" {
		find.Type = &eventType
	}
	limit := 100
	find.Limit = &limit

	events, err := s.Store.ListMemoryEvents(c.Request().Context(), find)
	if err != nil {
		return writeError(c, memerrors.StoreUnavailable("failed to list memory events", err))
	}
	return c.JSON(http.StatusOK, events)
}
