// Package v1 exposes the memory engine over a JSON REST API. The host
// platform terminates authentication upstream; handlers trust the user id
// they are given.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mnemos/internal/profile"
	"github.com/hrygo/mnemos/plugin/memory"
	"github.com/hrygo/mnemos/plugin/memory/notify"
	memerrors "github.com/hrygo/mnemos/internal/errors"
	"github.com/hrygo/mnemos/store"
)

// APIV1Service wires the HTTP surface to the memory engine.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Memory  memory.MemoryService

	// Trigger is optional; without it turn ingestion never schedules
	// micro-consolidations.
	Trigger *memory.IncrementalTrigger

	// Dispatcher is optional; without it the event stream endpoint reports
	// the capability as unavailable.
	Dispatcher *notify.Dispatcher
}

func NewAPIV1Service(profile *profile.Profile, st *store.Store, svc memory.MemoryService, trigger *memory.IncrementalTrigger) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Store:   st,
		Memory:  svc,
		Trigger: trigger,
	}
}

// WithDispatcher attaches the live event dispatcher.
func (s *APIV1Service) WithDispatcher(d *notify.Dispatcher) *APIV1Service {
	s.Dispatcher = d
	return s
}

// Register mounts all v1 routes. Middlewares apply to the API group only,
// never to the health check.
func (s *APIV1Service) Register(e *echo.Echo, middlewares ...echo.MiddlewareFunc) {
	g := e.Group("/api/v1", middlewares...)

	g.POST("/turns", s.CreateTurn)

	g.GET("/memory/status", s.GetMemoryStatus)
	g.POST("/memory/consolidate", s.TriggerConsolidation)
	g.GET("/memory/concepts/search", s.SearchConcepts)
	g.POST("/memory/maintain", s.TriggerMaintenance)
	g.GET("/memory/events", s.ListMemoryEvents)
	g.GET("/memory/events/stream", s.StreamMemoryEvents)

	g.GET("/metrics/buckets", s.ListMetricBuckets)

	e.GET("/healthz", s.Healthz)
}

// Healthz reports liveness.
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps engine error codes onto HTTP statuses.
func writeError(c echo.Context, err error) error {
	code := memerrors.GetCodeFromError(err, memerrors.ErrCodeStoreUnavailable)
	status := http.StatusInternalServerError
	switch code {
	case memerrors.ErrCodeInvalidArgument, memerrors.ErrCodeValidation:
		status = http.StatusBadRequest
	case memerrors.ErrCodeCapabilityUnavailable:
		status = http.StatusServiceUnavailable
	case memerrors.ErrCodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	case memerrors.ErrCodeTimeout, memerrors.ErrCodeContextCanceled:
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "code", code, "error", err)
	}
	return c.JSON(status, errorResponse{Code: string(code), Message: err.Error()})
}

func capabilityUnavailable(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, errorResponse{
		Code:    string(memerrors.ErrCodeCapabilityUnavailable),
		Message: "memory engine is not enabled on this deployment",
	})
}
