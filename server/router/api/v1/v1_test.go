package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	memerrors "github.com/hrygo/mnemos/internal/errors"
	"github.com/hrygo/mnemos/internal/profile"
	"github.com/hrygo/mnemos/plugin/memory"
	"github.com/hrygo/mnemos/plugin/memory/notify"
	"github.com/hrygo/mnemos/store"
	"github.com/hrygo/mnemos/store/db/sqlite"
)

func newTestAPI(t *testing.T, svc memory.MemoryService) (*echo.Echo, *store.Store) {
	t.Helper()

	p := &profile.Profile{Mode: "prod", Driver: "sqlite", DSN: t.TempDir() + "/api_test.db", Version: "test"}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))
	t.Cleanup(func() { _ = driver.Close() })
	st := store.New(driver, p)

	e := echo.New()
	NewAPIV1Service(p, st, svc, nil).Register(e)
	return e, st
}

func TestHealthz(t *testing.T) {
	e, _ := newTestAPI(t, &memory.MockService{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
}

func TestGetMemoryStatus(t *testing.T) {
	svc := &memory.MockService{
		StatusFn: func(_ context.Context, userID int32) (*memory.Status, error) {
			require.Equal(t, int32(7), userID)
			return &memory.Status{HasShortTermMemory: true, LongTermEntryCount: 3}, nil
		},
	}
	e, _ := newTestAPI(t, svc)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/memory/status?user_id=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status memory.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.HasShortTermMemory)
	require.Equal(t, int64(3), status.LongTermEntryCount)
}

func TestGetMemoryStatusRequiresUserID(t *testing.T) {
	e, _ := newTestAPI(t, &memory.MockService{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/memory/status", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), string(memerrors.ErrCodeInvalidArgument))
}

func TestTriggerConsolidation(t *testing.T) {
	svc := &memory.MockService{
		ConsolidateFn: func(_ context.Context, userID int32, threadID string, limit int, force bool) (*memory.ConsolidationReport, error) {
			require.Equal(t, int32(1), userID)
			require.Equal(t, "th1", threadID)
			require.True(t, force)
			return &memory.ConsolidationReport{ThreadsConsolidated: 1}, nil
		},
	}
	e, _ := newTestAPI(t, svc)

	body := `{"user_id":1,"thread_id":"th1","force":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/consolidate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"threads_consolidated":1`)
}

func TestSearchConceptsErrorsMapToStatus(t *testing.T) {
	svc := &memory.MockService{
		SearchFn: func(context.Context, int32, string, int) ([]*memory.ConceptMatch, error) {
			return nil, memerrors.InvalidArgument("query must not be empty")
		},
	}
	e, _ := newTestAPI(t, svc)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/memory/concepts/search?user_id=1", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemoryDisabledReturns503(t *testing.T) {
	e, _ := newTestAPI(t, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/memory/status?user_id=1", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), string(memerrors.ErrCodeCapabilityUnavailable))
}

func TestCreateTurnPersists(t *testing.T) {
	e, st := newTestAPI(t, &memory.MockService{})

	body := `{"user_id":1,"session_id":"s1","thread_id":"th1","role":"user","content":"hello there","timestamp":"2026-08-30T10:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turns", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	userID := int32(1)
	turns, err := st.ListTurns(context.Background(), &store.FindTurn{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, "hello there", turns[0].Content)
}

func TestStreamMemoryEventsWithoutDispatcher(t *testing.T) {
	e, _ := newTestAPI(t, &memory.MockService{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/memory/events/stream?user_id=1", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStreamMemoryEventsDeliversEvent(t *testing.T) {
	p := &profile.Profile{Mode: "prod", Driver: "sqlite", DSN: t.TempDir() + "/stream_test.db", Version: "test"}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))
	t.Cleanup(func() { _ = driver.Close() })

	dispatcher := notify.NewDispatcher(8)
	e := echo.New()
	NewAPIV1Service(p, store.New(driver, p), &memory.MockService{}, nil).
		WithDispatcher(dispatcher).
		Register(e)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory/events/stream?user_id=9", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		e.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the subscription, push one event, then hang up.
	time.Sleep(50 * time.Millisecond)
	dispatcher.Notify(notify.Event{Type: notify.EventPreferenceSurfaced, UserID: 9})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	require.Contains(t, body, "event: preference_surfaced")
	require.Contains(t, body, `"user_id":9`)
}

func TestCreateTurnRejectsEmptyContent(t *testing.T) {
	e, _ := newTestAPI(t, &memory.MockService{})

	body := `{"user_id":1,"thread_id":"th1","content":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turns", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), string(memerrors.ErrCodeValidation))
}
