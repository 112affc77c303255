package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const streamHeartbeatInterval = 30 * time.Second

// StreamMemoryEvents handles GET /api/v1/memory/events/stream. It holds the
// connection open and pushes memory events for the user as server-sent
// events until the client disconnects.
func (s *APIV1Service) StreamMemoryEvents(c echo.Context) error {
	if s.Dispatcher == nil {
		return capabilityUnavailable(c)
	}
	userID, err := userIDFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	events, cancel := s.Dispatcher.Subscribe(userID)
	defer cancel()

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(resp, ": heartbeat\n\n"); err != nil {
				return nil
			}
			resp.Flush()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			buf, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event.Type, buf); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}
