package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mnemos/plugin/memory"
	memerrors "github.com/hrygo/mnemos/internal/errors"
	"github.com/hrygo/mnemos/store"
)

type createTurnResponse struct {
	ID                 int64 `json:"id"`
	MicroConsolidation bool  `json:"micro_consolidation"`
}

// CreateTurn handles POST /api/v1/turns. The body is a loose payload so
// upstream producers with differing timestamp conventions all land here.
func (s *APIV1Service) CreateTurn(c echo.Context) error {
	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return writeError(c, memerrors.InvalidArgument("malformed request body"))
	}

	turn, err := memory.TurnFromPayload(payload)
	if err != nil {
		return writeError(c, memerrors.Validation(err.Error()))
	}

	row, err := s.Store.CreateTurn(c.Request().Context(), &store.Turn{
		UserID:    turn.UserID,
		SessionID: turn.SessionID,
		ThreadID:  turn.ThreadID,
		Role:      turn.Role,
		Content:   turn.Content,
		AgentTag:  turn.AgentTag,
		CreatedTs: turn.Timestamp.Unix(),
	})
	if err != nil {
		return writeError(c, memerrors.StoreUnavailable("failed to persist turn", err))
	}
	turn.ID = row.ID

	scheduled := false
	if s.Trigger != nil {
		scheduled = s.Trigger.RecordTurn(turn)
	}
	return c.JSON(http.StatusCreated, createTurnResponse{
		ID:                 row.ID,
		MicroConsolidation: scheduled,
	})
}
