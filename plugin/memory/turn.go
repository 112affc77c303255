package memory

import (
	"fmt"
	"strconv"
	"time"
)

// TurnFromPayload is the single boundary adapter converting an external,
// loosely-typed turn representation (API payloads, queue messages, legacy
// rows) into the internal Turn struct. Everything past this function only
// sees Turn.
func TurnFromPayload(payload map[string]any) (*Turn, error) {
	if payload == nil {
		return nil, fmt.Errorf("nil turn payload")
	}

	turn := &Turn{
		Role:      stringField(payload, "role"),
		Content:   stringField(payload, "content"),
		SessionID: stringField(payload, "session_id"),
		ThreadID:  stringField(payload, "thread_id"),
		AgentTag:  stringField(payload, "agent_tag"),
	}

	if turn.Content == "" {
		return nil, fmt.Errorf("turn payload missing content")
	}
	if turn.Role == "" {
		turn.Role = "user"
	}

	turn.ID = int64Field(payload, "id")
	turn.UserID = int32(int64Field(payload, "user_id"))

	switch ts := payload["timestamp"].(type) {
	case time.Time:
		turn.Timestamp = ts
	case string:
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid turn timestamp %q: %w", ts, err)
		}
		turn.Timestamp = parsed
	case float64:
		turn.Timestamp = time.Unix(int64(ts), 0)
	case int64:
		turn.Timestamp = time.Unix(ts, 0)
	case nil:
		turn.Timestamp = time.Now()
	default:
		return nil, fmt.Errorf("unsupported turn timestamp type %T", ts)
	}

	return turn, nil
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func int64Field(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
