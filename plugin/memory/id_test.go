package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTopic(t *testing.T) {
	assert.Equal(t, "docker", NormalizeTopic("  Docker "))
	assert.Equal(t, "docker compose", NormalizeTopic("Docker   Compose"))
	assert.Equal(t, "", NormalizeTopic("   "))
}

func TestConceptIDDeterministic(t *testing.T) {
	a := ConceptID(1, "Docker")
	b := ConceptID(1, "  docker ")
	assert.Equal(t, a, b, "normalized topics must share one identity")
	assert.Len(t, a, 32)

	// Different user, same topic: distinct identity.
	assert.NotEqual(t, a, ConceptID(2, "docker"))
}

func TestPreferenceIDIncludesType(t *testing.T) {
	pref := PreferenceID(1, PreferenceTypePreference, "dark mode")
	intent := PreferenceID(1, PreferenceTypeIntent, "dark mode")
	assert.NotEqual(t, pref, intent)

	// Concept and preference namespaces never collide.
	assert.NotEqual(t, ConceptID(1, "dark mode"), pref)
}

func TestTurnFromPayload(t *testing.T) {
	turn, err := TurnFromPayload(map[string]any{
		"id":         float64(42), // JSON numbers arrive as float64
		"user_id":    float64(7),
		"session_id": "s1",
		"thread_id":  "t1",
		"role":       "user",
		"content":    "I prefer dark roast coffee",
		"timestamp":  "2026-01-02T15:04:05Z",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), turn.ID)
	assert.Equal(t, int32(7), turn.UserID)
	assert.Equal(t, "t1", turn.ThreadID)
	assert.Equal(t, 2026, turn.Timestamp.Year())
}

func TestTurnFromPayloadRejectsEmptyContent(t *testing.T) {
	_, err := TurnFromPayload(map[string]any{"role": "user"})
	assert.Error(t, err)

	_, err = TurnFromPayload(nil)
	assert.Error(t, err)
}

func TestTurnFromPayloadDefaults(t *testing.T) {
	turn, err := TurnFromPayload(map[string]any{"content": "hello"})
	assert.NoError(t, err)
	assert.Equal(t, "user", turn.Role)
	assert.False(t, turn.Timestamp.IsZero())
}
