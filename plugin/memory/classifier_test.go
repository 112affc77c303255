package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/mnemos/plugin/ai"
)

func userTurn(id int64, content string) *Turn {
	return &Turn{ID: id, UserID: 1, SessionID: "s1", ThreadID: "th1", Role: "user", Content: content}
}

func TestClassifyBatchSkipsWithoutTriggerWords(t *testing.T) {
	mock := ai.NewMockClassificationService()
	classifier := NewPreferenceClassifier(mock)

	turns := []*Turn{
		userTurn(1, "the meeting is at three"),
		userTurn(2, "here is the report you asked for"),
		userTurn(3, "ok sounds good"),
	}
	signals, errCount := classifier.ClassifyBatch(context.Background(), turns, nil)

	require.Empty(t, signals)
	require.Zero(t, errCount)
	require.Zero(t, mock.SignalCalls(), "no capability call for trigger-free batch")
}

func TestClassifyBatchContinuesPastFailures(t *testing.T) {
	mock := ai.NewMockClassificationService()
	mock.Signals["coffee"] = &ai.SignalClassification{
		Type: "preference", Topic: "Coffee ", Sentiment: "positive", Confidence: 0.9,
	}
	mock.Signals["meetings"] = &ai.SignalClassification{
		Type: "constraint", Topic: "morning meetings", Sentiment: "negative", Confidence: 0.8,
	}
	mock.FailSignalOn = "broken"
	mock.FailSignalErr = errors.New("capability timeout")

	turns := []*Turn{
		userTurn(1, "I prefer dark roast coffee"),
		userTurn(2, "the weather is nice"),
		userTurn(3, "I always hate this broken thing"),
		userTurn(4, "never schedule meetings before ten"),
		userTurn(5, "thanks"),
	}
	signals, errCount := NewPreferenceClassifier(mock).ClassifyBatch(context.Background(), turns, nil)

	require.Equal(t, 1, errCount)
	require.Len(t, signals, 2)
	require.Equal(t, "coffee", signals[0].Signal.Topic, "topic is normalized")
	require.Equal(t, int64(1), signals[0].Turn.ID)
	require.Equal(t, "morning meetings", signals[1].Signal.Topic)
}

func TestClassifyBatchDropsLowConfidenceAndNonDurable(t *testing.T) {
	mock := ai.NewMockClassificationService()
	mock.Signals["tea"] = &ai.SignalClassification{
		Type: "preference", Topic: "tea", Sentiment: "positive", Confidence: 0.4,
	}
	mock.Signals["lunch"] = &ai.SignalClassification{
		Type: "neutral", Topic: "lunch", Sentiment: "neutral", Confidence: 0.95,
	}

	turns := []*Turn{
		userTurn(1, "I like tea I guess"),
		userTurn(2, "I want lunch"),
	}
	signals, errCount := NewPreferenceClassifier(mock).ClassifyBatch(context.Background(), turns, nil)

	require.Zero(t, errCount)
	require.Empty(t, signals)
	require.Equal(t, 2, mock.SignalCalls())
}

func TestClassifyBatchIgnoresAssistantTurns(t *testing.T) {
	mock := ai.NewMockClassificationService()
	turns := []*Turn{
		{ID: 1, UserID: 1, Role: "assistant", Content: "you should prefer the express train"},
	}
	signals, errCount := NewPreferenceClassifier(mock).ClassifyBatch(context.Background(), turns, nil)

	require.Empty(t, signals)
	require.Zero(t, errCount)
	require.Zero(t, mock.SignalCalls())
}

func TestHasTriggerWord(t *testing.T) {
	require.True(t, HasTriggerWord("I PREFER window seats"))
	require.True(t, HasTriggerWord("don't do that"))
	require.False(t, HasTriggerWord("preferences panel is open"), "token match, not substring")
	require.False(t, HasTriggerWord(""))
}
