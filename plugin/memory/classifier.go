package memory

import (
	"context"
	"strings"
	"unicode"

	"github.com/hrygo/mnemos/plugin/ai"
)

// DefaultMinConfidence is the gate below which classified signals are
// discarded instead of persisted.
const DefaultMinConfidence = 0.6

// ClassifiedSignal pairs a turn with its accepted classification.
type ClassifiedSignal struct {
	Turn   *Turn
	Signal *ai.SignalClassification
}

// PreferenceClassifier turns raw user messages into durable preference
// signals. A cheap lexical prefilter keeps messages without any
// preference-like verb away from the classification capability entirely.
type PreferenceClassifier struct {
	classifier    ai.ClassificationService
	minConfidence float64
}

func NewPreferenceClassifier(classifier ai.ClassificationService) *PreferenceClassifier {
	return &PreferenceClassifier{
		classifier:    classifier,
		minConfidence: DefaultMinConfidence,
	}
}

// triggerWords are the verbs and modals that mark a message as possibly
// carrying a preference, intent, or constraint.
var triggerWords = map[string]struct{}{
	"prefer":    {},
	"prefers":   {},
	"like":      {},
	"likes":     {},
	"love":      {},
	"loves":     {},
	"hate":      {},
	"hates":     {},
	"dislike":   {},
	"dislikes":  {},
	"want":      {},
	"wants":     {},
	"need":      {},
	"needs":     {},
	"avoid":     {},
	"always":    {},
	"never":     {},
	"must":      {},
	"should":    {},
	"favorite":  {},
	"favourite": {},
	"rather":    {},
	"wish":      {},
	"plan":      {},
	"planning":  {},
	"remind":    {},
	"stop":      {},
	"allergic":  {},
	"cannot":    {},
	"can't":     {},
	"don't":     {},
	"won't":     {},
}

// HasTriggerWord reports whether the message contains any preference
// trigger verb. Matching is token-level and case-insensitive.
func HasTriggerWord(content string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	for _, token := range tokens {
		if _, ok := triggerWords[token]; ok {
			return true
		}
	}
	return false
}

// ClassifyBatch classifies the user turns of a thread. Turns without a
// trigger word are skipped without a capability call. A failed call
// counts as a classification error and does not abort the batch; signals
// below the confidence gate or of a non-durable type are dropped.
func (c *PreferenceClassifier) ClassifyBatch(ctx context.Context, turns []*Turn, recentContext []string) ([]*ClassifiedSignal, int) {
	signals := []*ClassifiedSignal{}
	errorCount := 0
	for _, turn := range turns {
		if turn.Role != "user" || !HasTriggerWord(turn.Content) {
			continue
		}

		signal, err := c.classifier.ClassifySignal(ctx, turn.Content, recentContext)
		if err != nil {
			errorCount++
			continue
		}
		if signal == nil || signal.Confidence < c.minConfidence {
			continue
		}
		if !PreferenceType(signal.Type).IsDurable() {
			continue
		}

		signal.Topic = NormalizeTopic(signal.Topic)
		if signal.Topic == "" {
			continue
		}
		signals = append(signals, &ClassifiedSignal{Turn: turn, Signal: signal})
	}
	return signals, errorCount
}
