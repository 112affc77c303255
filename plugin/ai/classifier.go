package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// SignalClassification is the structured result of classifying one message for
// preference/intent/constraint signals.
type SignalClassification struct {
	Type       string   `json:"type"` // preference | intent | constraint | neutral
	Topic      string   `json:"topic"`
	Action     string   `json:"action"`
	Timeframe  string   `json:"timeframe"`
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Entities   []string `json:"entities"`
}

// ConceptExtraction is the structured result of analyzing a conversation window.
type ConceptExtraction struct {
	Summary  string   `json:"summary"`
	Concepts []string `json:"concepts"`
	Entities []string `json:"entities"`
}

// ClassificationService is the structured classification capability.
// Implementations may fail per call; callers are expected to degrade.
type ClassificationService interface {
	// ClassifySignal classifies a single message, with short preceding context,
	// into a preference/intent/constraint signal.
	ClassifySignal(ctx context.Context, message string, context []string) (*SignalClassification, error)

	// ExtractConcepts extracts a summary plus concept and entity lists from a
	// window of conversation turns.
	ExtractConcepts(ctx context.Context, turns []string) (*ConceptExtraction, error)
}

type classificationService struct {
	client *openai.Client
	model  string
}

// NewClassificationService creates a classification service backed by an
// OpenAI-compatible chat endpoint with strict JSON-schema output.
func NewClassificationService(cfg *ClassifierConfig) ClassificationService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		// Fast, cost-effective default for classification workloads
		model = "Qwen/Qwen2.5-7B-Instruct"
	}

	return &classificationService{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

const signalSystemPrompt = `You classify a single chat message into a durable user signal.
Return type "preference" (likes/dislikes), "intent" (plans to do something),
"constraint" (hard requirement or prohibition), or "neutral" (none of those).
topic is the short normalized subject. confidence is your calibrated certainty in [0,1].`

var signalJSONSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"type": {"type": "string", "enum": ["preference", "intent", "constraint", "neutral"]},
		"topic": {"type": "string"},
		"action": {"type": "string"},
		"timeframe": {"type": "string"},
		"sentiment": {"type": "string", "enum": ["positive", "negative", "neutral"]},
		"confidence": {"type": "number"},
		"entities": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["type", "topic", "action", "timeframe", "sentiment", "confidence", "entities"],
	"additionalProperties": false
}`)

const conceptSystemPrompt = `You analyze a window of conversation turns.
Produce a compact third-person summary, the main concepts discussed (short
lower-case noun phrases), and named entities. Skip filler and small talk.`

var conceptJSONSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary": {"type": "string"},
		"concepts": {"type": "array", "items": {"type": "string"}},
		"entities": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["summary", "concepts", "entities"],
	"additionalProperties": false
}`)

// ClassifySignal classifies a message using strict JSON-schema output.
func (s *classificationService) ClassifySignal(ctx context.Context, message string, contextMsgs []string) (*SignalClassification, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var sb strings.Builder
	if len(contextMsgs) > 0 {
		sb.WriteString("Context:\n")
		for _, m := range contextMsgs {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Message: ")
	sb.WriteString(message)

	content, err := s.complete(ctx, signalSystemPrompt, sb.String(), "signal_classification", signalJSONSchema, 200)
	if err != nil {
		return nil, err
	}

	var result SignalClassification
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("parse classification response failed: %w", err)
	}
	return &result, nil
}

// ExtractConcepts analyzes a turn window using strict JSON-schema output.
func (s *classificationService) ExtractConcepts(ctx context.Context, turns []string) (*ConceptExtraction, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("Conversation:\n")
	for _, t := range turns {
		sb.WriteString(t)
		sb.WriteString("\n")
	}

	content, err := s.complete(ctx, conceptSystemPrompt, sb.String(), "concept_extraction", conceptJSONSchema, 600)
	if err != nil {
		return nil, err
	}

	var result ConceptExtraction
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("parse extraction response failed: %w", err)
	}
	return &result, nil
}

func (s *classificationService) complete(ctx context.Context, system, user, schemaName string, schema json.RawMessage, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   maxTokens,
		Temperature: 0, // deterministic output
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Strict: true,
				Schema: schema,
			},
		},
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)

	if err != nil {
		slog.Error("classification request failed",
			"schema", schemaName,
			"error", err,
			"latency_ms", latency.Milliseconds())
		return "", fmt.Errorf("classification request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from classifier")
	}

	slog.Debug("classification completed",
		"schema", schemaName,
		"latency_ms", latency.Milliseconds(),
		"tokens", resp.Usage.TotalTokens)

	return stripCodeFence(resp.Choices[0].Message.Content), nil
}

var codeFenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// stripCodeFence unwraps a markdown code block if the model emitted one.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if matches := codeFenceRe.FindStringSubmatch(content); len(matches) > 1 {
			return matches[1]
		}
	}
	return content
}
