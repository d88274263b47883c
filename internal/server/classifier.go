package server

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"
)

type classifiedState string

const (
	classifiedDefault        classifiedState = "DEFAULT"
	classifiedAllianceRepair classifiedState = "ALLIANCE_REPAIR"
	classifiedStagnation     classifiedState = "STAGNATION"
	classifiedSomaticActive  classifiedState = "SOMATIC_ACTIVE"
	classifiedSelfHarm       classifiedState = "SELF_HARM"
	classifiedPanic          classifiedState = "PANIC"
)

var validClassifiedStates = map[classifiedState]struct{}{
	classifiedDefault:        {},
	classifiedAllianceRepair: {},
	classifiedStagnation:     {},
	classifiedSomaticActive:  {},
	classifiedSelfHarm:       {},
	classifiedPanic:          {},
}

// ClassifyResult labels the last user message. Zone and Cue are only
// meaningful for SOMATIC_ACTIVE.
type ClassifyResult struct {
	State      classifiedState
	Confidence float64
	Zone       string
	Cue        *bool
}

func defaultClassifyResult() ClassifyResult {
	return ClassifyResult{State: classifiedDefault, Confidence: 0}
}

// Classifier asks the model to label a single user message. Any error,
// timeout, invalid JSON or unknown state degrades to DEFAULT so the
// pipeline keeps its local decision.
type Classifier struct {
	ai        AIClient
	model     string
	maxTokens int
	timeout   time.Duration
}

func NewClassifier(ai AIClient, model string, maxTokens int, timeout time.Duration) *Classifier {
	if maxTokens <= 0 {
		maxTokens = 60
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Classifier{ai: ai, model: model, maxTokens: maxTokens, timeout: timeout}
}

func (c *Classifier) Classify(ctx context.Context, text string) ClassifyResult {
	fallback := defaultClassifyResult()
	if c == nil || c.ai == nil || strings.TrimSpace(text) == "" {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.ai.Complete(ctx, CompletionRequest{
		Model:        c.model,
		SystemPrompt: classifierSystemPrompt,
		Conversation: []ChatTurn{{Role: "user", Content: classifierUserPrompt(text)}},
		Temperature:  0,
		TopP:         1,
		MaxTokens:    c.maxTokens,
		JSONResponse: true,
	})
	if err != nil {
		log.Printf("classifier call failed: %v", err)
		return fallback
	}
	return parseClassifierJSON(raw)
}

func parseClassifierJSON(raw string) ClassifyResult {
	fallback := defaultClassifyResult()
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return fallback
	}

	var payload struct {
		State      string   `json:"state"`
		Confidence *float64 `json:"confidence"`
		Zone       *string  `json:"zone"`
		Cue        *bool    `json:"cue"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return fallback
	}

	state := classifiedState(strings.TrimSpace(payload.State))
	if _, ok := validClassifiedStates[state]; !ok {
		return fallback
	}

	confidence := 0.0
	if payload.Confidence != nil {
		confidence = *payload.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
	}

	zone := ""
	if payload.Zone != nil {
		zone = strings.TrimSpace(*payload.Zone)
	}

	return ClassifyResult{
		State:      state,
		Confidence: confidence,
		Zone:       zone,
		Cue:        payload.Cue,
	}
}

// stripCodeFences tolerates models that wrap the JSON object in
// markdown fences despite the strict-JSON instruction.
func stripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}
