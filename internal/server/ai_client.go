package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ancrage/internal/config"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Conversation []ChatTurn
	Temperature  float64
	TopP         float64
	MaxTokens    int
	JSONResponse bool
}

type AIClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type OpenAIChatClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIChatClient(cfg config.Config) *OpenAIChatClient {
	return &OpenAIChatClient{
		apiKey:     strings.TrimSpace(cfg.OpenAIAPIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"),
		httpClient: &http.Client{},
	}
}

func (c *OpenAIChatClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("OPENAI_API_KEY is not configured")
	}
	if c.baseURL == "" {
		return "", errors.New("OPENAI_BASE_URL is not configured")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return "", errors.New("completion request model is empty")
	}

	type wireMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	messages := make([]wireMessage, 0, len(req.Conversation)+1)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, wireMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, turn := range req.Conversation {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		messages = append(messages, wireMessage{Role: role, Content: content})
	}
	if len(messages) == 0 {
		return "", errors.New("completion request has no messages")
	}

	payload := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
		"top_p":       req.TopP,
		"max_tokens":  req.MaxTokens,
	}
	if req.JSONResponse {
		payload["response_format"] = map[string]any{"type": "json_object"}
	}
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(bodyRaw),
	)
	if err != nil {
		return "", err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", fmt.Errorf("openai chat error (%d): %s", response.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", fmt.Errorf("openai chat response decode: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openai chat response has no choices")
	}
	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("openai chat response content is empty")
	}
	return answer, nil
}

// MockAIClient stands in for OpenAI in local runs and tests. The chat
// branch returns a short reformulation plus body pivot; the classifier
// branch returns a strict DEFAULT JSON object.
type MockAIClient struct{}

func (m MockAIClient) Complete(_ context.Context, req CompletionRequest) (string, error) {
	if req.JSONResponse {
		return `{"state":"DEFAULT","confidence":0,"zone":null,"cue":null}`, nil
	}
	lastUser := ""
	for _, turn := range req.Conversation {
		if strings.EqualFold(strings.TrimSpace(turn.Role), "user") {
			lastUser = strings.TrimSpace(turn.Content)
		}
	}
	if lastUser == "" {
		return "Qu'est-ce qui tourne le plus en tête là, en une phrase ?", nil
	}
	return "Cela prend de la place en ce moment. Remarquez où cela se sent dans votre corps.", nil
}
