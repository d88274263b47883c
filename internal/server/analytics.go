package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	maxAnalyticsIDLen        = 64
	maxAnalyticsUserAgentLen = 512
	analyticsTimeout         = 3 * time.Second
)

var validFinalResults = map[string]struct{}{
	"yes":  {},
	"some": {},
	"no":   {},
}

// AnalyticsEmitter reports session lifecycle events to an external
// collector. Implementations must never carry message text.
type AnalyticsEmitter interface {
	Start(ctx context.Context, anonID, sessionID, userAgent string)
	Step(ctx context.Context, anonID, sessionID string)
	End(ctx context.Context, anonID, sessionID, finalResult string)
}

type NoopAnalyticsEmitter struct{}

func (NoopAnalyticsEmitter) Start(context.Context, string, string, string) {}
func (NoopAnalyticsEmitter) Step(context.Context, string, string)          {}
func (NoopAnalyticsEmitter) End(context.Context, string, string, string)   {}

// HTTPAnalyticsEmitter posts counters fire-and-forget. Failures are
// logged and never surface to the caller.
type HTTPAnalyticsEmitter struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPAnalyticsEmitter(baseURL string) *HTTPAnalyticsEmitter {
	return &HTTPAnalyticsEmitter{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
	}
}

func truncateID(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

func (e *HTTPAnalyticsEmitter) Start(_ context.Context, anonID, sessionID, userAgent string) {
	payload := map[string]string{
		"anonId":    truncateID(anonID, maxAnalyticsIDLen),
		"sessionId": truncateID(sessionID, maxAnalyticsIDLen),
	}
	if ua := truncateID(userAgent, maxAnalyticsUserAgentLen); ua != "" {
		payload["userAgent"] = ua
	}
	e.post("/start", payload)
}

func (e *HTTPAnalyticsEmitter) Step(_ context.Context, anonID, sessionID string) {
	e.post("/step", map[string]string{
		"anonId":    truncateID(anonID, maxAnalyticsIDLen),
		"sessionId": truncateID(sessionID, maxAnalyticsIDLen),
	})
}

func (e *HTTPAnalyticsEmitter) End(_ context.Context, anonID, sessionID, finalResult string) {
	payload := map[string]string{
		"anonId":    truncateID(anonID, maxAnalyticsIDLen),
		"sessionId": truncateID(sessionID, maxAnalyticsIDLen),
	}
	if _, ok := validFinalResults[finalResult]; ok {
		payload["finalResult"] = finalResult
	}
	e.post("/end", payload)
}

func (e *HTTPAnalyticsEmitter) post(path string, payload map[string]string) {
	if e.baseURL == "" {
		return
	}
	if payload["anonId"] == "" || payload["sessionId"] == "" {
		return
	}
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	url := e.baseURL + path
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), analyticsTimeout)
		defer cancel()

		request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyRaw))
		if err != nil {
			return
		}
		request.Header.Set("Content-Type", "application/json")

		response, err := e.httpClient.Do(request)
		if err != nil {
			log.Printf("analytics %s failed: %v", path, err)
			return
		}
		defer response.Body.Close()
		if response.StatusCode < 200 || response.StatusCode >= 300 {
			log.Printf("analytics %s returned status %d", path, response.StatusCode)
		}
	}()
}
