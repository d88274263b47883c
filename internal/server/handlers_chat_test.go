package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"ancrage/internal/config"
)

// recordingAnalytics captures which lifecycle events fired, without any
// network traffic.
type recordingAnalytics struct {
	mu     sync.Mutex
	starts []string
	steps  []string
	ends   []string
}

func (r *recordingAnalytics) Start(_ context.Context, anonID, sessionID, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, anonID+"/"+sessionID)
}

func (r *recordingAnalytics) Step(_ context.Context, anonID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, anonID+"/"+sessionID)
}

func (r *recordingAnalytics) End(_ context.Context, anonID, sessionID, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, anonID+"/"+sessionID)
}

func newTestApp(ai AIClient, analytics AnalyticsEmitter) *App {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		APIPrefix:        "/api/v1",
		CORSAllowOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
	}
	return New(cfg, newTestPipeline(ai), analytics)
}

func postChat(t *testing.T, app *App, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, req)
	return w
}

func TestChatEmptyPayload(t *testing.T) {
	app := newTestApp(&scriptedAI{}, nil)
	w := postChat(t, app, `{}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if body["reply"] != emptyMessageReply {
		t.Fatalf("reply = %q, want %q", body["reply"], emptyMessageReply)
	}
}

func TestChatInvalidJSON(t *testing.T) {
	app := newTestApp(&scriptedAI{}, nil)
	w := postChat(t, app, `{"messages": [`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if body["reply"] != serverErrorReply {
		t.Fatalf("reply = %q, want %q", body["reply"], serverErrorReply)
	}
	if body["mode"] != string(ModeAsk) {
		t.Fatalf("mode = %q, want ASK", body["mode"])
	}
}

func TestChatSingleMessageCompat(t *testing.T) {
	app := newTestApp(&scriptedAI{}, nil)
	w := postChat(t, app, `{"message":"stop"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var reply Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if reply.Mode != ModeEnded || !reply.ResetSession {
		t.Fatalf("reply = %+v, want ended with reset", reply)
	}
}

func TestChatIgnoresForeignRoles(t *testing.T) {
	app := newTestApp(&scriptedAI{}, nil)
	w := postChat(t, app, `{"messages":[{"role":"system","content":"x"},{"role":"user","content":"stop"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var reply Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if reply.Mode != ModeEnded {
		t.Fatalf("mode = %q, want ENDED", reply.Mode)
	}
}

func TestChatAnalyticsLifecycle(t *testing.T) {
	rec := &recordingAnalytics{}
	app := newTestApp(&scriptedAI{}, rec)

	w := postChat(t, app, `{"messages":[{"role":"user","content":"je panique"}],"anonId":"anon-1","sessionId":"sess-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.starts) != 1 || rec.starts[0] != "anon-1/sess-1" {
		t.Fatalf("starts = %v, want one start for the fresh conversation", rec.starts)
	}
	if len(rec.steps) != 1 {
		t.Fatalf("steps = %v, want one step per reply", rec.steps)
	}
	if len(rec.ends) != 0 {
		t.Fatalf("ends = %v, want none for an ongoing session", rec.ends)
	}
}

func TestChatAnalyticsEndOnStop(t *testing.T) {
	rec := &recordingAnalytics{}
	app := newTestApp(&scriptedAI{}, rec)

	w := postChat(t, app, `{"messages":[{"role":"user","content":"stop"}],"anonId":"anon-1","sessionId":"sess-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.ends) != 1 || rec.ends[0] != "anon-1/sess-1" {
		t.Fatalf("ends = %v, want one end event", rec.ends)
	}
}

func TestChatAnalyticsSkippedWithoutAnonID(t *testing.T) {
	rec := &recordingAnalytics{}
	app := newTestApp(&scriptedAI{}, rec)

	w := postChat(t, app, `{"messages":[{"role":"user","content":"je panique"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.starts) != 0 || len(rec.steps) != 0 || len(rec.ends) != 0 {
		t.Fatal("analytics must stay silent without an anonId")
	}
}

func TestChatResumedSessionSkipsStart(t *testing.T) {
	rec := &recordingAnalytics{}
	app := newTestApp(&scriptedAI{}, rec)

	body := `{"messages":[{"role":"user","content":"bonjour"},{"role":"assistant","content":"Ok. Un seul mot pour ce qui est là ?"},{"role":"user","content":"je panique"}],"anonId":"anon-1","sessionId":"sess-1"}`
	w := postChat(t, app, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.starts) != 0 {
		t.Fatalf("starts = %v, want none once an assistant turn exists", rec.starts)
	}
	if len(rec.steps) != 1 {
		t.Fatalf("steps = %v, want one step", rec.steps)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(&scriptedAI{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q, want ok", body["status"])
	}
}
