package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type capturedPost struct {
	path    string
	payload map[string]string
}

// newCaptureServer returns a collector double plus a channel carrying
// each received post; emitter posts are asynchronous, so assertions read
// the channel with a timeout.
func newCaptureServer(t *testing.T) (*httptest.Server, chan capturedPost) {
	t.Helper()
	posts := make(chan capturedPost, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("collector got invalid JSON: %v", err)
		}
		posts <- capturedPost{path: r.URL.Path, payload: payload}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, posts
}

func waitForPost(t *testing.T, posts chan capturedPost) capturedPost {
	t.Helper()
	select {
	case p := <-posts:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no analytics post arrived")
		return capturedPost{}
	}
}

func TestHTTPAnalyticsEmitterStart(t *testing.T) {
	srv, posts := newCaptureServer(t)
	e := NewHTTPAnalyticsEmitter(srv.URL)

	e.Start(context.Background(), "anon-1", "sess-1", "test-agent")
	got := waitForPost(t, posts)

	if got.path != "/start" {
		t.Fatalf("path = %q, want /start", got.path)
	}
	if got.payload["anonId"] != "anon-1" || got.payload["sessionId"] != "sess-1" {
		t.Fatalf("payload = %v", got.payload)
	}
	if got.payload["userAgent"] != "test-agent" {
		t.Fatalf("userAgent = %q, want test-agent", got.payload["userAgent"])
	}
}

func TestHTTPAnalyticsEmitterStep(t *testing.T) {
	srv, posts := newCaptureServer(t)
	e := NewHTTPAnalyticsEmitter(srv.URL)

	e.Step(context.Background(), "anon-1", "sess-1")
	got := waitForPost(t, posts)

	if got.path != "/step" {
		t.Fatalf("path = %q, want /step", got.path)
	}
	if len(got.payload) != 2 {
		t.Fatalf("payload = %v, want only the two identifiers", got.payload)
	}
}

func TestHTTPAnalyticsEmitterTruncatesIDs(t *testing.T) {
	srv, posts := newCaptureServer(t)
	e := NewHTTPAnalyticsEmitter(srv.URL)

	longID := strings.Repeat("x", 100)
	e.Step(context.Background(), longID, "sess-1")
	got := waitForPost(t, posts)

	if len(got.payload["anonId"]) != maxAnalyticsIDLen {
		t.Fatalf("anonId length = %d, want %d", len(got.payload["anonId"]), maxAnalyticsIDLen)
	}
}

func TestHTTPAnalyticsEmitterEndFinalResult(t *testing.T) {
	srv, posts := newCaptureServer(t)
	e := NewHTTPAnalyticsEmitter(srv.URL)

	e.End(context.Background(), "anon-1", "sess-1", "yes")
	got := waitForPost(t, posts)
	if got.path != "/end" || got.payload["finalResult"] != "yes" {
		t.Fatalf("post = %+v, want /end with finalResult yes", got)
	}

	e.End(context.Background(), "anon-1", "sess-1", "maybe")
	got = waitForPost(t, posts)
	if _, ok := got.payload["finalResult"]; ok {
		t.Fatalf("unknown finalResult forwarded: %v", got.payload)
	}
}

func TestHTTPAnalyticsEmitterSkipsWithoutIDs(t *testing.T) {
	srv, posts := newCaptureServer(t)
	e := NewHTTPAnalyticsEmitter(srv.URL)

	e.Step(context.Background(), "", "sess-1")
	e.Step(context.Background(), "anon-1", "")

	select {
	case p := <-posts:
		t.Fatalf("unexpected post %+v without identifiers", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHTTPAnalyticsEmitterSkipsWithoutBaseURL(t *testing.T) {
	t.Parallel()

	e := NewHTTPAnalyticsEmitter("")
	// Must not panic or block.
	e.Start(context.Background(), "anon-1", "sess-1", "agent")
	e.Step(context.Background(), "anon-1", "sess-1")
	e.End(context.Background(), "anon-1", "sess-1", "yes")
}
