package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/drewdunne/aireview/internal/event"
	"github.com/drewdunne/aireview/internal/metrics"
)

const testSecret = "test-secret-token"

const mrPayload = `{
	"object_kind": "merge_request",
	"project": {"id": 42, "name": "app"},
	"object_attributes": {"iid": 7, "state": "opened"}
}`

func newTestHandler(fn MergeRequestHandler) *GitLabHandler {
	return NewGitLabHandler(testSecret, fn, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(h http.Handler, token, kind, body string, alias bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/gitlab", strings.NewReader(body))
	tokenHeader, eventHeader := HeaderToken, HeaderEvent
	if alias {
		tokenHeader, eventHeader = HeaderTokenAlias, HeaderEventAlias
	}
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}
	if kind != "" {
		req.Header.Set(eventHeader, kind)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestGitLabHandler_ProcessingStarted(t *testing.T) {
	var got *event.MergeRequestEvent
	handler := newTestHandler(func(evt *event.MergeRequestEvent) { got = evt })

	rec := serve(handler, testSecret, event.MergeRequestHook, mrPayload, false)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["status"] != "processing_started" {
		t.Errorf("status = %q, want %q", body["status"], "processing_started")
	}
	if got == nil {
		t.Fatal("handler not called")
	}
	if got.Project.ID != 42 || got.MergeRequest.IID != 7 {
		t.Errorf("event = %+v, want project 42 iid 7", got)
	}
}

func TestGitLabHandler_AliasHeaders(t *testing.T) {
	called := false
	handler := newTestHandler(func(evt *event.MergeRequestEvent) { called = true })

	rec := serve(handler, testSecret, event.MergeRequestHook, mrPayload, true)

	if rec.Code != http.StatusOK || !called {
		t.Errorf("status = %d called = %v, want 200 and handler called", rec.Code, called)
	}
}

func TestGitLabHandler_InvalidToken(t *testing.T) {
	metrics.Reset()
	handler := newTestHandler(func(evt *event.MergeRequestEvent) {
		t.Error("handler should not be called with invalid token")
	})

	rec := serve(handler, "wrong-token", event.MergeRequestHook, mrPayload, false)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if body := decodeBody(t, rec); body["error"] != "Invalid token" {
		t.Errorf("error = %q, want %q", body["error"], "Invalid token")
	}
	if metrics.Get().WebhooksRejected != 1 {
		t.Errorf("WebhooksRejected = %d, want 1", metrics.Get().WebhooksRejected)
	}
}

func TestGitLabHandler_MissingToken(t *testing.T) {
	handler := newTestHandler(func(evt *event.MergeRequestEvent) {
		t.Error("handler should not be called with missing token")
	})

	rec := serve(handler, "", event.MergeRequestHook, mrPayload, false)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestGitLabHandler_IgnoredEvent(t *testing.T) {
	metrics.Reset()
	handler := newTestHandler(func(evt *event.MergeRequestEvent) {
		t.Error("handler should not be called for push events")
	})

	rec := serve(handler, testSecret, "Push Hook", `{"object_kind":"push"}`, false)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeBody(t, rec); body["status"] != "ignored" {
		t.Errorf("status = %q, want %q", body["status"], "ignored")
	}
	if metrics.Get().WebhooksIgnored != 1 {
		t.Errorf("WebhooksIgnored = %d, want 1", metrics.Get().WebhooksIgnored)
	}
}

func TestGitLabHandler_InvalidJSON(t *testing.T) {
	handler := newTestHandler(func(evt *event.MergeRequestEvent) {
		t.Error("handler should not be called with invalid JSON")
	})

	rec := serve(handler, testSecret, event.MergeRequestHook, `{invalid json`, false)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
