// Package webhook receives GitLab webhooks.
package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/drewdunne/aireview/internal/event"
	"github.com/drewdunne/aireview/internal/metrics"
)

// Header names. The provider-neutral aliases are accepted when the GitLab
// ones are absent.
const (
	HeaderToken      = "X-Gitlab-Token"
	HeaderTokenAlias = "X-Provider-Token"
	HeaderEvent      = "X-Gitlab-Event"
	HeaderEventAlias = "X-Provider-Event"
)

// MergeRequestHandler receives a parsed merge-request event. It must not
// block: the webhook response waits for it to return.
type MergeRequestHandler func(evt *event.MergeRequestEvent)

// GitLabHandler handles GitLab webhook requests.
type GitLabHandler struct {
	secret  string
	handler MergeRequestHandler
	logger  *slog.Logger
}

// NewGitLabHandler creates a new GitLab webhook handler.
func NewGitLabHandler(secret string, handler MergeRequestHandler, logger *slog.Logger) *GitLabHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitLabHandler{
		secret:  secret,
		handler: handler,
		logger:  logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *GitLabHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metrics.WebhookReceived()

	token := headerWithAlias(r, HeaderToken, HeaderTokenAlias)
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		metrics.WebhookRejected()
		h.logger.Warn("webhook rejected", "reason", "invalid token", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid token"})
		return
	}

	kind := headerWithAlias(r, HeaderEvent, HeaderEventAlias)
	if kind != event.MergeRequestHook {
		metrics.WebhookIgnored()
		h.logger.Debug("webhook ignored", "event", kind)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}

	evt, err := event.ParseMergeRequestEvent(body)
	if err != nil {
		h.logger.Warn("webhook payload rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}

	h.handler(evt)

	h.logger.Info("merge request event accepted",
		"project_id", evt.Project.ID,
		"iid", evt.MergeRequest.IID,
		"state", evt.MergeRequest.State)
	writeJSON(w, http.StatusOK, map[string]string{"status": "processing_started"})
}

func headerWithAlias(r *http.Request, name, alias string) string {
	if v := r.Header.Get(name); v != "" {
		return v
	}
	return r.Header.Get(alias)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
