package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/drewdunne/aireview/internal/orchestrator"
	"github.com/drewdunne/aireview/internal/report"
	"github.com/drewdunne/aireview/internal/store"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeError maps pipeline and store errors to a status code. notFound is the
// detail returned for store.ErrNotFound.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeDetail(w, http.StatusNotFound, notFound)
	case errors.Is(err, orchestrator.ErrMissingProject):
		writeDetail(w, http.StatusBadRequest, "GitLab project id is missing")
	case errors.Is(err, orchestrator.ErrNoReview):
		writeDetail(w, http.StatusBadRequest, "No review found for this MR")
	case errors.Is(err, orchestrator.ErrNoIssues):
		writeDetail(w, http.StatusBadRequest, "No issues to send")
	case errors.Is(err, orchestrator.ErrProvider):
		s.logger.Error("provider request failed", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusBadGateway, "GitLab request failed")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// idParam parses the {id} URL parameter. Non-numeric ids never match a row.
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.deps.Store.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	out := make([]projectJSON, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	p, err := s.deps.Store.GetProject(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, toProjectJSON(*p))
}

func (s *Server) handleProjectMergeRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	s.listMergeRequests(w, r, id)
}

func (s *Server) handleSyncProjects(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Pipeline.SyncProjects(r.Context())
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		orchestrator.SyncResult
	}{Status: "ok", SyncResult: res})
}

func (s *Server) handleListMergeRequests(w http.ResponseWriter, r *http.Request) {
	var projectID int64
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "project_id must be an integer")
			return
		}
		projectID = id
	}
	s.listMergeRequests(w, r, projectID)
}

func (s *Server) listMergeRequests(w http.ResponseWriter, r *http.Request, projectID int64) {
	mrs, err := s.deps.Store.ListMergeRequests(r.Context(), projectID)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	out := make([]mergeRequestJSON, 0, len(mrs))
	for _, mr := range mrs {
		out = append(out, toMergeRequestJSON(mr))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMergeRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "MergeRequest not found")
		return
	}
	mr, err := s.deps.Store.GetMergeRequest(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "MergeRequest not found")
		return
	}
	writeJSON(w, http.StatusOK, toMergeRequestJSON(*mr))
}

func (s *Server) handleRerun(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "MergeRequest not found")
		return
	}
	if err := s.deps.Pipeline.Rerun(r.Context(), id); err != nil {
		s.writeError(w, r, err, "MergeRequest not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processing_started"})
}

func (s *Server) handleSendRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "MergeRequest not found")
		return
	}
	if err := s.deps.Pipeline.SendRecommendations(r.Context(), id); err != nil {
		s.writeError(w, r, err, "MergeRequest not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "comment_sent"})
}

func (s *Server) handlePreviewRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "MergeRequest not found")
		return
	}
	md, _, err := s.deps.Pipeline.RecommendationsMarkdown(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "MergeRequest not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.RenderHTML(md)))
}
