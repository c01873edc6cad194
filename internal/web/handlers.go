package web

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vadiminshakov/stakeview/internal/dashboard"
	"github.com/vadiminshakov/stakeview/internal/export"
	"github.com/vadiminshakov/stakeview/internal/metrics"
	"github.com/vadiminshakov/stakeview/internal/pager"
)

type createViewRequest struct {
	Address string `json:"address"`
}

type viewResponse struct {
	ID   string         `json:"id"`
	View dashboard.View `json:"view"`
}

type exportResponse struct {
	Form export.FormPrompt `json:"form"`
	View dashboard.View    `json:"view"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	matches := make([]string, 0, len(s.Examples))
	for _, addr := range s.Examples {
		if q == "" || strings.Contains(strings.ToLower(addr), q) {
			matches = append(matches, addr)
		}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"addresses": matches})
}

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var req createViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		writeError(w, http.StatusBadRequest, "validator address is required")
		return
	}

	id, v := s.addView(address)
	s.logger.Info("view created", zap.String("view", id), zap.String("address", address))

	state := s.refresh(r.Context(), v)
	writeJSON(w, http.StatusCreated, viewResponse{ID: id, View: state.View()})
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, ok := s.lookupView(id)
	if !ok {
		writeError(w, http.StatusNotFound, "view not found")
		return
	}

	size, hasSize, err := intParam(r, "size")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if hasSize && !pager.IsAllowedSize(size) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("page size must be one of %v", pager.AllowedSizes))
		return
	}
	page, hasPage, err := intParam(r, "page")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v.mu.Lock()
	state := v.state
	if hasSize && size != state.PageSize {
		state = state.WithPageSize(size)
	}
	if hasPage {
		state = state.WithPage(page)
	}
	v.state = state
	v.mu.Unlock()

	writeJSON(w, http.StatusOK, viewResponse{ID: id, View: state.View()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, ok := s.lookupView(id)
	if !ok {
		writeError(w, http.StatusNotFound, "view not found")
		return
	}

	state := s.refresh(r.Context(), v)
	writeJSON(w, http.StatusOK, viewResponse{ID: id, View: state.View()})
}

func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, ok := s.lookupView(id)
	if !ok {
		writeError(w, http.StatusNotFound, "view not found")
		return
	}

	v.mu.Lock()
	wasAwaiting := v.state.Gate.Awaiting()
	v.state = v.state.RequestExport(s.newID())
	state := v.state
	v.mu.Unlock()

	sessionID := state.Gate.SessionID()
	if !wasAwaiting {
		metrics.Exports.WithLabelValues(metrics.ExportRequested).Inc()
		s.logger.Info("export requested", zap.String("view", id), zap.String("session", sessionID))
	}

	prompt := s.Form.Prompt(sessionID)
	prompt.CompletionURL = fmt.Sprintf("/api/views/%s/export/%s/complete", id, sessionID)
	writeJSON(w, http.StatusOK, exportResponse{Form: prompt, View: state.View()})
}

func (s *Server) handleCompleteExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sessionID := r.PathValue("session")
	v, ok := s.lookupView(id)
	if !ok {
		writeError(w, http.StatusNotFound, "view not found")
		return
	}

	v.mu.Lock()
	var artifact *export.Artifact
	v.state, artifact = v.state.CompleteExport(sessionID)
	v.mu.Unlock()

	logger := s.logger.With(zap.String("view", id), zap.String("session", sessionID))
	if artifact == nil {
		metrics.Exports.WithLabelValues(metrics.ExportIgnored).Inc()
		logger.Debug("ignoring completion signal outside of an open export session")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	metrics.Exports.WithLabelValues(metrics.ExportCompleted).Inc()
	logger.Info("export completed", zap.String("file", artifact.Filename), zap.Int("rows", artifact.Rows))
	if s.Exports != nil {
		if err := s.Exports.Save(export.NewEvent(artifact)); err != nil {
			logger.Error("failed to record export", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", contentDisposition(artifact.Filename))
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, artifact.Content)
}

func (s *Server) handleCancelExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, ok := s.lookupView(id)
	if !ok {
		writeError(w, http.StatusNotFound, "view not found")
		return
	}

	v.mu.Lock()
	wasAwaiting := v.state.Gate.Awaiting()
	v.state = v.state.CancelExport()
	state := v.state
	v.mu.Unlock()

	if wasAwaiting {
		metrics.Exports.WithLabelValues(metrics.ExportCancelled).Inc()
		s.logger.Info("export cancelled", zap.String("view", id))
	}
	writeJSON(w, http.StatusOK, viewResponse{ID: id, View: state.View()})
}

// contentDisposition marks the response as a download named filename.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func intParam(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer", name)
	}
	return n, true, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
