package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"creativeflow/internal/creative"
	"creativeflow/internal/services"
)

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	if !s.decode(w, r, &body) {
		return
	}
	req, err := creative.NewGenerationRequest(body.Params(), s.pipeline.Defaults())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	result, err := s.pipeline.Generate(context.WithoutCancel(r.Context()), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, GenerateResponse{
		RunID:        result.RunID,
		Suggestions:  result.Suggestions,
		Message:      result.Message,
		SavedToSheet: result.SavedToSheet,
	})
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	var body ReprocessRequest
	if !s.decode(w, r, &body) {
		return
	}
	req, err := creative.NewReprocessRequest(body.Params(), s.pipeline.Defaults())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	result, err := s.pipeline.Reprocess(context.WithoutCancel(r.Context()), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FromReprocessResult(result))
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	var body AudioRequest
	if !s.decode(w, r, &body) {
		return
	}
	out, err := s.pipeline.GenerateAudio(context.WithoutCancel(r.Context()), body.Suggestions, body.Indices, body.VoiceID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AudioResponse{Suggestions: out})
}

func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	if s.scripts == nil {
		s.writeFailure(w, r, services.Wrap(services.ErrConfiguration, "api", "scripts", "sheet access is not configured", nil))
		return
	}
	query := r.URL.Query()
	tab := strings.TrimSpace(query.Get("tab"))
	if tab == "" {
		tab = s.pipeline.Defaults().DestinationTab
	}
	rows, err := s.scripts.ReadExistingScripts(r.Context(), strings.TrimSpace(query.Get("spreadsheetId")), tab)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ScriptsResponse{Scripts: rows})
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	if s.scripts == nil {
		s.writeFailure(w, r, services.Wrap(services.ErrConfiguration, "api", "tabs", "sheet access is not configured", nil))
		return
	}
	tabs, err := s.scripts.ListTabs(r.Context(), strings.TrimSpace(r.URL.Query().Get("spreadsheetId")))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TabsResponse{Tabs: tabs})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeJSON(w, http.StatusOK, RunsResponse{Runs: nil})
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeFailure(w, r, services.Wrap(services.ErrValidation, "api", "runs", "limit must be a positive integer", nil))
			return
		}
		limit = parsed
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeJSON(w, http.StatusOK, Status{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.status(r.Context()))
}
