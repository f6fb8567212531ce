package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"creativeflow/internal/creative"
	"creativeflow/internal/logging"
	"creativeflow/internal/runstore"
	"creativeflow/internal/services"
)

const maxBodyBytes = 8 << 20

// Pipeline is the orchestrator surface the API drives.
type Pipeline interface {
	Generate(ctx context.Context, req creative.GenerationRequest) (creative.PipelineResult, error)
	Reprocess(ctx context.Context, req creative.ReprocessRequest) (creative.ReprocessResult, error)
	GenerateAudio(ctx context.Context, suggestions []creative.ScriptSuggestion, indices []int, voiceID string) ([]creative.ScriptSuggestion, error)
	Defaults() creative.Defaults
}

// ScriptReader reads persisted scripts from the destination sheet.
type ScriptReader interface {
	ReadExistingScripts(ctx context.Context, destinationRef, tab string) ([]creative.ExistingScriptRow, error)
	ListTabs(ctx context.Context, destinationRef string) ([]string, error)
}

// RunLister reads recorded runs.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]runstore.Run, error)
}

// Options configures a Server. Scripts, Runs and Status may be nil.
type Options struct {
	Bind         string
	Token        string
	WriteTimeout time.Duration
	Scripts      ScriptReader
	Runs         RunLister
	Status       func(ctx context.Context) Status
}

// Server serves the HTTP API.
type Server struct {
	pipeline Pipeline
	scripts  ScriptReader
	runs     RunLister
	status   func(ctx context.Context) Status
	token    string
	bind     string
	logger   *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer builds a Server around pipeline.
func NewServer(pipeline Pipeline, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		scripts:  opts.Scripts,
		runs:     opts.Runs,
		status:   opts.Status,
		token:    strings.TrimSpace(opts.Token),
		bind:     strings.TrimSpace(opts.Bind),
		logger:   logging.NewComponentLogger(logger, "api-server"),
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Minute
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed, authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/creatives/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/creatives/reprocess", s.handleReprocess)
	mux.HandleFunc("POST /api/creatives/audio", s.handleAudio)
	mux.HandleFunc("GET /api/creatives/scripts", s.handleScripts)
	mux.HandleFunc("GET /api/creatives/tabs", s.handleTabs)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return s.requestID(s.authMiddleware(mux))
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeFailure(w, r, services.Wrap(services.ErrValidation, "api", "decode", "malformed JSON body", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	kind := services.Kind(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", kind,
			logging.Error(err),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
		)
	} else {
		logger.Info("request rejected", logging.String("path", r.URL.Path), logging.Int("status", status), logging.Error(err))
	}
	s.writeJSON(w, status, ErrorResponse{Error: kind, Message: failureMessage(kind), Details: err.Error()})
}

func failureMessage(kind string) string {
	switch kind {
	case "invalid_request":
		return "The request is invalid."
	case "not_found":
		return "The spreadsheet or tab could not be found."
	case "source_unavailable":
		return "The performance data could not be read."
	case "generation_failed":
		return "Script generation failed."
	case "timeout":
		return "An upstream service timed out."
	case "configuration":
		return "The server is not configured for this request."
	default:
		return "An internal error occurred."
	}
}
