// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/faceattr/internal/app"
)

// Prefix is the path prefix shared by every public endpoint.
const Prefix = "/api/py"

// Dependencies required by HTTP handlers. *service.Service satisfies it;
// tests substitute fakes.
type Dependencies interface {
	Analyze(ctx context.Context, data []byte) (*service.Analysis, error)
	SaveAnalysis(ctx context.Context, predictions []byte) (string, error)
	Cleanup(ctx context.Context) service.CleanupReport
	Health() service.Health
	MaxUploadBytes() int64
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	analyzeHandler *AnalyzeHandler
	cleanupHandler *CleanupHandler
	saveHandler    *SaveHandler
	statsHandler   *StatsHandler
	metricsHandler http.Handler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		analyzeHandler: NewAnalyzeHandler(deps),
		cleanupHandler: NewCleanupHandler(deps),
		saveHandler:    NewSaveHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		metricsHandler: NewMetricsHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc(Prefix+"/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc(Prefix+"/analyze-face", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze-face"))
	mux.HandleFunc(Prefix+"/cleanup", MetricsMiddleware(s.cleanupHandler.HandleCleanup, "cleanup"))
	mux.HandleFunc(Prefix+"/save-analysis", MetricsMiddleware(s.saveHandler.HandleSave, "save-analysis"))
	mux.HandleFunc(Prefix+"/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", s.metricsHandler)
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	if detail == "" {
		detail = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Detail: detail})
}

// allowMethod writes a 405 and returns false unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, ErrMethodNotAllowed.Error())
	return false
}
