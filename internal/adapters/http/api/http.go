// Package api exposes the scan intake pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/idscan/internal/adapters/decoder"
	"github.com/okian/idscan/internal/domain/branch"
	"github.com/okian/idscan/internal/domain/model"
	"github.com/okian/idscan/pkg/logger"
)

const (
	defaultMaxHistoryLimit = 500
	maxBodyBytes           = 64 << 10
)

// Detector accepts decoder callbacks.
type Detector interface {
	OnDetected(ctx context.Context, r decoder.Result) model.Signal
	ReportError(ctx context.Context, name, message string) string
}

// Session exposes the in-memory pipeline state.
type Session interface {
	Recent() []model.ScanRecord
	Branch(code string) branch.Info
	Branches() []branch.Info
	Reset(ctx context.Context)
}

// History reads persisted scans.
type History interface {
	List(ctx context.Context, limit int) ([]model.ScanRecord, error)
	ByStudent(ctx context.Context, studentID string) ([]model.ScanRecord, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Detector
	Session
	History
}

// Server wires HTTP routes for the scan API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	detectionsHandler *DetectionsHandler
	scansHandler      *ScansHandler
	scannerHandler    *ScannerHandler
	sessionHandler    *SessionHandler

	feed   http.Handler
	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{maxHistoryLimit: defaultMaxHistoryLimit, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		detectionsHandler: NewDetectionsHandler(deps, deps),
		scansHandler:      NewScansHandler(deps, deps, cfg.maxHistoryLimit),
		scannerHandler:    NewScannerHandler(deps, deps),
		sessionHandler:    NewSessionHandler(deps),
		feed:              cfg.feed,
		logger:            cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz", s.logger))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats", s.logger))
	mux.HandleFunc("/detections", MetricsMiddleware(s.detectionsHandler.HandlePostDetection, "detections", s.logger))
	mux.HandleFunc("/scans", MetricsMiddleware(s.scansHandler.HandleRecent, "scans", s.logger))
	mux.HandleFunc("/scans/history", MetricsMiddleware(s.scansHandler.HandleHistory, "scans_history", s.logger))
	mux.HandleFunc("/scans/student", MetricsMiddleware(s.scansHandler.HandleStudent, "scans_student", s.logger))
	mux.HandleFunc("/branches", MetricsMiddleware(s.scannerHandler.HandleBranches, "branches", s.logger))
	mux.HandleFunc("/scanner/config", MetricsMiddleware(s.scannerHandler.HandleConfig, "scanner_config", s.logger))
	mux.HandleFunc("/scanner/errors", MetricsMiddleware(s.scannerHandler.HandleError, "scanner_errors", s.logger))
	mux.HandleFunc("/session/reset", MetricsMiddleware(s.sessionHandler.HandleReset, "session_reset", s.logger))
	if s.feed != nil {
		// Not wrapped: the upgrade needs the raw writer.
		mux.Handle("/ws", s.feed)
	}
	s.logger.Debug(ctx, "routes registered", logger.Bool("feed", s.feed != nil))
}

// scanView is a record with its branch and type presentation attached.
type scanView struct {
	model.ScanRecord
	Branch branch.Info      `json:"branch"`
	Type   model.RecordType `json:"type"`
}

func viewOf(r model.ScanRecord, lookup func(string) branch.Info) scanView {
	return scanView{ScanRecord: r, Branch: lookup(r.BranchCode), Type: model.StudentIDType}
}

func viewsOf(recs []model.ScanRecord, lookup func(string) branch.Info) []scanView {
	out := make([]scanView, 0, len(recs))
	for _, r := range recs {
		out = append(out, viewOf(r, lookup))
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	return false
}
