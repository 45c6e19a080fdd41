package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/okian/idscan/internal/adapters/decoder"
	"github.com/okian/idscan/internal/domain/history"
	"github.com/okian/idscan/internal/domain/intake"
)

// ScannerHandler serves what the browser scanner needs to configure itself.
type ScannerHandler struct {
	detector Detector
	session  Session
}

// NewScannerHandler creates a new scanner handler.
func NewScannerHandler(detector Detector, session Session) *ScannerHandler {
	return &ScannerHandler{detector: detector, session: session}
}

type scannerConfig struct {
	Readers    []string `json:"readers"`
	DebounceMS int64    `json:"debounce_ms"`
	Capacity   int      `json:"capacity"`
}

// HandleConfig handles GET /scanner/config requests.
func (h *ScannerHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, scannerConfig{
		Readers:    decoder.Readers(),
		DebounceMS: intake.DebounceWindow.Milliseconds(),
		Capacity:   history.Capacity,
	})
}

// HandleBranches handles GET /branches requests.
func (h *ScannerHandler) HandleBranches(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.session.Branches())
}

type cameraErrorRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type cameraErrorResponse struct {
	Message string `json:"message"`
}

// HandleError handles POST /scanner/errors requests and returns user text.
func (h *ScannerHandler) HandleError(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_scanner_error"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req cameraErrorRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	text := h.detector.ReportError(r.Context(), req.Name, req.Message)
	writeJSON(w, http.StatusOK, cameraErrorResponse{Message: text})
}
