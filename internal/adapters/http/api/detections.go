package api

import (
	"io"
	"net/http"

	"github.com/okian/idscan/internal/adapters/decoder"
	"github.com/okian/idscan/internal/domain/branch"
	"github.com/okian/idscan/internal/domain/model"
)

// DetectionsHandler feeds decoder callbacks into the pipeline.
type DetectionsHandler struct {
	detector Detector
	session  Session
}

// NewDetectionsHandler creates a new detections handler.
func NewDetectionsHandler(detector Detector, session Session) *DetectionsHandler {
	return &DetectionsHandler{detector: detector, session: session}
}

type detectionResponse struct {
	Status    model.SignalKind `json:"status"`
	Candidate string           `json:"candidate"`
	Record    *scanView        `json:"record,omitempty"`
}

// HandlePostDetection handles POST /detections requests. Every well-formed
// body gets 200; the outcome is in the status field.
func (h *DetectionsHandler) HandlePostDetection(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_detection"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	result, err := decoder.ParseResult(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sig := h.detector.OnDetected(r.Context(), result)
	resp := detectionResponse{Status: sig.Kind, Candidate: sig.Candidate}
	if sig.Record != nil {
		view := viewOf(*sig.Record, h.lookup)
		resp.Record = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DetectionsHandler) lookup(code string) branch.Info {
	return h.session.Branch(code)
}
