package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/idscan/internal/adapters/repository"
	"github.com/okian/idscan/internal/domain/studentid"
)

// ScansHandler serves recent and persisted scans.
type ScansHandler struct {
	session  Session
	history  History
	maxLimit int
}

// NewScansHandler creates a new scans handler.
func NewScansHandler(session Session, history History, maxLimit int) *ScansHandler {
	return &ScansHandler{session: session, history: history, maxLimit: maxLimit}
}

// HandleRecent handles GET /scans: the in-memory history, newest first.
func (h *ScansHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(h.session.Recent(), h.session.Branch))
}

// HandleHistory handles GET /scans/history?limit=N requests.
func (h *ScansHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	recs, err := h.history.List(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(recs, h.session.Branch))
}

// HandleStudent handles GET /scans/student?id=SCS/12345/23 requests.
func (h *ScansHandler) HandleStudent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_student"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id, err := studentid.Parse(strings.TrimSpace(r.URL.Query().Get("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	recs, err := h.history.ByStudent(r.Context(), id.String())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(recs, h.session.Branch))
}
