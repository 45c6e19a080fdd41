package api

import "net/http"

// SessionHandler controls the scanning session.
type SessionHandler struct {
	session Session
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(session Session) *SessionHandler {
	return &SessionHandler{session: session}
}

// HandleReset handles POST /session/reset requests.
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	h.session.Reset(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
