package api

import "net/http"

// SessionResponse is the reply to POST /api/sessions.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: s.svc.CreateSession()})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}
	s.svc.ClearSession(id)
	w.WriteHeader(http.StatusNoContent)
}
