package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lectern/lectern/internal/chat"
	"github.com/lectern/lectern/internal/tools"
)

// maxQueryBody bounds the request body to keep oversized payloads away from
// the model.
const maxQueryBody = 64 * 1024

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the reply: the final answer, its citation sources, and
// the session the exchange was recorded under.
type QueryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a 'query' field")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query must not be empty")
		return
	}

	// A missing session ID starts a fresh session so the client can carry
	// the conversation forward.
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.svc.CreateSession()
	}

	resp, err := s.svc.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		s.logger.Error("query failed", "session_id", sessionID, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrModelCall) {
			status = http.StatusBadGateway
		}
		writeError(w, status, "query_failed", "failed to answer the question")
		return
	}

	sources := resp.Sources
	if sources == nil {
		sources = []tools.Source{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    resp.Text,
		Sources:   sources,
		SessionID: sessionID,
	})
}
