package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lectern/lectern/internal/chat"
	"github.com/lectern/lectern/internal/rag"
	"github.com/lectern/lectern/internal/tools"
)

// mockService is a QueryService with per-method overrides.
type mockService struct {
	queryFunc     func(ctx context.Context, query, sessionID string) (*chat.Response, error)
	analyticsFunc func(ctx context.Context) (rag.Analytics, error)
	created       int
	cleared       []string
}

func (m *mockService) Query(ctx context.Context, query, sessionID string) (*chat.Response, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, query, sessionID)
	}
	return &chat.Response{Text: "answer"}, nil
}

func (m *mockService) CreateSession() string {
	m.created++
	return fmt.Sprintf("session-%d", m.created)
}

func (m *mockService) ClearSession(id string) {
	m.cleared = append(m.cleared, id)
}

func (m *mockService) CourseAnalytics(ctx context.Context) (rag.Analytics, error) {
	if m.analyticsFunc != nil {
		return m.analyticsFunc(ctx)
	}
	return rag.Analytics{}, nil
}

func newTestServer(svc QueryService) http.Handler {
	return NewServer(svc, slog.New(slog.DiscardHandler)).Handler()
}

func TestQueryEndpoint(t *testing.T) {
	svc := &mockService{
		queryFunc: func(ctx context.Context, query, sessionID string) (*chat.Response, error) {
			if query != "What is MCP?" {
				t.Errorf("query = %q", query)
			}
			return &chat.Response{
				Text:    "MCP is a protocol.",
				Sources: []tools.Source{{Text: "Introduction to MCP", URL: "https://example.com/mcp"}},
			}, nil
		},
	}
	handler := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "What is MCP?", "session_id": "abc"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "MCP is a protocol." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].URL != "https://example.com/mcp" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if resp.SessionID != "abc" {
		t.Errorf("session_id = %q, want the one supplied", resp.SessionID)
	}
}

func TestQueryCreatesSessionWhenMissing(t *testing.T) {
	svc := &mockService{}
	handler := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "hello"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "session-1" {
		t.Errorf("session_id = %q, want generated", resp.SessionID)
	}
	if resp.Sources == nil {
		t.Error("sources must serialize as [], not null")
	}
}

func TestQueryValidation(t *testing.T) {
	handler := newTestServer(&mockService{})

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "query=hi"},
		{"missing query", `{}`},
		{"blank query", `{"query": "   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestQueryModelFailure(t *testing.T) {
	svc := &mockService{
		queryFunc: func(ctx context.Context, query, sessionID string) (*chat.Response, error) {
			return nil, fmt.Errorf("answer query: %w", chat.ErrModelCall)
		},
	}
	handler := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query": "q"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for model failure", rec.Code)
	}
}

func TestCoursesEndpoint(t *testing.T) {
	svc := &mockService{
		analyticsFunc: func(ctx context.Context) (rag.Analytics, error) {
			return rag.Analytics{TotalCourses: 2, CourseTitles: []string{"A", "B"}}, nil
		},
	}
	handler := newTestServer(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var a rag.Analytics
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if a.TotalCourses != 2 || len(a.CourseTitles) != 2 {
		t.Errorf("analytics = %+v", a)
	}
}

func TestCoursesFailure(t *testing.T) {
	svc := &mockService{
		analyticsFunc: func(ctx context.Context) (rag.Analytics, error) {
			return rag.Analytics{}, errors.New("db down")
		},
	}
	handler := newTestServer(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc := &mockService{}
	handler := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("session_id is empty")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/sessions/"+resp.SessionID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if len(svc.cleared) != 1 || svc.cleared[0] != resp.SessionID {
		t.Errorf("cleared = %v", svc.cleared)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestServer(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := chain(panicky, recoveryMiddleware(slog.New(slog.DiscardHandler)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
