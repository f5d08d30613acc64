// Package rag ties the pieces together: it owns the query path (session
// history in, answer and sources out) and the ingestion path (course
// documents in, catalog and chunks out).
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lectern/lectern/internal/chat"
	"github.com/lectern/lectern/internal/ingest"
	"github.com/lectern/lectern/internal/session"
	"github.com/lectern/lectern/internal/store"
)

// Answerer runs the tool-calling loop for one query. Satisfied by
// *chat.Agent.
type Answerer interface {
	Answer(ctx context.Context, query, history string) (*chat.Response, error)
}

// Catalog is the slice of the store the system needs for ingestion and
// analytics.
type Catalog interface {
	AddCourse(ctx context.Context, course store.Course) error
	AddChunks(ctx context.Context, chunks []store.Chunk) error
	CourseCount(ctx context.Context) (int, error)
	CourseTitles(ctx context.Context) ([]string, error)
}

// Analytics summarizes the catalog.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System is the application facade used by the HTTP API and the CLI.
type System struct {
	agent     Answerer
	catalog   Catalog
	sessions  *session.Manager
	processor *ingest.Processor
	logger    *slog.Logger
}

// New creates a System.
func New(agent Answerer, catalog Catalog, sessions *session.Manager, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		agent:     agent,
		catalog:   catalog,
		sessions:  sessions,
		processor: ingest.NewProcessor(),
		logger:    logger,
	}
}

// Query answers one user question. Session history is read before the loop
// starts and stays fixed while it runs; the completed exchange is folded
// back in only after the final answer exists, so intermediate tool turns
// never reach the session.
func (s *System) Query(ctx context.Context, query, sessionID string) (*chat.Response, error) {
	var history string
	if sessionID != "" {
		history = s.sessions.History(sessionID)
	}

	resp, err := s.agent.Answer(ctx, query, history)
	if err != nil {
		return nil, fmt.Errorf("answer query: %w", err)
	}

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, query, resp.Text)
	}
	return resp, nil
}

// CreateSession allocates a new conversation session.
func (s *System) CreateSession() string {
	return s.sessions.Create()
}

// ClearSession forgets a session's history.
func (s *System) ClearSession(id string) {
	s.sessions.Clear(id)
}

// AddCourseDocument ingests one course document: catalog record first, then
// its content chunks.
func (s *System) AddCourseDocument(ctx context.Context, path string) (store.Course, int, error) {
	course, chunks, err := s.processor.ParseFile(path)
	if err != nil {
		return store.Course{}, 0, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := s.catalog.AddCourse(ctx, course); err != nil {
		return store.Course{}, 0, fmt.Errorf("add course from %s: %w", path, err)
	}
	if err := s.catalog.AddChunks(ctx, chunks); err != nil {
		return store.Course{}, 0, fmt.Errorf("add chunks from %s: %w", path, err)
	}

	s.logger.Info("course ingested", "title", course.Title, "chunks", len(chunks))
	return course, len(chunks), nil
}

// AddCourseFolder ingests every course document in dir, skipping documents
// whose course title already exists in the catalog. Returns counts of new
// courses and chunks.
func (s *System) AddCourseFolder(ctx context.Context, dir string) (int, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read docs folder: %w", err)
	}

	existing, err := s.catalog.CourseTitles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list existing courses: %w", err)
	}

	coursesAdded, chunksAdded := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		course, chunks, err := s.processor.ParseFile(path)
		if err != nil {
			s.logger.Warn("skipping unparseable document", "path", path, "error", err)
			continue
		}
		if slices.Contains(existing, course.Title) {
			s.logger.Debug("course already ingested", "title", course.Title)
			continue
		}

		if err := s.catalog.AddCourse(ctx, course); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("add course %q: %w", course.Title, err)
		}
		if err := s.catalog.AddChunks(ctx, chunks); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("add chunks for %q: %w", course.Title, err)
		}

		existing = append(existing, course.Title)
		coursesAdded++
		chunksAdded += len(chunks)
		s.logger.Info("course ingested", "title", course.Title, "chunks", len(chunks))
	}

	return coursesAdded, chunksAdded, nil
}

// CourseAnalytics reports catalog size and titles.
func (s *System) CourseAnalytics(ctx context.Context) (Analytics, error) {
	count, err := s.catalog.CourseCount(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("course count: %w", err)
	}
	titles, err := s.catalog.CourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("course titles: %w", err)
	}
	return Analytics{TotalCourses: count, CourseTitles: titles}, nil
}
