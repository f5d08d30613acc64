package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// Querier is the persistence surface the Store depends on. It is satisfied
// by the pgx-backed implementation in this package and by test doubles.
type Querier interface {
	UpsertCourse(ctx context.Context, row CourseRow) error
	GetCourse(ctx context.Context, title string) (CourseRow, error)
	NearestCourse(ctx context.Context, embedding pgvector.Vector) (CourseRow, error)
	InsertChunk(ctx context.Context, row ChunkRow) error
	SearchChunks(ctx context.Context, params SearchChunksParams) ([]ChunkHitRow, error)
	ListCourseTitles(ctx context.Context) ([]string, error)
	CountCourses(ctx context.Context) (int64, error)
}

// Store provides semantic access to the course catalog and its content
// chunks. Catalog metadata and chunk text both live in Postgres with
// pgvector embeddings; all reads that start from natural language go through
// the embedder first.
type Store struct {
	querier  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store over the given querier and embedder.
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, embedder: embedder, logger: logger}
}

// AddCourse writes course metadata to the catalog, embedding the title for
// later semantic resolution. Re-adding a title overwrites the prior row.
func (s *Store) AddCourse(ctx context.Context, course Course) error {
	if strings.TrimSpace(course.Title) == "" {
		return fmt.Errorf("add course: title is empty")
	}

	vec, err := s.embed(ctx, course.Title)
	if err != nil {
		return fmt.Errorf("embed course title %q: %w", course.Title, err)
	}

	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("encode lessons for %q: %w", course.Title, err)
	}

	row := CourseRow{
		Title:      course.Title,
		Link:       course.Link,
		Instructor: course.Instructor,
		Lessons:    lessons,
		Embedding:  vec,
	}
	if err := s.querier.UpsertCourse(ctx, row); err != nil {
		return fmt.Errorf("upsert course %q: %w", course.Title, err)
	}

	s.logger.Debug("course added", "title", course.Title, "lessons", len(course.Lessons))
	return nil
}

// AddChunks embeds and stores content chunks. Chunks are embedded one at a
// time; a failure aborts the batch and reports the failing index.
func (s *Store) AddChunks(ctx context.Context, chunks []Chunk) error {
	for i, chunk := range chunks {
		vec, err := s.embed(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("embed chunk %d of %q: %w", i, chunk.CourseTitle, err)
		}
		row := ChunkRow{
			CourseTitle:  chunk.CourseTitle,
			LessonNumber: chunk.LessonNumber,
			ChunkIndex:   chunk.Index,
			Content:      chunk.Content,
			Embedding:    vec,
		}
		if err := s.querier.InsertChunk(ctx, row); err != nil {
			return fmt.Errorf("insert chunk %d of %q: %w", i, chunk.CourseTitle, err)
		}
	}
	return nil
}

// ResolveCourseName maps a partial or fuzzy course name to the catalog title
// it most resembles. Resolution is pure nearest-neighbor with no similarity
// floor: as long as the catalog is non-empty, some title is returned, however
// dissimilar. An empty catalog yields ErrCourseNotFound.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (Course, error) {
	if strings.TrimSpace(name) == "" {
		return Course{}, fmt.Errorf("resolve course name: %w", ErrEmptyQuery)
	}

	vec, err := s.embed(ctx, name)
	if err != nil {
		return Course{}, fmt.Errorf("embed course name %q: %w", name, err)
	}

	row, err := s.querier.NearestCourse(ctx, vec)
	if err != nil {
		return Course{}, fmt.Errorf("resolve course name %q: %w", name, err)
	}
	return decodeCourse(row)
}

// SearchContent runs a filtered semantic search over content chunks. The
// result cap is validated here, before any embedding or index work, so that
// a bad cap never reaches the database as a malformed LIMIT.
func (s *Store) SearchContent(ctx context.Context, q SearchQuery) ([]Hit, error) {
	if q.MaxResults <= 0 {
		return nil, fmt.Errorf("search content: %w (got %d)", ErrInvalidMaxResults, q.MaxResults)
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("search content: %w", ErrEmptyQuery)
	}

	vec, err := s.embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed search query: %w", err)
	}

	params := SearchChunksParams{
		Embedding:    vec,
		LessonNumber: q.LessonNumber,
		Limit:        q.MaxResults,
	}
	if q.CourseTitle != "" {
		params.CourseTitle = &q.CourseTitle
	}

	rows, err := s.querier.SearchChunks(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, Hit{
			Chunk: Chunk{
				Content:      row.Content,
				CourseTitle:  row.CourseTitle,
				LessonNumber: row.LessonNumber,
				Index:        row.ChunkIndex,
			},
			Distance: row.Distance,
		})
	}

	s.logger.Debug("content search",
		"query", q.Text,
		"course", q.CourseTitle,
		"hits", len(hits))
	return hits, nil
}

// Outline returns the full metadata for one exact catalog title.
func (s *Store) Outline(ctx context.Context, title string) (Course, error) {
	row, err := s.querier.GetCourse(ctx, title)
	if err != nil {
		return Course{}, fmt.Errorf("outline %q: %w", title, err)
	}
	return decodeCourse(row)
}

// CourseCount reports the number of courses in the catalog.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	n, err := s.querier.CountCourses(ctx)
	if err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return int(n), nil
}

// CourseTitles lists every catalog title in lexical order.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	titles, err := s.querier.ListCourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	return titles, nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	res, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(res.Embeddings) == 0 {
		return pgvector.Vector{}, fmt.Errorf("embedder returned no embeddings")
	}
	vec := res.Embeddings[0].Embedding
	if len(vec) != VectorDimension {
		return pgvector.Vector{}, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), VectorDimension)
	}
	return pgvector.NewVector(vec), nil
}

func decodeCourse(row CourseRow) (Course, error) {
	course := Course{
		Title:      row.Title,
		Link:       row.Link,
		Instructor: row.Instructor,
	}
	if len(row.Lessons) > 0 {
		if err := json.Unmarshal(row.Lessons, &course.Lessons); err != nil {
			return Course{}, fmt.Errorf("decode lessons for %q: %w", row.Title, err)
		}
	}
	return course, nil
}
