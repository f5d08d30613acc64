package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/pgvector/pgvector-go"
)

// mockEmbedder is a minimal ai.Embedder returning a fixed-width vector. It
// records the text of every document it is asked to embed.
type mockEmbedder struct {
	err    error
	inputs []string
}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, doc := range req.Input {
		for _, part := range doc.Content {
			m.inputs = append(m.inputs, part.Text)
		}
	}
	vec := make([]float32, VectorDimension)
	for i := range vec {
		vec[i] = 0.01
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: vec}}}, nil
}

func (m *mockEmbedder) Name() string { return "mockEmbedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

// mockQuerier is a flexible Querier with per-method overrides.
type mockQuerier struct {
	upsertCourseFunc  func(ctx context.Context, row CourseRow) error
	getCourseFunc     func(ctx context.Context, title string) (CourseRow, error)
	nearestCourseFunc func(ctx context.Context, embedding pgvector.Vector) (CourseRow, error)
	insertChunkFunc   func(ctx context.Context, row ChunkRow) error
	searchChunksFunc  func(ctx context.Context, params SearchChunksParams) ([]ChunkHitRow, error)
	listTitlesFunc    func(ctx context.Context) ([]string, error)
	countCoursesFunc  func(ctx context.Context) (int64, error)
}

func (m *mockQuerier) UpsertCourse(ctx context.Context, row CourseRow) error {
	if m.upsertCourseFunc != nil {
		return m.upsertCourseFunc(ctx, row)
	}
	return nil
}

func (m *mockQuerier) GetCourse(ctx context.Context, title string) (CourseRow, error) {
	if m.getCourseFunc != nil {
		return m.getCourseFunc(ctx, title)
	}
	return CourseRow{}, ErrCourseNotFound
}

func (m *mockQuerier) NearestCourse(ctx context.Context, embedding pgvector.Vector) (CourseRow, error) {
	if m.nearestCourseFunc != nil {
		return m.nearestCourseFunc(ctx, embedding)
	}
	return CourseRow{}, ErrCourseNotFound
}

func (m *mockQuerier) InsertChunk(ctx context.Context, row ChunkRow) error {
	if m.insertChunkFunc != nil {
		return m.insertChunkFunc(ctx, row)
	}
	return nil
}

func (m *mockQuerier) SearchChunks(ctx context.Context, params SearchChunksParams) ([]ChunkHitRow, error) {
	if m.searchChunksFunc != nil {
		return m.searchChunksFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockQuerier) ListCourseTitles(ctx context.Context) ([]string, error) {
	if m.listTitlesFunc != nil {
		return m.listTitlesFunc(ctx)
	}
	return nil, nil
}

func (m *mockQuerier) CountCourses(ctx context.Context) (int64, error) {
	if m.countCoursesFunc != nil {
		return m.countCoursesFunc(ctx)
	}
	return 0, nil
}

func newTestStore(q Querier) *Store {
	return New(q, &mockEmbedder{}, slog.New(slog.DiscardHandler))
}

func mustLessons(t *testing.T, lessons []Lesson) []byte {
	t.Helper()
	data, err := json.Marshal(lessons)
	if err != nil {
		t.Fatalf("marshal lessons: %v", err)
	}
	return data
}

// TestResolveCourseNameNoFloor verifies that resolution has no similarity
// threshold: as long as the catalog holds anything, some title comes back,
// even for a query that resembles nothing.
func TestResolveCourseNameNoFloor(t *testing.T) {
	q := &mockQuerier{
		nearestCourseFunc: func(ctx context.Context, embedding pgvector.Vector) (CourseRow, error) {
			return CourseRow{Title: "Introduction to MCP"}, nil
		},
	}
	s := newTestStore(q)

	course, err := s.ResolveCourseName(context.Background(), "NonExistent Course XYZQWERTY")
	if err != nil {
		t.Fatalf("ResolveCourseName() error = %v", err)
	}
	if course.Title != "Introduction to MCP" {
		t.Errorf("ResolveCourseName() = %q, want %q", course.Title, "Introduction to MCP")
	}
}

// TestEmbedderReceivesQueryText verifies the text handed to Resolve and
// Search reaches the embedder as document content.
func TestEmbedderReceivesQueryText(t *testing.T) {
	emb := &mockEmbedder{}
	q := &mockQuerier{
		nearestCourseFunc: func(ctx context.Context, embedding pgvector.Vector) (CourseRow, error) {
			return CourseRow{Title: "Introduction to MCP"}, nil
		},
	}
	s := New(q, emb, slog.New(slog.DiscardHandler))

	if _, err := s.ResolveCourseName(context.Background(), "MCP"); err != nil {
		t.Fatalf("ResolveCourseName() error = %v", err)
	}
	if _, err := s.SearchContent(context.Background(), SearchQuery{Text: "what is MCP", MaxResults: 3}); err != nil {
		t.Fatalf("SearchContent() error = %v", err)
	}

	want := []string{"MCP", "what is MCP"}
	if len(emb.inputs) != len(want) {
		t.Fatalf("embedder saw %d inputs (%v), want %d", len(emb.inputs), emb.inputs, len(want))
	}
	for i := range want {
		if emb.inputs[i] != want[i] {
			t.Errorf("embedder input %d = %q, want %q", i, emb.inputs[i], want[i])
		}
	}
}

func TestResolveCourseNameEmptyCatalog(t *testing.T) {
	s := newTestStore(&mockQuerier{})

	_, err := s.ResolveCourseName(context.Background(), "anything")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("ResolveCourseName() error = %v, want ErrCourseNotFound", err)
	}
}

func TestResolveCourseNameEmptyInput(t *testing.T) {
	s := newTestStore(&mockQuerier{})

	_, err := s.ResolveCourseName(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("ResolveCourseName() error = %v, want ErrEmptyQuery", err)
	}
}

// TestSearchContentInvalidMaxResults verifies that a non-positive result cap
// is rejected before the embedder or the index are touched.
func TestSearchContentInvalidMaxResults(t *testing.T) {
	for _, k := range []int{0, -1, -5} {
		indexCalled := false
		q := &mockQuerier{
			searchChunksFunc: func(ctx context.Context, params SearchChunksParams) ([]ChunkHitRow, error) {
				indexCalled = true
				return nil, nil
			},
		}
		s := newTestStore(q)

		_, err := s.SearchContent(context.Background(), SearchQuery{Text: "what is RAG", MaxResults: k})
		if !errors.Is(err, ErrInvalidMaxResults) {
			t.Errorf("SearchContent(MaxResults=%d) error = %v, want ErrInvalidMaxResults", k, err)
		}
		if indexCalled {
			t.Errorf("SearchContent(MaxResults=%d) reached the index", k)
		}
	}
}

func TestSearchContentEmptyQuery(t *testing.T) {
	s := newTestStore(&mockQuerier{})

	_, err := s.SearchContent(context.Background(), SearchQuery{Text: "", MaxResults: 5})
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("SearchContent() error = %v, want ErrEmptyQuery", err)
	}
}

func TestSearchContentFilters(t *testing.T) {
	lesson := 3

	tests := []struct {
		name       string
		query      SearchQuery
		wantCourse *string
		wantLesson *int
	}{
		{
			name:  "unfiltered",
			query: SearchQuery{Text: "tool calling", MaxResults: 5},
		},
		{
			name:       "course filter",
			query:      SearchQuery{Text: "tool calling", CourseTitle: "Building RAG Apps", MaxResults: 5},
			wantCourse: ptr("Building RAG Apps"),
		},
		{
			name:       "course and lesson filter",
			query:      SearchQuery{Text: "tool calling", CourseTitle: "Building RAG Apps", LessonNumber: &lesson, MaxResults: 5},
			wantCourse: ptr("Building RAG Apps"),
			wantLesson: &lesson,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SearchChunksParams
			q := &mockQuerier{
				searchChunksFunc: func(ctx context.Context, params SearchChunksParams) ([]ChunkHitRow, error) {
					got = params
					return []ChunkHitRow{{Content: "chunk", CourseTitle: "Building RAG Apps", Distance: 0.2}}, nil
				},
			}
			s := newTestStore(q)

			hits, err := s.SearchContent(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("SearchContent() error = %v", err)
			}
			if len(hits) != 1 {
				t.Fatalf("SearchContent() returned %d hits, want 1", len(hits))
			}

			if (got.CourseTitle == nil) != (tt.wantCourse == nil) {
				t.Errorf("CourseTitle filter = %v, want %v", got.CourseTitle, tt.wantCourse)
			} else if got.CourseTitle != nil && *got.CourseTitle != *tt.wantCourse {
				t.Errorf("CourseTitle filter = %q, want %q", *got.CourseTitle, *tt.wantCourse)
			}
			if (got.LessonNumber == nil) != (tt.wantLesson == nil) {
				t.Errorf("LessonNumber filter = %v, want %v", got.LessonNumber, tt.wantLesson)
			} else if got.LessonNumber != nil && *got.LessonNumber != *tt.wantLesson {
				t.Errorf("LessonNumber filter = %d, want %d", *got.LessonNumber, *tt.wantLesson)
			}
			if got.Limit != tt.query.MaxResults {
				t.Errorf("Limit = %d, want %d", got.Limit, tt.query.MaxResults)
			}
		})
	}
}

func TestAddCourse(t *testing.T) {
	var captured CourseRow
	q := &mockQuerier{
		upsertCourseFunc: func(ctx context.Context, row CourseRow) error {
			captured = row
			return nil
		},
	}
	s := newTestStore(q)

	course := Course{
		Title:      "Advanced Retrieval",
		Link:       "https://example.com/course",
		Instructor: "Ada",
		Lessons: []Lesson{
			{Number: 0, Title: "Welcome"},
			{Number: 1, Title: "Chunking", Link: "https://example.com/l1"},
		},
	}
	if err := s.AddCourse(context.Background(), course); err != nil {
		t.Fatalf("AddCourse() error = %v", err)
	}

	if captured.Title != course.Title {
		t.Errorf("captured title = %q, want %q", captured.Title, course.Title)
	}
	var lessons []Lesson
	if err := json.Unmarshal(captured.Lessons, &lessons); err != nil {
		t.Fatalf("decode captured lessons: %v", err)
	}
	if len(lessons) != 2 || lessons[1].Title != "Chunking" {
		t.Errorf("captured lessons = %+v", lessons)
	}
	if len(captured.Embedding.Slice()) != VectorDimension {
		t.Errorf("embedding dimension = %d, want %d", len(captured.Embedding.Slice()), VectorDimension)
	}
}

func TestAddCourseEmptyTitle(t *testing.T) {
	s := newTestStore(&mockQuerier{})

	if err := s.AddCourse(context.Background(), Course{Title: "  "}); err == nil {
		t.Error("AddCourse() with empty title succeeded, want error")
	}
}

func TestAddChunksEmbedderFailure(t *testing.T) {
	embedErr := errors.New("quota exceeded")
	s := New(&mockQuerier{}, &mockEmbedder{err: embedErr}, slog.New(slog.DiscardHandler))

	err := s.AddChunks(context.Background(), []Chunk{{Content: "text", CourseTitle: "C"}})
	if !errors.Is(err, embedErr) {
		t.Errorf("AddChunks() error = %v, want wrapped %v", err, embedErr)
	}
}

func TestOutline(t *testing.T) {
	q := &mockQuerier{
		getCourseFunc: func(ctx context.Context, title string) (CourseRow, error) {
			if title != "Introduction to MCP" {
				return CourseRow{}, ErrCourseNotFound
			}
			return CourseRow{
				Title: title,
				Link:  "https://example.com/mcp",
				Lessons: mustLessons(t, []Lesson{
					{Number: 0, Title: "Overview"},
					{Number: 1, Title: "Servers"},
				}),
			}, nil
		},
	}
	s := newTestStore(q)

	course, err := s.Outline(context.Background(), "Introduction to MCP")
	if err != nil {
		t.Fatalf("Outline() error = %v", err)
	}
	if len(course.Lessons) != 2 {
		t.Errorf("Outline() returned %d lessons, want 2", len(course.Lessons))
	}

	if _, err := s.Outline(context.Background(), "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("Outline(missing) error = %v, want ErrCourseNotFound", err)
	}
}

func TestCourseAnalytics(t *testing.T) {
	q := &mockQuerier{
		countCoursesFunc: func(ctx context.Context) (int64, error) { return 3, nil },
		listTitlesFunc: func(ctx context.Context) ([]string, error) {
			return []string{"A", "B", "C"}, nil
		},
	}
	s := newTestStore(q)

	n, err := s.CourseCount(context.Background())
	if err != nil || n != 3 {
		t.Errorf("CourseCount() = %d, %v, want 3, nil", n, err)
	}

	titles, err := s.CourseTitles(context.Background())
	if err != nil || len(titles) != 3 {
		t.Errorf("CourseTitles() = %v, %v", titles, err)
	}
}

func ptr[T any](v T) *T { return &v }
