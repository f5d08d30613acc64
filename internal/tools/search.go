package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lectern/lectern/internal/store"
)

// SearchInput is the model-facing schema for search_course_content.
type SearchInput struct {
	Query        string `json:"query" jsonschema_description:"What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema_description:"Course title, may be partial (e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 1, 2, 3)"`
}

// ContentSearcher is the retrieval surface the search tool depends on.
type ContentSearcher interface {
	ResolveCourseName(ctx context.Context, name string) (store.Course, error)
	SearchContent(ctx context.Context, q store.SearchQuery) ([]store.Hit, error)
	Outline(ctx context.Context, title string) (store.Course, error)
}

// SearchTool searches course content with semantic course-name matching and
// optional lesson filtering.
type SearchTool struct {
	store      ContentSearcher
	maxResults int
	logger     *slog.Logger
}

// NewSearchTool creates the content search tool. maxResults is the result
// cap handed to every search; it is validated by the store at query time, not
// here, so a misconfigured value surfaces in the tool output where the model
// can report it.
func NewSearchTool(searcher ContentSearcher, maxResults int, logger *slog.Logger) *SearchTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchTool{store: searcher, maxResults: maxResults, logger: logger}
}

func (t *SearchTool) Name() string { return SearchToolName }

func (t *SearchTool) Description() string {
	return "Search course materials with smart course name matching and lesson filtering. " +
		"Finds content chunks semantically related to the query. " +
		"course_name accepts partial titles and resolves them to the best catalog match. " +
		"Use this for questions about specific course content or detailed educational materials."
}

// Execute runs one content search. Every failure mode returns explanatory
// text instead of an error so the model can react to it.
func (t *SearchTool) Execute(ctx context.Context, params map[string]any) (string, []Source) {
	query := stringParam(params, "query")
	courseName := stringParam(params, "course_name")
	lessonNumber := intParam(params, "lesson_number")

	if strings.TrimSpace(query) == "" {
		return "Search error: query parameter is required", nil
	}

	var courseTitle string
	if courseName != "" {
		course, err := t.store.ResolveCourseName(ctx, courseName)
		if err != nil {
			if errors.Is(err, store.ErrCourseNotFound) {
				return fmt.Sprintf("No course found matching '%s'", courseName), nil
			}
			t.logger.Warn("course resolution failed", "course_name", courseName, "error", err)
			return fmt.Sprintf("Search error: %v", err), nil
		}
		courseTitle = course.Title
	}

	hits, err := t.store.SearchContent(ctx, store.SearchQuery{
		Text:         query,
		CourseTitle:  courseTitle,
		LessonNumber: lessonNumber,
		MaxResults:   t.maxResults,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidMaxResults) {
			return fmt.Sprintf("Configuration error: MAX_RESULTS must be a positive integer, got %d. "+
				"No results can be returned until it is fixed.", t.maxResults), nil
		}
		t.logger.Warn("content search failed", "query", query, "error", err)
		return fmt.Sprintf("Search error: %v", err), nil
	}

	if len(hits) == 0 {
		var filterInfo strings.Builder
		if courseName != "" {
			fmt.Fprintf(&filterInfo, " in course '%s'", courseName)
		}
		if lessonNumber != nil {
			fmt.Fprintf(&filterInfo, " in lesson %d", *lessonNumber)
		}
		return "No relevant content found" + filterInfo.String() + ".", nil
	}

	return t.formatResults(ctx, hits)
}

// formatResults renders hits as labeled blocks in ranked order and builds
// one citation source per hit. Lesson links come from course metadata, which
// is fetched once per distinct course title.
func (t *SearchTool) formatResults(ctx context.Context, hits []store.Hit) (string, []Source) {
	blocks := make([]string, 0, len(hits))
	sources := make([]Source, 0, len(hits))
	courses := make(map[string]store.Course)

	for _, hit := range hits {
		header := fmt.Sprintf("[%s]", hit.Chunk.CourseTitle)
		label := hit.Chunk.CourseTitle
		if hit.Chunk.LessonNumber != nil {
			header = fmt.Sprintf("[%s - Lesson %d]", hit.Chunk.CourseTitle, *hit.Chunk.LessonNumber)
			label = fmt.Sprintf("%s - Lesson %d", hit.Chunk.CourseTitle, *hit.Chunk.LessonNumber)
		}
		blocks = append(blocks, header+"\n"+hit.Chunk.Content)

		sources = append(sources, Source{
			Text: label,
			URL:  t.sourceLink(ctx, courses, hit.Chunk.CourseTitle, hit.Chunk.LessonNumber),
		})
	}

	return strings.Join(blocks, "\n\n"), sources
}

func (t *SearchTool) sourceLink(ctx context.Context, cache map[string]store.Course, title string, lessonNumber *int) string {
	course, ok := cache[title]
	if !ok {
		fetched, err := t.store.Outline(ctx, title)
		if err != nil {
			t.logger.Debug("link lookup failed", "course", title, "error", err)
			cache[title] = store.Course{}
			return ""
		}
		course = fetched
		cache[title] = course
	}

	if lessonNumber != nil {
		for _, lesson := range course.Lessons {
			if lesson.Number == *lessonNumber && lesson.Link != "" {
				return lesson.Link
			}
		}
	}
	return course.Link
}
