package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lectern/lectern/internal/store"
)

// OutlineInput is the model-facing schema for get_course_outline.
type OutlineInput struct {
	CourseName string `json:"course_name" jsonschema_description:"Course title, may be partial (e.g. 'MCP', 'Introduction')"`
}

// OutlineTool returns a course's metadata and its ordered lesson list
// without running a content search.
type OutlineTool struct {
	store  ContentSearcher
	logger *slog.Logger
}

// NewOutlineTool creates the course outline tool.
func NewOutlineTool(searcher ContentSearcher, logger *slog.Logger) *OutlineTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutlineTool{store: searcher, logger: logger}
}

func (t *OutlineTool) Name() string { return OutlineToolName }

func (t *OutlineTool) Description() string {
	return "Get the outline of a course: its title, link, instructor, and the complete " +
		"ordered list of lessons with their numbers and titles. " +
		"course_name accepts partial titles and resolves them to the best catalog match. " +
		"Use this for questions about course structure, lesson lists, or what a course covers."
}

// Execute resolves the course name and renders its outline. The resolved
// course contributes a single citation source.
func (t *OutlineTool) Execute(ctx context.Context, params map[string]any) (string, []Source) {
	courseName := stringParam(params, "course_name")
	if strings.TrimSpace(courseName) == "" {
		return "Outline error: course_name parameter is required", nil
	}

	resolved, err := t.store.ResolveCourseName(ctx, courseName)
	if err != nil {
		if errors.Is(err, store.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", courseName), nil
		}
		t.logger.Warn("course resolution failed", "course_name", courseName, "error", err)
		return fmt.Sprintf("Outline error: %v", err), nil
	}

	course, err := t.store.Outline(ctx, resolved.Title)
	if err != nil {
		t.logger.Warn("outline lookup failed", "course", resolved.Title, "error", err)
		return fmt.Sprintf("Outline error: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", course.Link)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", course.Instructor)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(course.Lessons))
	for _, lesson := range course.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s\n", lesson.Number, lesson.Title)
	}

	return strings.TrimRight(b.String(), "\n"), []Source{{Text: course.Title, URL: course.Link}}
}
