package tools

import "context"

// Genkit tool names for course retrieval operations.
const (
	SearchToolName  = "search_course_content"
	OutlineToolName = "get_course_outline"
)

// Source is one citation attached to a tool result. Text is the display
// label shown to the user; URL links to the course or lesson page and may
// be empty when ingestion recorded no link.
type Source struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Tool is one retrieval operation the model can invoke. Execute never
// returns an error: failures are encoded in the returned text so the model
// can read them, adjust its parameters, or explain the problem to the user.
// The returned sources belong to this single invocation; callers accumulate
// them across a query, the tool keeps no state between calls.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params map[string]any) (string, []Source)
}
