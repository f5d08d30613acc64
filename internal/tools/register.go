package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Register defines the registry's tools with Genkit so their schemas reach
// the model. The typed input structs supply the JSON schema; execution is
// routed back through the registry, which is also how the orchestrator
// dispatches tool requests it receives from the model.
func Register(g *genkit.Genkit, r *Registry) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if r == nil {
		return nil, fmt.Errorf("registry is required")
	}

	var defined []ai.Tool
	for _, name := range r.Names() {
		t, _ := r.Get(name)
		switch name {
		case SearchToolName:
			defined = append(defined, genkit.DefineTool(g, t.Name(), t.Description(),
				func(ctx *ai.ToolContext, input SearchInput) (string, error) {
					params := map[string]any{"query": input.Query}
					if input.CourseName != "" {
						params["course_name"] = input.CourseName
					}
					if input.LessonNumber != nil {
						params["lesson_number"] = *input.LessonNumber
					}
					text, _ := r.Execute(ctx, t.Name(), params)
					return text, nil
				}))
		case OutlineToolName:
			defined = append(defined, genkit.DefineTool(g, t.Name(), t.Description(),
				func(ctx *ai.ToolContext, input OutlineInput) (string, error) {
					text, _ := r.Execute(ctx, t.Name(), map[string]any{"course_name": input.CourseName})
					return text, nil
				}))
		default:
			return nil, fmt.Errorf("no genkit definition for tool %q", name)
		}
	}
	return defined, nil
}
