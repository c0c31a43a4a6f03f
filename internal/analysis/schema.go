package analysis

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/drewdunne/aireview/internal/llm"
)

var (
	recommendationValues = []any{"merge", "needs_fixes", "reject"}
	severityValues       = []any{"INFO", "WARNING", "ERROR", "CRITICAL"}
)

// responseSchema is sent to the model to constrain its JSON output.
func responseSchema() *llm.Schema {
	return &llm.Schema{
		Type: "OBJECT",
		Properties: map[string]*llm.Schema{
			"summary": {
				Type: "OBJECT",
				Properties: map[string]*llm.Schema{
					"recommendation": {Type: "STRING", Enum: []string{"merge", "needs_fixes", "reject"}},
					"confidence":     {Type: "NUMBER"},
					"short_text":     {Type: "STRING"},
				},
				Required: []string{"recommendation", "confidence", "short_text"},
			},
			"issues": {
				Type: "ARRAY",
				Items: &llm.Schema{
					Type: "OBJECT",
					Properties: map[string]*llm.Schema{
						"file_path":     {Type: "STRING"},
						"line_number":   {Type: "INTEGER", Nullable: true},
						"severity":      {Type: "STRING", Enum: []string{"INFO", "WARNING", "ERROR", "CRITICAL"}},
						"message":       {Type: "STRING"},
						"suggested_fix": {Type: "STRING"},
						"rule":          {Type: "STRING"},
					},
					Required: []string{"file_path", "severity", "message", "suggested_fix"},
				},
			},
		},
		Required: []string{"summary", "issues"},
	}
}

// validationSchema checks the decoded model output before it is trusted.
// suggested_fix is optional here: a missing fix gets the placeholder.
func validationSchema() *openapi3.Schema {
	summary := openapi3.NewObjectSchema().
		WithProperty("recommendation", openapi3.NewStringSchema().WithEnum(recommendationValues...)).
		WithProperty("confidence", openapi3.NewFloat64Schema().WithMin(0).WithMax(1)).
		WithProperty("short_text", openapi3.NewStringSchema())
	summary.Required = []string{"recommendation", "confidence", "short_text"}

	issue := openapi3.NewObjectSchema().
		WithProperty("file_path", openapi3.NewStringSchema()).
		WithProperty("line_number", openapi3.NewIntegerSchema().WithNullable()).
		WithProperty("severity", openapi3.NewStringSchema().WithEnum(severityValues...)).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("suggested_fix", openapi3.NewStringSchema().WithNullable()).
		WithProperty("rule", openapi3.NewStringSchema().WithNullable())
	issue.Required = []string{"file_path", "severity", "message"}

	root := openapi3.NewObjectSchema().
		WithProperty("summary", summary).
		WithProperty("issues", openapi3.NewArraySchema().WithItems(issue))
	root.Required = []string{"summary", "issues"}

	return root
}
