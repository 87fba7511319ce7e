package normalize

import "github.com/jackzampolin/papercast/internal/completion"

// Schema is the response format shared by the rewriting passes.
var Schema = completion.Schema("rewritten_text", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text": map[string]any{
			"type":        "string",
			"description": "The rewritten passage",
		},
	},
	"required":             []string{"text"},
	"additionalProperties": false,
})
