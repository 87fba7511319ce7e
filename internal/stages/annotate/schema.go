package annotate

import "github.com/jackzampolin/papercast/internal/completion"

// Schema is the response format for advisory annotations.
var Schema = completion.Schema("passage_annotation", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"has_citations": map[string]any{"type": "boolean"},
		"math_symbol_frequency": map[string]any{
			"type":    "integer",
			"minimum": 0,
			"maximum": 5,
		},
		"is_relevant": map[string]any{"type": "boolean"},
	},
	"required":             []string{"has_citations", "math_symbol_frequency", "is_relevant"},
	"additionalProperties": false,
})
