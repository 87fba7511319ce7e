package summarize

import "github.com/jackzampolin/papercast/internal/completion"

// Schema is the response format for special item summaries.
var Schema = completion.Schema("special_item_summary", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"label_type":   map[string]any{"type": "string"},
		"label_number": map[string]any{"type": "string"},
		"panel_number": map[string]any{"type": "string"},
		"summary": map[string]any{
			"type":        "string",
			"description": "Narration-ready summary in full sentences",
		},
	},
	"required":             []string{"label_type", "label_number", "panel_number", "summary"},
	"additionalProperties": false,
})
