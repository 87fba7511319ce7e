package extract

import (
	"github.com/jackzampolin/papercast/internal/completion"
	"github.com/jackzampolin/papercast/internal/items"
)

// Schema is the response format for page extraction.
var Schema = completion.Schema("page_extraction", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{
						"type": "string",
						"enum": items.Strings(items.ExtractionTypes),
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Verbatim text of the item, or a short description for images",
					},
				},
				"required":             []string{"type", "content"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"items"},
	"additionalProperties": false,
})
