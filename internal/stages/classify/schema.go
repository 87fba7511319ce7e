package classify

import (
	"github.com/jackzampolin/papercast/internal/completion"
	"github.com/jackzampolin/papercast/internal/items"
)

// Schema is the response format for item classification.
var Schema = completion.Schema("item_classification", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"index": map[string]any{"type": "integer"},
					"type": map[string]any{
						"type": "string",
						"enum": items.Strings(items.ClassificationTypes),
					},
				},
				"required":             []string{"index", "type"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"items"},
	"additionalProperties": false,
})
