package authors

import "github.com/jackzampolin/papercast/internal/completion"

// Schema is the response format for title and author extraction.
var Schema = completion.Schema("title_and_authors", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title": map[string]any{"type": "string"},
		"authors": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"author_name": map[string]any{"type": "string"},
					"affiliation": map[string]any{"type": "string"},
				},
				"required":             []string{"author_name", "affiliation"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"title", "authors"},
	"additionalProperties": false,
})
