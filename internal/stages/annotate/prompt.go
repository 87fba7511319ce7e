package annotate

import (
	_ "embed"

	"github.com/jackzampolin/papercast/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPrompt string

// Prompt keys
const (
	SystemPromptKey = "stages.annotate.system"
	UserPromptKey   = "stages.annotate.user"
)

// RegisterPrompts registers the annotation prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Annotation system prompt - flags citations, math density and relevance",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPrompt,
		Description: "Annotation user prompt template",
	})
}
