package authors

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
	SystemPromptKey = "stages.authors.system"
	UserPromptKey   = "stages.authors.user"
)

// RegisterPrompts registers the author extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Author extraction system prompt - title plus authors and affiliations",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPrompt,
		Description: "Author extraction user prompt template",
	})
}
