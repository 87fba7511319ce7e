package classify

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
	SystemPromptKey = "stages.classify.system"
	UserPromptKey   = "stages.classify.user"
)

// RegisterPrompts registers the classification prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Classification system prompt - assigns refined types to extracted items",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPrompt,
		Description: "Classification user prompt template",
	})
}
