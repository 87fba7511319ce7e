package summarize

import (
	_ "embed"

	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/prompts"
)

//go:embed figure.tmpl
var figurePrompt string

//go:embed table.tmpl
var tablePrompt string

//go:embed code.tmpl
var codePrompt string

//go:embed user.tmpl
var userPrompt string

// Prompt keys
const (
	FigurePromptKey = "stages.summarize.figure"
	TablePromptKey  = "stages.summarize.table"
	CodePromptKey   = "stages.summarize.code"
	UserPromptKey   = "stages.summarize.user"
)

// RegisterPrompts registers the summarization prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         FigurePromptKey,
		Text:        figurePrompt,
		Description: "Figure summary system prompt - description, content, inference",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         TablePromptKey,
		Text:        tablePrompt,
		Description: "Table summary system prompt - patterns and effects",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         CodePromptKey,
		Text:        codePrompt,
		Description: "Code summary system prompt - plain-language behavior",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPrompt,
		Description: "Special item summary user prompt template",
	})
}

func systemKey(t items.Type) string {
	switch t {
	case items.TypeTableRows:
		return TablePromptKey
	case items.TypeCodeOrAlgorithm:
		return CodePromptKey
	default:
		return FigurePromptKey
	}
}
