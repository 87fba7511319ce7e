package normalize

import (
	_ "embed"

	"github.com/jackzampolin/papercast/internal/completion"
	"github.com/jackzampolin/papercast/internal/prompts"
)

//go:embed citations.tmpl
var citationsPrompt string

//go:embed math.tmpl
var mathPrompt string

//go:embed hyphenation.tmpl
var hyphenationPrompt string

//go:embed user.tmpl
var userPrompt string

// Prompt keys
const (
	CitationsPromptKey   = "stages.normalize.citations"
	MathPromptKey        = "stages.normalize.math"
	HyphenationPromptKey = "stages.normalize.hyphenation"
	UserPromptKey        = "stages.normalize.user"
)

// RegisterPrompts registers the normalization prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         CitationsPromptKey,
		Text:        citationsPrompt,
		Description: "Citation removal system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         MathPromptKey,
		Text:        mathPrompt,
		Description: "Math verbalization system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         HyphenationPromptKey,
		Text:        hyphenationPrompt,
		Description: "Hyphenation repair system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPrompt,
		Description: "Normalization user prompt template",
	})
}

var citationExamples = []completion.Example{
	{
		Input:  "<text>\nTransformers [12, 14-16] replaced recurrent models (Hochreiter and Schmidhuber, 1997) in most tasks.\n</text>",
		Output: `{"text":"Transformers replaced recurrent models in most tasks."}`,
	},
	{
		Input:  "<text>\nAs shown by Smith et al. [3], the effect holds in Table 2.\n</text>",
		Output: `{"text":"As shown by Smith et al., the effect holds in Table 2."}`,
	},
}

var mathExamples = []completion.Example{
	{
		Input:  "<text>\nWe minimize L(θ) = Σ_i (y_i − f(x_i; θ))² over θ ∈ R^d.\n</text>",
		Output: `{"text":"We minimize L of theta, which equals the sum over i of the squared difference between y i and f of x i given theta, over theta in R to the d."}`,
	},
}
