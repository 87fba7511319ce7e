// Package prompts manages the prompt templates used by the pipeline stages.
//
// Each stage embeds its prompts as .tmpl files and registers them with a
// Resolver under a hierarchical key (stages.extract.system). A prompt can be
// overridden without rebuilding by dropping <key>.tmpl into the override
// directory (~/.papercast/prompts by default).
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: stages.extract.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the text a stage will actually send.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	Hash       string   `json:"hash"`
	IsOverride bool     `json:"is_override"`
}
