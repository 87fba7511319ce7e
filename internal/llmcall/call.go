// Package llmcall records every completion call made during a run so the
// prompts, responses and token usage can be audited afterwards.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/papercast/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	RunID string `json:"run_id,omitempty"`
	Stage string `json:"stage"`
	Page  int    `json:"page,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty"`

	// Model info
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Usage
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	Attempts     int     `json:"attempts"`

	Response string `json:"response"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	RunID      string
	Stage      string
	Page       int
	PromptKey  string
	PromptHash string
}

// FromChatResult creates a Call from a ChatResult. callErr, when non-nil,
// marks the call failed even if the result claims success.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, callErr error, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(result.ExecutionTime.Milliseconds()),
		RunID:        opts.RunID,
		Stage:        opts.Stage,
		Page:         opts.Page,
		PromptKey:    opts.PromptKey,
		PromptHash:   opts.PromptHash,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		CostUSD:      result.CostUSD,
		Attempts:     result.Attempts,
		Response:     result.Content,
		Success:      result.Success && callErr == nil,
	}
	switch {
	case callErr != nil:
		call.Error = callErr.Error()
	case !result.Success:
		call.Error = result.ErrorMessage
	}
	return call
}
