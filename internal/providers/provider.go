package providers

import (
	"context"
	"encoding/json"
	"time"
)

// LLMClient is the interface every completion backend implements.
type LLMClient interface {
	// Chat sends a chat completion request. When req.ResponseFormat is set
	// the client returns validated JSON in ChatResult.ParsedJSON.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// SpeechClient converts text to encoded audio.
type SpeechClient interface {
	// Synthesize renders one chunk of text with the given voice.
	Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error)

	// Name returns the provider identifier (e.g., "openai").
	Name() string
}

// Message represents a chat message.
type Message struct {
	Role    string   `json:"role"` // "system", "user", "assistant"
	Content string   `json:"content"`
	Images  [][]byte `json:"-"` // page images, sent inline
}

// ResponseFormat specifies structured output format.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	// Response content
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // set if ResponseFormat was set

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Cost and timing
	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// SpeechRequest is one synthesis call.
type SpeechRequest struct {
	Text  string
	Voice string
	// MarkupPauses asks the provider to honor pause cues embedded in Text.
	MarkupPauses bool
}

// SpeechResult is the encoded audio for one request.
type SpeechResult struct {
	Audio         []byte
	Format        string // "mp3", "wav", ...
	CharCount     int
	CostUSD       float64
	ExecutionTime time.Duration
}
