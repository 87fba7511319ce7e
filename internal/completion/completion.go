// Package completion implements the structured completion call every stage
// uses: prompts, an output schema, optional page images and few-shot
// examples in; a decoded, schema-valid object out.
package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/papercast/internal/attempt"
	"github.com/jackzampolin/papercast/internal/llmcall"
	"github.com/jackzampolin/papercast/internal/providers"
)

// DefaultRetries is the number of attempts per call when Request.Retries is 0.
const DefaultRetries = 3

// Example is one few-shot demonstration: a user turn and the expected reply.
type Example struct {
	Input  string
	Output string
}

// Request describes one structured completion.
type Request struct {
	Stage     string
	PromptKey string
	// PromptHash identifies the prompt version for the call log.
	PromptHash string
	Page       int

	System string
	User   string
	// Schema is a response format document of the form
	// {"type":"json_schema","json_schema":{"name","strict","schema"}}.
	Schema      map[string]any
	Images      [][]byte
	MaxTokens   int
	Temperature float64
	Retries     int
	Examples    []Example
}

// Completer runs structured completions against one LLM backend and records
// every call.
type Completer struct {
	LLM      providers.LLMClient
	Model    string
	Recorder *llmcall.Recorder
	RunID    string
	Logger   *slog.Logger
}

// Complete sends req and decodes the validated reply into out. The call is
// retried up to req.Retries times; the last error is returned.
func (c *Completer) Complete(ctx context.Context, req Request, out any) error {
	chatReq, err := c.buildChatRequest(req)
	if err != nil {
		return err
	}
	retries := req.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	opts := llmcall.RecordOptions{
		RunID:      c.RunID,
		Stage:      req.Stage,
		Page:       req.Page,
		PromptKey:  req.PromptKey,
		PromptHash: req.PromptHash,
	}

	raw, err := attempt.Do(ctx, retries, func(ctx context.Context) (json.RawMessage, error) {
		result, err := c.LLM.Chat(ctx, chatReq)
		if result == nil && err != nil {
			result = &providers.ChatResult{Provider: c.LLM.Name(), ErrorMessage: err.Error()}
		}
		c.Recorder.Record(result, err, opts)
		if err != nil {
			return nil, err
		}
		if len(result.ParsedJSON) == 0 {
			return nil, fmt.Errorf("%s: empty structured output", req.PromptKey)
		}
		return result.ParsedJSON, nil
	}, attempt.Options{Logger: c.logger(), Op: req.Stage + "/" + req.PromptKey})
	if err != nil {
		return fmt.Errorf("%s: %w", req.PromptKey, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", req.PromptKey, err)
	}
	return nil
}

func (c *Completer) buildChatRequest(req Request) (*providers.ChatRequest, error) {
	var rf *providers.ResponseFormat
	if req.Schema != nil {
		var err error
		rf, err = ResponseFormat(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req.PromptKey, err)
		}
	}

	messages := make([]providers.Message, 0, 2+2*len(req.Examples))
	if req.System != "" {
		messages = append(messages, providers.Message{Role: "system", Content: req.System})
	}
	for _, ex := range req.Examples {
		messages = append(messages,
			providers.Message{Role: "user", Content: ex.Input},
			providers.Message{Role: "assistant", Content: ex.Output},
		)
	}
	messages = append(messages, providers.Message{Role: "user", Content: req.User, Images: req.Images})

	return &providers.ChatRequest{
		Messages:       messages,
		Model:          c.Model,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: rf,
	}, nil
}

func (c *Completer) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ResponseFormat converts a schema wrapper into a provider response format.
func ResponseFormat(schema map[string]any) (*providers.ResponseFormat, error) {
	inner, ok := schema["json_schema"]
	if !ok {
		return nil, fmt.Errorf("schema has no json_schema section")
	}
	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return &providers.ResponseFormat{Type: "json_schema", JSONSchema: raw}, nil
}

// Schema wraps a JSON schema object in the response format envelope.
func Schema(name string, schema map[string]any) map[string]any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   name,
			"strict": true,
			"schema": schema,
		},
	}
}
