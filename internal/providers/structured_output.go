package providers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// repairRounds is how many times a model is shown its own invalid reply
// and asked to fix it before the call fails.
const repairRounds = 2

// repairEchoLimit truncates the invalid reply quoted back to the model.
const repairEchoLimit = 12000

// sendFunc performs one raw round trip to a backend.
type sendFunc func(ctx context.Context, req *ChatRequest) (*ChatResult, error)

// chatStructured runs send and, when a response format is requested, checks
// the reply against the schema. Token counts and cost accumulate across
// repair rounds.
func chatStructured(ctx context.Context, req *ChatRequest, send sendFunc) (*ChatResult, error) {
	result, err := send(ctx, req)
	if err != nil || req.ResponseFormat == nil {
		return result, err
	}

	schema := req.ResponseFormat.JSONSchema
	history := append([]Message(nil), req.Messages...)
	for round := 0; ; round++ {
		reply, issue := checkReply(schema, result.Content)
		if issue == nil {
			result.ParsedJSON = reply
			result.Success = true
			result.ErrorType, result.ErrorMessage = "", ""
			return result, nil
		}
		if round == repairRounds {
			result.Success = false
			result.ErrorType = "json_parse"
			result.ErrorMessage = issue.Error()
			return result, fmt.Errorf("structured output invalid after %d repairs: %w", round, issue)
		}

		history = append(history,
			Message{Role: "assistant", Content: result.Content},
			Message{Role: "user", Content: repairPrompt(schema, result.Content, issue)},
		)
		retry := *req
		retry.Messages = history

		next, err := send(ctx, &retry)
		if err != nil {
			return result, err
		}
		next.PromptTokens += result.PromptTokens
		next.CompletionTokens += result.CompletionTokens
		next.TotalTokens += result.TotalTokens
		next.CostUSD += result.CostUSD
		next.Attempts = result.Attempts + 1
		result = next
	}
}

// checkReply decodes a model reply and validates it against schema.
func checkReply(schema json.RawMessage, content string) (json.RawMessage, error) {
	reply, err := decodeReply(content)
	if err != nil {
		return nil, err
	}
	if err := validateReply(schema, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// decodeReply finds the JSON value in a model reply. The reply may be bare
// JSON, fenced in a code block, or surrounded by prose. The result is
// compacted.
func decodeReply(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty structured output")
	}
	for _, candidate := range []string{content, unfence(content), outermostJSON(content)} {
		if candidate == "" {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(candidate)); err == nil {
			return buf.Bytes(), nil
		}
	}
	return nil, errors.New("no JSON value found in structured output")
}

// unfence strips a surrounding ``` block, with or without a language tag.
func unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	_, body, ok := strings.Cut(s, "\n")
	if !ok {
		return ""
	}
	body = strings.TrimSpace(body)
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}

// outermostJSON returns the span from the first '{' or '[' to the last
// matching closer.
func outermostJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}

// compiled caches compiled validators by schema digest. Every stage sends
// the same few schemas many times per run.
var compiled sync.Map

func validateReply(schemaRaw, reply json.RawMessage) error {
	if len(schemaRaw) == 0 || len(reply) == 0 {
		return nil
	}
	validator, err := compileSchema(schemaRaw)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(reply, &doc); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	if err := validator.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	key := sha256.Sum256(schemaRaw)
	if s, ok := compiled.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}
	inner, err := innerSchema(schemaRaw)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("reply.json", bytes.NewReader(inner)); err != nil {
		return nil, fmt.Errorf("load structured schema: %w", err)
	}
	s, err := c.Compile("reply.json")
	if err != nil {
		return nil, fmt.Errorf("compile structured schema: %w", err)
	}
	compiled.Store(key, s)
	return s, nil
}

// innerSchema unwraps the JSON Schema from a response format envelope.
// Both {"name","strict","schema"} and {"json_schema":{"schema"}} are
// accepted; anything else is taken to be the schema itself.
func innerSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var envelope struct {
		Schema     json.RawMessage `json:"schema"`
		JSONSchema *struct {
			Schema json.RawMessage `json:"schema"`
		} `json:"json_schema"`
	}
	if err := json.Unmarshal(schemaRaw, &envelope); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	switch {
	case len(envelope.Schema) > 0:
		return envelope.Schema, nil
	case envelope.JSONSchema != nil && len(envelope.JSONSchema.Schema) > 0:
		return envelope.JSONSchema.Schema, nil
	}
	return schemaRaw, nil
}

func repairPrompt(schemaRaw json.RawMessage, lastOutput string, issue error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > repairEchoLimit {
		lastOutput = lastOutput[:repairEchoLimit] + "\n...[truncated]"
	}
	return fmt.Sprintf(`Return ONLY valid JSON (no markdown, no commentary) that strictly conforms to this schema.

Schema:
%s

Your previous output:
%s

Validation issue:
%v`, schemaRaw, lastOutput, issue)
}

// openRouterFormat returns the response format sent to OpenRouter. The
// canonical schema stays on the request for local validation.
func openRouterFormat(model string, rf *ResponseFormat) (*openRouterResponseFormat, error) {
	if rf == nil {
		return nil, nil
	}
	// anthropic/* may be routed to backends without native structured
	// output; local validation and repair cover them.
	if isAnthropicModel(model) {
		return nil, nil
	}
	return &openRouterResponseFormat{Type: rf.Type, JSONSchema: rf.JSONSchema}, nil
}

func isAnthropicModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "anthropic/")
}
