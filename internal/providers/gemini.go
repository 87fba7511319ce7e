package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	genai "google.golang.org/genai"
)

const GeminiName = "gemini"

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
	RPM          int
	BaseURL      string // Optional (tests)
}

// GeminiClient implements LLMClient on the Gemini API. Gemini receives the
// schema in the system instruction and JSON mime type; the reply is validated
// locally like any other backend.
type GeminiClient struct {
	client       *genai.Client
	defaultModel string
	limiter      *RateLimiter
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.5-flash"
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiClient{client: c, defaultModel: cfg.DefaultModel, limiter: NewRateLimiter(cfg.RPM)}, nil
}

// Name returns the client identifier.
func (g *GeminiClient) Name() string {
	return GeminiName
}

// Chat sends a chat request to Gemini.
func (g *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	return chatStructured(ctx, req, g.send)
}

func (g *GeminiClient) send(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	model := req.Model
	if model == "" {
		model = g.defaultModel
	}
	result := &ChatResult{RequestID: req.RequestID, Provider: GeminiName, Attempts: 1}
	if result.RequestID == "" {
		result.RequestID = uuid.New().String()
	}

	system, contents := toGeminiContents(req.Messages)
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.ResponseFormat != nil {
		cfg.ResponseMIMEType = "application/json"
		if schema, err := innerSchema(req.ResponseFormat.JSONSchema); err == nil {
			system = strings.TrimSpace(system + "\n\nRespond with JSON matching this schema:\n" + string(schema))
		}
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		err = mapGeminiError(err)
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	result.Success = true
	result.Content = res.Text()
	result.ModelUsed = model
	if res.UsageMetadata != nil {
		result.PromptTokens = int(res.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(res.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(res.UsageMetadata.TotalTokenCount)
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// toGeminiContents folds system messages into one instruction string and
// converts the rest into Gemini contents with inline image parts.
func toGeminiContents(messages []Message) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		parts := []*genai.Part{{Text: m.Content}}
		for _, img := range m.Images {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: http.DetectContentType(img), Data: img}})
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return strings.Join(system, "\n\n"), contents
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &RateLimitError{Message: "Gemini rate limited: " + apiErr.Message, StatusCode: apiErr.Code}
	}
	return fmt.Errorf("gemini: %w", err)
}

var _ LLMClient = (*GeminiClient)(nil)
