package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAITTSName         = "openai"
	openAITTSDefaultModel = "gpt-4o-mini-tts"
	openAITTSDefaultVoice = "onyx"

	// Narration style passed to models that accept instructions.
	defaultNarrationInstructions = "Narrate clearly at an even pace, like an academic reading a paper aloud."
	pauseInstructions            = " Treat an ellipsis on its own as a short silent pause."
)

// OpenAITTSConfig holds configuration for the OpenAI TTS client.
type OpenAITTSConfig struct {
	APIKey       string
	Model        string        // "gpt-4o-mini-tts" (default), "tts-1-hd", "tts-1"
	Voice        string        // "onyx" (default)
	Format       string        // "mp3" (default)
	Speed        float64       // 0.25-4.0
	Instructions string        // Used by gpt-4o-mini-tts
	RPM          int           // Requests per minute
	MaxRetries   int           // Retry attempts for SDK transport
	Timeout      time.Duration // HTTP timeout
	BaseURL      string        // Optional (tests)
	HTTPClient   *http.Client  // Optional (tests)
}

// OpenAITTSClient implements SpeechClient using the official OpenAI SDK.
type OpenAITTSClient struct {
	model        string
	voice        string
	format       openai.AudioSpeechNewParamsResponseFormat
	speed        float64
	instructions string
	limiter      *RateLimiter
	client       openai.Client
}

// NewOpenAITTSClient creates a new OpenAI TTS client.
func NewOpenAITTSClient(cfg OpenAITTSConfig) *OpenAITTSClient {
	if cfg.Model == "" {
		cfg.Model = openAITTSDefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = openAITTSDefaultVoice
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.RPM <= 0 {
		cfg.RPM = 500
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.Instructions == "" {
		cfg.Instructions = defaultNarrationInstructions
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAITTSClient{
		model:        cfg.Model,
		voice:        cfg.Voice,
		format:       normalizeOpenAIFormat(cfg.Format),
		speed:        cfg.Speed,
		instructions: cfg.Instructions,
		limiter:      NewRateLimiter(cfg.RPM),
		client:       openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAITTSClient) Name() string {
	return OpenAITTSName
}

// Format returns the container format of produced audio.
func (c *OpenAITTSClient) Format() string {
	return openAIResultFormat(c.format)
}

// Synthesize converts text to audio.
func (c *OpenAITTSClient) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error) {
	start := time.Now()
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = c.voice
	}

	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: c.format,
		Speed:          openai.Float(c.speed),
	}
	if supportsInstructions(c.model) {
		instructions := c.instructions
		if req.MarkupPauses {
			instructions += pauseInstructions
		}
		params.Instructions = openai.String(instructions)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	defer resp.Body.Close()

	audioBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading openai audio response: %w", err)
	}

	return &SpeechResult{
		Audio:         audioBytes,
		Format:        openAIResultFormat(c.format),
		CharCount:     len(text),
		CostUSD:       estimateOpenAITTSCostUSD(c.model, text),
		ExecutionTime: time.Since(start),
	}, nil
}

// estimateOpenAITTSCostUSD approximates cost because speech responses carry
// no usage block.
func estimateOpenAITTSCostUSD(model, text string) float64 {
	chars := float64(len(text))
	switch strings.ToLower(strings.TrimSpace(model)) {
	case "tts-1-hd":
		return chars * 0.03 / 1000.0
	case "tts-1":
		return chars * 0.015 / 1000.0
	default:
		// gpt-4o-mini-tts: ~$0.015 per minute, ~900 characters per minute.
		return chars / 900.0 * 0.015
	}
}

func supportsInstructions(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-4o-mini-tts")
}

func normalizeOpenAIFormat(format string) openai.AudioSpeechNewParamsResponseFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "opus":
		return openai.AudioSpeechNewParamsResponseFormatOpus
	case "aac":
		return openai.AudioSpeechNewParamsResponseFormatAAC
	case "flac":
		return openai.AudioSpeechNewParamsResponseFormatFLAC
	case "wav":
		return openai.AudioSpeechNewParamsResponseFormatWAV
	default:
		return openai.AudioSpeechNewParamsResponseFormatMP3
	}
}

func openAIResultFormat(format openai.AudioSpeechNewParamsResponseFormat) string {
	switch format {
	case openai.AudioSpeechNewParamsResponseFormatOpus:
		return "opus"
	case openai.AudioSpeechNewParamsResponseFormatAAC:
		return "aac"
	case openai.AudioSpeechNewParamsResponseFormatFLAC:
		return "flac"
	case openai.AudioSpeechNewParamsResponseFormatWAV:
		return "wav"
	default:
		return "mp3"
	}
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if apiErr.Response != nil {
			retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return &RateLimitError{
			Message:    fmt.Sprintf("OpenAI rate limited: %s", apiErr.Message),
			RetryAfter: retryAfter,
			StatusCode: apiErr.StatusCode,
		}
	}
	if apiErr.Message != "" {
		return fmt.Errorf("OpenAI TTS error (status %d): %s", apiErr.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("OpenAI TTS error (status %d)", apiErr.StatusCode)
}

var _ SpeechClient = (*OpenAITTSClient)(nil)
