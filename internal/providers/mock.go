package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage

	// Respond, when set, computes the reply content from the request and
	// overrides ResponseText/ResponseJSON.
	Respond func(req *ChatRequest) (string, error)

	requestCount atomic.Int64

	mu       sync.Mutex
	requests []*ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	return chatStructured(ctx, req, c.send)
}

func (c *MockClient) send(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	fail := func(msg string) (*ChatResult, error) {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = msg
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("%s", msg)
	}
	if c.ShouldFail {
		return fail("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return fail(fmt.Sprintf("mock client failed after %d requests", c.FailAfter))
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			result.ErrorType = "context_cancelled"
			result.ErrorMessage = ctx.Err().Error()
			return result, ctx.Err()
		}
	}

	content := c.ResponseText
	switch {
	case c.Respond != nil:
		out, err := c.Respond(req)
		if err != nil {
			return fail(err.Error())
		}
		content = out
	case req.ResponseFormat != nil && len(c.ResponseJSON) > 0:
		content = string(c.ResponseJSON)
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}
	result.Success = true
	result.Content = content
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.CostUSD = 0.001
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns every request received so far.
func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ChatRequest(nil), c.requests...)
}

// Reset resets the request counter and history.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

var _ LLMClient = (*MockClient)(nil)

// MockSpeechClient is a SpeechClient for testing. The returned audio is the
// text itself, which lets tests assert on what was synthesized.
type MockSpeechClient struct {
	ShouldFail bool

	mu    sync.Mutex
	calls []SpeechRequest
}

// NewMockSpeechClient creates a mock speech client.
func NewMockSpeechClient() *MockSpeechClient {
	return &MockSpeechClient{}
}

// Name returns the provider identifier.
func (m *MockSpeechClient) Name() string {
	return MockClientName
}

// Synthesize records the request and echoes the text as audio.
func (m *MockSpeechClient) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, *req)
	m.mu.Unlock()
	if m.ShouldFail {
		return nil, fmt.Errorf("mock speech client configured to fail")
	}
	return &SpeechResult{
		Audio:     []byte(req.Text),
		Format:    "mp3",
		CharCount: len(req.Text),
	}, nil
}

// Calls returns every request received so far.
func (m *MockSpeechClient) Calls() []SpeechRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SpeechRequest(nil), m.calls...)
}

var _ SpeechClient = (*MockSpeechClient)(nil)
