package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var testSchema = json.RawMessage(`{
	"name":"label",
	"strict":true,
	"schema":{
		"type":"object",
		"properties":{"label_number":{"type":"string"}},
		"required":["label_number"],
		"additionalProperties":false
	}
}`)

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model:    "test-model",
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
	})

	t.Run("structured output", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseJSON = json.RawMessage(`{"label_number": "3"}`)

		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "test"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: testSchema},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if string(result.ParsedJSON) != `{"label_number":"3"}` {
			t.Errorf("ParsedJSON = %s", result.ParsedJSON)
		}
	})

	t.Run("failure", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true

		result, err := c.Chat(context.Background(), &ChatRequest{})
		if err == nil {
			t.Error("expected error, got nil")
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("fail after N", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 2

		for i := 0; i < 2; i++ {
			if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
				t.Fatalf("request %d should succeed: %v", i+1, err)
			}
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
			t.Error("third request should fail")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = 5 * time.Second

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Chat(ctx, &ChatRequest{})
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestChatStructured_RepairsInvalidOutput(t *testing.T) {
	c := NewMockClient()
	c.Respond = func(req *ChatRequest) (string, error) {
		if len(req.Messages) == 1 {
			return `{"label": 3}`, nil
		}
		last := req.Messages[len(req.Messages)-1]
		if !strings.Contains(last.Content, "Validation issue") {
			t.Errorf("repair message missing validation issue: %q", last.Content)
		}
		return "```json\n{\"label_number\":\"3\"}\n```", nil
	}

	result, err := c.Chat(context.Background(), &ChatRequest{
		Messages:       []Message{{Role: "user", Content: "label this"}},
		ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: testSchema},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
	if string(result.ParsedJSON) != `{"label_number":"3"}` {
		t.Errorf("ParsedJSON = %s", result.ParsedJSON)
	}
}

func TestChatStructured_GivesUp(t *testing.T) {
	c := NewMockClient()
	c.Respond = func(req *ChatRequest) (string, error) { return "not json", nil }

	_, err := c.Chat(context.Background(), &ChatRequest{
		Messages:       []Message{{Role: "user", Content: "x"}},
		ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: testSchema},
	})
	if err == nil {
		t.Fatal("expected error after exhausting repairs")
	}
	if got := c.RequestCount(); got != 1+repairRounds {
		t.Errorf("RequestCount = %d, want %d", got, 1+repairRounds)
	}
}

func TestMockSpeechClient(t *testing.T) {
	m := NewMockSpeechClient()
	res, err := m.Synthesize(context.Background(), &SpeechRequest{Text: "Hello.", Voice: "onyx"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(res.Audio) != "Hello." {
		t.Errorf("Audio = %q", res.Audio)
	}
	if calls := m.Calls(); len(calls) != 1 || calls[0].Voice != "onyx" {
		t.Errorf("Calls() = %+v", calls)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows initial requests", func(t *testing.T) {
		limiter := NewRateLimiter(600)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("try consume", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		if !limiter.TryConsume() {
			t.Error("first TryConsume should succeed")
		}
	})

	t.Run("record 429 blocks", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		limiter.Record429(time.Minute)
		if limiter.TryConsume() {
			t.Error("TryConsume should fail while blocked")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		_ = limiter.Wait(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := limiter.Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(6000)

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		if failures.Load() > 0 {
			t.Errorf("had %d errors", failures.Load())
		}
		if got := limiter.Consumed(); got != 10 {
			t.Errorf("Consumed() = %d, want 10", got)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Errorf("parseRetryAfter(3) = %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("parseRetryAfter(\"\") = %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("parseRetryAfter(soon) = %v", got)
	}
}
