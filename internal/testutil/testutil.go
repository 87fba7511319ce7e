// Package testutil builds the scripted environments stage and pipeline tests
// run against. Nothing here touches the network.
package testutil

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/jackzampolin/papercast/internal/completion"
	"github.com/jackzampolin/papercast/internal/llmcall"
	"github.com/jackzampolin/papercast/internal/prompts"
	"github.com/jackzampolin/papercast/internal/providers"
	"github.com/jackzampolin/papercast/internal/stages"
)

// Responder computes a mock completion reply.
type Responder func(req *providers.ChatRequest) (string, error)

// Logger returns a logger for tests. Output goes to stderr when
// PAPERCAST_TEST_LOG is set and is discarded otherwise.
func Logger() *slog.Logger {
	var w io.Writer = io.Discard
	if os.Getenv("PAPERCAST_TEST_LOG") != "" {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// StageEnv is a stage environment wired to a scripted mock backend.
type StageEnv struct {
	*stages.Env
	Mock     *providers.MockClient
	Recorder *llmcall.Recorder
}

// NewStageEnv builds a stage environment whose completions are answered by
// respond. register installs the prompts the stage under test uses.
func NewStageEnv(t *testing.T, respond Responder, register ...func(*prompts.Resolver)) *StageEnv {
	t.Helper()

	logger := Logger()
	resolver := prompts.NewResolver("", logger)
	for _, fn := range register {
		fn(resolver)
	}
	mock := providers.NewMockClient()
	mock.Respond = respond
	rec := llmcall.NewRecorder()

	return &StageEnv{
		Env: &stages.Env{
			Completer: &completion.Completer{
				LLM:      mock,
				Model:    "mock-model",
				Recorder: rec,
				RunID:    "test-run",
				Logger:   logger,
			},
			Prompts:   resolver,
			Logger:    logger,
			BatchSize: 4,
			Retries:   2,
		},
		Mock:     mock,
		Recorder: rec,
	}
}

// JSON marshals v for use as a mock reply.
func JSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return string(b)
}

// SystemText returns the system message of a request.
func SystemText(req *providers.ChatRequest) string {
	for _, m := range req.Messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

// UserText returns the final user message of a request.
func UserText(req *providers.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

// UserImages returns the images attached to the final user message.
func UserImages(req *providers.ChatRequest) [][]byte {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Images
		}
	}
	return nil
}
