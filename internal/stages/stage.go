// Package stages holds what every pipeline stage shares: the handles a stage
// needs and the helper that renders a stage's prompts and runs a structured
// completion.
package stages

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/papercast/internal/completion"
	"github.com/jackzampolin/papercast/internal/prompts"
)

// Defaults for the concurrency and retry knobs.
const (
	DefaultBatchSize = 20
	DefaultRetries   = 3
)

// Env carries the handles a stage needs for one run.
type Env struct {
	Completer *completion.Completer
	Prompts   *prompts.Resolver
	Logger    *slog.Logger
	BatchSize int
	Retries   int
}

// Call describes one prompt-driven completion.
type Call struct {
	Stage     string
	SystemKey string
	UserKey   string
	Data      any
	Schema    map[string]any
	Images    [][]byte
	Page      int
	MaxTokens int
	Examples  []completion.Example
}

// Complete renders the call's prompts and decodes the reply into out.
func (e *Env) Complete(ctx context.Context, c Call, out any) error {
	system, sp, err := e.Prompts.RenderKey(c.SystemKey, c.Data)
	if err != nil {
		return err
	}
	user, _, err := e.Prompts.RenderKey(c.UserKey, c.Data)
	if err != nil {
		return err
	}
	return e.Completer.Complete(ctx, completion.Request{
		Stage:      c.Stage,
		PromptKey:  c.SystemKey,
		PromptHash: sp.Hash,
		Page:       c.Page,
		System:     system,
		User:       user,
		Schema:     c.Schema,
		Images:     c.Images,
		MaxTokens:  c.MaxTokens,
		Retries:    e.retries(),
		Examples:   c.Examples,
	}, out)
}

// Batch returns the configured batch size.
func (e *Env) Batch() int {
	if e.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return e.BatchSize
}

func (e *Env) retries() int {
	if e.Retries <= 0 {
		return DefaultRetries
	}
	return e.Retries
}

// Log returns the stage logger.
func (e *Env) Log(stage string) *slog.Logger {
	l := e.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("stage", stage)
}
