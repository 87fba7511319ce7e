// Package pipeline drives one document through every stage, from input
// validation to the uploaded narration, and records the run's status.
package pipeline

import (
	"errors"
	"log/slog"

	"github.com/jackzampolin/papercast/internal/audio"
	"github.com/jackzampolin/papercast/internal/blob"
	"github.com/jackzampolin/papercast/internal/partition"
	"github.com/jackzampolin/papercast/internal/prompts"
	"github.com/jackzampolin/papercast/internal/providers"
	"github.com/jackzampolin/papercast/internal/source"
	"github.com/jackzampolin/papercast/internal/stages"
	"github.com/jackzampolin/papercast/internal/stages/authors"
	"github.com/jackzampolin/papercast/internal/stages/filter"
	"github.com/jackzampolin/papercast/internal/stages/normalize"
	"github.com/jackzampolin/papercast/internal/stages/synth"
	"github.com/jackzampolin/papercast/internal/status"
)

// Services are the long-lived handles a Runner uses. They are built once at
// process start and shared by every run.
type Services struct {
	LLM    providers.LLMClient
	Model  string
	Speech providers.SpeechClient
	Tools  audio.Toolkit

	Rasterizer source.Rasterizer
	// Partitioner is optional. When set, its text seeds extraction.
	Partitioner partition.Partitioner
	Links       *source.LinkResolver

	Blob    blob.Store
	Status  *status.Recorder
	Prompts *prompts.Resolver
	Logger  *slog.Logger
}

func (s Services) validate() error {
	var errs []error
	if s.LLM == nil {
		errs = append(errs, errors.New("no LLM client"))
	}
	if s.Speech == nil {
		errs = append(errs, errors.New("no speech client"))
	}
	if s.Tools == nil {
		errs = append(errs, errors.New("no audio toolkit"))
	}
	if s.Rasterizer == nil {
		errs = append(errs, errors.New("no rasterizer"))
	}
	if s.Blob == nil {
		errs = append(errs, errors.New("no blob store"))
	}
	if s.Status == nil {
		errs = append(errs, errors.New("no status recorder"))
	}
	if s.Prompts == nil {
		errs = append(errs, errors.New("no prompt resolver"))
	}
	return errors.Join(errs...)
}

// Options are the per-process tuning knobs.
type Options struct {
	// Method is the default summarization method for inputs that set none.
	Method    string
	BatchSize int
	Retries   int
	Limits    source.Limits
	Authors   authors.Options
	Normalize normalize.Options

	ProseVoice   string
	SummaryVoice string
	MaxChars     int
	PauseCue     string
	MarkupPauses bool

	// KeepWorkDir leaves the run's temp directory in place for debugging.
	KeepWorkDir bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Method:    filter.MethodFull,
		BatchSize: stages.DefaultBatchSize,
		Retries:   stages.DefaultRetries,
		Limits: source.Limits{
			MaxBytes: source.DefaultMaxBytes,
			MaxPages: source.DefaultMaxPages,
		},
		Authors: authors.Options{
			Pages: authors.DefaultPages,
			Cap:   authors.DefaultCap,
		},
		Normalize: normalize.Options{Bands: normalize.DefaultBands()},
		PauseCue:  synth.DefaultPauseCue,
	}
}

// RegisterPrompts installs the embedded prompts of every stage.
func RegisterPrompts(r *prompts.Resolver) {
	for _, register := range promptSets {
		register(r)
	}
}
