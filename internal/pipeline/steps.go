package pipeline

import (
	"context"

	"github.com/jackzampolin/papercast/internal/prompts"
	"github.com/jackzampolin/papercast/internal/stages/annotate"
	"github.com/jackzampolin/papercast/internal/stages/authors"
	"github.com/jackzampolin/papercast/internal/stages/classify"
	"github.com/jackzampolin/papercast/internal/stages/extract"
	"github.com/jackzampolin/papercast/internal/stages/filter"
	"github.com/jackzampolin/papercast/internal/stages/normalize"
	"github.com/jackzampolin/papercast/internal/stages/reposition"
	"github.com/jackzampolin/papercast/internal/stages/summarize"
	"github.com/jackzampolin/papercast/internal/stages/synth"
)

var promptSets = []func(*prompts.Resolver){
	extract.RegisterPrompts,
	classify.RegisterPrompts,
	annotate.RegisterPrompts,
	summarize.RegisterPrompts,
	authors.RegisterPrompts,
	normalize.RegisterPrompts,
}

// step is one phase of a run after validation. Steps run strictly in order
// over the run's single item list.
type step struct {
	name string
	run  func(*run, context.Context) error
}

// Step names in execution order.
const (
	StepRasterize  = "rasterize"
	StepPartition  = "partition"
	StepExtract    = extract.Stage
	StepClassify   = classify.Stage
	StepAnnotate   = annotate.Stage
	StepSummarize  = summarize.Stage
	StepAuthors    = authors.Stage
	StepFilter     = filter.Stage
	StepNormalize  = normalize.Stage
	StepReposition = reposition.Stage
	StepSynth      = synth.Stage
	StepUpload     = "upload"
)

var steps = []step{
	{StepRasterize, (*run).rasterize},
	{StepPartition, (*run).partition},
	{StepExtract, (*run).extract},
	{StepClassify, (*run).classify},
	{StepAnnotate, (*run).annotate},
	{StepSummarize, (*run).summarize},
	{StepAuthors, (*run).authors},
	{StepFilter, (*run).filter},
	{StepNormalize, (*run).normalize},
	{StepReposition, (*run).reposition},
	{StepSynth, (*run).synth},
	{StepUpload, (*run).upload},
}

// Steps returns the step names in execution order.
func Steps() []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.name
	}
	return names
}

// Progress reports that a step is about to start.
type Progress struct {
	RunID string
	Step  string
	// Index is the 0-based position of Step; Total is the number of steps.
	Index int
	Total int
}
