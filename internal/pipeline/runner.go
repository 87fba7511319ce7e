package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/papercast/internal/completion"
	"github.com/jackzampolin/papercast/internal/failure"
	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/llmcall"
	"github.com/jackzampolin/papercast/internal/source"
	"github.com/jackzampolin/papercast/internal/stages"
	"github.com/jackzampolin/papercast/internal/stages/authors"
	"github.com/jackzampolin/papercast/internal/stages/filter"
	"github.com/jackzampolin/papercast/internal/stages/synth"
	"github.com/jackzampolin/papercast/internal/status"
)

// Input is one document to narrate. Exactly one of Data or URL is set.
type Input struct {
	Data []byte
	Name string
	URL  string
	// Method overrides Options.Method when set.
	Method string
}

// Output is what a successful run produced.
type Output struct {
	RunID    string                 `json:"run_id" yaml:"run_id"`
	Title    string                 `json:"title" yaml:"title"`
	Authors  string                 `json:"authors,omitempty" yaml:"authors,omitempty"`
	Duration float64                `json:"duration_seconds" yaml:"duration_seconds"`
	Segments []synth.Segment        `json:"-" yaml:"-"`
	TOC      []synth.TOCEntry       `json:"toc" yaml:"toc"`
	URLs     Artifacts              `json:"artifacts" yaml:"artifacts"`
	Usage    []llmcall.StageSummary `json:"usage,omitempty" yaml:"usage,omitempty"`
}

// Runner executes runs. One Runner serves any number of sequential or
// concurrent runs; each run owns its item list and work directory.
type Runner struct {
	svc  Services
	opts Options

	// OnProgress, when set, is called before each step of every run.
	OnProgress func(Progress)

	wg sync.WaitGroup
}

// NewRunner checks that every required service is present.
func NewRunner(svc Services, opts Options) (*Runner, error) {
	if err := svc.validate(); err != nil {
		return nil, fmt.Errorf("pipeline services: %w", err)
	}
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}
	if svc.Links == nil {
		svc.Links = source.NewLinkResolver(opts.Limits.MaxBytes)
	}
	if opts.Method == "" {
		opts.Method = filter.MethodFull
	}
	return &Runner{svc: svc, opts: opts}, nil
}

// Run executes one run synchronously. The run is recorded in the status
// store exactly like a submitted one.
func (r *Runner) Run(ctx context.Context, in Input) (*Output, error) {
	id, err := r.accept(ctx, in)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, id, in)
}

// Submit records the run as Received and executes it in the background.
// The returned id can be polled in the status store. The run stops early
// if ctx is cancelled.
func (r *Runner) Submit(ctx context.Context, in Input) (string, error) {
	id, err := r.accept(ctx, in)
	if err != nil {
		return "", err
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.execute(ctx, id, in); err != nil {
			r.svc.Logger.Warn("run failed", "run_id", id, "error_type", failure.TypeOf(err), "error", err)
		}
	}()
	return id, nil
}

// Wait blocks until every submitted run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) accept(ctx context.Context, in Input) (string, error) {
	id := uuid.New().String()
	name := in.Name
	if name == "" {
		name = in.URL
	}
	if _, err := r.svc.Status.Create(ctx, id, name, r.methodFor(in)); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

func (r *Runner) methodFor(in Input) string {
	if in.Method != "" {
		return in.Method
	}
	return r.opts.Method
}

// run is the state of one execution.
type run struct {
	*Runner
	id     string
	method string
	log    *slog.Logger
	calls  *llmcall.Recorder
	env    *stages.Env

	doc     *source.Document
	workDir string
	pdfPath string
	pages   []items.Page
	list    []*items.Item
	byline  *authors.Result
	result  *synth.Result
	out     *Output
}

func (r *Runner) execute(ctx context.Context, id string, in Input) (*Output, error) {
	log := r.svc.Logger.With("run_id", id)
	start := time.Now()
	rn := &run{
		Runner: r,
		id:     id,
		method: r.methodFor(in),
		log:    log,
		calls:  llmcall.NewRecorder(),
		out:    &Output{RunID: id},
	}
	rn.env = &stages.Env{
		Completer: &completion.Completer{
			LLM:      r.svc.LLM,
			Model:    r.svc.Model,
			Recorder: rn.calls,
			RunID:    id,
			Logger:   log,
		},
		Prompts:   r.svc.Prompts,
		Logger:    log,
		BatchSize: r.opts.BatchSize,
		Retries:   r.opts.Retries,
	}

	err := rn.validate(ctx, in)
	if err == nil {
		if err = r.svc.Status.Start(ctx, id); err == nil {
			err = rn.process(ctx)
		}
	}
	if rn.workDir != "" && !r.opts.KeepWorkDir {
		if rmErr := os.RemoveAll(rn.workDir); rmErr != nil {
			log.Warn("failed to remove work dir", "dir", rn.workDir, "error", rmErr)
		}
	}
	if err != nil {
		rn.fail(err)
		return nil, err
	}

	rn.calls.LogSummary(log)
	rn.out.Usage = rn.calls.Summary()
	log.Info("run completed", "title", rn.out.Title, "duration_s", rn.out.Duration, "elapsed", time.Since(start).Round(time.Millisecond))
	return rn.out, nil
}

// validate runs every input check before any expensive work so that a bad
// input fails with its specific type.
func (rn *run) validate(ctx context.Context, in Input) error {
	if !filter.ValidMethod(rn.method) {
		return failure.New(failure.SummarizationMethodNotSupported, "summarization method %q is not supported", rn.method)
	}
	data, name := in.Data, in.Name
	if in.URL != "" {
		var err error
		name, data, err = rn.svc.Links.Fetch(ctx, in.URL)
		if err != nil {
			return err
		}
	}
	doc, err := source.Validate(data, name, rn.opts.Limits)
	if err != nil {
		return err
	}
	rn.doc = doc
	rn.out.Title = doc.Name
	rn.log.Info("input accepted", "file", doc.Name, "bytes", len(doc.Data), "pages", doc.Pages, "method", rn.method)
	return nil
}

func (rn *run) process(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	dir, err := os.MkdirTemp("", "papercast-"+rn.id+"-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	rn.workDir = dir
	rn.pdfPath = filepath.Join(dir, rn.doc.Name)
	if err := os.WriteFile(rn.pdfPath, rn.doc.Data, 0o644); err != nil {
		return fmt.Errorf("write input: %w", err)
	}

	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rn.OnProgress != nil {
			rn.OnProgress(Progress{RunID: rn.id, Step: s.name, Index: i, Total: len(steps)})
		}
		started := time.Now()
		if err := s.run(rn, ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		rn.log.Debug("step finished", "step", s.name, "items", len(rn.list), "elapsed", time.Since(started).Round(time.Millisecond))
	}
	return nil
}

// fail records a failed run. Untyped errors become CoreSystemFailure and
// leave a diagnostic artifact behind.
func (rn *run) fail(cause error) {
	// Status and artifacts must be written even when the run was cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	typ := failure.TypeOf(cause)
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		typ = failure.CoreSystemFailure
	}
	rn.log.Error("run failed", "error_type", typ, "error", cause)

	var logURL, callsURL string
	if !typ.IsValidation() {
		logURL = rn.putErrorLog(cause, typ)
		callsURL = rn.putCalls()
	}
	err := rn.svc.Status.Fail(ctx, rn.id, cause, func(rs *status.RunStatus) {
		rs.ErrorType = typ
		rs.ErrorLogURL = logURL
		rs.CallsURL = callsURL
	})
	if err != nil {
		rn.log.Error("failed to record run failure", "error", err)
	}
}
