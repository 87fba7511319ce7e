package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jackzampolin/papercast/internal/audio"
	"github.com/jackzampolin/papercast/internal/blob"
	"github.com/jackzampolin/papercast/internal/config"
	"github.com/jackzampolin/papercast/internal/home"
	"github.com/jackzampolin/papercast/internal/partition"
	"github.com/jackzampolin/papercast/internal/pipeline"
	"github.com/jackzampolin/papercast/internal/prompts"
	"github.com/jackzampolin/papercast/internal/providers"
	"github.com/jackzampolin/papercast/internal/source"
	"github.com/jackzampolin/papercast/internal/stages/authors"
	"github.com/jackzampolin/papercast/internal/stages/normalize"
	"github.com/jackzampolin/papercast/internal/status"
)

// app holds the process-wide handles the commands share.
type app struct {
	home     *home.Dir
	cfg      *config.Manager
	registry *providers.Registry
	store    status.Store
	recorder *status.Recorder
	prompts  *prompts.Resolver
	blob     *blob.FS
	logger   *slog.Logger

	mu     sync.Mutex
	runner *pipeline.Runner
}

// openApp loads config and opens the status store. It does not build the
// runner, so status queries work without provider keys.
func openApp(ctx context.Context) (*app, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	cfgMgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := cfgMgr.Get()
	logger := slog.Default()

	store, err := status.Open(ctx, statusConfig(cfg, h))
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}
	root := cfg.Storage.Root
	if root == "" {
		root = h.BlobsPath()
	}
	fs, err := blob.NewFS(root)
	if err != nil {
		store.Close()
		return nil, err
	}

	resolver := prompts.NewResolver(h.PromptsPath(), logger)
	pipeline.RegisterPrompts(resolver)

	return &app{
		home:     h,
		cfg:      cfgMgr,
		store:    store,
		recorder: status.NewRecorder(store, logger),
		prompts:  resolver,
		blob:     fs,
		logger:   logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func statusConfig(cfg *config.Config, h *home.Dir) status.Config {
	path := cfg.Status.SQLitePath
	if path == "" {
		path = h.StatusDBPath()
	}
	return status.Config{
		Backend:    cfg.Status.Backend,
		SQLitePath: path,
		Redis: status.RedisConfig{
			Addr:     cfg.Status.RedisAddr,
			Password: config.ResolveEnvVars(cfg.Status.RedisPassword),
			DB:       cfg.Status.RedisDB,
			Prefix:   cfg.Status.RedisPrefix,
		},
	}
}

// Runner returns the current runner, building it on first use.
func (a *app) Runner(ctx context.Context) (*pipeline.Runner, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runner != nil {
		return a.runner, nil
	}
	r, err := a.buildRunner(ctx, a.cfg.Get())
	if err != nil {
		return nil, err
	}
	a.runner = r
	return r, nil
}

// Reload rebuilds the runner from cfg. Runs already submitted keep the
// runner they started with.
func (a *app) Reload(ctx context.Context, cfg *config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.buildRunner(ctx, cfg)
	if err != nil {
		return err
	}
	if a.runner != nil {
		r.OnProgress = a.runner.OnProgress
	}
	a.runner = r
	return nil
}

func (a *app) buildRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, error) {
	if a.registry == nil {
		a.registry = providers.NewRegistryFromConfig(ctx, cfg.ToProviderRegistryConfig(), a.logger)
	} else {
		a.registry.Reload(ctx, cfg.ToProviderRegistryConfig())
	}

	llm, err := a.registry.GetLLM(cfg.LLM.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w (is the API key for %q set?)", err, cfg.LLM.Provider)
	}
	speech, err := a.registry.GetSpeech(cfg.TTS.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w (is the API key for %q set?)", err, cfg.TTS.Provider)
	}

	tools := audio.NewFFmpeg()
	if err := tools.Check(); err != nil {
		return nil, err
	}
	raster, err := source.NewRasterizer(cfg.Source.Rasterizer, cfg.Source.DPI)
	if err != nil {
		return nil, err
	}
	part, err := partition.New(partition.Config{
		Kind:   cfg.Source.Partitioner,
		URL:    cfg.Source.PartitionerURL,
		APIKey: config.ResolveEnvVars(cfg.Source.PartitionerAPIKey),
	})
	if err != nil {
		return nil, err
	}

	opts := pipelineOptions(cfg)
	return pipeline.NewRunner(pipeline.Services{
		LLM:         llm,
		Model:       cfg.LLM.Providers[cfg.LLM.Provider].Model,
		Speech:      speech,
		Tools:       tools,
		Rasterizer:  raster,
		Partitioner: part,
		Links:       source.NewLinkResolver(opts.Limits.MaxBytes),
		Blob:        a.blob,
		Status:      a.recorder,
		Prompts:     a.prompts,
		Logger:      a.logger,
	}, opts)
}

// pipelineOptions maps the config file onto runner options.
func pipelineOptions(cfg *config.Config) pipeline.Options {
	opts := pipeline.DefaultOptions()
	p := cfg.Pipeline
	opts.Method = p.Method
	opts.BatchSize = p.BatchSize
	opts.Retries = p.Retries
	opts.Limits = source.Limits{MaxBytes: cfg.Limits.MaxBytes, MaxPages: cfg.Limits.MaxPages}
	opts.Authors = authors.Options{Pages: p.AuthorPages, Cap: p.AuthorCap}
	opts.PauseCue = p.PauseCue
	opts.KeepWorkDir = p.KeepWorkDir

	bands := normalize.Bands{
		CitationMin:    p.Bands.CitationMin,
		CitationMax:    p.Bands.CitationMax,
		MathMin:        p.Bands.MathMin,
		HyphenationMin: p.Bands.HyphenationMin,
		HyphenationMax: p.Bands.HyphenationMax,
	}
	if len(p.Bands.MathMax) > 0 {
		bands.MathMax = make(map[int]float64, len(p.Bands.MathMax))
		for i, v := range p.Bands.MathMax {
			bands.MathMax[i+1] = v
		}
	}
	opts.Normalize = normalize.Options{Bands: bands}

	opts.ProseVoice = cfg.TTS.ProseVoice
	opts.SummaryVoice = cfg.TTS.SummaryVoice
	opts.MaxChars = cfg.TTS.MaxChars
	opts.MarkupPauses = cfg.TTS.MarkupPauses
	return opts
}

// withApp opens the app, runs fn, and closes it.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
