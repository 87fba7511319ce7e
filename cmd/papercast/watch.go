package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercast/internal/config"
	"github.com/jackzampolin/papercast/internal/pipeline"
)

var (
	watchSettle time.Duration
	watchMethod string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Narrate every PDF dropped into a directory",
	Long: `Watch a directory and submit a run for each PDF written to it.

A file is submitted once it has not changed for the settle interval. Runs
execute concurrently and are tracked in the status store. Edits to the
config file are picked up for later submissions.

Examples:
  papercast watch                  # watch ~/.papercast/inbox
  papercast watch ./papers --settle 5s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			dir := a.home.InboxPath()
			if len(args) == 1 {
				dir = args[0]
			}
			if _, err := a.Runner(ctx); err != nil {
				return err
			}

			a.cfg.OnChange(func(cfg *config.Config) {
				if err := a.Reload(ctx, cfg); err != nil {
					a.logger.Error("config reload failed, keeping previous runner", "error", err)
					return
				}
				a.logger.Info("config reloaded", "file", a.cfg.ConfigFile())
			})
			a.cfg.OnError(func(err error) {
				a.logger.Error("config reload rejected", "error", err)
			})
			if a.cfg.ConfigFile() != "" {
				a.cfg.WatchConfig()
			}

			w := &inboxWatcher{app: a, settle: watchSettle, method: watchMethod, timers: map[string]*time.Timer{}}
			return w.watch(ctx, dir)
		})
	},
}

// inboxWatcher submits a run for each PDF that settles in a directory.
type inboxWatcher struct {
	app    *app
	settle time.Duration
	method string

	mu     sync.Mutex
	timers map[string]*time.Timer
	runs   []*pipeline.Runner
}

func (w *inboxWatcher) watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.app.logger.Info("watching for papers", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.wait()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".pdf") {
				continue
			}
			w.schedule(ctx, ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.app.logger.Warn("watcher error", "error", err)
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *inboxWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.submit(ctx, path)
	})
}

func (w *inboxWatcher) submit(ctx context.Context, path string) {
	log := w.app.logger.With("file", path)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("read failed", "error", err)
		return
	}
	runner, err := w.app.Runner(ctx)
	if err != nil {
		log.Error("no runner", "error", err)
		return
	}
	id, err := runner.Submit(ctx, pipeline.Input{Data: data, Name: filepath.Base(path), Method: w.method})
	if err != nil {
		log.Error("submit failed", "error", err)
		return
	}
	w.mu.Lock()
	w.runs = appendRunner(w.runs, runner)
	w.mu.Unlock()
	log.Info("submitted", "run_id", id)
}

func (w *inboxWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// wait blocks until every runner that accepted a submission is idle.
func (w *inboxWatcher) wait() {
	w.mu.Lock()
	runs := append([]*pipeline.Runner(nil), w.runs...)
	w.mu.Unlock()
	for _, r := range runs {
		r.Wait()
	}
}

func appendRunner(runs []*pipeline.Runner, r *pipeline.Runner) []*pipeline.Runner {
	for _, existing := range runs {
		if existing == r {
			return runs
		}
	}
	return append(runs, r)
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "quiet period before a new file is submitted")
	watchCmd.Flags().StringVar(&watchMethod, "method", "", "summarization method: full or abstract (default from config)")

	rootCmd.AddCommand(watchCmd)
}
