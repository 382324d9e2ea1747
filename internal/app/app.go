// Package app ties configuration, the analysis pipeline and report viewing
// together for the command line and the scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/pipeline"
	"github.com/ibeckermayer/narratives/internal/store"
)

// ErrNoReport is returned by ViewLastReport when no report has been written yet.
var ErrNoReport = errors.New("no report found")

// BuildFunc assembles a pipeline for a config
type BuildFunc func(cfg *config.Config, log logrus.FieldLogger) (*pipeline.Pipeline, error)

// App holds the application state.
type App struct {
	mu      sync.RWMutex
	cfgPath string             // immutable after creation
	log     logrus.FieldLogger // immutable after creation
	build   BuildFunc
	open    func(path string) error

	// retiring tracks replaced pipelines still waiting on their runs
	retiring sync.WaitGroup

	// Mutable fields - use getSnapshot() for concurrent access.
	config     *config.Config
	pipeline   *runner
	lastReport string
}

// runner is a pipeline plus the runs still using it. A replaced runner is
// closed only after its runs finish.
type runner struct {
	p       *pipeline.Pipeline
	running sync.WaitGroup
}

func (r *runner) close() error {
	if r == nil || r.p == nil {
		return nil
	}
	r.running.Wait()
	return r.p.Close()
}

// snapshot holds fields that may be replaced by ReloadConfig.
type snapshot struct {
	config   *config.Config
	pipeline *runner
}

func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:   a.config,
		pipeline: a.pipeline,
	}
}

// acquire returns the active pipeline and marks a run on it. The caller must
// call release once the run is over.
func (a *App) acquire() (*runner, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r := a.pipeline
	if r == nil || r.p == nil {
		return nil, errors.New("no pipeline configured")
	}
	r.running.Add(1)
	return r, nil
}

// Options configures New. Build defaults to pipeline.FromConfig and Open to
// the system browser.
type Options struct {
	ConfigPath string
	Logger     logrus.FieldLogger
	Build      BuildFunc
	Open       func(path string) error
}

// New creates a new App instance around cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Build == nil {
		opts.Build = pipeline.FromConfig
	}
	if opts.Open == nil {
		opts.Open = browser.OpenFile
	}

	p, err := opts.Build(cfg, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &App{
		cfgPath:  opts.ConfigPath,
		log:      opts.Logger,
		build:    opts.Build,
		open:     opts.Open,
		config:   cfg,
		pipeline: &runner{p: p},
	}, nil
}

// Config returns the active configuration
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// Analyze loads posts from path ("-" for stdin) and runs the pipeline on them.
func (a *App) Analyze(ctx context.Context, path string) (*pipeline.Result, error) {
	r, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer r.running.Done()

	posts, err := pipeline.LoadPostsFile(path)
	if err != nil {
		return nil, err
	}
	a.log.WithField("input", path).Infof("Loaded %d posts", len(posts))

	res, err := r.p.Run(ctx, posts)
	if err != nil {
		return nil, err
	}
	if res.ReportPath != "" {
		a.mu.Lock()
		a.lastReport = res.ReportPath
		a.mu.Unlock()
	}
	return res, nil
}

// LastReport returns the path of the most recent report: the one this App
// wrote last, else the configured report path, else the newest cached report.
func (a *App) LastReport() (string, error) {
	a.mu.RLock()
	last := a.lastReport
	cfg := a.config
	a.mu.RUnlock()

	if last != "" {
		return last, nil
	}
	if p := cfg.Output.ReportPath; p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	c, err := store.DefaultCache()
	if err != nil {
		return "", err
	}
	path, err := c.LatestStepFile(store.StepReport)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoReport, err)
	}
	return path, nil
}

// ViewLastReport opens the most recent report.
func (a *App) ViewLastReport() error {
	path, err := a.LastReport()
	if err != nil {
		a.log.WithError(err).Warn("No report found")
		return err
	}

	a.log.WithField("path", path).Info("Opening report")
	return a.open(path)
}

// ReloadConfig reloads the configuration from disk and rebuilds the pipeline.
// On failure the previous configuration stays active. Runs already in
// progress finish on the previous pipeline, which is closed in the background
// once they are done.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}

	p, err := a.build(cfg, a.log)
	if err != nil {
		return err
	}

	a.mu.Lock()
	old := a.pipeline
	a.config = cfg
	a.pipeline = &runner{p: p}
	a.mu.Unlock()

	a.log.Info("Configuration reloaded")
	a.retiring.Add(1)
	go func() {
		defer a.retiring.Done()
		if err := old.close(); err != nil {
			a.log.WithError(err).Warn("Failed to close previous pipeline")
		}
	}()
	return nil
}

// Close waits for running analyses and releases every pipeline.
func (a *App) Close() error {
	err := a.getSnapshot().pipeline.close()
	a.retiring.Wait()
	return err
}
