package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/codeforge-api/internal/cache"
	"github.com/phrazzld/codeforge-api/internal/config"
	"github.com/phrazzld/codeforge-api/internal/generation"
	"github.com/phrazzld/codeforge-api/internal/orchestrator"
	"github.com/phrazzld/codeforge-api/internal/platform/gemini"
	"github.com/phrazzld/codeforge-api/internal/platform/memstore"
	"github.com/phrazzld/codeforge-api/internal/platform/postgres"
	"github.com/phrazzld/codeforge-api/internal/ratelimit"
	"github.com/phrazzld/codeforge-api/internal/retry"
	"github.com/phrazzld/codeforge-api/internal/service"
	"github.com/phrazzld/codeforge-api/internal/store"
	"github.com/phrazzld/codeforge-api/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Artifact store drivers
const (
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	registry  *prometheus.Registry
	cache     *cache.ResultCache
	limiter   *ratelimit.Limiter
	artifacts store.ArtifactStore
	taskStore task.TaskStore

	orchestrator *orchestrator.Orchestrator
	taskRunner   *task.TaskRunner
	problems     service.ProblemService

	// shutdown is the context passed to start; it ends synchronous batches
	// when the server stops.
	shutdown context.Context
}

// openApplication connects to the configured store and builds the
// application. A nil generator is replaced by the Gemini client.
func openApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, gen generation.Generator) (*application, error) {
	var db *sql.DB
	if cfg.Database.Driver == driverPostgres {
		var err error
		db, err = postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		logger.Info("database connection established")
	}

	app, err := newApplication(ctx, cfg, logger, db, gen)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return app, nil
}

// newApplication wires every component. db is nil for the memory store.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	gen generation.Generator,
) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var err error
	app.cache, err = cache.New(cache.Config{
		DefaultTTL:    time.Duration(cfg.Cache.DefaultTTLSeconds) * time.Second,
		SweepInterval: time.Duration(cfg.Cache.SweepIntervalSeconds) * time.Second,
		MaxEntries:    cfg.Cache.MaxEntries,
	}, cache.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	app.limiter = ratelimit.New(limiterRules(cfg.RateLimit), ratelimit.WithLogger(logger))

	// Stores
	var backing store.ArtifactStore
	if db != nil {
		backing = postgres.NewPostgresArtifactStore(db, logger)
		app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	} else {
		logger.Warn("using in-memory store, problems are lost on restart")
		backing = memstore.NewArtifactStore(logger)
		app.taskStore = memstore.NewTaskStore()
	}
	app.artifacts = service.NewCachedArtifactStore(backing, app.cache, logger)

	// Generation
	if gen == nil {
		gen, err = gemini.NewGeminiGenerator(ctx, logger.With("component", "llm_generator"), cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
		}
		logger.Info("LLM generator initialized", slog.String("model", cfg.LLM.ModelName))
	}

	orchOpts := []orchestrator.Option{orchestrator.WithMetrics(orchestrator.MustNewMetrics(app.registry))}
	if cfg.LLM.PromptTemplatePath != "" {
		prompts, err := generation.NewPromptBuilder(cfg.LLM.PromptTemplatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt template: %w", err)
		}
		orchOpts = append(orchOpts, orchestrator.WithPromptBuilder(prompts))
	}

	app.orchestrator, err = orchestrator.New(gen, app.artifacts, orchestratorConfig(cfg.Generation), logger, orchOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	// Background jobs
	factory, err := task.NewGenerationTaskFactory(app.orchestrator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation task factory: %w", err)
	}
	runnerCfg := task.DefaultTaskRunnerConfig()
	runnerCfg.WorkerCount = cfg.Task.WorkerCount
	runnerCfg.QueueSize = cfg.Task.QueueSize
	app.taskRunner = task.NewTaskRunner(app.taskStore, runnerCfg, logger)
	app.taskRunner.RegisterFactory(task.TaskTypeGeneration, factory.FromRecord)

	app.problems, err = service.NewProblemService(app.orchestrator, app.artifacts, logger,
		service.WithJobs(app.taskRunner, factory))
	if err != nil {
		return nil, fmt.Errorf("failed to create problem service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

func limiterRules(cfg config.RateLimitConfig) map[ratelimit.Class]ratelimit.Rule {
	return map[ratelimit.Class]ratelimit.Rule{
		ratelimit.ClassAPI:        {Window: cfg.API.Window(), Max: cfg.API.Max},
		ratelimit.ClassChat:       {Window: cfg.Chat.Window(), Max: cfg.Chat.Max},
		ratelimit.ClassGeneration: {Window: cfg.Generation.Window(), Max: cfg.Generation.Max},
	}
}

func orchestratorConfig(cfg config.GenerationConfig) orchestrator.Config {
	delay := retry.Fixed(cfg.RetryDelay())
	if cfg.RetryBackoff == "exponential" {
		delay = retry.Exponential(cfg.RetryDelay())
	}

	return orchestrator.Config{
		BatchSize:         cfg.BatchSize,
		MaxTitles:         cfg.MaxTitles,
		InterRequestDelay: cfg.InterRequestDelay(),
		InterBatchDelay:   2 * cfg.InterRequestDelay(),
		Retry:             retry.New(cfg.MaxAttempts, delay),
	}
}

// start launches the background workers. They stop when ctx is done or
// cleanup is called.
func (app *application) start(ctx context.Context) error {
	app.shutdown = ctx
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	go app.cache.Run(ctx)
	go app.limiter.Run(ctx, time.Duration(app.config.RateLimit.SweepIntervalSeconds)*time.Second)
	return nil
}

// Run starts the background workers and serves HTTP until ctx is done.
func (app *application) Run(ctx context.Context) error {
	if err := app.start(ctx); err != nil {
		app.cleanup()
		return err
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
