package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/generation"
	"github.com/phrazzld/codeforge-api/internal/platform/logger"
	"github.com/phrazzld/codeforge-api/internal/redact"
	"github.com/phrazzld/codeforge-api/internal/retry"
	"github.com/phrazzld/codeforge-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// emptyTitleLabel stands in for a blank title in ledger entries.
const emptyTitleLabel = "<empty title>"

// Config controls batching, pacing and retry.
type Config struct {
	// BatchSize is the number of titles processed concurrently.
	BatchSize int
	// MaxTitles bounds the number of titles accepted by one Generate call.
	MaxTitles int
	// MaxTitleLength is the longest accepted title, in characters.
	MaxTitleLength int
	// InterRequestDelay is waited by every title of a batch except the first
	// before it calls the generator.
	InterRequestDelay time.Duration
	// InterBatchDelay is waited between batches. Zero means twice
	// InterRequestDelay.
	InterBatchDelay time.Duration
	// Retry wraps each generator call.
	Retry retry.Policy
}

// DefaultConfig returns the reference pacing: batches of 3, one second
// between requests, two between batches, three attempts one second apart.
func DefaultConfig() Config {
	return Config{
		BatchSize:         3,
		MaxTitles:         20,
		MaxTitleLength:    domain.MaxTitleLength,
		InterRequestDelay: time.Second,
		InterBatchDelay:   2 * time.Second,
		Retry:             retry.New(3, retry.Fixed(time.Second)),
	}
}

func (c Config) withDefaults() (Config, error) {
	if c.BatchSize < 0 || c.MaxTitles < 0 || c.MaxTitleLength < 0 ||
		c.InterRequestDelay < 0 || c.InterBatchDelay < 0 || c.Retry.Attempts < 0 {
		return c, fmt.Errorf("%w: negative setting in %+v", ErrInvalidConfig, c)
	}

	def := DefaultConfig()
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MaxTitles == 0 {
		c.MaxTitles = def.MaxTitles
	}
	if c.MaxTitleLength == 0 {
		c.MaxTitleLength = def.MaxTitleLength
	}
	if c.InterBatchDelay == 0 {
		c.InterBatchDelay = 2 * c.InterRequestDelay
	}
	if c.Retry.Attempts == 0 {
		c.Retry = def.Retry
	}
	return c, nil
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records activity in m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithPromptBuilder replaces the embedded prompt template.
func WithPromptBuilder(b *generation.PromptBuilder) Option {
	return func(o *Orchestrator) { o.prompts = b }
}

// Orchestrator generates and persists artifacts for batches of titles.
type Orchestrator struct {
	generator generation.Generator
	store     store.ArtifactWriter
	prompts   *generation.PromptBuilder
	cfg       Config
	logger    *slog.Logger
	metrics   *Metrics
}

// New creates an Orchestrator. Zero Config fields take their DefaultConfig
// values. If logger is nil, a default logger will be used.
func New(
	gen generation.Generator,
	artifacts store.ArtifactWriter,
	cfg Config,
	log *slog.Logger,
	opts ...Option,
) (*Orchestrator, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: generator cannot be nil", ErrInvalidConfig)
	}
	if artifacts == nil {
		return nil, fmt.Errorf("%w: artifact store cannot be nil", ErrInvalidConfig)
	}

	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}

	o := &Orchestrator{
		generator: gen,
		store:     artifacts,
		cfg:       cfg,
		logger:    log.With(slog.String("component", "orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Generate processes titles and returns the ledger of outcomes. The only
// error it returns is a *ValidationError for an empty or oversized batch,
// in which case nothing was attempted.
//
// Cancelling ctx does not interrupt a generator call already in flight, but
// titles still waiting on a delay are recorded as failed with the context
// error.
func (o *Orchestrator) Generate(ctx context.Context, titles []string) (Ledger, error) {
	if err := o.ValidateBatch(titles); err != nil {
		return Ledger{}, err
	}

	log := logger.FromContextOrDefault(ctx, o.logger)
	rec := newRecorder(len(titles))
	started := time.Now()

	log.Info("generation started",
		slog.Int("titles", len(titles)),
		slog.Int("batch_size", o.cfg.BatchSize))

	for start := 0; start < len(titles); start += o.cfg.BatchSize {
		if start > 0 {
			if err := sleep(ctx, o.cfg.InterBatchDelay); err != nil {
				for _, title := range titles[start:] {
					o.fail(rec, label(title), fmt.Errorf("not attempted: %w", err))
				}
				log.Warn("generation interrupted between batches",
					slog.Int("skipped", len(titles)-start),
					slog.String("error", err.Error()))
				break
			}
		}

		end := min(start+o.cfg.BatchSize, len(titles))
		o.runBatch(ctx, start/o.cfg.BatchSize, titles[start:end], rec)
	}

	ledger := rec.snapshot()
	log.Info("generation finished",
		slog.String("status", string(ledger.Status())),
		slog.Int("completed", ledger.Completed),
		slog.Int("failed", ledger.Failed),
		slog.Duration("elapsed", time.Since(started)))
	return ledger, nil
}

// ValidateBatch reports whether Generate would accept titles. Individual
// titles are not checked here; an unusable title only fails itself.
func (o *Orchestrator) ValidateBatch(titles []string) error {
	if len(titles) == 0 {
		return &ValidationError{Field: "titles", Message: "at least one title is required"}
	}
	if len(titles) > o.cfg.MaxTitles {
		return &ValidationError{
			Field:   "titles",
			Message: fmt.Sprintf("at most %d titles are allowed, got %d", o.cfg.MaxTitles, len(titles)),
		}
	}
	return nil
}

// runBatch processes one batch concurrently and returns once every title in
// it has finished.
func (o *Orchestrator) runBatch(ctx context.Context, index int, batch []string, rec *recorder) {
	log := logger.FromContextOrDefault(ctx, o.logger)
	started := time.Now()

	var g errgroup.Group
	for position, title := range batch {
		g.Go(func() error {
			o.process(ctx, position, title, rec)
			return nil
		})
	}
	_ = g.Wait()

	o.metrics.observeBatch(time.Since(started))
	log.Debug("batch finished",
		slog.Int("batch", index),
		slog.Int("size", len(batch)),
		slog.Duration("elapsed", time.Since(started)))
}

// process runs one title through generation, parsing and persistence.
func (o *Orchestrator) process(ctx context.Context, position int, raw string, rec *recorder) {
	title, err := o.sanitize(raw)
	if err != nil {
		o.fail(rec, label(raw), err)
		return
	}

	log := logger.FromContextOrDefault(ctx, o.logger).With(slog.String("title", title))

	if position > 0 {
		if err := sleep(ctx, o.cfg.InterRequestDelay); err != nil {
			o.fail(rec, title, fmt.Errorf("not attempted: %w", err))
			return
		}
	}

	prompt, err := o.buildPrompt(title)
	if err != nil {
		o.fail(rec, title, err)
		return
	}

	text, err := o.generate(ctx, prompt)
	if err != nil {
		log.Warn("generation failed", slog.String("error", redact.Error(err)))
		o.fail(rec, title, err)
		return
	}

	parsed, err := generation.ParseArtifact(text)
	if err != nil {
		log.Warn("unusable generation response", slog.String("error", err.Error()))
		o.fail(rec, title, err)
		return
	}

	artifact, err := domain.NewArtifact(parsed.Input(title))
	if err != nil {
		log.Warn("generated artifact failed validation", slog.String("error", err.Error()))
		o.fail(rec, title, err)
		return
	}

	if err := o.store.Save(ctx, artifact); err != nil {
		log.Error("failed to save artifact", slog.String("error", redact.Error(err)))
		o.fail(rec, title, err)
		return
	}

	log.Info("artifact generated", slog.String("artifact_id", artifact.ID.String()))
	o.metrics.incTitle(outcomeCompleted)
	rec.succeed()
}

func (o *Orchestrator) sanitize(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", errors.New("Title cannot be empty") //nolint:staticcheck // surfaced verbatim in ledgers
	}
	if utf8.RuneCountInString(title) > o.cfg.MaxTitleLength {
		return "", fmt.Errorf("Title exceeds %d characters", o.cfg.MaxTitleLength) //nolint:staticcheck // surfaced verbatim in ledgers
	}
	return title, nil
}

func (o *Orchestrator) buildPrompt(title string) (string, error) {
	if o.prompts != nil {
		return o.prompts.Build(title)
	}
	return generation.BuildPrompt(title)
}

// generate calls the generator through the retry policy. Empty text counts
// as a failed attempt.
func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, error) {
	var (
		text     string
		lastErr  error
		attempts int
	)

	err := o.cfg.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		out, err := o.generator.Generate(ctx, prompt)
		switch {
		case err != nil:
			o.metrics.incAttempt(attemptError)
			lastErr = err
		case strings.TrimSpace(out) == "":
			o.metrics.incAttempt(attemptEmpty)
			lastErr = generation.ErrEmptyResponse
		default:
			o.metrics.incAttempt(attemptSuccess)
			text = out
			return nil
		}

		logger.FromContextOrDefault(ctx, o.logger).Debug("generation attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", redact.Error(lastErr)))
		return lastErr
	})
	if err == nil {
		return text, nil
	}

	if errors.Is(err, retry.ErrExhausted) {
		return "", fmt.Errorf("generation failed after %d attempts: %w", attempts, lastErr)
	}
	return "", fmt.Errorf("generation failed: %w", err)
}

func (o *Orchestrator) fail(rec *recorder, label string, err error) {
	o.metrics.incTitle(outcomeFailed)
	rec.fail(label, redact.String(err.Error()))
}

// label names a title in ledger entries.
func label(raw string) string {
	if title := strings.TrimSpace(raw); title != "" {
		return title
	}
	return emptyTitleLabel
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
