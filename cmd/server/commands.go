package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/codeforge-api/internal/config"
	"github.com/phrazzld/codeforge-api/internal/platform/logger"
	"github.com/phrazzld/codeforge-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	storeKind  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "codeforge",
		Short:         "Generate and serve LLM-authored coding problems",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a config file (default ./config.yaml if present)")
	root.PersistentFlags().StringVar(&opts.storeKind, "store", "", "artifact store: postgres or memory (overrides database.driver)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newGenerateCmd(opts),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateStatus},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := postgres.MigrateUp
			if len(args) == 1 {
				command = args[0]
			}

			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != driverPostgres {
				return errors.New("migrations require the postgres store")
			}

			db, err := postgres.Open(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return postgres.Migrate(cmd.Context(), db, command, log)
		},
	}
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate TITLE...",
		Short: "Generate problems for the given titles and print the report as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := openApplication(ctx, cfg, log, nil)
			if err != nil {
				return err
			}
			defer app.cleanup()

			return runGenerate(ctx, app, args, cmd.OutOrStdout())
		},
	}
}

// runGenerate runs one batch and writes its report. A batch in which no
// title succeeded is reported and then returned as an error.
func runGenerate(ctx context.Context, app *application, titles []string, out io.Writer) error {
	report, err := app.problems.Generate(ctx, titles)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if report.Completed == 0 {
		return fmt.Errorf("all %d titles failed", report.Total)
	}
	return nil
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, log, err := setup(opts)
	if err != nil {
		return err
	}

	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("store", cfg.Database.Driver))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := openApplication(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

// setup loads configuration, applies flag overrides and installs the
// configured logger as the default.
func setup(opts *rootOptions) (*config.Config, *slog.Logger, error) {
	overrides := map[string]any{}
	if opts.storeKind != "" {
		overrides["database.driver"] = opts.storeKind
	}

	cfg, err := config.LoadFile(opts.configPath, overrides)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}
