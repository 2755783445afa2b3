package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	app "github.com/okian/growthchart/internal/app"
	"github.com/okian/growthchart/internal/config"
	"github.com/okian/growthchart/pkg/logger"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// env is the state shared by every subcommand once the root has run.
type env struct {
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var dataDir, logLevel string

	root := &cobra.Command{
		Use:          "growthchart",
		Short:        "WHO growth percentiles for children's measurements",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			// Logs go to stderr so reports on stdout stay clean.
			if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			e.log = logger.Get()
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				e.log.Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
				_ = logger.SetLevelString("info")
			}
			e.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the WHO reference tables (overrides GROWTH_DATA_DIR)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides GROWTH_LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(e),
		newGrowthCmd(e),
		newDownloadCmd(e),
		newTablesCmd(e),
	)
	return root
}

// service starts a Service over the configured data directory.
func (e *env) service(ctx context.Context) (*app.Service, error) {
	svc := app.New(
		app.WithDataDir(e.cfg.DataDir),
		app.WithStrictTables(e.cfg.StrictTables),
		app.WithLogger(e.log.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}
