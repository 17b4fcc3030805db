// ABOUTME: Root Cobra command for glucose CLI.
// ABOUTME: Loads config and opens storage, logger and service via PersistentPre/PostRunE.
package main

import (
	"context"
	"fmt"

	"github.com/harperreed/glucose/internal/clinical"
	"github.com/harperreed/glucose/internal/config"
	"github.com/harperreed/glucose/internal/logger"
	"github.com/harperreed/glucose/internal/storage"
	"github.com/spf13/cobra"
)

var (
	dataDirFlag string

	appCfg      *config.Config
	appLog      *logger.Logger
	repo        *storage.DB
	svc         *clinical.Service
	closeNotify func() error
)

var rootCmd = &cobra.Command{
	Use:   "glucose",
	Short: "Blood glucose triage, weekly alerts and trigger mining",
	Long: `Glucose records blood glucose readings, categorizes them against versioned
thresholds, raises at most one alert per patient per week, and finds foods
and activities that keep showing up around abnormal readings.

CATEGORIES:

  normal       inside the normal range (a patient override may replace it)
  borderline   inside the borderline range
  abnormal     inside the abnormal range

  Ranges are closed and checked most severe first. A value that falls
  between ranges is stored as borderline and logged.

QUICK START:

  $ glucose thresholds set 70-140 141-180 181-600   # Configure thresholds
  $ glucose add alice 152 --food "pizza, soda"       # Log a reading
  $ glucose add alice 8.4 --unit mmol/L              # mmol/L works too
  $ glucose list alice                               # See recent readings
  $ glucose show 3f2a9c1e                            # One reading by ID prefix
  $ glucose suggest alice                            # Find recurring triggers

ALERTS:

  More than 3 abnormal readings in the trailing 7 days raises an alert
  for the patient and their assigned specialist, once per week.

  $ glucose assign alice dr-ada                 # Assign a specialist
  $ glucose contact dr-ada ada@clinic.example   # Where to email them
  $ glucose alerts list alice                   # Alerts raised so far
  $ glucose alerts evaluate --all               # Re-check every patient

MCP INTEGRATION:

  Run 'glucose mcp' to start the Model Context Protocol server.

  {
    "mcpServers": {
      "glucose": { "command": "glucose", "args": ["mcp"] }
    }
  }

DATA STORAGE:

  Readings are stored in SQLite at ~/.local/share/glucose/glucose.db.
  Settings live in ~/.config/glucose/config.json and GLUCOSE_* variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return setup(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

func setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	appCfg = cfg

	appLog, err = logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	repo, err = cfg.OpenStorage()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	opts, err := cfg.ServiceOptions()
	if err != nil {
		_ = teardown()
		return err
	}

	dispatchers, closer, err := cfg.Dispatchers(ctx, repo, appLog)
	if err != nil {
		_ = teardown()
		return fmt.Errorf("failed to configure notifications: %w", err)
	}
	closeNotify = closer

	svc = clinical.NewService(repo, dispatchers, appLog, opts)
	return nil
}

func teardown() error {
	var firstErr error
	if closeNotify != nil {
		firstErr = closeNotify()
		closeNotify = nil
	}
	if repo != nil {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		repo = nil
	}
	if appLog != nil {
		appLog.Sync()
	}
	return firstErr
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default: ~/.local/share/glucose)")
}
