package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"BudgetCast/pkg/config"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	storeType  string
	sqlitePath string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "budgetctl",
		Short: "Inspect spending forecasts without running the API",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "config/config.yaml", "config file path")
	flags.StringVar(&opts.storeType, "store", "", "override store.type (memory, sqlite, clickhouse)")
	flags.StringVar(&opts.sqlitePath, "sqlite", "", "override store.sqlite_path")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	rootCmd.AddCommand(
		newSummaryCommand(opts),
		newForecastCommand(opts),
		newStatsCommand(opts),
		newImportanceCommand(opts),
		newTrainCommand(opts),
		newImportCommand(opts),
		newMigrateCommand(opts),
	)
	return rootCmd
}

// load reads the config file, falling back to defaults when it does not exist.
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(o.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if o.storeType != "" {
		cfg.Store.Type = o.storeType
	}
	if o.sqlitePath != "" {
		cfg.Store.SQLitePath = o.sqlitePath
	}
	cfg.Log.Level = o.logLevel
	cfg.Log.Format = "console"
	cfg.Log.Output = "stderr"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
