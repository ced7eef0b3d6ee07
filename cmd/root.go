// Package cmd provides the command-line interface for the organizations directory.
package cmd

import (
	"fmt"
	"os"

	"orgdir/bootstrap"
	"orgdir/config"
	"orgdir/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	noColor bool
	quiet   bool
)

// NewRootCommand builds the orgdir CLI with its maintenance subcommands
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "orgdir",
		Short: "Organizations directory service",
		Long: `Organizations directory service and maintenance commands.

Run without a subcommand to start the API server. The migrate, seed and
bootstrap subcommands cover schema management, initial data loading and
ordered startup of an arbitrary application command.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newBootstrapCmd())

	return rootCmd
}

// initMaintenance loads config and opens the database for a maintenance
// command. The returned cleanup closes the database.
func initMaintenance() (*config.Config, *storage.DB, *zap.SugaredLogger, func(), error) {
	_, sugar, err := bootstrap.InitLogger()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if quiet {
		sugar = zap.NewNop().Sugar()
	}

	cfg, err := bootstrap.InitConfig(sugar)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if cfg.Database.Driver == "sqlite" {
		if err := bootstrap.EnsureDataDirectories(cfg, sugar); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	db, err := bootstrap.InitStorage(cfg, sugar)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close database: %v\n", err)
		}
	}
	return cfg, db, sugar, cleanup, nil
}
