// Package main is the entry point for the organizations directory service.
package main

import (
	"context"
	"fmt"
	"os"

	"orgdir/bootstrap"
	"orgdir/cmd"
)

// maintenanceCommands are subcommands dispatched to the CLI instead of
// starting the API server.
var maintenanceCommands = map[string]bool{
	"migrate":   true,
	"seed":      true,
	"bootstrap": true,
}

// run initializes and starts the directory service.
func run() error {
	ctx := context.Background()

	// Create and initialize application
	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	// Start all services
	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	app.WaitForShutdown()

	// Graceful shutdown
	app.Shutdown()

	return nil
}

// main is the entry point.
func main() {
	// Check if running as CLI command
	if len(os.Args) > 1 && maintenanceCommands[os.Args[1]] {
		rootCmd := cmd.NewRootCommand()
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Otherwise run as normal server
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
