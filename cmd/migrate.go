package cmd

import (
	"fmt"
	"time"

	"orgdir/storage"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// newMigrateCmd creates the 'migrate' subcommand
func newMigrateCmd() *cobra.Command {
	var (
		showStatus      bool
		rollbackVersion string
		rollbackReason  string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply all pending schema migrations to the configured database.

With --status the command only reports the migration state. With --rollback
a single previously applied migration is rolled back; --reason is recorded
alongside the rollback.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, sugar, cleanup, err := initMaintenance()
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := storage.NewMigrationRunner(db, sugar)
			if err != nil {
				return fmt.Errorf("failed to create migration runner: %w", err)
			}

			if showStatus {
				return printMigrationStatus(runner)
			}

			if rollbackVersion != "" {
				if rollbackReason == "" {
					return fmt.Errorf("--reason is required when rolling back")
				}
				if err := runner.RollbackMigration(rollbackVersion, rollbackReason); err != nil {
					errorColor.Printf("✗ Rollback of %s failed\n", rollbackVersion)
					return err
				}
				successColor.Printf("✓ Migration %s rolled back\n", rollbackVersion)
				return nil
			}

			var s *spinner.Spinner
			if !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = " Applying migrations..."
				s.Start()
			}

			err = runner.RunMigrations()
			if s != nil {
				s.Stop()
			}
			if err != nil {
				errorColor.Println("✗ Migration failed")
				return err
			}

			successColor.Println("✓ Database schema is up to date")
			return nil
		},
	}

	cmd.Flags().BoolVar(&showStatus, "status", false, "Show migration status without applying anything")
	cmd.Flags().StringVar(&rollbackVersion, "rollback", "", "Roll back the migration with the given version")
	cmd.Flags().StringVar(&rollbackReason, "reason", "", "Reason recorded with a rollback")

	return cmd
}

func printMigrationStatus(runner *storage.MigrationRunner) error {
	status, err := runner.GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	headerColor.Println("Migration status")
	fmt.Printf("  registered: %v\n", status["total_registered"])
	fmt.Printf("  applied:    %v\n", status["applied_count"])
	fmt.Printf("  pending:    %v\n", status["pending_count"])
	fmt.Printf("  latest:     %v\n", status["latest_applied"])

	if issues, ok := status["integrity_issues"].([]string); ok && len(issues) > 0 {
		warningColor.Println("Integrity issues:")
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
	}
	return nil
}
