package cmd

import (
	"fmt"
	"time"

	"orgdir/bootstrap"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// newSeedCmd creates the 'seed' subcommand
func newSeedCmd() *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load initial directory data",
		Long: `Load the initial dataset into the database.

Seeding is idempotent: rows are keyed by their natural keys (activity name,
building address, organization name) and existing rows are left untouched,
so running this command repeatedly never duplicates data.

By default the built-in demo dataset is loaded. Use --file or the
ORGDIR_SEED_FILE environment variable to load a YAML dataset instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, sugar, cleanup, err := initMaintenance()
			if err != nil {
				return err
			}
			defer cleanup()

			if seedFile != "" {
				cfg.Seed.File = seedFile
			}
			if cfg.Seed.File != "" {
				infoColor.Printf("Using dataset from %s\n", cfg.Seed.File)
			}

			var s *spinner.Spinner
			if !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = " Seeding directory..."
				s.Start()
			}

			result, err := bootstrap.SeedDatabase(db, cfg, sugar)
			if s != nil {
				s.Stop()
			}
			if err != nil {
				errorColor.Println("✗ Seeding failed")
				return err
			}

			if result.Total() == 0 {
				successColor.Println("✓ Directory already seeded, nothing to do")
			} else {
				successColor.Println("✓ Directory seeded")
				fmt.Printf("  activities:     %d\n", result.ActivitiesCreated)
				fmt.Printf("  buildings:      %d\n", result.BuildingsCreated)
				fmt.Printf("  organizations:  %d\n", result.OrganizationsCreated)
				fmt.Printf("  phone numbers:  %d\n", result.PhoneNumbersCreated)
				fmt.Printf("  activity links: %d\n", result.ActivityLinksCreated)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&seedFile, "file", "", "YAML dataset to load instead of the built-in one")

	return cmd
}
