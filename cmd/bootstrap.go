package cmd

import (
	"context"
	"fmt"
	"os"

	"orgdir/bootstrap"

	"github.com/spf13/cobra"
)

// newBootstrapCmd creates the 'bootstrap' subcommand
func newBootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap -- <command> [args...]",
		Short: "Run migrations and seeding, then launch a command",
		Long: `Run the startup sequence and hand off to another process.

The sequence is strict: first migrations, then idempotent seeding, then the
launch command. If either preparation step fails the launch command never
runs and the step's exit code becomes this process's exit code.

The migration and seeding steps default to this binary's own 'migrate' and
'seed' subcommands. Override them with ORGDIR_MIGRATE_CMD and
ORGDIR_INIT_CMD (each is split on whitespace into a command line).

Everything after the subcommand name (or after --) is passed to the launch
command verbatim and is never interpreted as flags of this program.`,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && args[0] == "--" {
				args = args[1:]
			}
			if len(args) == 0 {
				return fmt.Errorf("bootstrap requires a launch command")
			}
			if args[0] == "-h" || args[0] == "--help" {
				return cmd.Help()
			}

			_, sugar, err := bootstrap.InitLogger()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			seq, err := bootstrap.NewSequencer(args, sugar)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if err := seq.Prepare(ctx); err != nil {
				errorColor.Fprintf(os.Stderr, "✗ %v\n", err)
				os.Exit(bootstrap.ExitCode(err))
			}

			if err := seq.Launch(ctx); err != nil {
				os.Exit(bootstrap.ExitCode(err))
			}
			return nil
		},
	}

	return cmd
}
