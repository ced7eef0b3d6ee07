package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// Environment variables overriding the preparation steps. Each holds a full
// command line split on whitespace.
const (
	EnvMigrateCmd = "ORGDIR_MIGRATE_CMD"
	EnvInitCmd    = "ORGDIR_INIT_CMD"
)

// StepError reports a failed sequencer step together with the exit code the
// step's process returned.
type StepError struct {
	Step     string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed with exit code %d: %v", e.Step, e.ExitCode, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the exit code the process should terminate with for the
// given error. Step failures propagate the child's code; anything else maps
// to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.ExitCode
	}
	return 1
}

// Sequencer runs the preparation steps in order and then hands the process
// over to the application command. The chain is strictly migrate, then init,
// then launch; a failing step stops the chain and its exit code becomes the
// sequencer's.
type Sequencer struct {
	MigrateArgv []string
	InitArgv    []string
	LaunchArgv  []string

	Logger *zap.SugaredLogger

	// Stdout/Stderr default to the process streams
	Stdout io.Writer
	Stderr io.Writer
}

// NewSequencer builds a sequencer for the given launch command. The migrate
// and init steps default to this binary's own subcommands and can be replaced
// via ORGDIR_MIGRATE_CMD and ORGDIR_INIT_CMD.
func NewSequencer(launchArgv []string, logger *zap.SugaredLogger) (*Sequencer, error) {
	if len(launchArgv) == 0 {
		return nil, fmt.Errorf("no application command given")
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve own executable: %w", err)
	}

	return &Sequencer{
		MigrateArgv: argvFromEnv(EnvMigrateCmd, []string{self, "migrate"}),
		InitArgv:    argvFromEnv(EnvInitCmd, []string{self, "seed"}),
		LaunchArgv:  launchArgv,
		Logger:      logger,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}, nil
}

// argvFromEnv splits an environment override into an argv, falling back to
// the default when the variable is unset or blank
func argvFromEnv(name string, fallback []string) []string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return strings.Fields(v)
	}
	return fallback
}

// Prepare runs the migrate and init steps in order. The first failure stops
// the chain. SIGINT/SIGTERM kills the step that is currently running and
// aborts the sequence.
func (s *Sequencer) Prepare(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.runStep(ctx, "migrate", s.MigrateArgv); err != nil {
		return err
	}
	return s.runStep(ctx, "init", s.InitArgv)
}

// runStep executes one preparation step as a child process, streaming its
// output through
func (s *Sequencer) runStep(ctx context.Context, name string, argv []string) error {
	if len(argv) == 0 {
		return &StepError{Step: name, ExitCode: 1, Err: fmt.Errorf("empty command")}
	}

	s.Logger.Infow("Running bootstrap step", "step", name, "command", strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = s.stdout()
	cmd.Stderr = s.stderr()
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &StepError{Step: name, ExitCode: childExitCode(exitErr), Err: err}
		}
		// Command could not be started at all
		return &StepError{Step: name, ExitCode: 1, Err: err}
	}

	s.Logger.Infow("Bootstrap step completed", "step", name)
	return nil
}

// Launch hands the process over to the application command. On platforms
// that support it the sequencer image is replaced outright; otherwise the
// command runs as a supervised child with signals forwarded.
func (s *Sequencer) Launch(ctx context.Context) error {
	s.Logger.Infow("Launching application", "command", strings.Join(s.LaunchArgv, " "))

	if err := replaceProcess(s.LaunchArgv); err != nil {
		s.Logger.Debugw("Process replacement unavailable, supervising child", "error", err)
	}
	return s.Supervise(ctx)
}

// Supervise runs the application command as a child process, forwarding
// SIGINT and SIGTERM, and reports the child's exit code as a StepError when
// it terminates non-zero.
func (s *Sequencer) Supervise(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.LaunchArgv[0], s.LaunchArgv[1:]...)
	cmd.Stdout = s.stdout()
	cmd.Stderr = s.stderr()
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return &StepError{Step: "launch", ExitCode: 1, Err: err}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case sig := <-signals:
			// Forward and keep waiting; the child decides when to exit
			if cmd.Process != nil {
				_ = cmd.Process.Signal(sig)
			}
		case err := <-done:
			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					return &StepError{Step: "launch", ExitCode: childExitCode(exitErr), Err: err}
				}
				return &StepError{Step: "launch", ExitCode: 1, Err: err}
			}
			return nil
		}
	}
}

// childExitCode maps a child's termination to a shell-style exit code.
// Children killed by a signal report 128 plus the signal number rather than
// the -1 that ExitCode() returns for them.
func childExitCode(err *exec.ExitError) int {
	if code := err.ExitCode(); code >= 0 {
		return code
	}
	if status, ok := err.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return 1
}

func (s *Sequencer) stdout() io.Writer {
	if s.Stdout != nil {
		return s.Stdout
	}
	return os.Stdout
}

func (s *Sequencer) stderr() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return os.Stderr
}
