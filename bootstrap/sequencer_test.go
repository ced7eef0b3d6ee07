package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeStubScript creates a shell script that appends its name and arguments
// to a shared call log and exits with the given code
func writeStubScript(t *testing.T, dir, name, callLog string, exitCode int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := fmt.Sprintf("#!/bin/sh\necho \"%s $@\" >> %s\nexit %d\n", name, callLog, exitCode)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func readCallLog(t *testing.T, callLog string) string {
	t.Helper()
	data, err := os.ReadFile(callLog)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func newTestSequencer(t *testing.T, migrate, init, launch []string) *Sequencer {
	t.Helper()
	return &Sequencer{
		MigrateArgv: migrate,
		InitArgv:    init,
		LaunchArgv:  launch,
		Logger:      zap.NewNop().Sugar(),
		Stdout:      &bytes.Buffer{},
		Stderr:      &bytes.Buffer{},
	}
}

func TestPrepareRunsStepsInOrder(t *testing.T) {
	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")

	migrate := writeStubScript(t, dir, "migrate.sh", callLog, 0)
	init := writeStubScript(t, dir, "init.sh", callLog, 0)

	seq := newTestSequencer(t, []string{migrate}, []string{init}, []string{"/bin/true"})
	require.NoError(t, seq.Prepare(context.Background()))

	assert.Equal(t, "migrate.sh \ninit.sh \n", readCallLog(t, callLog))
}

func TestPrepareShortCircuitsOnMigrateFailure(t *testing.T) {
	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")

	migrate := writeStubScript(t, dir, "migrate.sh", callLog, 3)
	init := writeStubScript(t, dir, "init.sh", callLog, 0)

	seq := newTestSequencer(t, []string{migrate}, []string{init}, []string{"/bin/true"})
	err := seq.Prepare(context.Background())
	require.Error(t, err)

	// Init never ran
	assert.Equal(t, "migrate.sh \n", readCallLog(t, callLog))

	// The migrate exit code propagates
	assert.Equal(t, 3, ExitCode(err))
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "migrate", stepErr.Step)
}

func TestPrepareShortCircuitsOnInitFailure(t *testing.T) {
	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")

	migrate := writeStubScript(t, dir, "migrate.sh", callLog, 0)
	init := writeStubScript(t, dir, "init.sh", callLog, 7)

	seq := newTestSequencer(t, []string{migrate}, []string{init}, []string{"/bin/true"})
	err := seq.Prepare(context.Background())
	require.Error(t, err)

	assert.Equal(t, "migrate.sh \ninit.sh \n", readCallLog(t, callLog))
	assert.Equal(t, 7, ExitCode(err))
}

func TestPrepareSignalKillsRunningStep(t *testing.T) {
	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")
	pidFile := filepath.Join(dir, "migrate.pid")

	// A migrate step that records its pid and then blocks
	migrate := filepath.Join(dir, "migrate.sh")
	script := fmt.Sprintf("#!/bin/sh\necho $$ > %s\nexec sleep 30\n", pidFile)
	require.NoError(t, os.WriteFile(migrate, []byte(script), 0o755))

	init := writeStubScript(t, dir, "init.sh", callLog, 0)
	seq := newTestSequencer(t, []string{migrate}, []string{init}, []string{"/bin/true"})

	done := make(chan error, 1)
	go func() { done <- seq.Prepare(context.Background()) }()

	var pid int
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(pidFile)
		if err != nil {
			return false
		}
		pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
		return err == nil && pid > 0
	}, 5*time.Second, 10*time.Millisecond, "migrate step never started")

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("prepare kept running after SIGTERM")
	}
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "migrate", stepErr.Step)

	// The step child is gone, not orphaned
	assert.Eventually(t, func() bool {
		return syscall.Kill(pid, 0) != nil
	}, 5*time.Second, 10*time.Millisecond, "migrate child survived the abort")

	// Init never ran
	assert.Equal(t, "", readCallLog(t, callLog))
}

func TestSuperviseReportsSignalDeathExitCode(t *testing.T) {
	dir := t.TempDir()

	// A child that dies from SIGTERM rather than exiting
	app := filepath.Join(dir, "app.sh")
	require.NoError(t, os.WriteFile(app, []byte("#!/bin/sh\nkill -TERM $$\n"), 0o755))

	seq := newTestSequencer(t, nil, nil, []string{app})
	err := seq.Supervise(context.Background())
	require.Error(t, err)
	assert.Equal(t, 128+int(syscall.SIGTERM), ExitCode(err))
}

func TestPrepareFailsOnMissingCommand(t *testing.T) {
	seq := newTestSequencer(t,
		[]string{"/nonexistent/migrate-command"},
		[]string{"/bin/true"},
		[]string{"/bin/true"},
	)
	err := seq.Prepare(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
}

func TestLaunchArgvPassedThroughVerbatim(t *testing.T) {
	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")

	app := writeStubScript(t, dir, "app.sh", callLog, 0)

	// Flag-like arguments after the command must not be interpreted
	seq := newTestSequencer(t, nil, nil, []string{app, "--port", "9000", "-v"})
	require.NoError(t, seq.Supervise(context.Background()))

	assert.Equal(t, "app.sh --port 9000 -v\n", readCallLog(t, callLog))
}

func TestSuperviseReportsChildExitCode(t *testing.T) {
	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")

	app := writeStubScript(t, dir, "app.sh", callLog, 42)

	seq := newTestSequencer(t, nil, nil, []string{app})
	err := seq.Supervise(context.Background())
	require.Error(t, err)
	assert.Equal(t, 42, ExitCode(err))
}

func TestFullChainWithEcho(t *testing.T) {
	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")

	migrate := writeStubScript(t, dir, "migrate.sh", callLog, 0)
	init := writeStubScript(t, dir, "init.sh", callLog, 0)

	var stdout bytes.Buffer
	seq := newTestSequencer(t, []string{migrate}, []string{init}, []string{"echo", "hello"})
	seq.Stdout = &stdout

	ctx := context.Background()
	require.NoError(t, seq.Prepare(ctx))
	require.NoError(t, seq.Supervise(ctx))

	assert.Equal(t, "hello\n", stdout.String())
	assert.Equal(t, "migrate.sh \ninit.sh \n", readCallLog(t, callLog))
}

func TestArgvFromEnv(t *testing.T) {
	t.Setenv(EnvMigrateCmd, "  /usr/local/bin/migrate --fast  ")
	assert.Equal(t, []string{"/usr/local/bin/migrate", "--fast"}, argvFromEnv(EnvMigrateCmd, nil))

	t.Setenv(EnvMigrateCmd, "")
	assert.Equal(t, []string{"self", "migrate"}, argvFromEnv(EnvMigrateCmd, []string{"self", "migrate"}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 5, ExitCode(&StepError{Step: "migrate", ExitCode: 5}))
	assert.Equal(t, 1, ExitCode(fmt.Errorf("plain error")))
}

func TestNewSequencerRequiresLaunchCommand(t *testing.T) {
	_, err := NewSequencer(nil, zap.NewNop().Sugar())
	assert.Error(t, err)
}
