package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"orgdir/config"

	"go.uber.org/zap"
)

// EnsureDataDirectories creates the data directory tree if it doesn't exist
// and verifies it is writable.
func EnsureDataDirectories(cfg *config.Config, sugar *zap.SugaredLogger) error {
	dataDir := cfg.GetDataDir()

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	// Verify writability up front so failures surface before migration
	probe := filepath.Join(dataDir, ".write_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("data directory %s is not writable: %w", dataDir, err)
	}
	_ = os.Remove(probe)

	sugar.Debugw("Data directory ready", "path", dataDir)
	return nil
}

// ClassifyDatabaseError provides specific error messages based on the type of
// database connection failure.
func ClassifyDatabaseError(err error, driver, target string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Connection to %s at %s timed out.\n"+
			"  Possible causes:\n"+
			"  - The database is starting up (wait and retry)\n"+
			"  - Network latency or firewall blocking the connection\n"+
			"  Remediation:\n"+
			"  - Verify the database is running and reachable: nc -zv %s", driver, target, target)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			(opErr.Err != nil && containsIgnoreCase(opErr.Err.Error(), "connection refused")) {
			return fmt.Sprintf("Connection refused by %s at %s.\n"+
				"  This usually means the database is not running.\n"+
				"  Remediation:\n"+
				"  - Start the database, e.g.: docker compose up -d postgres\n"+
				"  - Verify the address in config.yaml or ORGDIR_DATABASE_HOST", driver, target)
		}
	}

	if containsIgnoreCase(errStr, "no such host") || containsIgnoreCase(errStr, "lookup") {
		return fmt.Sprintf("Cannot resolve hostname in %s address %s.\n"+
			"  Remediation:\n"+
			"  - Verify the hostname is correct\n"+
			"  - Try using an IP address (127.0.0.1) instead of a hostname", driver, target)
	}

	if containsIgnoreCase(errStr, "authentication") || containsIgnoreCase(errStr, "password") {
		return fmt.Sprintf("Authentication failed for %s at %s.\n"+
			"  Remediation:\n"+
			"  - Verify ORGDIR_DATABASE_USER and ORGDIR_DATABASE_PASSWORD\n"+
			"  - Check the database.user and database.password config keys", driver, target)
	}

	if containsIgnoreCase(errStr, "unable to open") || containsIgnoreCase(errStr, "permission denied") {
		absPath, _ := filepath.Abs(target)
		return fmt.Sprintf("Cannot open %s database file at %s.\n"+
			"  Remediation:\n"+
			"  - Check permissions on %s\n"+
			"  - Verify ORGDIR_DATA_DIR points to a writable location", driver, absPath, filepath.Dir(absPath))
	}

	return fmt.Sprintf("Failed to connect to %s at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure the database is running and accessible\n"+
		"  - Check the database section of config.yaml", driver, target, err)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
