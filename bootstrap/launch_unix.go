//go:build unix

package bootstrap

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// replaceProcess swaps the current process image for the given command. On
// success it never returns.
func replaceProcess(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty launch command")
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("launch command not found: %w", err)
	}

	return syscall.Exec(path, argv, os.Environ())
}
