//go:build windows

package bootstrap

import "fmt"

// replaceProcess is unavailable on Windows; the sequencer supervises the
// application as a child process instead.
func replaceProcess(argv []string) error {
	return fmt.Errorf("process replacement not supported on windows")
}
