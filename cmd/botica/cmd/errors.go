package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/corey/botica/internal/adapters/socket"
	"github.com/corey/botica/internal/domain/catalog"
	"github.com/fatih/color"
)

// Exit codes.
const (
	exitError  = 1
	exitConfig = 2
)

// settingsError marks invalid configuration (file, env or flags).
type settingsError struct{ err error }

func (e *settingsError) Error() string { return "config: " + e.err.Error() }
func (e *settingsError) Unwrap() error { return e.err }

// ExitCode maps an error to the process exit status: configuration and
// catalog problems exit 2, everything else 1.
func ExitCode(err error) int {
	var se *settingsError
	if errors.As(err, &se) || catalog.IsConfigError(err) {
		return exitConfig
	}
	return exitError
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
}

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock returns guidance when a store open fails on lock
// contention, distinguishing a live daemon from a stale socket.
func diagnoseDBLock(dataDir string) string {
	sockPath := socket.SocketPath(dataDir)
	client := socket.NewClient(sockPath)

	if client.Ping() {
		return "database is locked by the running daemon\n" +
			"  → stop it first:  botica daemon stop\n" +
			"  → or run the command while it is up; find and history go through it"
	}

	if _, err := os.Stat(sockPath); err == nil {
		return fmt.Sprintf("database is locked, daemon socket exists but is not responding\n"+
			"  → a previous daemon may have crashed\n"+
			"  → find the process:  ps aux | grep 'botica daemon'\n"+
			"  → clean up socket:   rm %s", sockPath)
	}

	return "database is locked by another process\n" +
		"  → find the process:  ps aux | grep botica"
}
