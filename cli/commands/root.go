// Package commands implements the venice CLI: credential management bound
// onto the core package's dotenv surface.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitOK                = 0
	ExitUsage             = 1
	ExitMissingCredential = 2
	ExitUnreachablePath   = 3
)

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitWith(code int, format string, args ...any) error {
	return &exitError{code: code, msg: fmt.Sprintf(format, args...)}
}

var rootCmd = &cobra.Command{
	Use:           "venice",
	Short:         "Venice AI credential and configuration tool",
	Long:          `Manage Venice API credentials and inspect the resolved SDK configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code: 0 on success,
// 1 on invalid usage, 2 on a missing credential, 3 on an unreachable
// config path.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return ExitUsage
	}
	return ExitOK
}
