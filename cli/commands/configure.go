package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/venice-ai/venice-go/core"
)

var configureGlobal bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively store your Venice API key",
	Long:  `Prompt for an API key without echoing it and store it in a dotenv file.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigure,
}

func init() {
	configureCmd.Flags().BoolVar(&configureGlobal, "global", false, "write to the global config directory")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	fmt.Fprint(cmd.OutOrStdout(), "Enter your Venice API key: ")

	apiKey, err := readKey(cmd)
	if err != nil {
		return exitWith(ExitUsage, "failed to read key: %v", err)
	}
	if apiKey == "" {
		return exitWith(ExitUsage, "API key cannot be empty")
	}

	scope := core.ScopeLocal
	if configureGlobal {
		scope = core.ScopeGlobal
	}
	if err := core.WriteCredential(scope, apiKey); err != nil {
		return exitWith(ExitUnreachablePath, "cannot store API key: %v", err)
	}

	path, _ := core.CredentialPath(scope)
	fmt.Fprintf(cmd.OutOrStdout(), "API key stored in %s\n", path)
	return nil
}

// readKey reads without echo on a terminal, falling back to line input for
// piped stdin.
func readKey(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(keyBytes)), nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
