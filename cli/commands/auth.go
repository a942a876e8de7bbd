package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/venice-ai/venice-go/core"
)

var authGlobal bool

var authCmd = &cobra.Command{
	Use:   "auth <api-key>",
	Short: "Store your Venice API key",
	Long: `Store your Venice API key in a dotenv file.

By default the key is written to .env in the current directory. With
--global it is written to the platform config directory
($XDG_CONFIG_HOME/venice/.env or %APPDATA%\venice\.env), which the SDK
reads when VENICE_USE_GLOBAL_CONFIG is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuth,
}

func init() {
	authCmd.Flags().BoolVar(&authGlobal, "global", false, "write to the global config directory")
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	apiKey := args[0]
	if apiKey == "" {
		return exitWith(ExitUsage, "API key cannot be empty")
	}

	scope := core.ScopeLocal
	if authGlobal {
		scope = core.ScopeGlobal
	}

	if err := core.WriteCredential(scope, apiKey); err != nil {
		return exitWith(ExitUnreachablePath, "cannot store API key: %v", err)
	}

	path, _ := core.CredentialPath(scope)
	fmt.Fprintf(cmd.OutOrStdout(), "API key stored in %s\n", path)
	return nil
}
