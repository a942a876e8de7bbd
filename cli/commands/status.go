package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/venice-ai/venice-go/core"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the current authentication status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	apiKey, layer, err := core.ResolveCredential()
	if err != nil {
		return exitWith(ExitUnreachablePath, "cannot read credentials: %v", err)
	}
	if apiKey == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No API key is set.")
		fmt.Fprintln(cmd.OutOrStdout(), "Use 'venice auth <your-api-key>' or 'venice configure' to set one.")
		return exitWith(ExitMissingCredential, "missing credential")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "API key is set (from %s)\n", layer)
	fmt.Fprintf(cmd.OutOrStdout(), "Key: %s\n", core.NewSecret(apiKey).Masked())
	return nil
}
