package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/venice-ai/venice-go/core"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the SDK version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "venice-go %s\n", core.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
