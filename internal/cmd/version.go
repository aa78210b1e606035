package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ambiyansyah-risyal/antrian"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "antrian %s\n", versionInfo.Version)
		fmt.Fprintf(out, "  commit: %s\n", versionInfo.Commit)
		fmt.Fprintf(out, "  built:  %s\n", versionInfo.BuildDate)
		fmt.Fprintf(out, "  library: %s\n", antrian.GetVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
