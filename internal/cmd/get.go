package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Issue a single call",
	Long: `Issue a single call through the orchestrator and print the status and
body. Relative URLs are resolved against base_url.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
	addRequestFlags(getCmd)
	getCmd.Flags().BoolP("include", "i", false, "print response headers")
}

func runGet(cmd *cobra.Command, args []string) error {
	req, err := requestFromFlags(cmd, args[0])
	if err != nil {
		return err
	}
	include, err := cmd.Flags().GetBool("include")
	if err != nil {
		return err
	}

	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.close(cmd.Context())

	resp, err := rt.orch.Issue(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := "network"
	if resp.FromCache {
		source = "cache"
	}
	fmt.Fprintf(out, "%d (%s)\n", resp.StatusCode, source)
	if include {
		for _, name := range slices.Sorted(maps.Keys(resp.Header)) {
			for _, v := range resp.Header[name] {
				fmt.Fprintf(out, "%s: %s\n", name, v)
			}
		}
		fmt.Fprintln(out)
	}
	if len(resp.Body) > 0 {
		fmt.Fprintln(out, string(resp.Body))
	}
	return nil
}
