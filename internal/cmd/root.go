package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	verbose     bool
	metricsAddr string
	redisAddr   string

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "antrian",
	Short: "Issue HTTP calls through a caching, throttling, retrying orchestrator",
	Long: `antrian issues HTTP calls the way an application would through the
antrian library: identical in-flight calls supersede each other, GET
responses are cached, calls per URL class are spaced out, critical routes
are queued and transient failures are retried with exponential backoff.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext adds all child commands to the root command and runs it.
// Cancelling ctx cancels in-flight calls.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./antrian.yaml or $XDG_CONFIG_HOME/antrian/antrian.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.addr)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "record call outcomes in Redis (overrides redis.addr)")
}
