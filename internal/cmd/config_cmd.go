package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ambiyansyah-risyal/antrian/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Print the configuration after defaults, the config file and ANTRIAN_* environment variables are merged.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, err := loadFile()
		if err != nil {
			return err
		}
		out, err := config.Dump(file)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
