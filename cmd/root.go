package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cube2222/remotescan/config"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "remotescan",
	Short: "Serve tables to remote page sources and scan them with dynamic filter pushdown.",
	Example: `remotescan serve --config remotescan.yml
remotescan scan bikes id color --filter color=red,green`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(ctx context.Context) {
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file. Defaults to ~/.remotescan/remotescan.yml.")
}

func readConfig() (*config.Config, error) {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read config")
	}
	return cfg, nil
}
