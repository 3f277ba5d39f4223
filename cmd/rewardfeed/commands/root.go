package commands

import (
	"context"
	"fmt"
	"os"
	"rewardfeed/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:   "rewardfeed",
	Short: "rewardfeed harvests Coin Master reward links and publishes them to a document store.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// replaced with the configured handler once the config is read
		telemetry.InitSlog(telemetry.LogConfig{}, *verbose)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", DefaultConfigPath, "The json5 config file, <name>.local.json5 overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
