package cmd

import (
	"github.com/spf13/cobra"

	"dabbridge/internal/logger"
)

var (
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "dab-bridge",
	Short: "DAB protocol bridge for RDK devices",
	Long: `dab-bridge exposes the DAB remote-control automation protocol over MQTT
and implements each operation through the device's Thunder JSON-RPC services.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logger.SetSilentMode(false)
			return logger.SetLevel("debug")
		}
		return logger.SetLevel(logLevel)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(bridgeCmd)
}
