// Package cmd implements the l4lb CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "l4lb",
	Short: "A Layer-4 TCP reverse proxy and load balancer",
	Long: `l4lb accepts TCP connections, distributes them across a pool of
backends using passive health monitoring and round-robin selection, and
forwards bytes bidirectionally until either side closes.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}
