package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"l4lb/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate a configuration file without starting the proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}
		fmt.Printf("configuration OK: %d backend(s), listening on %s:%d\n",
			len(cfg.LoadBalancer.Backends), cfg.LoadBalancer.ListenAddress, cfg.LoadBalancer.ListenPort)
		return nil
	},
}
