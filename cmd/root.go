package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecofleet/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "ecofleet",
	Short:        "Eco-aware taxi fleet dispatch simulator",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (defaults apply when empty)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
