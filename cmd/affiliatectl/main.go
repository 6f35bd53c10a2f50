package main

import (
	"fmt"
	"os"

	"github.com/Dhoini/affiliate-service/internal/config"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configDir string
	verbose   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "affiliatectl",
		Short:         "Maintenance commands for the affiliate service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", os.Getenv("CONFIG_DIR"), "directory with config.yml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(accrueCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	level := logger.WARN
	if verbose {
		level = logger.DEBUG
	}
	log := logger.New(level)

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, log, nil
}
