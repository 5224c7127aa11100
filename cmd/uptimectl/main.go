package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/config"
	"github.com/hamed0406/uptimeworker/internal/logging"
)

var (
	envFile   string
	verbose   bool
	workerURL string
	apiKey    string
)

var rootCmd = &cobra.Command{
	Use:           "uptimectl",
	Short:         "Operate the uptime worker's checks, cycles and outcome logs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&workerURL, "worker", os.Getenv("API_BASE"), "base URL of the running worker (default ADDR)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", os.Getenv("UPTIMECTL_API_KEY"), "admin API key (default the first ADMIN_API_KEYS entry)")
}

// setup loads configuration and a logger that only reports warnings unless -v is set.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(cfg.LogDir, level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
