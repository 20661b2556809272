package main

import (
	"context"
	"fmt"
	"os"

	"github.com/RyanBlaney/pitchdrop/config"
	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	noColor    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pitchdrop",
	Short: "Comedic pitch drops for short-form voiceovers",
	Long: `pitchdrop finds the phrases a script marks for a pitch drop, binds them to
the word timings of the recorded voiceover and lowers the voice pitch around
each one with a smooth lead-in and recovery.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pitchdrop.yaml", "Config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored log output")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(contourCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(generateCmd)
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// setup loads .env, the config file and the logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	envErr := godotenv.Load()

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}
	if noColor {
		loaded.Logging.Color = false
	}
	cfg = loaded

	logging.SetGlobalLogger(cfg.Logger())
	if envErr != nil {
		logging.Debug("No .env file found, using system environment variables")
	} else {
		logging.Debug("Loaded environment variables from .env file")
	}
	return nil
}
