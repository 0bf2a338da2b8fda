package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/benaskins/tripwire/internal/config"
)

var (
	configPath string
	verbose    bool

	// cfg is the resolved configuration, set before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "tripwire",
	Short:         "Inspect and remove canary credentials deployed on this machine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		resolved, err := loaded.Resolve()
		if err != nil {
			return err
		}
		if err := resolved.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		cfg = resolved
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug detail to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
