package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/lmrtfy/internal/config"
	"github.com/aretw0/lmrtfy/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "lmrtfy",
	Short: "Let Me Replit That For You",
	Long: `lmrtfy turns a coding question into a shareable link.
Opening the link plays a short demo of asking Replit AI the question.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
}

// loadConfig reads the config file named by --config, applies the
// --log-level override and installs the resulting logger as default.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
