// Package cmd implements the tootrelay CLI using cobra.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath string
	verbose    bool
	logFormat  string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "tootrelay",
	Short: "Relay Telegram channel posts to Mastodon",
	Long: "tootrelay reposts every post of a Telegram channel on a Mastodon account,\n" +
		"splitting long posts into a reply thread and crediting the source channel.",
	SilenceUsage: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (environment and .env take precedence)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
}

// newLogger builds the process logger from the persistent flags and installs
// it as the slog default.
func newLogger(w io.Writer) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch logFormat {
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", logFormat)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}
