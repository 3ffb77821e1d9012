package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tootrelay/tootrelay/internal/config"
	"github.com/tootrelay/tootrelay/internal/dependency"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and both transport credentials, then exit",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	container, err := dependency.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	s := container.Relay().Settings()

	tgName, err := container.Telegram().WhoAmI(ctx)
	if err != nil {
		return err
	}
	mtName, err := container.Mastodon().WhoAmI(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Telegram:    %s ✓\n", tgName)
	fmt.Fprintf(out, "Mastodon:    %s on %s ✓\n", mtName, cfg.Mastodon.Instance)
	fmt.Fprintf(out, "Visibility:  %s\n", s.Visibility)
	fmt.Fprintf(out, "Char limit:  %d\n", s.CharacterLimit)
	fmt.Fprintf(out, "Post delay:  %s\n", s.PostDelay)
	if len(cfg.Telegram.AllowFrom) > 0 {
		fmt.Fprintf(out, "Channels:    %v\n", cfg.Telegram.AllowFrom)
	} else {
		fmt.Fprintf(out, "Channels:    (all)\n")
	}
	return nil
}
