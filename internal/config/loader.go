package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tootrelay/tootrelay/internal/config/channel"
)

// Environment keys, also read from .env.
const (
	EnvTelegramToken       = "TELEGRAM_TOKEN"
	EnvTelegramPollTimeout = "TELEGRAM_POLL_TIMEOUT"
	EnvTelegramAllowFrom   = "TELEGRAM_ALLOW_FROM"
	EnvMastodonToken       = "MASTODON_TOKEN"
	EnvMastodonInstance    = "MASTODON_INSTANCE"
	EnvMastodonVisibility  = "MASTODON_VISIBILITY"
	EnvMastodonCharLimit   = "MASTODON_CHARACTER_LIMIT"
	EnvPostDelay           = "RELAY_POST_DELAY"
	EnvScratchDir          = "RELAY_SCRATCH_DIR"
	EnvProbeSchedule       = "RELAY_PROBE_SCHEDULE"
	EnvMetricsAddr         = "METRICS_ADDR"
)

// DotEnvPath is the .env file read by Load, relative to the working directory.
const DotEnvPath = ".env"

// LookupFunc reads one environment value. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from the YAML file at path (skipped when
// path is empty), the .env file in the working directory, and the process
// environment.
//
// Load does not check invariants such as the visibility set or a positive
// character limit; the relay validates those at startup.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", DotEnvPath, err)
	}
	return load(path, os.LookupEnv)
}

func load(path string, lookup LookupFunc) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not a duration: %w", key, v, err)
		}
		*dst = d
		return nil
	}

	str(EnvTelegramToken, &cfg.Telegram.Token)
	str(EnvMastodonToken, &cfg.Mastodon.Token)
	str(EnvMastodonInstance, &cfg.Mastodon.Instance)
	str(EnvScratchDir, &cfg.Relay.ScratchDir)
	str(EnvProbeSchedule, &cfg.Relay.ProbeSchedule)
	str(EnvMetricsAddr, &cfg.Metrics.Addr)

	if v, ok := lookup(EnvTelegramAllowFrom); ok {
		cfg.Telegram.AllowFrom = splitList(v)
	}
	if v, ok := lookup(EnvMastodonVisibility); ok {
		cfg.Mastodon.Visibility = channel.Visibility(strings.TrimSpace(v))
	}

	if err := integer(EnvTelegramPollTimeout, &cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if err := integer(EnvMastodonCharLimit, &cfg.Mastodon.CharacterLimit); err != nil {
		return err
	}
	return duration(EnvPostDelay, &cfg.Relay.PostDelay)
}

// splitList parses a comma separated list, dropping blanks and a leading @.
func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "@")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
