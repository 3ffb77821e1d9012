// Package config defines the configuration schema for tootrelay.
//
// Values come from an optional YAML file, then a .env file, then the process
// environment; later sources win.
package config

import (
	"os"
	"time"

	"github.com/tootrelay/tootrelay/internal/config/channel"
	"github.com/tootrelay/tootrelay/internal/config/gateway"
)

// RelayConfig tunes the delivery behaviour.
type RelayConfig struct {
	// PostDelay is the pause before each threaded reply in a chain.
	PostDelay time.Duration `yaml:"postDelay"`
	// ScratchDir receives media whose type cannot be inferred.
	ScratchDir string `yaml:"scratchDir"`
	// ProbeSchedule is a cron spec for re-probing both transports.
	// Empty disables the heartbeat.
	ProbeSchedule string `yaml:"probeSchedule"`
	// QueueSize is the number of posts buffered between poller and worker.
	QueueSize int `yaml:"queueSize"`
}

func defaultRelayConfig() RelayConfig {
	return RelayConfig{
		PostDelay:     time.Second,
		ScratchDir:    os.TempDir(),
		ProbeSchedule: "@every 30m",
		QueueSize:     100,
	}
}

// Config is the root configuration object.
type Config struct {
	Telegram channel.TelegramConfig `yaml:"telegram"`
	Mastodon channel.MastodonConfig `yaml:"mastodon"`
	Relay    RelayConfig            `yaml:"relay"`
	Metrics  gateway.GatewayConfig  `yaml:"metrics"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Telegram: channel.DefaultTelegramConfig(),
		Mastodon: channel.DefaultMastodonConfig(),
		Relay:    defaultRelayConfig(),
		Metrics:  gateway.DefaultGatewayConfig(),
	}
}
