// Package dependency wires tootrelay services using go.uber.org/dig.
package dependency

import (
	"context"
	"log/slog"

	"go.uber.org/dig"

	"github.com/tootrelay/tootrelay/internal/bus"
	"github.com/tootrelay/tootrelay/internal/channels"
	"github.com/tootrelay/tootrelay/internal/config"
	"github.com/tootrelay/tootrelay/internal/heartbeat"
	"github.com/tootrelay/tootrelay/internal/metrics"
	"github.com/tootrelay/tootrelay/internal/relay"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg       *config.Config
	msgBus    *bus.MessageBus
	telegram  *channels.TelegramChannel
	mastodon  *channels.MastodonChannel
	relay     *relay.Relay
	metrics   *metrics.Metrics
	heartbeat *heartbeat.Service
}

func (c *Container) Config() *config.Config              { return c.cfg }
func (c *Container) MessageBus() *bus.MessageBus         { return c.msgBus }
func (c *Container) Telegram() *channels.TelegramChannel { return c.telegram }
func (c *Container) Mastodon() *channels.MastodonChannel { return c.mastodon }
func (c *Container) Relay() *relay.Relay                 { return c.relay }
func (c *Container) Metrics() *metrics.Metrics           { return c.metrics }
func (c *Container) Heartbeat() *heartbeat.Service       { return c.heartbeat }

// New validates cfg, connects both transports and builds a ready relay.
//
// Configuration problems surface as *relay.ConfigurationError before any
// network call; rejected credentials as *relay.TransportAuthError.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if err := relay.Validate(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := dig.New()
	providers := []any{
		func() *config.Config { return cfg },
		func() context.Context { return ctx },
		func() *slog.Logger { return logger },
		newMessageBus,
		metrics.New,
		newTelegram,
		newMastodon,
		newRelay,
		newHeartbeat,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		msgBus *bus.MessageBus,
		tg *channels.TelegramChannel,
		mt *channels.MastodonChannel,
		r *relay.Relay,
		m *metrics.Metrics,
		hb *heartbeat.Service,
	) {
		result = &Container{
			cfg:       cfg,
			msgBus:    msgBus,
			telegram:  tg,
			mastodon:  mt,
			relay:     r,
			metrics:   m,
			heartbeat: hb,
		}
	})
	if err != nil {
		// Hand back the constructor's own error so callers can match it.
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newMessageBus(cfg *config.Config) *bus.MessageBus {
	return bus.NewMessageBus(cfg.Relay.QueueSize)
}

func newTelegram(cfg *config.Config, b *bus.MessageBus, logger *slog.Logger) (*channels.TelegramChannel, error) {
	tg, err := channels.NewTelegramChannel(&cfg.Telegram, b, nil, logger)
	if err != nil {
		return nil, &relay.TransportAuthError{Transport: relay.TransportSource, Err: err}
	}
	return tg, nil
}

func newMastodon(cfg *config.Config, logger *slog.Logger) *channels.MastodonChannel {
	return channels.NewMastodonChannel(&cfg.Mastodon, logger)
}

func newRelay(
	ctx context.Context,
	cfg *config.Config,
	tg *channels.TelegramChannel,
	mt *channels.MastodonChannel,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*relay.Relay, error) {
	return relay.New(ctx, relay.SettingsFromConfig(cfg), tg, mt,
		relay.WithLogger(logger),
		relay.WithMetrics(m),
	)
}

func newHeartbeat(cfg *config.Config, r *relay.Relay, logger *slog.Logger) (*heartbeat.Service, error) {
	return heartbeat.NewService(cfg.Relay.ProbeSchedule, r.Probe, logger)
}
