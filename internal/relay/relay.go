// Package relay turns source channel posts into Mastodon statuses: it
// composes the text with its provenance footer, splits it to the
// destination's character limit and posts the pieces as a reply thread.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tootrelay/tootrelay/internal/bus"
	"github.com/tootrelay/tootrelay/internal/config"
	"github.com/tootrelay/tootrelay/internal/config/channel"
	"github.com/tootrelay/tootrelay/internal/shared/stringutils"
)

const previewLen = 80

// Source is the inbound transport as seen by the relay.
type Source interface {
	// FetchFile returns the metadata of a stored file.
	FetchFile(ctx context.Context, fileID string) (FileInfo, error)
	// Download returns the contents of the file at path.
	Download(ctx context.Context, path string) ([]byte, error)
	// WhoAmI returns the identity the transport is authenticated as.
	WhoAmI(ctx context.Context) (string, error)
}

// Destination is the outbound transport as seen by the relay.
type Destination interface {
	// CreatePost publishes a status and returns its destination id.
	CreatePost(ctx context.Context, p Post) (string, error)
	// UploadMedia stores an attachment and returns its media id.
	UploadMedia(ctx context.Context, u Upload) (string, error)
	// WhoAmI returns the identity the transport is authenticated as.
	WhoAmI(ctx context.Context) (string, error)
}

// Transport labels used in logs, errors and metrics.
const (
	TransportSource      = "telegram"
	TransportDestination = "mastodon"
)

// Message outcomes reported to Metrics.
const (
	ResultRelayed         = "relayed"
	ResultRetrievalFailed = "retrieval_failed"
	ResultDeliveryFailed  = "delivery_failed"
	ResultUnsupported     = "unsupported"
	ResultDropped         = "dropped"
)

// Metrics receives relay events. Implementations must be safe for
// concurrent use; the heartbeat reports from its own goroutine.
type Metrics interface {
	MessageHandled(kind bus.Kind, result string)
	PostCreated()
	ChainDelivered(chunks int)
	TransportUp(transport string, up bool)
}

type nopMetrics struct{}

func (nopMetrics) MessageHandled(bus.Kind, string) {}
func (nopMetrics) PostCreated()                    {}
func (nopMetrics) ChainDelivered(int)              {}
func (nopMetrics) TransportUp(string, bool)        {}

// Settings are the validated, process-wide delivery settings.
type Settings struct {
	Visibility     channel.Visibility
	CharacterLimit int
	PostDelay      time.Duration
	ScratchDir     string
}

// SettingsFromConfig extracts the relay settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Visibility:     cfg.Mastodon.Visibility,
		CharacterLimit: cfg.Mastodon.CharacterLimit,
		PostDelay:      cfg.Relay.PostDelay,
		ScratchDir:     cfg.Relay.ScratchDir,
	}
}

func (s Settings) validate() error {
	if !s.Visibility.Valid() {
		names := make([]string, len(channel.Visibilities))
		for i, v := range channel.Visibilities {
			names[i] = v.String()
		}
		return &ConfigurationError{
			Field:  config.EnvMastodonVisibility,
			Value:  fmt.Sprintf("%q", s.Visibility),
			Reason: "must be one of " + strings.Join(names, ", "),
		}
	}
	if s.CharacterLimit <= 0 {
		return &ConfigurationError{
			Field:  config.EnvMastodonCharLimit,
			Value:  s.CharacterLimit,
			Reason: "must be a positive integer",
		}
	}
	if s.PostDelay < 0 {
		return &ConfigurationError{
			Field:  config.EnvPostDelay,
			Value:  s.PostDelay,
			Reason: "cannot be negative",
		}
	}
	return nil
}

// Validate checks every configuration invariant without touching the
// network. Callers run it before constructing any transport.
func Validate(cfg *config.Config) error {
	if err := SettingsFromConfig(cfg).validate(); err != nil {
		return err
	}
	required := []struct {
		key, value string
	}{
		{config.EnvTelegramToken, cfg.Telegram.Token},
		{config.EnvMastodonToken, cfg.Mastodon.Token},
		{config.EnvMastodonInstance, cfg.Mastodon.Instance},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigurationError{Field: r.key, Value: `""`, Reason: "is required"}
		}
	}
	return nil
}

// Relay dispatches inbound posts to the composer, resolver and delivery
// chain. A Relay only exists once its settings are validated and both
// transports answered the identity probe.
type Relay struct {
	settings Settings
	source   Source
	dest     Destination
	resolver *MediaResolver
	chain    *DeliveryChain
	metrics  Metrics
	logger   *slog.Logger
	sleep    SleepFunc
}

// Option customises a Relay.
type Option func(*Relay)

// WithLogger sets the logger used by the relay and its components.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithPacing replaces the wait between chained posts.
func WithPacing(fn SleepFunc) Option {
	return func(r *Relay) { r.sleep = fn }
}

// New validates s, probes both transports and returns a ready Relay.
// Invalid settings yield *ConfigurationError before any probe is made; a
// rejected probe yields *TransportAuthError.
func New(ctx context.Context, s Settings, source Source, dest Destination, opts ...Option) (*Relay, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	r := &Relay{
		settings: s,
		source:   source,
		dest:     dest,
		metrics:  nopMetrics{},
		logger:   slog.Default(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.probe(ctx, TransportSource, source.WhoAmI); err != nil {
		return nil, err
	}
	if err := r.probe(ctx, TransportDestination, dest.WhoAmI); err != nil {
		return nil, err
	}

	r.resolver = NewMediaResolver(source, s.ScratchDir, r.logger)
	r.chain = NewDeliveryChain(dest, s.Visibility, s.PostDelay,
		WithSleep(r.sleep),
		WithChainMetrics(r.metrics),
		WithChainLogger(r.logger),
	)
	return r, nil
}

func (r *Relay) probe(ctx context.Context, transport string, whoAmI func(context.Context) (string, error)) error {
	name, err := whoAmI(ctx)
	r.metrics.TransportUp(transport, err == nil)
	if err != nil {
		r.logger.Error("relay: identity probe failed", "transport", transport, "err", err)
		return &TransportAuthError{Transport: transport, Err: err}
	}
	r.logger.Info("relay: running as", "transport", transport, "identity", name)
	return nil
}

// Probe re-checks both transports. Every failure is reported; none is fatal.
func (r *Relay) Probe(ctx context.Context) error {
	return errors.Join(
		r.probe(ctx, TransportSource, r.source.WhoAmI),
		r.probe(ctx, TransportDestination, r.dest.WhoAmI),
	)
}

// Settings returns the settings the relay was built with.
func (r *Relay) Settings() Settings { return r.settings }

// Dispatch relays one inbound post. Unsupported content kinds are dropped
// with a warning and return nil.
func (r *Relay) Dispatch(ctx context.Context, msg bus.InboundMessage) error {
	switch c := msg.Content().(type) {
	case bus.Text:
		return r.relayText(ctx, msg)
	case bus.Photo:
		return r.relayMedia(ctx, msg, c.File)
	case bus.Video:
		return r.relayMedia(ctx, msg, c.File)
	case bus.Unsupported:
		r.logger.Warn("relay: unsupported content kind, dropping", "message", msg, "type", c.Type)
		return nil
	default:
		r.logger.Warn("relay: message without content, dropping", "message", msg)
		return nil
	}
}

func (r *Relay) relayText(ctx context.Context, msg bus.InboundMessage) error {
	text := Compose(msg)
	chunks := Chunk(text, r.settings.CharacterLimit)
	r.logger.Info("relay: new post", "message", msg, "kind", msg.Kind(), "chunks", len(chunks))
	r.logger.Debug("relay: composed", "message", msg, "text", stringutils.Preview(text, previewLen))
	return r.chain.Deliver(ctx, chunks, nil)
}

func (r *Relay) relayMedia(ctx context.Context, msg bus.InboundMessage, ref bus.MediaRef) error {
	text := Compose(msg)
	chunks := Chunk(text, r.settings.CharacterLimit)
	r.logger.Info("relay: new post", "message", msg, "kind", msg.Kind(), "file_id", ref.FileID, "chunks", len(chunks))
	r.logger.Debug("relay: composed", "message", msg, "text", stringutils.Preview(text, previewLen))

	media, err := r.resolver.Resolve(ctx, ref.FileID)
	if err != nil {
		return err
	}
	return r.chain.Deliver(ctx, chunks, &media)
}

// Run drains in one message at a time until ctx is cancelled or in is
// closed. Per-message failures are logged and never stop the loop.
func (r *Relay) Run(ctx context.Context, in <-chan bus.InboundMessage) error {
	r.logger.Info("relay: worker started",
		"visibility", r.settings.Visibility,
		"character_limit", r.settings.CharacterLimit,
	)
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				r.logger.Info("relay: inbound closed, worker stopped")
				return nil
			}
			r.handle(ctx, msg)
		case <-ctx.Done():
			r.logger.Info("relay: worker stopped")
			return ctx.Err()
		}
	}
}

func (r *Relay) handle(ctx context.Context, msg bus.InboundMessage) {
	err := r.Dispatch(ctx, msg)
	result := classify(msg, err)
	r.metrics.MessageHandled(msg.Kind(), result)

	var (
		retrieval *RetrievalError
		delivery  *DeliveryError
	)
	switch {
	case err == nil:
		return
	case errors.As(err, &retrieval):
		r.logger.Error("relay: media retrieval failed, message dropped", "message", msg, "file_id", retrieval.FileID, "err", retrieval.Err)
	case errors.As(err, &delivery):
		r.logger.Error("relay: chain aborted", "message", msg, "posted", delivery.Posted, "total", delivery.Total, "err", delivery.Err)
	default:
		r.logger.Error("relay: message dropped", "message", msg, "err", err)
	}
}

func classify(msg bus.InboundMessage, err error) string {
	var (
		retrieval *RetrievalError
		delivery  *DeliveryError
	)
	switch {
	case err == nil && msg.Kind() == bus.KindUnsupported:
		return ResultUnsupported
	case err == nil:
		return ResultRelayed
	case errors.As(err, &retrieval):
		return ResultRetrievalFailed
	case errors.As(err, &delivery):
		return ResultDeliveryFailed
	default:
		return ResultDropped
	}
}
