package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tootrelay/tootrelay/internal/config/channel"
)

// Post is one status to create on the destination.
type Post struct {
	Text       string
	MediaID    string // empty for no attachment
	Visibility channel.Visibility
	ReplyTo    string // empty for a top-level post
}

// Upload is a media file to attach to a post.
type Upload struct {
	Data     []byte
	MimeType string // empty for an untyped upload
	Path     string // local copy, set for untyped uploads
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeliveryChain posts a chunk sequence as a linear thread: each chunk after
// the first replies to the post created just before it.
type DeliveryChain struct {
	dest       Destination
	visibility channel.Visibility
	delay      time.Duration
	sleep      SleepFunc
	metrics    Metrics
	logger     *slog.Logger
}

// ChainOption customises a DeliveryChain.
type ChainOption func(*DeliveryChain)

// WithSleep replaces the pacing wait, mainly for tests.
func WithSleep(fn SleepFunc) ChainOption {
	return func(c *DeliveryChain) { c.sleep = fn }
}

// WithChainMetrics records posts and chain lengths.
func WithChainMetrics(m Metrics) ChainOption {
	return func(c *DeliveryChain) { c.metrics = m }
}

// WithChainLogger sets the logger.
func WithChainLogger(l *slog.Logger) ChainOption {
	return func(c *DeliveryChain) { c.logger = l }
}

// NewDeliveryChain creates a DeliveryChain waiting delay before each reply.
func NewDeliveryChain(dest Destination, visibility channel.Visibility, delay time.Duration, opts ...ChainOption) *DeliveryChain {
	c := &DeliveryChain{
		dest:       dest,
		visibility: visibility,
		delay:      delay,
		sleep:      sleepContext,
		metrics:    nopMetrics{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver uploads media (when non-nil), attaches it to the first chunk and
// posts the remaining chunks as threaded replies, in order.
//
// A failure stops the chain and is returned as *DeliveryError; posts already
// created are left in place.
func (c *DeliveryChain) Deliver(ctx context.Context, chunks []string, media *Media) error {
	if len(chunks) == 0 {
		return fmt.Errorf("relay: empty chunk sequence")
	}
	total := len(chunks)
	fail := func(i int, err error) error {
		return &DeliveryError{Index: i, Posted: i, Total: total, Err: err}
	}

	first := Post{Text: chunks[0], Visibility: c.visibility}
	if media != nil {
		mediaID, err := c.dest.UploadMedia(ctx, Upload{
			Data:     media.Data,
			MimeType: media.MimeType,
			Path:     media.ScratchPath,
		})
		if err != nil {
			return fail(0, fmt.Errorf("upload media: %w", err))
		}
		first.MediaID = mediaID
	}

	prev, err := c.dest.CreatePost(ctx, first)
	if err != nil {
		return fail(0, err)
	}
	c.metrics.PostCreated()
	c.logger.Debug("relay: posted", "post_id", prev, "chunk", 1, "of", total)

	for i := 1; i < total; i++ {
		if err := c.sleep(ctx, c.delay); err != nil {
			return fail(i, err)
		}
		id, err := c.dest.CreatePost(ctx, Post{
			Text:       chunks[i],
			Visibility: c.visibility,
			ReplyTo:    prev,
		})
		if err != nil {
			return fail(i, err)
		}
		c.metrics.PostCreated()
		c.logger.Debug("relay: posted reply", "post_id", id, "in_reply_to", prev, "chunk", i+1, "of", total)
		prev = id
	}

	c.metrics.ChainDelivered(total)
	return nil
}
