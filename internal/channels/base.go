// Package channels provides the transport adapters the relay talks to:
// Telegram as the source of channel posts and Mastodon as the destination.
package channels

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tootrelay/tootrelay/internal/bus"
)

// Base holds state shared by inbound channels: the bus posts are published
// on and the allowlist of source chats.
type Base struct {
	name      string
	b         bus.Bus
	allowFrom []string // empty = allow all
	logger    *slog.Logger
}

// NewBase creates a Base with the given channel name, bus, and allowlist.
func NewBase(name string, b bus.Bus, allowFrom []string, logger *slog.Logger) Base {
	if logger == nil {
		logger = slog.Default()
	}
	return Base{name: name, b: b, allowFrom: allowFrom, logger: logger}
}

// IsAllowed checks whether a chat is on the allowlist. A chat matches by its
// numeric id or, case-insensitively, by its public username.
func (b *Base) IsAllowed(chatID int64, username string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	id := strconv.FormatInt(chatID, 10)
	for _, allowed := range b.allowFrom {
		if allowed == id {
			return true
		}
		if username != "" && strings.EqualFold(strings.TrimPrefix(allowed, "@"), username) {
			return true
		}
	}
	return false
}

// HandleMessage pushes msg to the bus unless its chat is filtered out.
func (b *Base) HandleMessage(ctx context.Context, chatID int64, username string, msg bus.InboundMessage) error {
	if !b.IsAllowed(chatID, username) {
		b.logger.Warn(b.name+": chat not in allowlist, ignoring", "chat_id", chatID, "username", username)
		return nil
	}
	return b.b.PublishInbound(ctx, msg)
}
