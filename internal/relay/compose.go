package relay

import (
	"strings"

	"github.com/tootrelay/tootrelay/internal/bus"
)

// channelLinkBase prefixes public channel handles in the footer.
const channelLinkBase = "https://t.me/"

// Compose builds the outbound text of msg: its text or caption followed by
// the provenance footer.
//
// Missing fields never fail: an absent body becomes "", a channel without a
// public handle is credited by title.
func Compose(msg bus.InboundMessage) string {
	var sb strings.Builder
	sb.WriteString(body(msg.Content()))

	origin := msg.Origin()
	sb.WriteString("\r\rPosted in ")
	if origin.ChannelHandle != "" {
		sb.WriteString(channelLinkBase)
		sb.WriteString(origin.ChannelHandle)
	} else {
		sb.WriteString(origin.ChannelTitle)
	}

	if origin.ForwardedFrom != "" {
		sb.WriteString("\nForwarded from ")
		sb.WriteString(origin.ForwardedFrom)
	}
	return sb.String()
}

func body(c bus.Content) string {
	switch c := c.(type) {
	case bus.Text:
		return c.Body
	case bus.Photo:
		return c.Caption
	case bus.Video:
		return c.Caption
	default:
		return ""
	}
}
