package bus

import (
	"fmt"
	"time"
)

// Kind names the content kind of a channel post.
type Kind string

const (
	KindText        Kind = "text"
	KindPhoto       Kind = "photo"
	KindVideo       Kind = "video"
	KindUnsupported Kind = "unsupported"
)

// Content is the closed set of post payloads the relay understands.
// Only the types in this file implement it.
type Content interface {
	Kind() Kind
	sealed()
}

// MediaRef points at a file held by the source transport.
type MediaRef struct {
	FileID string
}

// Text is a plain text post.
type Text struct {
	Body string
}

// Photo is a photo post. Caption may be empty.
type Photo struct {
	Caption string
	File    MediaRef
}

// Video is a video post. Caption may be empty.
type Video struct {
	Caption string
	File    MediaRef
}

// Unsupported is any other post type (audio, document, sticker, ...).
// Type carries the transport's name for it, for logging.
type Unsupported struct {
	Type string
}

func (Text) Kind() Kind        { return KindText }
func (Photo) Kind() Kind       { return KindPhoto }
func (Video) Kind() Kind       { return KindVideo }
func (Unsupported) Kind() Kind { return KindUnsupported }

func (Text) sealed()        {}
func (Photo) sealed()       {}
func (Video) sealed()       {}
func (Unsupported) sealed() {}

// Origin describes the channel a post was published in.
type Origin struct {
	ChannelTitle  string
	ChannelHandle string // public @username without the @, empty for private channels
	ForwardedFrom string // title of the forwarded-from chat, empty when not forwarded
}

// InboundMessage is a post received from the source channel.
// It is immutable once built.
type InboundMessage struct {
	id        string
	content   Content
	origin    Origin
	timestamp time.Time
}

// NewInboundMessage creates an InboundMessage with Timestamp set to now.
func NewInboundMessage(id string, content Content, origin Origin) InboundMessage {
	return InboundMessage{
		id:        id,
		content:   content,
		origin:    origin,
		timestamp: time.Now(),
	}
}

func (m InboundMessage) ID() string           { return m.id }
func (m InboundMessage) Content() Content     { return m.content }
func (m InboundMessage) Origin() Origin       { return m.origin }
func (m InboundMessage) Timestamp() time.Time { return m.timestamp }

// Kind returns the content kind, KindUnsupported when no content is set.
func (m InboundMessage) Kind() Kind {
	if m.content == nil {
		return KindUnsupported
	}
	return m.content.Kind()
}

// String is used in log lines.
func (m InboundMessage) String() string {
	return fmt.Sprintf("%s/%s", m.origin.ChannelTitle, m.id)
}
