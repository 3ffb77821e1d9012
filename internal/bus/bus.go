// Package bus carries inbound channel posts from the polling transport to the
// relay worker.
package bus

import "context"

// Bus is the contract between the inbound poller and the relay worker.
type Bus interface {
	// PublishInbound hands a post to the worker. It blocks while the buffer is
	// full and gives up when ctx is cancelled.
	PublishInbound(ctx context.Context, msg InboundMessage) error
	// InboundChan returns a receive-only channel for the worker to drain.
	InboundChan() <-chan InboundMessage
	// InboundSize reports how many posts are waiting.
	InboundSize() int
}

// MessageBus is the default in-process Bus backed by a buffered Go channel.
//
// There is a single consumer, so messages are relayed in the order the
// poller received them.
type MessageBus struct {
	inbound chan InboundMessage
}

func NewMessageBus(bufSize int) *MessageBus {
	return &MessageBus{inbound: make(chan InboundMessage, bufSize)}
}

// PublishInbound sends an InboundMessage to the worker.
func (b *MessageBus) PublishInbound(ctx context.Context, msg InboundMessage) error {
	select {
	case b.inbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InboundChan returns a receive-only view of the inbound channel.
func (b *MessageBus) InboundChan() <-chan InboundMessage {
	return b.inbound
}

func (b *MessageBus) InboundSize() int { return len(b.inbound) }
