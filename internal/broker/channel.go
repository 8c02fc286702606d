package broker

import (
	"context"
	"time"
)

// Channel is an in-process, channel-backed topic: it satisfies
// KPIConsumer, MetricConsumer and MetadataConsumer interchangeably,
// matching a Kafka consumer's per-poll timeout behaviour without
// depending on a message broker client.
type Channel struct {
	messages    chan []byte
	pollTimeout time.Duration
}

// NewChannel constructs a Channel with the given buffer size and
// per-poll timeout; a silent channel for longer than pollTimeout
// yields ok=false, matching a Kafka consumer_timeout_ms poll.
func NewChannel(buffer int, pollTimeout time.Duration) *Channel {
	return &Channel{messages: make(chan []byte, buffer), pollTimeout: pollTimeout}
}

// Send enqueues a raw payload; it blocks if the channel's buffer is
// full, matching a synchronous test producer.
func (c *Channel) Send(raw []byte) {
	c.messages <- raw
}

// Close marks the topic as exhausted; a subsequent Next observes
// ok=false without waiting out pollTimeout once drained.
func (c *Channel) Close() {
	close(c.messages)
}

// Next returns the next buffered payload, or ok=false once pollTimeout
// elapses with nothing delivered.
func (c *Channel) Next(ctx context.Context) ([]byte, bool, error) {
	select {
	case raw, open := <-c.messages:
		if !open {
			return nil, false, nil
		}
		return raw, true, nil
	case <-time.After(c.pollTimeout):
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
