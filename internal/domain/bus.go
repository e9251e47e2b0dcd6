package domain

import "context"

// Signal bus channels.
const (
	ChannelSession = "ch:session"
	ChannelInvest  = "ch:invest"
)

// SignalBus provides fire-and-forget pub/sub between the session and its
// viewers. Subscribe's channel is closed when ctx is cancelled.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
