// Package local implements domain.SignalBus in process, on top of
// asaskevich/EventBus. It is the default bus when Redis is not configured.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	evbus "github.com/asaskevich/EventBus"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

// bufferSize is the per-subscriber queue length. Messages published while a
// subscriber's queue is full are dropped for that subscriber.
const bufferSize = 128

type subscription struct {
	pattern string
	topic   string
}

// Bus fans payloads out to subscribers whose channel or glob pattern matches.
// Every subscription owns a private EventBus topic with a single handler, so
// unsubscribing never detaches another subscriber.
type Bus struct {
	bus    evbus.Bus
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[uint64]subscription
	nextID uint64
}

var _ domain.SignalBus = (*Bus)(nil)

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		bus:    evbus.New(),
		logger: logger.With(slog.String("component", "local_bus")),
		subs:   make(map[uint64]subscription),
	}
}

// Publish delivers payload to every matching subscriber. It never blocks on a
// slow subscriber.
func (b *Bus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	topics := make([]string, 0, len(b.subs))
	for _, s := range b.subs {
		if matches(s.pattern, channel) {
			topics = append(topics, s.topic)
		}
	}
	b.mu.Unlock()

	for _, t := range topics {
		b.bus.Publish(t, channel, payload)
	}
	return nil
}

// Subscribe returns a channel of payloads published on channel, which may be
// a glob pattern ("ch:*"). The returned channel is closed when ctx is done.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if channel == "" {
		return nil, fmt.Errorf("local: subscribe: empty channel")
	}
	if _, err := path.Match(channel, ""); err != nil {
		return nil, fmt.Errorf("local: subscribe %s: %w", channel, err)
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := subscription{pattern: channel, topic: fmt.Sprintf("sub:%d", id)}
	b.subs[id] = sub
	b.mu.Unlock()

	out := make(chan []byte, bufferSize)
	handler := func(ch string, payload []byte) {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		select {
		case out <- msg:
		default:
			b.logger.Warn("subscriber queue full, dropping message",
				slog.String("channel", ch),
				slog.String("pattern", sub.pattern),
			)
		}
	}
	if err := b.bus.Subscribe(sub.topic, handler); err != nil {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		return nil, fmt.Errorf("local: subscribe %s: %w", channel, err)
	}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		// EventBus runs synchronous handlers under its own lock, so once
		// Unsubscribe returns no send on out can be in progress.
		_ = b.bus.Unsubscribe(sub.topic, handler)
		close(out)
	}()

	return out, nil
}

func matches(pattern, channel string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == channel
	}
	ok, _ := path.Match(pattern, channel)
	return ok
}
