// Package events forwards session transitions to the signal bus, the metrics
// collectors and the notifier.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

// Envelope types carried on the bus.
const (
	TypeSession    = "session"
	TypeInvestment = "investment"
)

const (
	publishTimeout = 2 * time.Second
	notifyTimeout  = 15 * time.Second
)

// Envelope is the JSON message published on the bus and forwarded to
// WebSocket clients.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Gate is the connection source the bridge listens to.
type Gate interface {
	State() domain.ConnectionState
	Subscribe(fn func(domain.ConnectionState)) func()
}

// Lifecycle is the investment lifecycle the bridge listens to.
type Lifecycle interface {
	Subscribe(fn func(domain.InvestmentAttempt)) func()
}

// Metrics receives every transition.
type Metrics interface {
	ObserveConnection(s domain.ConnectionState)
	ObserveAttempt(a domain.InvestmentAttempt)
}

// Notifier alerts on terminal attempts.
type Notifier interface {
	NotifyAttempt(ctx context.Context, a domain.InvestmentAttempt) error
}

// Bridge subscribes to a gate and a lifecycle and fans their transitions out.
// Metrics and notifier are optional.
type Bridge struct {
	bus      domain.SignalBus
	metrics  Metrics
	notifier Notifier
	logger   *slog.Logger

	wg     sync.WaitGroup
	detach []func()
}

// NewBridge creates a bridge publishing on bus.
func NewBridge(bus domain.SignalBus, metrics Metrics, notifier Notifier, logger *slog.Logger) *Bridge {
	return &Bridge{
		bus:      bus,
		metrics:  metrics,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "event_bridge")),
	}
}

// Attach starts listening to gate and life. The gate's current state is
// published immediately.
func (b *Bridge) Attach(gate Gate, life Lifecycle) {
	b.detach = append(b.detach,
		gate.Subscribe(b.onConnection),
		life.Subscribe(func(a domain.InvestmentAttempt) { b.onAttempt(gate, a) }),
	)
	b.onConnection(gate.State())
}

// Close detaches from every source and waits for pending notifications.
func (b *Bridge) Close() {
	for _, d := range b.detach {
		d()
	}
	b.detach = nil
	b.wg.Wait()
}

func (b *Bridge) onConnection(s domain.ConnectionState) {
	if b.metrics != nil {
		b.metrics.ObserveConnection(s)
	}
	b.publish(domain.ChannelSession, Envelope{Type: TypeSession, Payload: s})
}

func (b *Bridge) onAttempt(gate Gate, a domain.InvestmentAttempt) {
	if b.metrics != nil {
		b.metrics.ObserveAttempt(a)
	}
	b.publish(domain.ChannelInvest, Envelope{
		Type:    TypeInvestment,
		Payload: domain.NewAttemptView(a, gate.State().Connected),
	})

	if b.notifier != nil && a.Phase.Terminal() {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := b.notifier.NotifyAttempt(ctx, a); err != nil {
				b.logger.Warn("notification failed",
					slog.String("attempt_id", a.ID),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
}

func (b *Bridge) publish(channel string, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		b.logger.Error("marshal event", slog.String("channel", channel), slog.String("error", err.Error()))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.bus.Publish(ctx, channel, data); err != nil {
		b.logger.Warn("publish event",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
