// Package notify alerts operators when an investment reaches a terminal
// outcome. Alerts go to every configured sender and can be filtered by event.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

// Event names accepted in [notify] events.
const (
	EventInvestmentConfirmed = "investment_confirmed"
	EventInvestmentFailed    = "investment_failed"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string // e.g. "telegram"
}

// Notifier dispatches notifications to its senders. Notify forwards only
// events in the allowed set; an empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for senders, allowing the given events.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Notify sends a notification if event is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAttempt sends the alert for a terminal attempt. Attempts in any other
// phase are ignored.
func (n *Notifier) NotifyAttempt(ctx context.Context, a domain.InvestmentAttempt) error {
	event, title, message, ok := AttemptMessage(a)
	if !ok {
		return nil
	}
	return n.Notify(ctx, event, title, message)
}

// AttemptMessage renders the alert for a terminal attempt.
func AttemptMessage(a domain.InvestmentAttempt) (event, title, message string, ok bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "Asset: %s\nAmount: $%s", a.AssetID, a.Amount.StringFixed(2))
	if a.TxHandle != "" {
		fmt.Fprintf(&b, "\nTx: %s", a.TxHandle)
	}

	switch a.Phase {
	case domain.PhaseConfirmed:
		return EventInvestmentConfirmed, "Investment confirmed", b.String(), true
	case domain.PhaseFailed:
		if a.Err != nil {
			fmt.Fprintf(&b, "\nReason: %s", a.Err.Error())
		}
		return EventInvestmentFailed, "Investment failed", b.String(), true
	default:
		return "", "", "", false
	}
}

// dispatch sends to every sender. One sender failing does not stop delivery
// to the others; all failures are joined in the returned error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
