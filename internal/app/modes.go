package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
	"github.com/alanyoungcy/rwaexchange/internal/server"
	"github.com/alanyoungcy/rwaexchange/internal/server/handler"
	"github.com/alanyoungcy/rwaexchange/internal/server/ws"
	"github.com/alanyoungcy/rwaexchange/internal/session"
)

const (
	walletRefreshInterval = 30 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// ServerMode serves the session over HTTP and WebSocket until ctx is done.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:           a.cfg.Mode,
		StartedAt:      a.startedAt,
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		Status:         func() any { return deps.Session.Connection() },
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return deps.Wallet.Watch(ctx, walletRefreshInterval)
	})

	if a.cfg.Wallet.AutoConnect {
		if err := deps.Session.Connect(ctx); err != nil {
			a.logger.WarnContext(ctx, "auto-connect failed, waiting for POST /api/wallet/connect",
				slog.String("error", err.Error()),
			)
		}
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(a.cfg.Mode, a.startedAt, a.logger),
		Session: handler.NewSessionHandler(deps.Session, a.logger),
		Assets:  handler.NewAssetHandler(deps.Session, a.logger),
		Invest:  handler.NewInvestHandler(deps.Session, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// InvestMode connects the wallet, places the configured investment, and
// waits for it to reach a terminal outcome.
func (a *App) InvestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting invest mode",
		slog.String("asset_id", a.cfg.Invest.AssetID),
		slog.String("amount", a.cfg.Invest.Amount),
	)

	var amount *decimal.Decimal
	if a.cfg.Invest.Amount != "" {
		d, err := decimal.NewFromString(a.cfg.Invest.Amount)
		if err != nil {
			return fmt.Errorf("invest mode: amount: %w", err)
		}
		amount = &d
	}

	if err := deps.Session.Connect(ctx); err != nil {
		return fmt.Errorf("invest mode: connect: %w", err)
	}

	attempt, err := placeAndWait(ctx, deps.Session, a.cfg.Invest.AssetID, amount)
	if err != nil {
		return fmt.Errorf("invest mode: %w", err)
	}

	if attempt.Phase == domain.PhaseFailed {
		a.logger.ErrorContext(ctx, "investment failed",
			slog.String("attempt_id", attempt.ID),
			slog.String("tx", string(attempt.TxHandle)),
			slog.String("error", attempt.Err.Error()),
		)
		return fmt.Errorf("invest mode: attempt %s: %w", attempt.ID, attempt.Err)
	}

	a.logger.InfoContext(ctx, "investment confirmed",
		slog.String("attempt_id", attempt.ID),
		slog.String("asset_id", attempt.AssetID),
		slog.String("amount", attempt.Amount.StringFixed(2)),
		slog.String("tx", string(attempt.TxHandle)),
	)
	return nil
}

// placeAndWait invests and blocks until the resulting attempt is terminal.
func placeAndWait(ctx context.Context, s *session.Session, assetID string, amount *decimal.Decimal) (domain.InvestmentAttempt, error) {
	changed := make(chan struct{}, 1)
	unsub := s.Lifecycle().Subscribe(func(domain.InvestmentAttempt) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsub()

	attempt, err := s.Invest(ctx, assetID, amount)
	var attemptErr *domain.AttemptError
	if err != nil && !errors.As(err, &attemptErr) {
		return domain.InvestmentAttempt{}, err
	}

	for {
		cur := s.CurrentAttempt()
		if cur.ID == attempt.ID && cur.Phase.Terminal() {
			return cur, nil
		}
		if cur.ID != attempt.ID {
			return cur, fmt.Errorf("attempt %s superseded by %s", attempt.ID, cur.ID)
		}
		select {
		case <-ctx.Done():
			return cur, ctx.Err()
		case <-changed:
		}
	}
}
