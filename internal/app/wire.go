package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/rwaexchange/internal/bus/local"
	"github.com/alanyoungcy/rwaexchange/internal/cache/redis"
	"github.com/alanyoungcy/rwaexchange/internal/catalog"
	"github.com/alanyoungcy/rwaexchange/internal/chain/evm"
	"github.com/alanyoungcy/rwaexchange/internal/config"
	"github.com/alanyoungcy/rwaexchange/internal/crypto"
	"github.com/alanyoungcy/rwaexchange/internal/domain"
	"github.com/alanyoungcy/rwaexchange/internal/events"
	"github.com/alanyoungcy/rwaexchange/internal/metrics"
	"github.com/alanyoungcy/rwaexchange/internal/native"
	"github.com/alanyoungcy/rwaexchange/internal/notify"
	"github.com/alanyoungcy/rwaexchange/internal/session"
	"github.com/alanyoungcy/rwaexchange/internal/wallet"
)

// Dependencies bundles everything the modes need. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	Wallet    *wallet.KeyWallet
	Chain     *evm.Client
	Catalog   *catalog.Catalog
	Session   *session.Session
	SignalBus domain.SignalBus
	Bridge    *events.Bridge
	Notifier  *notify.Notifier
}

// Wire constructs all concrete implementations from cfg and returns them
// together with a cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}

	// --- Catalog ---
	cat, err := catalog.FromConfig(cfg.Assets)
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	deps.Catalog = cat

	// --- Chain endpoint ---
	eth, err := evm.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	closers = append(closers, eth.Close)

	if cfg.Chain.ChainID != 0 {
		got, err := eth.ChainID(ctx)
		if err != nil {
			return fail(fmt.Errorf("wire: chain id: %w", err))
		}
		if got.Uint64() != uint64(cfg.Chain.ChainID) {
			return fail(fmt.Errorf("wire: endpoint is on chain %d, expected %d", got.Uint64(), cfg.Chain.ChainID))
		}
	}

	// --- Wallet ---
	deps.Wallet = wallet.New(crypto.KeySource{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	}, eth, logger)

	// --- Chain client ---
	deps.Chain, err = evm.New(eth, deps.Wallet, evm.Options{
		PollInterval:       cfg.Chain.PollEvery(),
		ConfirmTimeout:     cfg.Chain.ConfirmWithin(),
		GasLimitMultiplier: cfg.Chain.GasLimitMultiplier,
	}, metrics.NewChainClient(), logger)
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}

	rate, err := decimal.NewFromString(cfg.Chain.USDPerNative)
	if err != nil {
		return fail(fmt.Errorf("wire: usd_per_native: %w", err))
	}
	conv, err := native.NewConverter(rate, uint8(cfg.Chain.NativeDecimals))
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}

	// --- Session ---
	gate := session.NewGate(deps.Wallet, logger)
	life := session.NewLifecycle(gate, deps.Chain, conv, session.Target{
		Contract: common.HexToAddress(cfg.Chain.ContractAddress),
		Method:   cfg.Chain.InvestMethod,
	}, logger)
	deps.Session = session.New(gate, life, cat)
	closers = append(closers, deps.Session.Close)

	// --- Signal bus ---
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return fail(fmt.Errorf("wire: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })
		deps.SignalBus = redis.NewSignalBus(rc)
	} else {
		deps.SignalBus = local.New(logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Event bridge ---
	var notifier events.Notifier
	if deps.Notifier.Enabled() {
		notifier = deps.Notifier
	}
	deps.Bridge = events.NewBridge(deps.SignalBus, metrics.NewSession(), notifier, logger)
	deps.Bridge.Attach(gate, life)
	closers = append(closers, deps.Bridge.Close)

	logger.InfoContext(ctx, "dependencies wired",
		slog.Int("assets", cat.Len()),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.Int("notify_senders", len(senders)),
		slog.String("contract", cfg.Chain.ContractAddress),
	)

	return deps, cleanup, nil
}
