// Package config defines the top-level configuration for the RWA exchange
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by RWAX_* environment variables.
type Config struct {
	Wallet   WalletConfig  `toml:"wallet"`
	Chain    ChainConfig   `toml:"chain"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Notify   NotifyConfig  `toml:"notify"`
	Invest   InvestConfig  `toml:"invest"`
	Assets   []AssetConfig `toml:"assets"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// WalletConfig holds the credentials of the session wallet.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	// AutoConnect connects the wallet at startup instead of waiting for
	// POST /api/wallet/connect.
	AutoConnect bool `toml:"auto_connect"`
}

// ChainConfig holds the chain endpoint and the investment contract binding.
type ChainConfig struct {
	RPCURL string `toml:"rpc_url"`
	// ChainID is the expected chain. 0 accepts whatever the endpoint reports.
	ChainID         int    `toml:"chain_id"`
	ContractAddress string `toml:"contract_address"`
	InvestMethod    string `toml:"invest_method"`
	// USDPerNative is the fixed exchange rate used to price investments, as a
	// decimal string (e.g. "2000").
	USDPerNative       string   `toml:"usd_per_native"`
	NativeDecimals     int      `toml:"native_decimals"`
	PollInterval       duration `toml:"poll_interval"`
	ConfirmTimeout     duration `toml:"confirm_timeout"`
	GasLimitMultiplier float64  `toml:"gas_limit_multiplier"`
}

// RedisConfig holds Redis connection parameters. When Enabled is false the
// signal bus stays in process.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// InvestConfig drives the one-shot "invest" mode.
type InvestConfig struct {
	AssetID string `toml:"asset_id"`
	// Amount in USD; empty means the asset's minimum investment.
	Amount string `toml:"amount"`
}

// AssetConfig is one [[assets]] catalog entry. Amounts are decimal strings so
// they are never routed through float64.
type AssetConfig struct {
	ID              string `toml:"id"`
	Name            string `toml:"name"`
	Category        string `toml:"category"`
	Location        string `toml:"location"`
	TotalValue      string `toml:"total_value"`
	AvailableTokens uint64 `toml:"available_tokens"`
	MinInvestment   string `toml:"min_investment"`
	Yield           string `toml:"yield"`
	Confidential    bool   `toml:"confidential"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:             "http://localhost:8545",
			ChainID:            0,
			ContractAddress:    "0x0000000000000000000000000000000000000000",
			InvestMethod:       "makeInvestment",
			USDPerNative:       "2000",
			NativeDecimals:     18,
			PollInterval:       duration{4 * time.Second},
			ConfirmTimeout:     duration{3 * time.Minute},
			GasLimitMultiplier: 1.2,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"investment_confirmed", "investment_failed"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// DemoAssets is the catalog used when the config file declares none. It is
// applied by Load after decoding, not by Defaults, so a file's [[assets]]
// never merges field-by-field into the demo entries.
func DemoAssets() []AssetConfig {
	return []AssetConfig{
		{
			ID: "1", Name: "Manhattan Office Tower", Category: "real-estate", Location: "New York, NY",
			TotalValue: "2500000", AvailableTokens: 1000, MinInvestment: "5000", Yield: "8.2", Confidential: true,
		},
		{
			ID: "2", Name: "Gold Bullion Reserve", Category: "commodity", Location: "London, UK",
			TotalValue: "1800000", AvailableTokens: 500, MinInvestment: "10000", Yield: "6.5", Confidential: true,
		},
		{
			ID: "3", Name: "Miami Residential Complex", Category: "real-estate", Location: "Miami, FL",
			TotalValue: "3200000", AvailableTokens: 1600, MinInvestment: "2500", Yield: "9.1", Confidential: true,
		},
		{
			ID: "4", Name: "Swiss Art Collection", Category: "art", Location: "Zurich, CH",
			TotalValue: "950000", AvailableTokens: 200, MinInvestment: "15000", Yield: "12.4", Confidential: true,
		},
	}
}

// PollEvery returns the receipt polling interval.
func (c ChainConfig) PollEvery() time.Duration { return c.PollInterval.Duration }

// ConfirmWithin returns how long the chain client waits for a receipt.
func (c ChainConfig) ConfirmWithin() time.Duration { return c.ConfirmTimeout.Duration }

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"invest": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, invest)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet: a credential source is needed before any connect can succeed.
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		if c.Wallet.AutoConnect || strings.ToLower(c.Mode) == "invest" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set")
		}
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID < 0 {
		errs = append(errs, "chain: chain_id must be >= 0")
	}
	if !common.IsHexAddress(c.Chain.ContractAddress) {
		errs = append(errs, fmt.Sprintf("chain: contract_address %q is not a hex address", c.Chain.ContractAddress))
	}
	if c.Chain.InvestMethod == "" {
		errs = append(errs, "chain: invest_method must not be empty")
	}
	if rate, err := decimal.NewFromString(c.Chain.USDPerNative); err != nil || !rate.IsPositive() {
		errs = append(errs, fmt.Sprintf("chain: usd_per_native must be a positive decimal, got %q", c.Chain.USDPerNative))
	}
	if c.Chain.NativeDecimals < 1 || c.Chain.NativeDecimals > 36 {
		errs = append(errs, fmt.Sprintf("chain: native_decimals must be 1-36, got %d", c.Chain.NativeDecimals))
	}
	if c.Chain.PollInterval.Duration <= 0 {
		errs = append(errs, "chain: poll_interval must be > 0")
	}
	if c.Chain.ConfirmTimeout.Duration <= 0 {
		errs = append(errs, "chain: confirm_timeout must be > 0")
	}
	if c.Chain.GasLimitMultiplier < 1 {
		errs = append(errs, "chain: gas_limit_multiplier must be >= 1")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Server
	if strings.ToLower(c.Mode) == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Invest
	if strings.ToLower(c.Mode) == "invest" && c.Invest.AssetID == "" {
		errs = append(errs, "invest: asset_id is required for mode invest")
	}
	if c.Invest.Amount != "" {
		if _, err := decimal.NewFromString(c.Invest.Amount); err != nil {
			errs = append(errs, fmt.Sprintf("invest: amount %q is not a decimal", c.Invest.Amount))
		}
	}

	// Assets
	if len(c.Assets) == 0 {
		errs = append(errs, "assets: at least one [[assets]] entry is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
