package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies RWAX_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Assets) == 0 {
		cfg.Assets = DemoAssets()
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known RWAX_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "RWAX_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "RWAX_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "RWAX_WALLET_KEY_PASSWORD")
	setBool(&cfg.Wallet.AutoConnect, "RWAX_WALLET_AUTO_CONNECT")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "RWAX_CHAIN_RPC_URL")
	setInt(&cfg.Chain.ChainID, "RWAX_CHAIN_CHAIN_ID")
	setStr(&cfg.Chain.ContractAddress, "RWAX_CHAIN_CONTRACT_ADDRESS")
	setStr(&cfg.Chain.InvestMethod, "RWAX_CHAIN_INVEST_METHOD")
	setStr(&cfg.Chain.USDPerNative, "RWAX_CHAIN_USD_PER_NATIVE")
	setInt(&cfg.Chain.NativeDecimals, "RWAX_CHAIN_NATIVE_DECIMALS")
	setDuration(&cfg.Chain.PollInterval, "RWAX_CHAIN_POLL_INTERVAL")
	setDuration(&cfg.Chain.ConfirmTimeout, "RWAX_CHAIN_CONFIRM_TIMEOUT")
	setFloat64(&cfg.Chain.GasLimitMultiplier, "RWAX_CHAIN_GAS_LIMIT_MULTIPLIER")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "RWAX_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "RWAX_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "RWAX_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "RWAX_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "RWAX_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "RWAX_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "RWAX_REDIS_TLS_ENABLED")

	// ── Server ──
	setInt(&cfg.Server.Port, "RWAX_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "RWAX_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "RWAX_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "RWAX_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "RWAX_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "RWAX_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "RWAX_NOTIFY_EVENTS")

	// ── Invest ──
	setStr(&cfg.Invest.AssetID, "RWAX_INVEST_ASSET_ID")
	setStr(&cfg.Invest.Amount, "RWAX_INVEST_AMOUNT")

	// ── Top-level ──
	setStr(&cfg.Mode, "RWAX_MODE")
	setStr(&cfg.LogLevel, "RWAX_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
