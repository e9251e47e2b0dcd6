package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndDemoCatalog(t *testing.T) {
	cfg, err := Load(writeConfig(t, `log_level = "debug"`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "2000", cfg.Chain.USDPerNative)
	assert.Equal(t, 4*time.Second, cfg.Chain.PollEvery())
	assert.Equal(t, 3*time.Minute, cfg.Chain.ConfirmWithin())
	require.Len(t, cfg.Assets, 4)
	assert.Equal(t, "Manhattan Office Tower", cfg.Assets[0].Name)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAssetsReplaceDemo(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[chain]
poll_interval = "1s"
confirm_timeout = "45s"

[[assets]]
id = "7"
name = "Tokyo Logistics Hub"
category = "real-estate"
location = "Tokyo, JP"
total_value = "4200000"
available_tokens = 2100
min_investment = "2000"
yield = "7.25"
`))
	require.NoError(t, err)

	require.Len(t, cfg.Assets, 1)
	a := cfg.Assets[0]
	assert.Equal(t, "7", a.ID)
	assert.Equal(t, uint64(2100), a.AvailableTokens)
	assert.False(t, a.Confidential)
	assert.Equal(t, time.Second, cfg.Chain.PollEvery())
	assert.Equal(t, 45*time.Second, cfg.Chain.ConfirmWithin())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RWAX_WALLET_PRIVATE_KEY", "0xabc")
	t.Setenv("RWAX_CHAIN_USD_PER_NATIVE", "2500.50")
	t.Setenv("RWAX_CHAIN_CONFIRM_TIMEOUT", "90s")
	t.Setenv("RWAX_SERVER_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RWAX_REDIS_ENABLED", "true")

	cfg, err := Load(writeConfig(t, ``))
	require.NoError(t, err)

	assert.Equal(t, "0xabc", cfg.Wallet.PrivateKey)
	assert.Equal(t, "2500.50", cfg.Chain.USDPerNative)
	assert.Equal(t, 90*time.Second, cfg.Chain.ConfirmWithin())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "invest"
	cfg.LogLevel = "loud"
	cfg.Chain.ContractAddress = "nope"
	cfg.Chain.USDPerNative = "-1"
	cfg.Chain.GasLimitMultiplier = 0.5

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"log_level",
		"private_key or encrypted_key_path",
		"contract_address",
		"usd_per_native",
		"gas_limit_multiplier",
		"asset_id is required",
		"at least one [[assets]]",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_EncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Assets = DemoAssets()
	cfg.Wallet.EncryptedKeyPath = "/keys/wallet.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "deadbeef"
	cfg.Wallet.KeyPassword = "hunter2"
	cfg.Server.APIKey = "k"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Wallet.PrivateKey)
	assert.Equal(t, "***", out.Wallet.KeyPassword)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Notify.DiscordWebhookURL)
	assert.Empty(t, out.Redis.Password, "empty secrets stay empty")

	out.Server.CORSOrigins[0] = "mutated"
	assert.Equal(t, "http://localhost:3000", cfg.Server.CORSOrigins[0])
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)
}
