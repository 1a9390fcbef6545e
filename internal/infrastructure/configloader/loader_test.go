package configloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PRIVY_APP_ID", "PRIVY_APP_SECRET", "PORT", "SOLANA_RPC_URL", "ARBITRUM_RPC_URL"} {
		t.Setenv(k, "")
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "https://auth.privy.io", cfg.Identity.BaseURL)
	assert.Equal(t, "https://api.dexscreener.com", cfg.DEXScreener.BaseURL)
	assert.Equal(t, 30, cfg.TokenPriceSvc.MaxTokensPerBatchRequest)
	assert.Equal(t, "evm:42161", cfg.Portfolio.EVMChain)
	assert.Equal(t, 30*time.Second, cfg.Portfolio.StaleAfter())
	assert.Equal(t, 10*time.Minute, cfg.Portfolio.CacheRetention())
	assert.Equal(t, 20*time.Second, cfg.Portfolio.FetchTimeout())
	assert.Equal(t, 30*time.Minute, cfg.Portfolio.SessionTTL())
	assert.Equal(t, time.Second, cfg.Presentation.CopyFeedback())
	assert.Equal(t, "/", cfg.Routing.EntryPath)
	assert.Equal(t, "/chat", cfg.Routing.LandingPath)
	assert.Equal(t, cfg.RpcClient.RateLimit, cfg.RpcClient.BurstLimit)
	assert.Empty(t, cfg.Networks)
}

func TestParse_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRIVY_APP_ID", "app-env")
	t.Setenv("PRIVY_APP_SECRET", "secret-env")
	t.Setenv("PORT", "9090")
	t.Setenv("SOLANA_RPC_URL", "https://solana.example")
	t.Setenv("ARBITRUM_RPC_URL", "https://arbitrum.example")

	cfg, err := Parse([]byte(`
identity:
  appId: app-file
networks:
  - chain: solana
    rpcURL: https://from-file.example
`))
	require.NoError(t, err)

	assert.Equal(t, "app-env", cfg.Identity.AppID)
	assert.Equal(t, "secret-env", cfg.Identity.AppSecret)
	assert.Equal(t, "9090", cfg.Server.Port)
	require.Len(t, cfg.Networks, 2)
	assert.Equal(t, "https://solana.example", cfg.Networks[0].RPCURL)
	assert.Equal(t, NetworkNodeConfig{Chain: "evm:42161", RPCURL: "https://arbitrum.example"}, cfg.Networks[1])
}

func TestParse_SecretNotReadFromFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte("identity:\n  appSecret: leaked\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Identity.AppSecret)
}

func TestParse_Invalid(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("server: ["))
	assert.Error(t, err)

	_, err = Parse([]byte("routing:\n  entryPath: /app\n  landingPath: /app\n"))
	assert.ErrorContains(t, err, "must differ")

	_, err = Parse([]byte("routing:\n  landingPath: chat\n"))
	assert.ErrorContains(t, err, "must be absolute")
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"7000\"\nportfolio:\n  staleAfterSeconds: 5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Portfolio.StaleAfter())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, ResolvePath())

	t.Setenv("CONFIG_PATH", " /etc/portfolio.yml ")
	assert.Equal(t, "/etc/portfolio.yml", ResolvePath())
}
