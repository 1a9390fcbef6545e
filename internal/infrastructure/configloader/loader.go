package configloader

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config/config.yml"

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// IdentityConfig holds the identity provider client configuration.
type IdentityConfig struct {
	BaseURL              string `yaml:"baseURL"`
	AppID                string `yaml:"appId"`
	AppSecret            string `yaml:"-"` // only from the environment
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	RetryCount           int    `yaml:"retryCount"`
}

// NetworkNodeConfig overrides RPC endpoints of a predefined network.
type NetworkNodeConfig struct {
	Chain           string   `yaml:"chain"`
	RPCURL          string   `yaml:"rpcURL"`
	FallbackRPCURLs []string `yaml:"fallbackRpcURLs"`
}

// DEXScreenerConfig holds DEXScreener API specific configurations.
type DEXScreenerConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// TokenPriceServiceConfig holds configuration for the TokenPriceService.
type TokenPriceServiceConfig struct {
	MaxTokensPerBatchRequest int `yaml:"maxTokensPerBatchRequest"`
	CacheTTLMinutes          int `yaml:"cacheTTLMinutes"`
	MaxConcurrentRequests    int `yaml:"maxConcurrentRequests"`
}

// BinanceConfig configures the SOL/USD price feed.
type BinanceConfig struct {
	Enabled               bool   `yaml:"enabled"`
	StreamURL             string `yaml:"streamURL"`
	RESTBaseURL           string `yaml:"restBaseURL"`
	Symbol                string `yaml:"symbol"`
	RequestTimeoutMillis  int64  `yaml:"requestTimeoutMillis"`
	ReconnectDelaySeconds int    `yaml:"reconnectDelaySeconds"`
}

// RpcClientConfig holds configuration for RPC clients.
type RpcClientConfig struct {
	RateLimit             int `yaml:"rateLimit"`
	BurstLimit            int `yaml:"burstLimit"`
	CallTimeoutSeconds    int `yaml:"callTimeoutSeconds"`
	ConnectTimeoutSeconds int `yaml:"connectTimeoutSeconds"`
}

// PortfolioConfig controls fetching and caching of chain portfolios.
type PortfolioConfig struct {
	EVMChain              string `yaml:"evmChain"`
	TokensDir             string `yaml:"tokensDir"`
	StaleAfterSeconds     int    `yaml:"staleAfterSeconds"`
	CacheRetentionMinutes int    `yaml:"cacheRetentionMinutes"`
	FetchTimeoutSeconds   int    `yaml:"fetchTimeoutSeconds"`
	SessionTTLMinutes     int    `yaml:"sessionTTLMinutes"`
}

// PresentationConfig holds UI feedback settings.
type PresentationConfig struct {
	CopyFeedbackMillis int64 `yaml:"copyFeedbackMillis"`
}

// RoutingConfig defines the entry path and where it redirects to.
type RoutingConfig struct {
	EntryPath   string `yaml:"entryPath"`
	LandingPath string `yaml:"landingPath"`
}

// CORSConfig lists the allowed origins. Empty allows all.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	SpecFile string `yaml:"specFile"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig            `yaml:"server"`
	Logging       LoggingConfig           `yaml:"logging"`
	Identity      IdentityConfig          `yaml:"identity"`
	Networks      []NetworkNodeConfig     `yaml:"networks"`
	DEXScreener   DEXScreenerConfig       `yaml:"dexScreener"`
	TokenPriceSvc TokenPriceServiceConfig `yaml:"tokenPriceService"`
	Binance       BinanceConfig           `yaml:"binance"`
	RpcClient     RpcClientConfig         `yaml:"rpcClient"`
	Portfolio     PortfolioConfig         `yaml:"portfolio"`
	Presentation  PresentationConfig      `yaml:"presentation"`
	Routing       RoutingConfig           `yaml:"routing"`
	CORS          CORSConfig              `yaml:"cors"`
	Swagger       SwaggerConfig           `yaml:"swagger"`
}

// ResolvePath returns CONFIG_PATH when set, DefaultPath otherwise.
func ResolvePath() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML configuration file from the given path, applies
// environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals raw YAML and applies overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data: %v", err)
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRIVY_APP_ID"); v != "" {
		cfg.Identity.AppID = v
	}
	if v := os.Getenv("PRIVY_APP_SECRET"); v != "" {
		cfg.Identity.AppSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	overrides := map[string]string{
		"solana":    os.Getenv("SOLANA_RPC_URL"),
		"evm:42161": os.Getenv("ARBITRUM_RPC_URL"),
	}
	for chain, url := range overrides {
		if url == "" {
			continue
		}
		found := false
		for i := range cfg.Networks {
			if strings.EqualFold(cfg.Networks[i].Chain, chain) {
				cfg.Networks[i].RPCURL = url
				found = true
			}
		}
		if !found {
			cfg.Networks = append(cfg.Networks, NetworkNodeConfig{Chain: chain, RPCURL: url})
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Identity.BaseURL == "" {
		cfg.Identity.BaseURL = "https://auth.privy.io"
		logrus.Infof("Identity.BaseURL not set, defaulting to %s", cfg.Identity.BaseURL)
	}
	if cfg.Identity.RequestTimeoutMillis == 0 {
		cfg.Identity.RequestTimeoutMillis = 10000
		logrus.Infof("Identity.RequestTimeoutMillis not set, defaulting to %d ms", cfg.Identity.RequestTimeoutMillis)
	}
	if cfg.Identity.RetryCount < 0 {
		cfg.Identity.RetryCount = 0
	}

	if cfg.DEXScreener.BaseURL == "" {
		cfg.DEXScreener.BaseURL = "https://api.dexscreener.com"
		logrus.Infof("DEXScreener.BaseURL not set, defaulting to %s", cfg.DEXScreener.BaseURL)
	}
	if cfg.DEXScreener.RequestTimeoutMillis == 0 {
		cfg.DEXScreener.RequestTimeoutMillis = 10000
		logrus.Infof("DEXScreener.RequestTimeoutMillis not set, defaulting to %d ms", cfg.DEXScreener.RequestTimeoutMillis)
	}

	if cfg.TokenPriceSvc.MaxTokensPerBatchRequest == 0 {
		cfg.TokenPriceSvc.MaxTokensPerBatchRequest = 30 // DEXScreener limit
		logrus.Infof("MaxTokensPerBatchRequest for TokenPriceSvc not set, defaulting to %d", cfg.TokenPriceSvc.MaxTokensPerBatchRequest)
	}
	if cfg.TokenPriceSvc.CacheTTLMinutes == 0 {
		cfg.TokenPriceSvc.CacheTTLMinutes = 5
		logrus.Infof("CacheTTLMinutes for TokenPriceSvc not set, defaulting to %d minutes", cfg.TokenPriceSvc.CacheTTLMinutes)
	}
	if cfg.TokenPriceSvc.MaxConcurrentRequests <= 0 {
		cfg.TokenPriceSvc.MaxConcurrentRequests = 4
	}

	if cfg.Binance.StreamURL == "" {
		cfg.Binance.StreamURL = "wss://stream.binance.com:9443/ws/solusdt@trade"
	}
	if cfg.Binance.RESTBaseURL == "" {
		cfg.Binance.RESTBaseURL = "https://api.binance.com"
	}
	if cfg.Binance.Symbol == "" {
		cfg.Binance.Symbol = "SOLUSDT"
	}
	if cfg.Binance.RequestTimeoutMillis == 0 {
		cfg.Binance.RequestTimeoutMillis = 5000
	}
	if cfg.Binance.ReconnectDelaySeconds <= 0 {
		cfg.Binance.ReconnectDelaySeconds = 5
	}

	if cfg.RpcClient.RateLimit <= 0 {
		cfg.RpcClient.RateLimit = 10
		logrus.Infof("RpcClient.RateLimit not set, defaulting to %d req/s", cfg.RpcClient.RateLimit)
	}
	if cfg.RpcClient.BurstLimit <= 0 {
		cfg.RpcClient.BurstLimit = cfg.RpcClient.RateLimit
	}
	if cfg.RpcClient.CallTimeoutSeconds <= 0 {
		cfg.RpcClient.CallTimeoutSeconds = 10
	}
	if cfg.RpcClient.ConnectTimeoutSeconds <= 0 {
		cfg.RpcClient.ConnectTimeoutSeconds = 10
	}

	if cfg.Portfolio.EVMChain == "" {
		cfg.Portfolio.EVMChain = "evm:42161"
		logrus.Infof("Portfolio.EVMChain not set, defaulting to %s", cfg.Portfolio.EVMChain)
	}
	if cfg.Portfolio.TokensDir == "" {
		cfg.Portfolio.TokensDir = "data/tokens"
	}
	if cfg.Portfolio.StaleAfterSeconds <= 0 {
		cfg.Portfolio.StaleAfterSeconds = 30
	}
	if cfg.Portfolio.CacheRetentionMinutes <= 0 {
		cfg.Portfolio.CacheRetentionMinutes = 10
	}
	if cfg.Portfolio.FetchTimeoutSeconds <= 0 {
		cfg.Portfolio.FetchTimeoutSeconds = 20
	}
	if cfg.Portfolio.SessionTTLMinutes <= 0 {
		cfg.Portfolio.SessionTTLMinutes = 30
	}

	if cfg.Presentation.CopyFeedbackMillis <= 0 {
		cfg.Presentation.CopyFeedbackMillis = 1000
	}

	if cfg.Routing.EntryPath == "" {
		cfg.Routing.EntryPath = "/"
	}
	if cfg.Routing.LandingPath == "" {
		cfg.Routing.LandingPath = "/chat"
	}

	if cfg.Swagger.Path == "" {
		cfg.Swagger.Path = "/swagger"
	}
	if cfg.Swagger.SpecFile == "" {
		cfg.Swagger.SpecFile = "./docs/swagger.yaml"
	}
}

// Validate reports configuration errors that defaults cannot fix.
func (c *Config) Validate() error {
	if c.Routing.EntryPath == c.Routing.LandingPath {
		return fmt.Errorf("routing.landingPath must differ from routing.entryPath (%s)", c.Routing.EntryPath)
	}
	if !strings.HasPrefix(c.Routing.LandingPath, "/") {
		return fmt.Errorf("routing.landingPath must be absolute, got %q", c.Routing.LandingPath)
	}
	for _, n := range c.Networks {
		if n.Chain == "" {
			logrus.Warnf("Network override without chain, it will be ignored (rpcURL %s)", n.RPCURL)
		}
	}
	return nil
}

// StaleAfter is the age after which a cached chain result is revalidated.
func (p PortfolioConfig) StaleAfter() time.Duration {
	return time.Duration(p.StaleAfterSeconds) * time.Second
}

// CacheRetention is how long chain results stay in the cache.
func (p PortfolioConfig) CacheRetention() time.Duration {
	return time.Duration(p.CacheRetentionMinutes) * time.Minute
}

// FetchTimeout bounds a single chain fetch.
func (p PortfolioConfig) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutSeconds) * time.Second
}

// SessionTTL is how long an idle session is kept.
func (p PortfolioConfig) SessionTTL() time.Duration {
	return time.Duration(p.SessionTTLMinutes) * time.Minute
}

// CopyFeedback is how long a "copied" indicator stays on.
func (p PresentationConfig) CopyFeedback() time.Duration {
	return time.Duration(p.CopyFeedbackMillis) * time.Millisecond
}
