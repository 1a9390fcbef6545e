package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/app/service"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/infrastructure/clipboard"
	"crosschain_portfolio/internal/infrastructure/configloader"
	"crosschain_portfolio/internal/infrastructure/httpclient"
	"crosschain_portfolio/internal/infrastructure/identity"
	"crosschain_portfolio/internal/infrastructure/metrics"
	clientprovider "crosschain_portfolio/internal/infrastructure/network/client"
	networkdefinition "crosschain_portfolio/internal/infrastructure/network/definition"
	"crosschain_portfolio/internal/infrastructure/restapi"
	"crosschain_portfolio/internal/infrastructure/tokenloader"
	"crosschain_portfolio/internal/pkg/logger"
	"crosschain_portfolio/internal/presentation"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"
)

const identityWarmUpInterval = 5 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Secrets may come from a local .env file; a missing file is fine.
	_ = godotenv.Load()

	cfgPath := configloader.ResolvePath()
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to load configuration %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewSlogAdapter()
	logger.Info("Portfolio service starting", "config", cfgPath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics := metrics.MustRegister(registry)

	evmChain, err := entity.ParseChain(cfg.Portfolio.EVMChain)
	if err != nil || !evmChain.IsEVM() {
		logger.Fatal("Invalid EVM chain in configuration", "evmChain", cfg.Portfolio.EVMChain, "error", err)
	}

	netDefProvider := networkdefinition.NewNetworkDefinitionProvider(appLogger, evmChain, cfg.Networks)
	solanaDef, ok := netDefProvider.GetNetworkDefinition(entity.ChainSolana)
	if !ok {
		logger.Fatal("No Solana network definition")
	}
	evmDef, ok := netDefProvider.GetNetworkDefinition(evmChain)
	if !ok {
		logger.Fatal("No network definition for EVM chain", "chain", evmChain)
	}

	tokenProvider := tokenloader.NewTokenLoader(cfg.Portfolio.TokensDir, appLogger.Info, appLogger.Warn)
	clientProvider := clientprovider.NewEVMClientProvider(cfg, appLogger.Info, appLogger.Error)

	solanaClient, err := clientprovider.NewSolanaClient(solanaDef, clientprovider.SolanaClientOptions{
		RPCCallTimeout: time.Duration(cfg.RpcClient.CallTimeoutSeconds) * time.Second,
		Limiter:        rate.NewLimiter(rate.Limit(cfg.RpcClient.RateLimit), cfg.RpcClient.BurstLimit),
	})
	if err != nil {
		logger.Fatal("Failed to create Solana client", "error", err)
	}

	dexscreenerAPIClient := httpclient.NewDEXScreenerClient(
		cfg.DEXScreener.BaseURL,
		time.Duration(cfg.DEXScreener.RequestTimeoutMillis)*time.Millisecond,
		zapLogger.Named("DEXScreenerAPIClient"),
		cfg.TokenPriceSvc.MaxTokensPerBatchRequest,
	)
	tokenPriceService := service.NewTokenPriceService(dexscreenerAPIClient, appLogger, service.TokenPriceOptions{
		MaxTokensPerBatch: cfg.TokenPriceSvc.MaxTokensPerBatchRequest,
		MaxConcurrent:     cfg.TokenPriceSvc.MaxConcurrentRequests,
		CacheTTL:          time.Duration(cfg.TokenPriceSvc.CacheTTLMinutes) * time.Minute,
	})

	var solPrice port.NativePriceSource
	if cfg.Binance.Enabled {
		solPriceCache := httpclient.NewSOLPriceCache(httpclient.BinanceOptions{
			StreamURL:      cfg.Binance.StreamURL,
			RESTBaseURL:    cfg.Binance.RESTBaseURL,
			Symbol:         cfg.Binance.Symbol,
			RequestTimeout: time.Duration(cfg.Binance.RequestTimeoutMillis) * time.Millisecond,
			ReconnectDelay: time.Duration(cfg.Binance.ReconnectDelaySeconds) * time.Second,
		}, appLogger)
		go solPriceCache.Run(ctx)
		solPrice = solPriceCache
	}

	sources := map[entity.Chain]port.ChainAssetSource{
		entity.ChainSolana: service.NewSolanaAssetSource(solanaDef, solanaClient, tokenPriceService, solPrice, appLogger),
		evmChain:           service.NewEVMAssetSource(evmDef, clientProvider, tokenProvider, tokenPriceService, appLogger),
	}

	identityClient := identity.NewClient(identity.Options{
		BaseURL:    cfg.Identity.BaseURL,
		AppID:      cfg.Identity.AppID,
		AppSecret:  cfg.Identity.AppSecret,
		Timeout:    time.Duration(cfg.Identity.RequestTimeoutMillis) * time.Millisecond,
		RetryCount: cfg.Identity.RetryCount,
	}, appLogger)
	go identityClient.Run(ctx, identityWarmUpInterval)

	// Fetch results are shared between sessions, keyed by chain and wallet.
	assetStore := cache.New(cfg.Portfolio.CacheRetention(), cfg.Portfolio.CacheRetention()/2)
	newFetcher := func(chain entity.Chain, onChange func()) *service.ChainFetcher {
		return service.NewChainFetcher(sources[chain], assetStore, appLogger, service.FetcherOptions{
			StaleAfter:   cfg.Portfolio.StaleAfter(),
			FetchTimeout: cfg.Portfolio.FetchTimeout(),
			OnChange:     onChange,
			Metrics:      promMetrics,
		})
	}

	gate := service.NewAuthGate(cfg.Routing.EntryPath, cfg.Routing.LandingPath, promMetrics)
	sessions := service.NewSessionRegistry(identityClient, gate, newFetcher, appLogger, service.RegistryOptions{
		SessionTTL: cfg.Portfolio.SessionTTL(),
		EVMChain:   evmChain,
		Metrics:    promMetrics,
	})
	defer sessions.Close()

	presenter := presentation.NewPresenter(gate, clipboard.System{}, cfg.Presentation.CopyFeedback(), cfg.Portfolio.SessionTTL(), appLogger)
	handler := restapi.NewPortfolioHandler(presenter, gate.LandingPath(), cfg.Portfolio.FetchTimeout(), appLogger)
	router := restapi.SetupRouter(restapi.RouterDeps{
		Handler:   handler,
		Registry:  sessions,
		Presenter: presenter,
		Gatherer:  registry,
		Logger:    zapLogger.Named("http"),
		Routing:   cfg.Routing,
		CORS:      cfg.CORS,
		Swagger:   cfg.Swagger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan

	logger.Info("Shutdown signal received, stopping HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	cancel()
	logger.Info("Portfolio service stopped")
}
