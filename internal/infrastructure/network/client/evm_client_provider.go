package client

import (
	"fmt"
	"sync"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/infrastructure/configloader"

	"golang.org/x/time/rate"
)

// evmClientProvider implements the port.BlockchainClientProvider interface.
type evmClientProvider struct {
	clients           map[entity.Chain]*EVMClient // klucz to chain, np. evm:42161
	mu                sync.Mutex
	loggerInfo        func(msg string, args ...any)
	loggerError       func(msg string, args ...any)
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
	rateLimit         rate.Limit
	burst             int
}

// NewEVMClientProvider creates a new EVMClientProvider. Each network gets its own limiter.
func NewEVMClientProvider(
	cfg *configloader.Config,
	loggerInfo func(msg string, args ...any),
	loggerError func(msg string, args ...any),
) port.BlockchainClientProvider {
	return &evmClientProvider{
		clients:           make(map[entity.Chain]*EVMClient),
		loggerInfo:        loggerInfo,
		loggerError:       loggerError,
		connectionTimeout: time.Duration(cfg.RpcClient.ConnectTimeoutSeconds) * time.Second,
		rpcCallTimeout:    time.Duration(cfg.RpcClient.CallTimeoutSeconds) * time.Second,
		rateLimit:         rate.Limit(cfg.RpcClient.RateLimit),
		burst:             cfg.RpcClient.BurstLimit,
	}
}

// GetClient retrieves a blockchain client for the given network definition.
// It caches clients to avoid reconnecting repeatedly.
func (p *evmClientProvider) GetClient(netDef entity.NetworkDefinition) (port.BlockchainClient, error) {
	if !netDef.Chain.IsEVM() {
		return nil, fmt.Errorf("network %s is not an EVM chain", netDef.Name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, exists := p.clients[netDef.Chain]; exists {
		// Тут можно добавить проверку жизнеспособности клиента
		return c, nil
	}

	p.loggerInfo("Creating new EVM client", "network", netDef.Name, "rpc_primary", netDef.PrimaryRPCURL)
	newClient, err := NewEVMClient(netDef, EVMClientOptions{
		ConnectionTimeout: p.connectionTimeout,
		RPCCallTimeout:    p.rpcCallTimeout,
		Limiter:           rate.NewLimiter(p.rateLimit, p.burst), // osobny limiter dla każdej sieci
	})
	if err != nil {
		p.loggerError("Failed to create EVM client", "network", netDef.Name, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", netDef.Name, err)
	}

	p.clients[netDef.Chain] = newClient
	return newClient, nil
}
