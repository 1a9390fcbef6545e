package port

import (
	"context"

	"crosschain_portfolio/internal/domain/entity"
)

// BlockchainClient fetches EVM balances for one network with JSON-RPC batch requests.
type BlockchainClient interface {
	GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error)

	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition
}

// BlockchainClientProvider hands out one cached client per network.
type BlockchainClientProvider interface {
	GetClient(networkDefinition entity.NetworkDefinition) (BlockchainClient, error)
}

// SolanaBalanceClient reads native and SPL balances of a Solana wallet.
type SolanaBalanceClient interface {
	// GetNativeBalance returns the wallet balance in lamports.
	GetNativeBalance(ctx context.Context, owner string) (uint64, error)

	// GetTokenBalances returns SPL balances aggregated by mint.
	GetTokenBalances(ctx context.Context, owner string) ([]entity.SPLTokenBalance, error)
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinition returns the definition of a chain and true if it is known.
	GetNetworkDefinition(chain entity.Chain) (entity.NetworkDefinition, bool)
}

// ChainAssetSource produces the normalized assets a wallet holds on one chain.
type ChainAssetSource interface {
	Chain() entity.Chain
	FetchAssets(ctx context.Context, address string) ([]entity.Asset, error)
}
