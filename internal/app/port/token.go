package port

import (
	"context"

	"crosschain_portfolio/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// TokenProvider defines the interface for fetching token definitions.
type TokenProvider interface {
	// GetTokens returns the tracked tokens of a network.
	GetTokens(network entity.NetworkDefinition) ([]entity.TokenInfo, error)
}

// TokenPriceService resolves USD prices and token metadata.
type TokenPriceService interface {
	// GetQuotes returns quotes keyed by normalized token address. The map holds whatever
	// could be priced; the error reports batches that failed.
	GetQuotes(ctx context.Context, network entity.NetworkDefinition, addresses []string) (map[string]entity.TokenQuote, error)
}

// NativePriceSource returns the USD price of a chain's native asset.
type NativePriceSource interface {
	NativePriceUSD(ctx context.Context) (decimal.Decimal, error)
}
