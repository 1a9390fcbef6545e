package service

import (
	"context"
	"fmt"
	"strings"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const nativeRequestID = "native"

// evmAssetSource implements port.ChainAssetSource for one EVM network: the native
// balance plus every token of the network's token list, priced through DEXScreener.
type evmAssetSource struct {
	network entity.NetworkDefinition
	clients port.BlockchainClientProvider
	tokens  port.TokenProvider
	prices  port.TokenPriceService
	logger  port.Logger
}

// NewEVMAssetSource creates the asset source of an EVM network.
func NewEVMAssetSource(
	network entity.NetworkDefinition,
	clients port.BlockchainClientProvider,
	tokens port.TokenProvider,
	prices port.TokenPriceService,
	logger port.Logger,
) port.ChainAssetSource {
	return &evmAssetSource{
		network: network,
		clients: clients,
		tokens:  tokens,
		prices:  prices,
		logger:  logger,
	}
}

func (s *evmAssetSource) Chain() entity.Chain { return s.network.Chain }

// FetchAssets returns the non-zero balances of address, native asset first and tokens
// in token list order. Unpriced tokens are kept with a zero price.
func (s *evmAssetSource) FetchAssets(ctx context.Context, address string) ([]entity.Asset, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid EVM address %q", address)
	}

	client, err := s.clients.GetClient(s.network)
	if err != nil {
		return nil, fmt.Errorf("failed to get client for %s: %w", s.network.Name, err)
	}

	tokens, err := s.tokens.GetTokens(s.network)
	if err != nil {
		s.logger.Warn("Failed to load tokens, only the native balance is read",
			"network", s.network.Name,
			"error", err)
		tokens = nil
	}

	requests := make([]entity.BalanceRequestItem, 0, len(tokens)+1)
	requests = append(requests, entity.BalanceRequestItem{
		ID:            nativeRequestID,
		Type:          entity.NativeBalanceRequest,
		WalletAddress: address,
		Token: entity.TokenInfo{
			Chain:    s.network.Chain,
			ChainID:  s.network.ChainID,
			Address:  entity.ZeroAddress,
			Name:     s.network.NativeName,
			Symbol:   s.network.NativeSymbol,
			Decimals: s.network.Decimals,
		},
	})
	for _, t := range tokens {
		requests = append(requests, entity.BalanceRequestItem{
			ID:            strings.ToLower(t.Address),
			Type:          entity.TokenBalanceRequest,
			WalletAddress: address,
			Token:         t,
		})
	}

	results, err := client.GetBalances(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances on %s: %w", s.network.Name, err)
	}

	held := make([]entity.BalanceResultItem, 0, len(results))
	for _, res := range results {
		if res.Error != nil {
			if res.IsNative {
				return nil, fmt.Errorf("failed to get native balance on %s: %w", s.network.Name, res.Error)
			}
			s.logger.Warn("Skipping token with failed balance",
				"network", s.network.Name,
				"token", res.Token.Symbol,
				"error", res.Error)
			continue
		}
		if res.Balance == nil || res.Balance.Sign() == 0 {
			continue
		}
		held = append(held, res)
	}
	if len(held) == 0 {
		return []entity.Asset{}, nil
	}

	quotes := s.quotes(ctx, held)

	assets := make([]entity.Asset, 0, len(held))
	for _, res := range held {
		asset := entity.Asset{
			Address:  res.Token.Address,
			Chain:    s.network.Chain,
			Symbol:   res.Token.Symbol,
			Name:     res.Token.Name,
			LogoURI:  res.Token.LogoURI,
			Decimals: res.Token.Decimals,
			Price:    decimal.Zero,
			Amount:   utils.ToDecimal(res.Balance, res.Token.Decimals),
		}

		quoteAddr := res.Token.Address
		if res.IsNative {
			quoteAddr = s.network.WrappedNativeTokenAddress
		}
		if q, ok := quotes[NormalizeAddress(quoteAddr)]; ok {
			asset.Price = q.PriceUSD
			if asset.LogoURI == "" {
				asset.LogoURI = q.LogoURI
			}
			if asset.Name == "" {
				asset.Name = q.Name
			}
			if asset.Symbol == "" {
				asset.Symbol = q.Symbol
			}
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// quotes prices the held tokens; a pricing failure leaves prices at zero.
func (s *evmAssetSource) quotes(ctx context.Context, held []entity.BalanceResultItem) map[string]entity.TokenQuote {
	addrs := make([]string, 0, len(held))
	for _, res := range held {
		if res.IsNative {
			if s.network.WrappedNativeTokenAddress != "" {
				addrs = append(addrs, s.network.WrappedNativeTokenAddress)
			}
			continue
		}
		addrs = append(addrs, res.Token.Address)
	}
	if len(addrs) == 0 {
		return map[string]entity.TokenQuote{}
	}

	quotes, err := s.prices.GetQuotes(ctx, s.network, addrs)
	if err != nil {
		s.logger.Warn("Some token prices could not be fetched",
			"network", s.network.Name,
			"requested", len(addrs),
			"priced", len(quotes),
			"error", err)
	}
	if quotes == nil {
		quotes = map[string]entity.TokenQuote{}
	}
	return quotes
}
