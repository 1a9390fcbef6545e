package service

import (
	"context"
	"fmt"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/pkg/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// solanaAssetSource implements port.ChainAssetSource for Solana: native SOL plus the
// SPL tokens held by the wallet. Token metadata comes from the price quotes.
type solanaAssetSource struct {
	network     entity.NetworkDefinition
	client      port.SolanaBalanceClient
	prices      port.TokenPriceService
	nativePrice port.NativePriceSource
	logger      port.Logger
}

// NewSolanaAssetSource creates the Solana asset source. nativePrice may be nil, SOL is
// then priced from the wrapped SOL quote.
func NewSolanaAssetSource(
	network entity.NetworkDefinition,
	client port.SolanaBalanceClient,
	prices port.TokenPriceService,
	nativePrice port.NativePriceSource,
	logger port.Logger,
) port.ChainAssetSource {
	return &solanaAssetSource{
		network:     network,
		client:      client,
		prices:      prices,
		nativePrice: nativePrice,
		logger:      logger,
	}
}

func (s *solanaAssetSource) Chain() entity.Chain { return entity.ChainSolana }

// FetchAssets returns native SOL first, then the SPL balances ordered by mint.
func (s *solanaAssetSource) FetchAssets(ctx context.Context, address string) ([]entity.Asset, error) {
	var (
		lamports uint64
		balances []entity.SPLTokenBalance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lamports, err = s.client.GetNativeBalance(gctx, address)
		return err
	})
	g.Go(func() error {
		var err error
		balances, err = s.client.GetTokenBalances(gctx, address)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read solana wallet %s: %w", address, err)
	}

	addrs := make([]string, 0, len(balances)+1)
	if s.network.WrappedNativeTokenAddress != "" {
		addrs = append(addrs, s.network.WrappedNativeTokenAddress)
	}
	for _, b := range balances {
		addrs = append(addrs, b.Mint)
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

	assets := make([]entity.Asset, 0, len(balances)+1)
	if lamports > 0 {
		wrapped := quotes[s.network.WrappedNativeTokenAddress]
		assets = append(assets, entity.Asset{
			Address:  entity.SolanaNativeAddress,
			Chain:    entity.ChainSolana,
			Symbol:   s.network.NativeSymbol,
			Name:     s.network.NativeName,
			LogoURI:  wrapped.LogoURI,
			Decimals: s.network.Decimals,
			Price:    s.solPrice(ctx, wrapped),
			Amount:   utils.LamportsToDecimal(lamports, s.network.Decimals),
		})
	}

	for _, b := range balances {
		asset := entity.Asset{
			Address:  b.Mint,
			Chain:    entity.ChainSolana,
			Symbol:   shortMint(b.Mint),
			Name:     b.Mint,
			Decimals: b.Decimals,
			Price:    decimal.Zero,
			Amount:   b.Amount,
		}
		if q, ok := quotes[b.Mint]; ok {
			asset.Price = q.PriceUSD
			asset.LogoURI = q.LogoURI
			if q.Symbol != "" {
				asset.Symbol = q.Symbol
			}
			if q.Name != "" {
				asset.Name = q.Name
			}
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// solPrice prefers the streamed SOL/USD price and falls back to the wrapped SOL quote.
func (s *solanaAssetSource) solPrice(ctx context.Context, wrapped entity.TokenQuote) decimal.Decimal {
	if s.nativePrice != nil {
		price, err := s.nativePrice.NativePriceUSD(ctx)
		if err == nil && price.IsPositive() {
			return price
		}
		if err != nil {
			s.logger.Debug("SOL price unavailable, using wrapped SOL quote", "error", err)
		}
	}
	return wrapped.PriceUSD
}

func shortMint(mint string) string {
	if len(mint) <= 8 {
		return mint
	}
	return mint[:4] + "..." + mint[len(mint)-4:]
}
