package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/infrastructure/httpclient"
	"crosschain_portfolio/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	stablecoinUSDCSymbol = "USDC"
	stablecoinUSDTSymbol = "USDT"
	stablecoinDAISymbol  = "DAI"
)

var stablecoinSymbols = map[string]struct{}{
	stablecoinUSDCSymbol: {},
	stablecoinUSDTSymbol: {},
	stablecoinDAISymbol:  {},
}

// TokenPriceOptions configures the price service.
type TokenPriceOptions struct {
	MaxTokensPerBatch int
	MaxConcurrent     int
	CacheTTL          time.Duration
}

// tokenPriceServiceImpl implements port.TokenPriceService on top of DEXScreener.
type tokenPriceServiceImpl struct {
	dexscreenerClient httpclient.DEXScreenerClient
	logger            port.Logger
	quotes            *cache.Cache // "dexChainID_address" -> entity.TokenQuote
	batchSize         int
	concurrency       int
}

// NewTokenPriceService creates a new instance of tokenPriceServiceImpl.
func NewTokenPriceService(dsc httpclient.DEXScreenerClient, l port.Logger, opts TokenPriceOptions) port.TokenPriceService {
	if opts.MaxTokensPerBatch <= 0 {
		opts.MaxTokensPerBatch = 30
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &tokenPriceServiceImpl{
		dexscreenerClient: dsc,
		logger:            l,
		quotes:            cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		batchSize:         opts.MaxTokensPerBatch,
		concurrency:       opts.MaxConcurrent,
	}
}

// GetQuotes returns cached quotes and fetches the missing ones in parallel batches.
// A failed batch leaves its tokens unpriced and is reported in the joined error.
func (s *tokenPriceServiceImpl) GetQuotes(ctx context.Context, network entity.NetworkDefinition, addresses []string) (map[string]entity.TokenQuote, error) {
	quotes := make(map[string]entity.TokenQuote, len(addresses))
	dexID := network.DEXScreenerChainID
	if dexID == "" {
		return quotes, fmt.Errorf("network %s has no DEXScreener chain id", network.Name)
	}

	seen := make(map[string]struct{}, len(addresses))
	missing := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		key := NormalizeAddress(addr)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if v, ok := s.quotes.Get(quoteCacheKey(dexID, key)); ok {
			quotes[key] = v.(entity.TokenQuote)
			continue
		}
		missing = append(missing, addr)
	}
	if len(missing) == 0 {
		return quotes, nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, batch := range utils.Batch(missing, s.batchSize) {
		batch := batch
		g.Go(func() error {
			pairs, err := s.dexscreenerClient.GetTokenPairsByAddresses(gctx, dexID, batch)
			if err != nil {
				s.logger.Error("Failed to get token pairs from DEXScreener",
					"dexScreenerID", dexID,
					"token_addresses_count", len(batch),
					"error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}

			for _, addr := range batch {
				quote, ok := s.quoteFromPairs(pairs, addr)
				if !ok {
					s.logger.Debug("No price found for token", "dexScreenerID", dexID, "tokenAddress", addr)
					continue
				}
				key := NormalizeAddress(addr)
				s.quotes.Set(quoteCacheKey(dexID, key), quote, cache.DefaultExpiration)
				mu.Lock()
				quotes[key] = quote
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug("Token quotes resolved",
		"dexScreenerID", dexID,
		"requested", len(seen),
		"priced", len(quotes),
		"failedBatches", len(errs))
	return quotes, errors.Join(errs...)
}

func (s *tokenPriceServiceImpl) quoteFromPairs(pairs []httpclient.PairData, address string) (entity.TokenQuote, bool) {
	best := s.selectBestPair(pairs, address)
	if best == nil {
		return entity.TokenQuote{}, false
	}
	price, err := decimal.NewFromString(best.PriceUsd)
	if err != nil || price.IsNegative() {
		s.logger.Warn("Failed to parse token price from DEXScreener",
			"tokenAddress", address,
			"price_string", best.PriceUsd,
			"error", err)
		return entity.TokenQuote{}, false
	}

	quote := entity.TokenQuote{
		Address:  address,
		Symbol:   best.BaseToken.Symbol,
		Name:     best.BaseToken.Name,
		PriceUSD: price,
	}
	if best.Info != nil {
		quote.LogoURI = best.Info.ImageURL
	}
	return quote, true
}

// selectBestPair prefers the most liquid stablecoin quoted pair, then the most liquid pair overall.
func (s *tokenPriceServiceImpl) selectBestPair(pairs []httpclient.PairData, baseTokenAddress string) *httpclient.PairData {
	var bestOverallPair, bestStablecoinPair *httpclient.PairData

	for i := range pairs {
		pair := &pairs[i]
		if !sameAddress(pair.BaseToken.Address, baseTokenAddress) {
			continue
		}
		if pair.PriceUsd == "" || pair.PriceUsd == "0" {
			continue
		}

		if _, isStablecoin := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]; isStablecoin {
			if bestStablecoinPair == nil || pair.LiquidityUSD() > bestStablecoinPair.LiquidityUSD() {
				bestStablecoinPair = pair
			}
		}
		if bestOverallPair == nil || pair.LiquidityUSD() > bestOverallPair.LiquidityUSD() {
			bestOverallPair = pair
		}
	}

	if bestStablecoinPair != nil {
		return bestStablecoinPair
	}
	return bestOverallPair
}

// NormalizeAddress lowercases EVM hex addresses. Base58 Solana addresses are case
// sensitive and are kept as they are.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		return strings.ToLower(addr)
	}
	return addr
}

func sameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}

func quoteCacheKey(dexID, key string) string {
	return dexID + "_" + key
}
