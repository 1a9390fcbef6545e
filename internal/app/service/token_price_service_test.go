package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/infrastructure/httpclient"
	"crosschain_portfolio/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testArbitrum = entity.NetworkDefinition{
	Chain:                     testEVMChain,
	ChainID:                   entity.ArbitrumChainID,
	Name:                      "Arbitrum One",
	Identifier:                "arbitrum",
	NativeSymbol:              "ETH",
	NativeName:                "Ether",
	Decimals:                  18,
	DEXScreenerChainID:        "arbitrum",
	WrappedNativeTokenAddress: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
}

func pair(base, quoteSymbol, price string, liquidity float64) httpclient.PairData {
	return httpclient.PairData{
		BaseToken:  httpclient.DEXToken{Address: base, Symbol: "TKN", Name: "Token"},
		QuoteToken: httpclient.DEXToken{Symbol: quoteSymbol},
		PriceUsd:   price,
		Liquidity:  &httpclient.DEXLiquidity{Usd: liquidity},
		Info:       &httpclient.PairInfo{ImageURL: "https://img.example/" + base + ".png"},
	}
}

func TestTokenPriceService_PrefersStablecoinPair(t *testing.T) {
	const token = "0xAAAA000000000000000000000000000000000001"
	dex := new(MockDEXScreenerClient)
	dex.On("GetTokenPairsByAddresses", mock.Anything, "arbitrum", []string{token}).Return([]httpclient.PairData{
		pair(token, "WETH", "1.10", 5_000_000),
		pair(token, "USDC", "1.01", 100_000),
		pair(token, "USDT", "1.02", 200_000),
		pair("0xother", "USDC", "9", 9_000_000),
	}, nil)
	svc := NewTokenPriceService(dex, logger.Nop(), TokenPriceOptions{})

	quotes, err := svc.GetQuotes(context.Background(), testArbitrum, []string{token})
	require.NoError(t, err)
	q, ok := quotes[NormalizeAddress(token)]
	require.True(t, ok)
	assert.Equal(t, "1.02", q.PriceUSD.String())
	assert.Equal(t, "TKN", q.Symbol)
	assert.Contains(t, q.LogoURI, "https://img.example/")
}

func TestTokenPriceService_FallsBackToMostLiquidPair(t *testing.T) {
	const token = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	network := entity.NetworkDefinition{Chain: entity.ChainSolana, Name: "Solana", DEXScreenerChainID: "solana"}
	dex := new(MockDEXScreenerClient)
	dex.On("GetTokenPairsByAddresses", mock.Anything, "solana", []string{token}).Return([]httpclient.PairData{
		pair(token, "SOL", "0.00002", 10),
		pair(token, "RAY", "0.00003", 1_000),
		pair(token, "JUP", "0", 1_000_000),
	}, nil)
	svc := NewTokenPriceService(dex, logger.Nop(), TokenPriceOptions{})

	quotes, err := svc.GetQuotes(context.Background(), network, []string{token})
	require.NoError(t, err)
	// Solana mints are case sensitive and keyed as given.
	require.Contains(t, quotes, token)
	assert.Equal(t, "0.00003", quotes[token].PriceUSD.String())
}

func TestTokenPriceService_CachesQuotes(t *testing.T) {
	const token = "0xAAAA000000000000000000000000000000000001"
	dex := new(MockDEXScreenerClient)
	dex.On("GetTokenPairsByAddresses", mock.Anything, "arbitrum", []string{token}).
		Return([]httpclient.PairData{pair(token, "USDC", "2", 1)}, nil).Once()
	svc := NewTokenPriceService(dex, logger.Nop(), TokenPriceOptions{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		quotes, err := svc.GetQuotes(context.Background(), testArbitrum, []string{token, token})
		require.NoError(t, err)
		assert.Len(t, quotes, 1)
	}
	dex.AssertNumberOfCalls(t, "GetTokenPairsByAddresses", 1)
}

func TestTokenPriceService_FailedBatchIsReportedAndOthersPriced(t *testing.T) {
	const (
		tokenA = "0xAAAA000000000000000000000000000000000001"
		tokenB = "0xBBBB000000000000000000000000000000000002"
	)
	dex := new(MockDEXScreenerClient)
	dex.On("GetTokenPairsByAddresses", mock.Anything, "arbitrum", []string{tokenA}).
		Return([]httpclient.PairData{pair(tokenA, "USDC", "3", 1)}, nil)
	dex.On("GetTokenPairsByAddresses", mock.Anything, "arbitrum", []string{tokenB}).
		Return(nil, errors.New("429 too many requests"))
	svc := NewTokenPriceService(dex, logger.Nop(), TokenPriceOptions{MaxTokensPerBatch: 1})

	quotes, err := svc.GetQuotes(context.Background(), testArbitrum, []string{tokenA, tokenB})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Len(t, quotes, 1)
	assert.Contains(t, quotes, NormalizeAddress(tokenA))
}

func TestTokenPriceService_RequiresDEXScreenerChain(t *testing.T) {
	svc := NewTokenPriceService(new(MockDEXScreenerClient), logger.Nop(), TokenPriceOptions{})
	_, err := svc.GetQuotes(context.Background(), entity.NetworkDefinition{Name: "unknown"}, []string{"0x1"})
	assert.Error(t, err)
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0xabcdef", NormalizeAddress(" 0xABCDEF "))
	assert.Equal(t, "0xabcdef", NormalizeAddress("0XABCDEF"))
	assert.Equal(t, "So11111111111111111111111111111111111111112", NormalizeAddress("So11111111111111111111111111111111111111112"))
}
