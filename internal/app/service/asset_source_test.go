package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	usdcArbitrum = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	arbArbitrum  = "0x912CE59144191C1204E64559FE8253a0e49E6548"
	wsolMint     = "So11111111111111111111111111111111111111112"
	bonkMint     = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	unknownMint  = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

var testSolana = entity.NetworkDefinition{
	Chain:                     entity.ChainSolana,
	Name:                      "Solana",
	Identifier:                "solana",
	NativeSymbol:              "SOL",
	NativeName:                "Solana",
	Decimals:                  9,
	DEXScreenerChainID:        "solana",
	WrappedNativeTokenAddress: wsolMint,
}

type staticTokens struct {
	tokens []entity.TokenInfo
	err    error
}

func (s staticTokens) GetTokens(entity.NetworkDefinition) ([]entity.TokenInfo, error) {
	return s.tokens, s.err
}

type staticClientProvider struct {
	client port.BlockchainClient
	err    error
}

func (p staticClientProvider) GetClient(entity.NetworkDefinition) (port.BlockchainClient, error) {
	return p.client, p.err
}

// fakeEVMClient answers each request with the balance or error registered for its id.
type fakeEVMClient struct {
	balances map[string]*big.Int
	errs     map[string]error
	err      error

	mu       sync.Mutex
	requests []entity.BalanceRequestItem
}

func (c *fakeEVMClient) GetBalances(_ context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	c.mu.Lock()
	c.requests = append(c.requests, requests...)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make([]entity.BalanceResultItem, 0, len(requests))
	for _, req := range requests {
		out = append(out, entity.BalanceResultItem{
			RequestID: req.ID,
			Token:     req.Token,
			IsNative:  req.Type == entity.NativeBalanceRequest,
			Balance:   c.balances[req.ID],
			Error:     c.errs[req.ID],
		})
	}
	return out, nil
}

func (c *fakeEVMClient) Definition() entity.NetworkDefinition { return testArbitrum }

type fakeSolanaClient struct {
	lamports   uint64
	balances   []entity.SPLTokenBalance
	nativeErr  error
	balanceErr error
}

func (c fakeSolanaClient) GetNativeBalance(context.Context, string) (uint64, error) {
	return c.lamports, c.nativeErr
}

func (c fakeSolanaClient) GetTokenBalances(context.Context, string) ([]entity.SPLTokenBalance, error) {
	return c.balances, c.balanceErr
}

type fixedPrice struct {
	price decimal.Decimal
	err   error
}

func (p fixedPrice) NativePriceUSD(context.Context) (decimal.Decimal, error) {
	return p.price, p.err
}

func evmTokens() []entity.TokenInfo {
	return []entity.TokenInfo{
		{Chain: testEVMChain, ChainID: entity.ArbitrumChainID, Address: usdcArbitrum, Name: "USD Coin", Symbol: "USDC", Decimals: 6, LogoURI: "https://logo/usdc.png"},
		{Chain: testEVMChain, ChainID: entity.ArbitrumChainID, Address: arbArbitrum, Name: "Arbitrum", Symbol: "ARB", Decimals: 18},
	}
}

func wei(eth string) *big.Int {
	d := decimal.RequireFromString(eth).Shift(18)
	return d.BigInt()
}

func TestEVMAssetSource_NativeFirstThenTokensPriced(t *testing.T) {
	client := &fakeEVMClient{balances: map[string]*big.Int{
		nativeRequestID:                wei("1.5"),
		NormalizeAddress(usdcArbitrum): big.NewInt(2_500_000),
		NormalizeAddress(arbArbitrum):  big.NewInt(0),
	}}
	prices := new(MockTokenPriceService)
	prices.On("GetQuotes", mock.Anything, testArbitrum, []string{testArbitrum.WrappedNativeTokenAddress, usdcArbitrum}).
		Return(map[string]entity.TokenQuote{
			NormalizeAddress(testArbitrum.WrappedNativeTokenAddress): {PriceUSD: decimal.NewFromInt(3000), LogoURI: "https://logo/weth.png"},
			NormalizeAddress(usdcArbitrum):                           {PriceUSD: decimal.RequireFromString("0.9999")},
		}, nil)

	src := NewEVMAssetSource(testArbitrum, staticClientProvider{client: client}, staticTokens{tokens: evmTokens()}, prices, logger.Nop())
	assert.Equal(t, testEVMChain, src.Chain())

	assets, err := src.FetchAssets(context.Background(), testEVMWallet)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	native := assets[0]
	assert.Equal(t, entity.ZeroAddress, native.Address)
	assert.Equal(t, "ETH", native.Symbol)
	assert.Equal(t, "1.5", native.Amount.String())
	assert.Equal(t, "3000", native.Price.String())
	assert.Equal(t, "https://logo/weth.png", native.LogoURI)
	assert.Equal(t, testEVMChain, native.Chain)

	usdc := assets[1]
	assert.Equal(t, usdcArbitrum, usdc.Address)
	assert.Equal(t, "2.5", usdc.Amount.String())
	assert.Equal(t, "0.9999", usdc.Price.String())
	assert.Equal(t, "https://logo/usdc.png", usdc.LogoURI)

	require.Len(t, client.requests, 3)
	assert.Equal(t, entity.NativeBalanceRequest, client.requests[0].Type)
	for _, req := range client.requests {
		assert.Equal(t, testEVMWallet, req.WalletAddress)
	}
	prices.AssertExpectations(t)
}

func TestEVMAssetSource_FailedTokenSkippedNativeFailureFails(t *testing.T) {
	tokenFail := &fakeEVMClient{
		balances: map[string]*big.Int{
			nativeRequestID:               wei("1"),
			NormalizeAddress(arbArbitrum): wei("10"),
		},
		errs: map[string]error{NormalizeAddress(usdcArbitrum): errors.New("execution reverted")},
	}
	prices := new(MockTokenPriceService)
	prices.On("GetQuotes", mock.Anything, mock.Anything, mock.Anything).Return(map[string]entity.TokenQuote{}, nil)

	src := NewEVMAssetSource(testArbitrum, staticClientProvider{client: tokenFail}, staticTokens{tokens: evmTokens()}, prices, logger.Nop())
	assets, err := src.FetchAssets(context.Background(), testEVMWallet)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "ARB", assets[1].Symbol)
	assert.True(t, assets[1].Price.IsZero())

	nativeFail := &fakeEVMClient{errs: map[string]error{nativeRequestID: errors.New("header not found")}}
	src = NewEVMAssetSource(testArbitrum, staticClientProvider{client: nativeFail}, staticTokens{tokens: evmTokens()}, prices, logger.Nop())
	_, err = src.FetchAssets(context.Background(), testEVMWallet)
	assert.ErrorContains(t, err, "header not found")
}

func TestEVMAssetSource_Errors(t *testing.T) {
	prices := new(MockTokenPriceService)

	src := NewEVMAssetSource(testArbitrum, staticClientProvider{client: &fakeEVMClient{}}, staticTokens{}, prices, logger.Nop())
	_, err := src.FetchAssets(context.Background(), "not-an-address")
	assert.Error(t, err)

	src = NewEVMAssetSource(testArbitrum, staticClientProvider{err: errors.New("no rpc")}, staticTokens{}, prices, logger.Nop())
	_, err = src.FetchAssets(context.Background(), testEVMWallet)
	assert.ErrorContains(t, err, "no rpc")

	src = NewEVMAssetSource(testArbitrum, staticClientProvider{client: &fakeEVMClient{err: errors.New("batch failed")}}, staticTokens{}, prices, logger.Nop())
	_, err = src.FetchAssets(context.Background(), testEVMWallet)
	assert.ErrorContains(t, err, "batch failed")
	prices.AssertNotCalled(t, "GetQuotes", mock.Anything, mock.Anything, mock.Anything)
}

func TestEVMAssetSource_EmptyWalletSkipsPricing(t *testing.T) {
	prices := new(MockTokenPriceService)
	src := NewEVMAssetSource(testArbitrum, staticClientProvider{client: &fakeEVMClient{}}, staticTokens{tokens: evmTokens()}, prices, logger.Nop())

	assets, err := src.FetchAssets(context.Background(), testEVMWallet)
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
	prices.AssertNotCalled(t, "GetQuotes", mock.Anything, mock.Anything, mock.Anything)
}

func TestSolanaAssetSource_NativeAndSPLTokens(t *testing.T) {
	client := fakeSolanaClient{
		lamports: 2_500_000_000,
		balances: []entity.SPLTokenBalance{
			{Mint: unknownMint, Amount: decimal.RequireFromString("7"), Decimals: 6},
			{Mint: bonkMint, Amount: decimal.RequireFromString("1000000"), Decimals: 5},
		},
	}
	prices := new(MockTokenPriceService)
	prices.On("GetQuotes", mock.Anything, testSolana, []string{wsolMint, unknownMint, bonkMint}).
		Return(map[string]entity.TokenQuote{
			wsolMint: {PriceUSD: decimal.NewFromInt(150), LogoURI: "https://logo/sol.png"},
			bonkMint: {PriceUSD: decimal.RequireFromString("0.00002"), Symbol: "Bonk", Name: "Bonk", LogoURI: "https://logo/bonk.png"},
		}, nil)

	src := NewSolanaAssetSource(testSolana, client, prices, nil, logger.Nop())
	assets, err := src.FetchAssets(context.Background(), testSolWallet)
	require.NoError(t, err)
	require.Len(t, assets, 3)

	sol := assets[0]
	assert.Equal(t, entity.SolanaNativeAddress, sol.Address)
	assert.Equal(t, "SOL", sol.Symbol)
	assert.Equal(t, "2.5", sol.Amount.String())
	assert.Equal(t, "150", sol.Price.String())
	assert.Equal(t, "https://logo/sol.png", sol.LogoURI)

	unknown := assets[1]
	assert.Equal(t, "7xKX...gAsU", unknown.Symbol)
	assert.Equal(t, unknownMint, unknown.Name)
	assert.True(t, unknown.Price.IsZero())

	bonk := assets[2]
	assert.Equal(t, "Bonk", bonk.Symbol)
	assert.Equal(t, "20", bonk.Value().String())
	for _, a := range assets {
		assert.Equal(t, entity.ChainSolana, a.Chain)
	}
}

func TestSolanaAssetSource_NativePriceSource(t *testing.T) {
	client := fakeSolanaClient{lamports: 1_000_000_000}
	prices := new(MockTokenPriceService)
	prices.On("GetQuotes", mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]entity.TokenQuote{wsolMint: {PriceUSD: decimal.NewFromInt(150)}}, nil)

	src := NewSolanaAssetSource(testSolana, client, prices, fixedPrice{price: decimal.RequireFromString("151.25")}, logger.Nop())
	assets, err := src.FetchAssets(context.Background(), testSolWallet)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "151.25", assets[0].Price.String())

	src = NewSolanaAssetSource(testSolana, client, prices, fixedPrice{err: errors.New("stream down")}, logger.Nop())
	assets, err = src.FetchAssets(context.Background(), testSolWallet)
	require.NoError(t, err)
	assert.Equal(t, "150", assets[0].Price.String())
}

func TestSolanaAssetSource_ZeroLamportsOmitsSOL(t *testing.T) {
	client := fakeSolanaClient{balances: []entity.SPLTokenBalance{{Mint: bonkMint, Amount: decimal.NewFromInt(1), Decimals: 5}}}
	prices := new(MockTokenPriceService)
	prices.On("GetQuotes", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	src := NewSolanaAssetSource(testSolana, client, prices, nil, logger.Nop())
	assets, err := src.FetchAssets(context.Background(), testSolWallet)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, bonkMint, assets[0].Address)
	assert.True(t, assets[0].Price.IsZero())
}

func TestSolanaAssetSource_RPCFailure(t *testing.T) {
	prices := new(MockTokenPriceService)
	src := NewSolanaAssetSource(testSolana, fakeSolanaClient{balanceErr: errors.New("429")}, prices, nil, logger.Nop())

	_, err := src.FetchAssets(context.Background(), testSolWallet)
	assert.ErrorContains(t, err, "429")
	prices.AssertNotCalled(t, "GetQuotes", mock.Anything, mock.Anything, mock.Anything)
}

func TestShortMint(t *testing.T) {
	assert.Equal(t, "So11...1112", shortMint(wsolMint))
	assert.Equal(t, "abc", shortMint("abc"))
}
