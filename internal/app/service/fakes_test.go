package service

import (
	"context"
	"sync"
	"time"

	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/infrastructure/httpclient"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

const (
	testSolWallet  = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testSolWallet2 = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testEVMWallet  = "0x1111111111111111111111111111111111111111"
	testEVMWallet2 = "0x2222222222222222222222222222222222222222"
)

var testEVMChain = entity.EVMChain(entity.ArbitrumChainID)

// funcSource is a ChainAssetSource backed by a function.
type funcSource struct {
	chain entity.Chain
	fn    func(ctx context.Context, address string) ([]entity.Asset, error)

	mu    sync.Mutex
	calls []string
}

func (s *funcSource) Chain() entity.Chain { return s.chain }

func (s *funcSource) FetchAssets(ctx context.Context, address string) ([]entity.Asset, error) {
	s.mu.Lock()
	s.calls = append(s.calls, address)
	s.mu.Unlock()
	return s.fn(ctx, address)
}

func (s *funcSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type sourceResult struct {
	assets []entity.Asset
	err    error
	panic  bool
}

// gatedSource blocks every fetch until the test releases a result for its address.
type gatedSource struct {
	chain entity.Chain

	mu    sync.Mutex
	gates map[string]chan sourceResult
}

func newGatedSource(chain entity.Chain) *gatedSource {
	return &gatedSource{chain: chain, gates: make(map[string]chan sourceResult)}
}

func (s *gatedSource) Chain() entity.Chain { return s.chain }

func (s *gatedSource) gate(address string) chan sourceResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.gates[address]
	if !ok {
		ch = make(chan sourceResult)
		s.gates[address] = ch
	}
	return ch
}

func (s *gatedSource) FetchAssets(ctx context.Context, address string) ([]entity.Asset, error) {
	select {
	case r := <-s.gate(address):
		if r.panic {
			panic("source exploded")
		}
		return r.assets, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release hands r to the fetch of address, blocking until that fetch is running.
func (s *gatedSource) release(address string, r sourceResult) {
	s.gate(address) <- r
}

// recordingMetrics is a port.Metrics that remembers what it saw.
type recordingMetrics struct {
	mu       sync.Mutex
	fetches  []string
	lookups  []string
	stale    int
	gates    []entity.GateState
	sessions int
}

func (m *recordingMetrics) ObserveFetch(_ entity.Chain, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = append(m.fetches, outcome)
}

func (m *recordingMetrics) CacheLookup(_ entity.Chain, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, result)
}

func (m *recordingMetrics) StaleResponseDiscarded(entity.Chain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale++
}

func (m *recordingMetrics) GateEvaluated(state entity.GateState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates = append(m.gates, state)
}

func (m *recordingMetrics) SessionsActive(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = n
}

func (m *recordingMetrics) staleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale
}

func (m *recordingMetrics) lookupResults() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lookups...)
}

// MockIdentityProvider is a testify mock of port.IdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) Ready() bool {
	return m.Called().Bool(0)
}

func (m *MockIdentityProvider) SessionFromToken(ctx context.Context, token string) (entity.ProviderSession, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(entity.ProviderSession), args.Error(1)
}

// MockDEXScreenerClient is a testify mock of httpclient.DEXScreenerClient.
type MockDEXScreenerClient struct {
	mock.Mock
}

func (m *MockDEXScreenerClient) GetTokenPairsByAddresses(ctx context.Context, chainID string, addrs []string) ([]httpclient.PairData, error) {
	args := m.Called(ctx, chainID, addrs)
	pairs, _ := args.Get(0).([]httpclient.PairData)
	return pairs, args.Error(1)
}

// MockTokenPriceService is a testify mock of port.TokenPriceService.
type MockTokenPriceService struct {
	mock.Mock
}

func (m *MockTokenPriceService) GetQuotes(ctx context.Context, network entity.NetworkDefinition, addresses []string) (map[string]entity.TokenQuote, error) {
	args := m.Called(ctx, network, addresses)
	quotes, _ := args.Get(0).(map[string]entity.TokenQuote)
	return quotes, args.Error(1)
}

func asset(chain entity.Chain, address, symbol, price, amount string) entity.Asset {
	return entity.Asset{
		Address: address,
		Chain:   chain,
		Symbol:  symbol,
		Name:    symbol,
		Price:   decimal.RequireFromString(price),
		Amount:  decimal.RequireFromString(amount),
	}
}

func delegatedUser(id string, solana, evm string) *entity.User {
	u := &entity.User{ID: id}
	if solana != "" {
		u.LinkedAccounts = append(u.LinkedAccounts, entity.LinkedAccount{
			Type:             entity.LinkedAccountTypeWallet,
			ChainType:        entity.ChainTypeSolana,
			Address:          solana,
			WalletClientType: entity.EmbeddedWalletClientType,
			Delegated:        true,
		})
	}
	if evm != "" {
		u.LinkedAccounts = append(u.LinkedAccounts, entity.LinkedAccount{
			Type:             entity.LinkedAccountTypeWallet,
			ChainType:        entity.ChainTypeEthereum,
			Address:          evm,
			WalletClientType: entity.EmbeddedWalletClientType,
			Delegated:        true,
		})
	}
	return u
}

func readySession(user *entity.User) entity.ProviderSession {
	return entity.ProviderSession{Ready: true, Authenticated: true, User: user}
}
