package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"

	"golang.org/x/sync/errgroup"
)

const subscriberBuffer = 8

// PortfolioSession holds the derived state of one identity and its two chain fetchers.
// State is recomputed from the provider session on every Apply.
type PortfolioSession struct {
	id     string
	gate   *AuthGate
	solana *ChainFetcher
	evm    *ChainFetcher
	logger port.Logger
	seq    atomic.Uint64
	closed atomic.Bool
	now    func() time.Time

	// applyMu orders Apply calls so state and fetcher bindings change together.
	applyMu sync.Mutex

	mu      sync.RWMutex
	applied bool
	state   entity.SessionState

	subsMu      sync.RWMutex
	subscribers map[chan entity.SessionEvent]struct{}
}

// FetcherFactory builds the fetcher of one chain for a session. onChange must be
// passed through to the fetcher.
type FetcherFactory func(chain entity.Chain, onChange func()) *ChainFetcher

// NewPortfolioSession creates a session whose fetchers come from newFetcher.
func NewPortfolioSession(id string, gate *AuthGate, evmChain entity.Chain, newFetcher FetcherFactory, logger port.Logger) *PortfolioSession {
	s := &PortfolioSession{
		id:          id,
		gate:        gate,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[chan entity.SessionEvent]struct{}),
	}
	onFetch := func() { s.Publish(entity.EventPortfolio) }
	s.solana = newFetcher(entity.ChainSolana, onFetch)
	s.evm = newFetcher(evmChain, onFetch)
	return s
}

// ID identifies the session.
func (s *PortfolioSession) ID() string { return s.id }

// State returns the latest derived state.
func (s *PortfolioSession) State() entity.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply recomputes the session from the provider session. It returns false, and
// emits nothing, when the derived state did not change.
func (s *PortfolioSession) Apply(ps entity.ProviderSession) bool {
	auth := DeriveAuthState(ps)
	next := entity.SessionState{Auth: auth, Gate: s.gate.Evaluate(auth)}
	if auth.Authenticated {
		next.Wallets, _ = ResolveWallets(ps.User)
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	if s.applied && next == s.state {
		s.mu.Unlock()
		return false
	}
	prev := s.state
	s.state = next
	s.applied = true
	s.mu.Unlock()

	s.logger.Debug("Session state changed",
		"session", s.id,
		"gate", next.Gate.String(),
		"previous_gate", prev.Gate.String(),
		"solana_wallet", next.Wallets.SolanaWallet,
		"evm_wallet", next.Wallets.EVMWallet)

	// Portfolio data is only read for identities the gate lets in.
	var solAddr, evmAddr string
	if next.Gate == entity.GateReady {
		solAddr, evmAddr = next.Wallets.SolanaWallet, next.Wallets.EVMWallet
	}
	s.solana.Bind(solAddr)
	s.evm.Bind(evmAddr)

	s.Publish(entity.EventSession)
	return true
}

// Portfolio returns the combined view of both chains. With wait it joins both
// fetchers first, so a returned view is loading only when ctx ended early.
func (s *PortfolioSession) Portfolio(ctx context.Context, wait bool) (entity.PortfolioView, error) {
	if err := entity.GateError(s.State().Gate); err != nil {
		return entity.PortfolioView{Assets: []entity.Asset{}}, err
	}
	if !wait {
		return Combine(s.solana.Snapshot(), s.evm.Snapshot()), nil
	}

	var solQ, evmQ entity.ChainQuery
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.solana.Await(gctx)
		solQ = q
		return err
	})
	g.Go(func() error {
		q, err := s.evm.Await(gctx)
		evmQ = q
		return err
	})
	if err := g.Wait(); err != nil {
		return Combine(s.solana.Snapshot(), s.evm.Snapshot()), err
	}
	return Combine(solQ, evmQ), nil
}

// Queries returns the raw snapshots of both fetchers.
func (s *PortfolioSession) Queries() (solana, evm entity.ChainQuery) {
	return s.solana.Snapshot(), s.evm.Snapshot()
}

// Refresh re-fetches both chains.
func (s *PortfolioSession) Refresh() {
	s.solana.Refresh()
	s.evm.Refresh()
}

// Subscribe returns a channel receiving every session event.
func (s *PortfolioSession) Subscribe() chan entity.SessionEvent {
	ch := make(chan entity.SessionEvent, subscriberBuffer)
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed.Load() {
		close(ch)
		return ch
	}
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscription.
func (s *PortfolioSession) Unsubscribe(ch chan entity.SessionEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Publish notifies subscribers without blocking. A full subscriber misses the event;
// it still sees the newest state on its next read.
func (s *PortfolioSession) Publish(kind entity.EventKind) {
	ev := entity.SessionEvent{Kind: kind, Seq: s.seq.Add(1), At: s.now()}

	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close idles both fetchers and ends all subscriptions.
func (s *PortfolioSession) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.solana.Close()
	s.evm.Close()
	s.Publish(entity.EventClosed)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
