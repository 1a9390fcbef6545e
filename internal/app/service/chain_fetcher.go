package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"

	"github.com/patrickmn/go-cache"
)

const (
	fetchOutcomeOK    = "ok"
	fetchOutcomeError = "error"

	cacheResultFresh = "fresh"
	cacheResultStale = "stale"
	cacheResultMiss  = "miss"
)

// FetcherOptions configures a ChainFetcher.
type FetcherOptions struct {
	// StaleAfter is the age at which a cached result is served as stale and revalidated.
	StaleAfter time.Duration
	// FetchTimeout bounds one call to the source.
	FetchTimeout time.Duration
	// OnChange is called after every state change, outside the fetcher lock.
	OnChange func()
	Metrics  port.Metrics
	Now      func() time.Time
}

type cachedAssets struct {
	assets    []entity.Asset
	fetchedAt time.Time
}

// ChainFetcher keeps the asset query of one chain for one session. Every bind or
// refresh starts a new generation; completions of older generations are dropped.
type ChainFetcher struct {
	chain        entity.Chain
	source       port.ChainAssetSource
	store        *cache.Cache
	logger       port.Logger
	metrics      port.Metrics
	staleAfter   time.Duration
	fetchTimeout time.Duration
	onChange     func()
	now          func() time.Time

	mu            sync.Mutex
	bound         bool
	address       string
	generation    uint64
	state         entity.ChainQuery
	settled       chan struct{}
	settledClosed bool
}

// NewChainFetcher creates an idle fetcher over source. The store is shared between
// sessions so the same wallet is not fetched twice.
func NewChainFetcher(source port.ChainAssetSource, store *cache.Cache, logger port.Logger, opts FetcherOptions) *ChainFetcher {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 20 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	f := &ChainFetcher{
		chain:        source.Chain(),
		source:       source,
		store:        store,
		logger:       logger,
		metrics:      orNopMetrics(opts.Metrics),
		staleAfter:   opts.StaleAfter,
		fetchTimeout: opts.FetchTimeout,
		onChange:     opts.OnChange,
		now:          opts.Now,
		settled:      make(chan struct{}),
	}
	f.state = f.idleState()
	f.settleLocked()
	return f
}

// Chain returns the chain this fetcher reads.
func (f *ChainFetcher) Chain() entity.Chain { return f.chain }

// Bind points the fetcher at a wallet. An empty address idles the fetcher and
// binding the current address again does nothing.
func (f *ChainFetcher) Bind(address string) {
	f.mu.Lock()
	if f.bound && address == f.address {
		f.mu.Unlock()
		return
	}
	f.bound = true
	f.address = address
	f.generation++

	if address == "" {
		f.state = f.idleState()
		f.settleLocked()
		f.mu.Unlock()
		f.changed()
		return
	}

	f.startLocked(false)
	f.mu.Unlock()
	f.changed()
}

// Refresh re-fetches the bound wallet, bypassing the cache.
func (f *ChainFetcher) Refresh() {
	f.mu.Lock()
	if f.address == "" {
		f.mu.Unlock()
		return
	}
	f.generation++
	f.startLocked(true)
	f.mu.Unlock()
	f.changed()
}

// Snapshot returns the current query state.
func (f *ChainFetcher) Snapshot() entity.ChainQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Await blocks until the current generation settled. Rebinding while waiting makes
// it wait for the new generation instead.
func (f *ChainFetcher) Await(ctx context.Context) (entity.ChainQuery, error) {
	for {
		f.mu.Lock()
		ch := f.settled
		f.mu.Unlock()

		select {
		case <-ch:
			f.mu.Lock()
			if f.settled == ch {
				st := f.state
				f.mu.Unlock()
				return st, nil
			}
			f.mu.Unlock()
		case <-ctx.Done():
			return f.Snapshot(), ctx.Err()
		}
	}
}

// Close idles the fetcher. In-flight fetches are discarded when they complete.
func (f *ChainFetcher) Close() {
	f.Bind("")
}

func (f *ChainFetcher) startLocked(force bool) {
	gen, addr := f.generation, f.address

	if !force && f.store != nil {
		if v, ok := f.store.Get(f.cacheKey(addr)); ok {
			cached := v.(cachedAssets)
			age := f.now().Sub(cached.fetchedAt)
			f.state = entity.ChainQuery{
				Chain:     f.chain,
				Address:   addr,
				Assets:    cached.assets,
				FetchedAt: cached.fetchedAt,
			}
			f.settleLocked()
			if age < f.staleAfter {
				f.metrics.CacheLookup(f.chain, cacheResultFresh)
				return
			}
			f.state.Stale = true
			f.metrics.CacheLookup(f.chain, cacheResultStale)
			go f.run(gen, addr)
			return
		}
		f.metrics.CacheLookup(f.chain, cacheResultMiss)
	}

	f.state = entity.ChainQuery{Chain: f.chain, Address: addr, Assets: []entity.Asset{}, Loading: true}
	f.unsettleLocked()
	go f.run(gen, addr)
}

func (f *ChainFetcher) run(gen uint64, addr string) {
	ctx, cancel := context.WithTimeout(context.Background(), f.fetchTimeout)
	defer cancel()

	start := f.now()
	assets, err := f.fetchSafe(ctx, addr)
	took := f.now().Sub(start)

	f.mu.Lock()
	if gen != f.generation || addr != f.address {
		f.mu.Unlock()
		f.logger.Debug("Discarding stale chain response", "chain", f.chain, "address", addr, "generation", gen)
		f.metrics.StaleResponseDiscarded(f.chain)
		return
	}

	if err != nil {
		f.logger.Warn("Chain fetch failed", "chain", f.chain, "address", addr, "error", err)
		f.metrics.ObserveFetch(f.chain, fetchOutcomeError, took)
		f.state = entity.ChainQuery{
			Chain:   f.chain,
			Address: addr,
			Assets:  []entity.Asset{},
			Err:     &entity.FetchError{Chain: f.chain, Address: addr, Message: err.Error()},
		}
	} else {
		fetchedAt := f.now()
		assets = f.tag(assets)
		if f.store != nil {
			f.store.Set(f.cacheKey(addr), cachedAssets{assets: assets, fetchedAt: fetchedAt}, cache.DefaultExpiration)
		}
		f.metrics.ObserveFetch(f.chain, fetchOutcomeOK, took)
		f.logger.Debug("Chain fetch completed", "chain", f.chain, "address", addr, "assets", len(assets), "took", took)
		f.state = entity.ChainQuery{Chain: f.chain, Address: addr, Assets: assets, FetchedAt: fetchedAt}
	}
	f.settleLocked()
	f.mu.Unlock()
	f.changed()
}

// fetchSafe turns a panicking source into an error.
func (f *ChainFetcher) fetchSafe(ctx context.Context, addr string) (assets []entity.Asset, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s source panicked: %v", f.chain, r)
		}
	}()
	return f.source.FetchAssets(ctx, addr)
}

func (f *ChainFetcher) tag(assets []entity.Asset) []entity.Asset {
	if assets == nil {
		return []entity.Asset{}
	}
	for i := range assets {
		if assets[i].Chain == "" {
			assets[i].Chain = f.chain
		}
	}
	return assets
}

func (f *ChainFetcher) idleState() entity.ChainQuery {
	return entity.ChainQuery{Chain: f.chain, Assets: []entity.Asset{}, Idle: true}
}

func (f *ChainFetcher) settleLocked() {
	if !f.settledClosed {
		close(f.settled)
		f.settledClosed = true
	}
}

// unsettleLocked wakes waiters of the previous generation and opens a new wait channel.
func (f *ChainFetcher) unsettleLocked() {
	f.settleLocked()
	f.settled = make(chan struct{})
	f.settledClosed = false
}

func (f *ChainFetcher) cacheKey(addr string) string {
	return string(f.chain) + "|" + addr
}

func (f *ChainFetcher) changed() {
	if f.onChange != nil {
		f.onChange()
	}
}
