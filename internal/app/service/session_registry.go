package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"

	"github.com/patrickmn/go-cache"
)

// RegistryOptions configures a SessionRegistry.
type RegistryOptions struct {
	SessionTTL time.Duration
	EVMChain   entity.Chain
	Metrics    port.Metrics
}

// SessionRegistry resolves access tokens through the identity provider and keeps one
// PortfolioSession per user. Idle sessions expire and are closed.
type SessionRegistry struct {
	identity   port.IdentityProvider
	gate       *AuthGate
	newFetcher FetcherFactory
	logger     port.Logger
	metrics    port.Metrics
	evmChain   entity.Chain

	mu       sync.Mutex
	sessions *cache.Cache
}

// NewSessionRegistry creates a registry. newFetcher is used for every new session.
func NewSessionRegistry(identity port.IdentityProvider, gate *AuthGate, newFetcher FetcherFactory, logger port.Logger, opts RegistryOptions) *SessionRegistry {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.EVMChain == "" {
		opts.EVMChain = entity.EVMChain(entity.ArbitrumChainID)
	}
	r := &SessionRegistry{
		identity:   identity,
		gate:       gate,
		newFetcher: newFetcher,
		logger:     logger,
		metrics:    orNopMetrics(opts.Metrics),
		evmChain:   opts.EVMChain,
		sessions:   cache.New(opts.SessionTTL, opts.SessionTTL/2),
	}
	r.sessions.OnEvicted(func(key string, v interface{}) {
		if s, ok := v.(*PortfolioSession); ok {
			s.Close()
			r.logger.Debug("Session expired", "session", key)
		}
		r.metrics.SessionsActive(r.sessions.ItemCount())
	})
	return r
}

// Session returns the session for a token. Sessions without a user are transient and
// never start fetches. Provider failures are reported as a not-ready provider.
func (r *SessionRegistry) Session(ctx context.Context, token string) (port.PortfolioSession, error) {
	ps := entity.ProviderSession{Ready: r.identity.Ready()}
	if ps.Ready && token != "" {
		resolved, err := r.identity.SessionFromToken(ctx, token)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.logger.Warn("Identity provider lookup failed, treating provider as not ready", "error", err)
			ps = entity.ProviderSession{Ready: false}
		} else {
			ps = resolved
		}
	}

	if !ps.Authenticated || ps.User == nil || ps.User.ID == "" {
		s := r.build("anonymous:" + tokenDigest(token))
		s.Apply(ps)
		return s, nil
	}

	key := "user:" + ps.User.ID
	r.mu.Lock()
	var s *PortfolioSession
	if v, ok := r.sessions.Get(key); ok {
		s = v.(*PortfolioSession)
	} else {
		s = r.build(key)
		r.logger.Info("Session created", "session", key)
	}
	// Set again so every access extends the expiry.
	r.sessions.Set(key, s, cache.DefaultExpiration)
	r.metrics.SessionsActive(r.sessions.ItemCount())
	r.mu.Unlock()

	s.Apply(ps)
	return s, nil
}

// Len returns the number of live user sessions.
func (r *SessionRegistry) Len() int {
	return r.sessions.ItemCount()
}

// Close ends every session.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, item := range r.sessions.Items() {
		if s, ok := item.Object.(*PortfolioSession); ok {
			s.Close()
		}
		r.sessions.Delete(key)
	}
}

func (r *SessionRegistry) build(id string) *PortfolioSession {
	return NewPortfolioSession(id, r.gate, r.evmChain, r.newFetcher, r.logger)
}

func tokenDigest(token string) string {
	if token == "" {
		return "none"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
