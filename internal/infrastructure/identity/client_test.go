package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userJSON = `{
  "id": "did:privy:cm3np4u9j001rc8b73seqmqqk",
  "created_at": 1731974895,
  "linked_accounts": [
    {"type": "email", "address": "user@example.com"},
    {"type": "wallet", "chain_type": "solana", "address": "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "wallet_client_type": "privy", "delegated": true},
    {"type": "wallet", "chain_type": "ethereum", "address": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", "wallet_client_type": "privy", "delegated": false}
  ]
}`

type fakeProvider struct {
	appStatus  atomic.Int32
	appCalls   atomic.Int32
	userCalls  atomic.Int32
	userStatus int
}

func (p *fakeProvider) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/apps/app-123", func(w http.ResponseWriter, r *http.Request) {
		p.appCalls.Add(1)
		assert.Equal(t, "app-123", r.Header.Get(appIDHeader))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app-123", user)
		assert.Equal(t, "secret", pass)
		if status := int(p.appStatus.Load()); status != 0 {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(`{"id":"app-123","name":"portfolio"}`))
	})
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		p.userCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if p.userStatus != 0 {
			w.WriteHeader(p.userStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userJSON))
	})
	return mux
}

func newTestClient(t *testing.T, p *fakeProvider) *Client {
	t.Helper()
	srv := httptest.NewServer(p.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, AppID: "app-123", AppSecret: "secret", Timeout: time.Second}, logger.Nop())
}

func TestClient_NotReadyUntilWarmUp(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(t, p)

	assert.False(t, c.Ready())
	s, err := c.SessionFromToken(context.Background(), "good-token")
	require.NoError(t, err)
	assert.False(t, s.Ready)
	assert.Zero(t, p.userCalls.Load())

	require.NoError(t, c.WarmUp(context.Background()))
	assert.True(t, c.Ready())
}

func TestClient_RunRetriesWarmUp(t *testing.T) {
	p := &fakeProvider{}
	p.appStatus.Store(http.StatusServiceUnavailable)
	c := newTestClient(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return p.appCalls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, c.Ready())

	p.appStatus.Store(0)
	assert.Eventually(t, c.Ready, 2*time.Second, 5*time.Millisecond)
}

func TestClient_SessionFromToken(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(t, p)
	require.NoError(t, c.WarmUp(context.Background()))

	s, err := c.SessionFromToken(context.Background(), "good-token")
	require.NoError(t, err)
	assert.True(t, s.Ready)
	assert.True(t, s.Authenticated)
	require.NotNil(t, s.User)
	assert.Equal(t, "did:privy:cm3np4u9j001rc8b73seqmqqk", s.User.ID)
	require.Len(t, s.User.LinkedAccounts, 3)
	assert.Equal(t, entity.ChainTypeSolana, s.User.LinkedAccounts[1].ChainType)
	assert.True(t, s.User.LinkedAccounts[1].Delegated)
	assert.False(t, s.User.LinkedAccounts[2].Delegated)
}

func TestClient_RejectedTokenIsUnauthenticated(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(t, p)
	require.NoError(t, c.WarmUp(context.Background()))

	s, err := c.SessionFromToken(context.Background(), "expired-token")
	require.NoError(t, err)
	assert.Equal(t, entity.ProviderSession{Ready: true}, s)

	s, err = c.SessionFromToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, entity.ProviderSession{Ready: true}, s)
	assert.Equal(t, int32(1), p.userCalls.Load())
}

func TestClient_ServerErrorIsReported(t *testing.T) {
	p := &fakeProvider{userStatus: http.StatusBadGateway}
	c := newTestClient(t, p)
	require.NoError(t, c.WarmUp(context.Background()))

	_, err := c.SessionFromToken(context.Background(), "good-token")
	assert.ErrorContains(t, err, "status 502")
}

func TestClient_WarmUpRequiresAppID(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://127.0.0.1:0"}, logger.Nop())
	assert.Error(t, c.WarmUp(context.Background()))
	assert.False(t, c.Ready())
}
