package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"

	"github.com/go-resty/resty/v2"
)

const appIDHeader = "privy-app-id"

// Options configures the identity provider client.
type Options struct {
	BaseURL    string
	AppID      string
	AppSecret  string
	Timeout    time.Duration
	RetryCount int
}

// Client talks to the identity provider over its REST API. It reports not ready
// until a warm-up call against the app endpoint succeeded.
type Client struct {
	rest   *resty.Client
	appID  string
	ready  atomic.Bool
	logger port.Logger
}

var _ port.IdentityProvider = (*Client)(nil)

// NewClient creates a client. Call WarmUp or Run before serving requests.
func NewClient(opts Options, logger port.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	rest := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader(appIDHeader, opts.AppID)
	if opts.AppSecret != "" {
		rest.SetBasicAuth(opts.AppID, opts.AppSecret)
	}
	// Retry only transport errors and server side failures, never auth rejections.
	rest.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})

	return &Client{rest: rest, appID: opts.AppID, logger: logger}
}

// Ready reports whether the warm-up succeeded.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// WarmUp fetches the app configuration once and marks the client ready.
func (c *Client) WarmUp(ctx context.Context) error {
	if c.appID == "" {
		return errors.New("identity provider app id is not configured")
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("appID", c.appID).
		Get("/api/v1/apps/{appID}")
	if err != nil {
		return fmt.Errorf("identity provider warm-up: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("identity provider warm-up failed with status %d", resp.StatusCode())
	}
	if !c.ready.Swap(true) {
		c.logger.Info("Identity provider ready", "app_id", c.appID)
	}
	return nil
}

// Run repeats WarmUp every interval until it succeeds or ctx ends.
func (c *Client) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	for {
		err := c.WarmUp(ctx)
		if err == nil {
			return
		}
		c.logger.Warn("Identity provider not ready yet", "error", err, "retry_in", interval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// SessionFromToken resolves a bearer token into a provider session.
func (c *Client) SessionFromToken(ctx context.Context, token string) (entity.ProviderSession, error) {
	if !c.Ready() {
		return entity.ProviderSession{}, nil
	}
	if token == "" {
		return entity.ProviderSession{Ready: true}, nil
	}

	var user entity.User
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/api/v1/users/me")
	if err != nil {
		return entity.ProviderSession{}, fmt.Errorf("identity provider user lookup: %w", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return entity.ProviderSession{Ready: true}, nil
	case resp.IsError():
		return entity.ProviderSession{}, fmt.Errorf("identity provider user lookup failed with status %d", code)
	}

	if user.ID == "" {
		return entity.ProviderSession{}, errors.New("identity provider returned a user without id")
	}
	return entity.ProviderSession{Ready: true, Authenticated: true, User: &user}, nil
}
