package httpclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"crosschain_portfolio/internal/app/port"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// BinanceOptions configures the SOL/USD price cache.
type BinanceOptions struct {
	StreamURL      string
	RESTBaseURL    string
	Symbol         string
	RequestTimeout time.Duration
	ReconnectDelay time.Duration
}

type binanceTrade struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
}

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// SOLPriceCache keeps the latest SOL/USD trade price from the Binance trade stream.
// Until the stream delivered a price, reads fall back to the REST ticker.
type SOLPriceCache struct {
	rest           *resty.Client
	dialer         *websocket.Dialer
	streamURL      string
	symbol         string
	reconnectDelay time.Duration
	logger         port.Logger

	mu        sync.RWMutex
	price     decimal.Decimal
	updatedAt time.Time
}

// NewSOLPriceCache creates the cache. Run must be started for streaming updates.
func NewSOLPriceCache(opts BinanceOptions, logger port.Logger) *SOLPriceCache {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.Symbol == "" {
		opts.Symbol = "SOLUSDT"
	}
	rest := resty.New().
		SetBaseURL(strings.TrimRight(opts.RESTBaseURL, "/")).
		SetTimeout(opts.RequestTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Accept", "application/json")

	return &SOLPriceCache{
		rest:           rest,
		dialer:         &websocket.Dialer{HandshakeTimeout: opts.RequestTimeout},
		streamURL:      opts.StreamURL,
		symbol:         strings.ToUpper(opts.Symbol),
		reconnectDelay: opts.ReconnectDelay,
		logger:         logger,
	}
}

// NativePriceUSD returns the cached price, asking the REST ticker when nothing is cached yet.
func (c *SOLPriceCache) NativePriceUSD(ctx context.Context) (decimal.Decimal, error) {
	if p := c.Price(); p.IsPositive() {
		return p, nil
	}
	p, err := c.fetchTicker(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	c.set(p)
	return p, nil
}

// Price returns the cached price, zero when none arrived yet.
func (c *SOLPriceCache) Price() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.price
}

// UpdatedAt returns when the price last changed.
func (c *SOLPriceCache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Run consumes the trade stream until ctx ends, reconnecting after errors.
func (c *SOLPriceCache) Run(ctx context.Context) {
	for {
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("Binance trade stream disconnected", "error", err, "retry_in", c.reconnectDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *SOLPriceCache) stream(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.streamURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.streamURL, err)
	}
	defer conn.Close()
	c.logger.Info("Connected to Binance trade stream", "url", c.streamURL)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read trade: %w", err)
		}
		var trade binanceTrade
		if err := json.Unmarshal(msg, &trade); err != nil {
			c.logger.Debug("Skipping undecodable Binance message", "error", err)
			continue
		}
		if trade.Symbol != "" && !strings.EqualFold(trade.Symbol, c.symbol) {
			continue
		}
		p, err := decimal.NewFromString(trade.Price)
		if err != nil || !p.IsPositive() {
			continue
		}
		c.set(p)
	}
}

func (c *SOLPriceCache) fetchTicker(ctx context.Context) (decimal.Decimal, error) {
	var ticker binanceTicker
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("symbol", c.symbol).
		Get("/api/v3/ticker/price")
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance ticker request: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("binance ticker request failed with status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), &ticker); err != nil {
		return decimal.Zero, fmt.Errorf("decode binance ticker: %w", err)
	}
	p, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse binance price %q: %w", ticker.Price, err)
	}
	if !p.IsPositive() {
		return decimal.Zero, errors.New("binance returned a non-positive price")
	}
	return p, nil
}

func (c *SOLPriceCache) set(p decimal.Decimal) {
	c.mu.Lock()
	c.price = p
	c.updatedAt = time.Now()
	c.mu.Unlock()
}
