package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SolanaClientOptions configures a SolanaClient.
type SolanaClientOptions struct {
	RPCCallTimeout time.Duration
	Limiter        *rate.Limiter
	Commitment     rpc.CommitmentType
}

// SolanaClient reads Solana balances through the solana-go RPC client.
type SolanaClient struct {
	rpcClients     []*rpc.Client
	endpoints      []string
	rpcCallTimeout time.Duration
	limiter        *rate.Limiter
	commitment     rpc.CommitmentType
}

var _ port.SolanaBalanceClient = (*SolanaClient)(nil)

// parsedTokenAccount is the jsonParsed layout of an SPL token account.
type parsedTokenAccount struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string `json:"type"`
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			TokenAmount struct {
				Amount   string `json:"amount"`
				Decimals uint8  `json:"decimals"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// NewSolanaClient creates a client over every RPC endpoint of the network.
func NewSolanaClient(netDef entity.NetworkDefinition, opts SolanaClientOptions) (*SolanaClient, error) {
	if opts.RPCCallTimeout <= 0 {
		opts.RPCCallTimeout = 10 * time.Second
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	c := &SolanaClient{
		rpcCallTimeout: opts.RPCCallTimeout,
		limiter:        opts.Limiter,
		commitment:     opts.Commitment,
	}
	for _, url := range netDef.RPCURLs() {
		c.rpcClients = append(c.rpcClients, rpc.New(url))
		c.endpoints = append(c.endpoints, url)
	}
	if len(c.rpcClients) == 0 {
		return nil, fmt.Errorf("no RPC endpoints configured for network %s", netDef.Name)
	}
	return c, nil
}

// GetNativeBalance returns the wallet balance in lamports.
func (c *SolanaClient) GetNativeBalance(ctx context.Context, owner string) (uint64, error) {
	ownerPk, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return 0, fmt.Errorf("invalid owner pubkey '%s': %w", owner, err)
	}

	var lamports uint64
	err = c.withEndpoints(ctx, func(ctx context.Context, cl *rpc.Client) error {
		res, err := cl.GetBalance(ctx, ownerPk, c.commitment)
		if err != nil {
			return err
		}
		if res == nil {
			return errors.New("empty getBalance result")
		}
		lamports = res.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return lamports, nil
}

// GetTokenBalances returns SPL token balances of owner aggregated by mint, sorted by mint.
// Empty token accounts are left out.
func (c *SolanaClient) GetTokenBalances(ctx context.Context, owner string) ([]entity.SPLTokenBalance, error) {
	ownerPk, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner pubkey '%s': %w", owner, err)
	}

	tokenProgramID := solana.TokenProgramID
	config := &rpc.GetTokenAccountsConfig{ProgramId: &tokenProgramID}
	opts := &rpc.GetTokenAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingJSONParsed,
	}

	var accts *rpc.GetTokenAccountsResult
	err = c.withEndpoints(ctx, func(ctx context.Context, cl *rpc.Client) error {
		res, err := cl.GetTokenAccountsByOwner(ctx, ownerPk, config, opts)
		if err != nil {
			return err
		}
		accts = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts by owner: %w", err)
	}

	aggregated := make(map[string]entity.SPLTokenBalance)
	for _, rawAcct := range accts.Value {
		if rawAcct == nil || rawAcct.Account.Data == nil {
			continue
		}
		rawJSONData := rawAcct.Account.Data.GetRawJSON()
		if rawJSONData == nil {
			continue
		}

		var parsed parsedTokenAccount
		if err := json.Unmarshal(rawJSONData, &parsed); err != nil {
			continue
		}
		info := parsed.Parsed.Info
		if info.Mint == "" || info.TokenAmount.Amount == "" {
			continue
		}
		raw, err := decimal.NewFromString(info.TokenAmount.Amount)
		if err != nil || raw.IsZero() {
			continue
		}
		amount := raw.Shift(-int32(info.TokenAmount.Decimals))

		current, exists := aggregated[info.Mint]
		if exists {
			current.Amount = current.Amount.Add(amount)
		} else {
			current = entity.SPLTokenBalance{Mint: info.Mint, Amount: amount, Decimals: info.TokenAmount.Decimals}
		}
		aggregated[info.Mint] = current
	}

	result := make([]entity.SPLTokenBalance, 0, len(aggregated))
	for _, b := range aggregated {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Mint < result[j].Mint })
	return result, nil
}

// withEndpoints runs call against each endpoint until one succeeds.
func (c *SolanaClient) withEndpoints(ctx context.Context, call func(context.Context, *rpc.Client) error) error {
	var lastErr error
	for i, cl := range c.rpcClients {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter wait: %w", err)
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
		err := call(callCtx, cl)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("%s: %w", c.endpoints[i], err)
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
