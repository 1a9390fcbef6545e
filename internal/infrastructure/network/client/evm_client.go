package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

const defaultMaxBatchSize = 50

// EVMClient implements port.BlockchainClient for EVM-compatible chains. Endpoints
// are tried in order; a batch that fails on one endpoint is retried on the next.
type EVMClient struct {
	ethClients     []*ethclient.Client
	endpoints      []string
	netDef         entity.NetworkDefinition
	rpcCallTimeout time.Duration
	limiter        *rate.Limiter
	maxBatchSize   int
}

// EVMClientOptions configures an EVMClient.
type EVMClientOptions struct {
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	Limiter           *rate.Limiter
	MaxBatchSize      int
}

// ERC20 ABI minimal part for balanceOf
const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
	erc20MethodID   []byte
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
		balanceOfMethod, ok := parsedERC20ABI.Methods["balanceOf"]
		if !ok {
			panic("balanceOf method not found in parsed ERC20 ABI")
		}
		erc20MethodID = balanceOfMethod.ID
	})
}

// NewEVMClient connects to every RPC endpoint of the network definition.
func NewEVMClient(netDef entity.NetworkDefinition, opts EVMClientOptions) (*EVMClient, error) {
	initParsedERC20ABI()
	if opts.ConnectionTimeout <= 0 {
		opts.ConnectionTimeout = 10 * time.Second
	}
	if opts.RPCCallTimeout <= 0 {
		opts.RPCCallTimeout = 10 * time.Second
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = defaultMaxBatchSize
	}

	c := &EVMClient{
		netDef:         netDef,
		rpcCallTimeout: opts.RPCCallTimeout,
		limiter:        opts.Limiter,
		maxBatchSize:   opts.MaxBatchSize,
	}

	var lastErr error
	for _, rpcURL := range netDef.RPCURLs() {
		ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
		ethClient, err := ethclient.DialContext(ctx, rpcURL)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}
		c.ethClients = append(c.ethClients, ethClient)
		c.endpoints = append(c.endpoints, rpcURL)
	}
	if len(c.ethClients) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no RPC endpoints configured")
		}
		return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
	}
	return c, nil
}

var _ port.BlockchainClient = (*EVMClient)(nil)

// GetBalances fetches multiple balances using JSON-RPC batch requests. Per item
// failures are reported in the result items; the error is only set when a whole
// batch could not be executed on any endpoint.
func (c *EVMClient) GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	results := make([]entity.BalanceResultItem, 0, len(requests))
	for _, batch := range utils.Batch(requests, c.maxBatchSize) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return results, fmt.Errorf("rate limiter wait: %w", err)
			}
		}
		batchResults, err := c.getBatch(ctx, batch)
		if err != nil {
			return results, err
		}
		results = append(results, batchResults...)
	}
	return results, nil
}

func (c *EVMClient) getBatch(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	var lastErr error
	for i, ethClient := range c.ethClients {
		batchElems, results := c.buildBatch(requests)

		rpcCallCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
		err := ethClient.Client().BatchCallContext(rpcCallCtx, batchElems)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("RPC batch call to %s failed: %w", c.endpoints[i], err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		c.decodeBatch(requests, batchElems, results)
		return results, nil
	}
	return nil, lastErr
}

func (c *EVMClient) buildBatch(requests []entity.BalanceRequestItem) ([]rpc.BatchElem, []entity.BalanceResultItem) {
	batchElems := make([]rpc.BatchElem, len(requests))
	results := make([]entity.BalanceResultItem, len(requests))

	for i, reqItem := range requests {
		results[i] = entity.BalanceResultItem{
			RequestID: reqItem.ID,
			Token:     reqItem.Token,
			IsNative:  reqItem.Type == entity.NativeBalanceRequest,
		}

		switch reqItem.Type {
		case entity.NativeBalanceRequest:
			batchElems[i] = rpc.BatchElem{
				Method: "eth_getBalance",
				Args:   []interface{}{common.HexToAddress(reqItem.WalletAddress), "latest"},
				Result: new(*hexutil.Big),
			}
		case entity.TokenBalanceRequest:
			paddedWalletAddress := common.LeftPadBytes(common.HexToAddress(reqItem.WalletAddress).Bytes(), 32)
			callData := append(append([]byte{}, erc20MethodID...), paddedWalletAddress...)

			callArgs := map[string]interface{}{
				"to":   common.HexToAddress(reqItem.Token.Address),
				"data": hexutil.Bytes(callData),
			}
			batchElems[i] = rpc.BatchElem{
				Method: "eth_call",
				Args:   []interface{}{callArgs, "latest"},
				Result: new(hexutil.Bytes),
			}
		default:
			// Keep the element valid so the batch still executes.
			batchElems[i] = rpc.BatchElem{Method: "eth_chainId", Result: new(hexutil.Big)}
			results[i].Error = fmt.Errorf("unknown balance request type: %v for %s", reqItem.Type, reqItem.Token.Symbol)
		}
	}
	return batchElems, results
}

func (c *EVMClient) decodeBatch(requests []entity.BalanceRequestItem, batchElems []rpc.BatchElem, results []entity.BalanceResultItem) {
	for i, elem := range batchElems {
		if results[i].Error != nil {
			continue
		}
		if elem.Error != nil {
			results[i].Error = fmt.Errorf("failed to fetch %s for %s (wallet %s): %w",
				requests[i].Token.Symbol, requests[i].Token.Address, requests[i].WalletAddress, elem.Error)
			continue
		}

		switch requests[i].Type {
		case entity.NativeBalanceRequest:
			if result, ok := elem.Result.(**hexutil.Big); ok && result != nil && *result != nil {
				results[i].Balance = (*big.Int)(*result)
			} else {
				results[i].Error = fmt.Errorf("failed to decode native balance for %s: unexpected type or nil result", requests[i].Token.Symbol)
			}
		case entity.TokenBalanceRequest:
			result, ok := elem.Result.(*hexutil.Bytes)
			if !ok || result == nil {
				results[i].Error = fmt.Errorf("failed to decode token balance for %s: unexpected type or nil result", requests[i].Token.Symbol)
				continue
			}
			if len(*result) == 0 {
				results[i].Balance = big.NewInt(0)
				continue
			}
			unpacked, err := parsedERC20ABI.Unpack("balanceOf", *result)
			if err != nil {
				results[i].Error = fmt.Errorf("failed to unpack balanceOf result for %s: %w. Raw: %s", requests[i].Token.Symbol, err, hexutil.Encode(*result))
				continue
			}
			if len(unpacked) == 0 {
				results[i].Error = fmt.Errorf("balanceOf unpack returned no data for %s", requests[i].Token.Symbol)
				continue
			}
			balanceVal, ok := unpacked[0].(*big.Int)
			if !ok {
				results[i].Error = fmt.Errorf("failed to assert unpacked balanceOf result to *big.Int for %s. Got: %T", requests[i].Token.Symbol, unpacked[0])
				continue
			}
			results[i].Balance = balanceVal
		}

		if results[i].Error == nil && results[i].Balance == nil {
			results[i].Balance = big.NewInt(0)
		}
	}
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close releases the underlying RPC connections.
func (c *EVMClient) Close() {
	for _, ethClient := range c.ethClients {
		ethClient.Close()
	}
}
