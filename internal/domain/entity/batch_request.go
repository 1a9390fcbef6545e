package entity

import "math/big"

// BalanceRequestType defines the type of balance request.
type BalanceRequestType int

const (
	// NativeBalanceRequest requests the native balance of a wallet.
	NativeBalanceRequest BalanceRequestType = iota
	// TokenBalanceRequest requests the balance of a specific token for a wallet.
	TokenBalanceRequest
)

// ZeroAddress represents the Ethereum zero address. Native EVM assets use it as their address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// BalanceRequestItem represents a single item in a batch request for balances.
type BalanceRequestItem struct {
	ID            string
	Type          BalanceRequestType
	WalletAddress string
	Token         TokenInfo
}

// BalanceResultItem represents the result of a single balance request from a batch.
type BalanceResultItem struct {
	RequestID string
	Token     TokenInfo
	IsNative  bool
	Balance   *big.Int
	Error     error
}
