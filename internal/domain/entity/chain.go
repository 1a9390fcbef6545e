package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Chain tags every asset with the chain it was fetched from.
// Values are either "solana" or "evm:<chainID>".
type Chain string

const (
	// ChainSolana is the Solana mainnet.
	ChainSolana Chain = "solana"

	evmChainPrefix = "evm:"
)

// ArbitrumChainID is the EVM chain id of Arbitrum One.
const ArbitrumChainID uint64 = 42161

// EVMChain returns the chain tag for an EVM chain id.
func EVMChain(chainID uint64) Chain {
	return Chain(evmChainPrefix + strconv.FormatUint(chainID, 10))
}

// ParseChain accepts "solana", "evm:<id>" and the short aliases "evm"/"arbitrum" (Arbitrum One).
func ParseChain(s string) (Chain, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case string(ChainSolana):
		return ChainSolana, nil
	case "evm", "arbitrum":
		return EVMChain(ArbitrumChainID), nil
	}
	if strings.HasPrefix(v, evmChainPrefix) {
		id, err := strconv.ParseUint(strings.TrimPrefix(v, evmChainPrefix), 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid evm chain id in %q: %w", s, err)
		}
		return EVMChain(id), nil
	}
	return "", fmt.Errorf("unknown chain %q", s)
}

// IsSolana reports whether c is the Solana chain.
func (c Chain) IsSolana() bool { return c == ChainSolana }

// IsEVM reports whether c is an EVM chain.
func (c Chain) IsEVM() bool { return strings.HasPrefix(string(c), evmChainPrefix) }

// EVMChainID returns the numeric chain id of an EVM chain, false otherwise.
func (c Chain) EVMChainID() (uint64, bool) {
	if !c.IsEVM() {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(string(c), evmChainPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (c Chain) String() string { return string(c) }
