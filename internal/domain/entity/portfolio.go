package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// FetchError is the observable error flag of a failed chain fetch.
type FetchError struct {
	Chain   Chain  `json:"chain"`
	Address string `json:"address"`
	Message string `json:"message"`
}

// ChainQuery is a snapshot of one chain fetcher.
type ChainQuery struct {
	Chain     Chain       `json:"chain"`
	Address   string      `json:"address,omitempty"`
	Assets    []Asset     `json:"assets"`
	Loading   bool        `json:"loading"`
	Idle      bool        `json:"idle"`
	Stale     bool        `json:"stale"`
	Err       *FetchError `json:"error,omitempty"`
	FetchedAt time.Time   `json:"fetchedAt,omitempty"`
}

// PortfolioView is the aggregated, chain-tagged portfolio.
type PortfolioView struct {
	Assets        []Asset         `json:"assets"`
	Loading       bool            `json:"loading"`
	SolanaError   *FetchError     `json:"solanaError,omitempty"`
	EVMError      *FetchError     `json:"evmError,omitempty"`
	TotalValueUSD decimal.Decimal `json:"totalValueUSD"`
}
