package entity

import "github.com/shopspring/decimal"

// TokenInfo describes a token tracked on a chain. EVM token lists are loaded from JSON files.
type TokenInfo struct {
	Chain    Chain  `json:"-"`
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
}

// TokenQuote is the market data known for a token: USD price and display metadata.
type TokenQuote struct {
	Address  string          `json:"address"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	LogoURI  string          `json:"logoURI,omitempty"`
	PriceUSD decimal.Decimal `json:"priceUsd"`
}

// SPLTokenBalance is one mint held by a Solana wallet, summed over its token accounts.
type SPLTokenBalance struct {
	Mint     string
	Amount   decimal.Decimal
	Decimals uint8
}
