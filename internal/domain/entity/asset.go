package entity

import "github.com/shopspring/decimal"

// Asset is one held token, normalized across chains.
type Asset struct {
	Address  string          `json:"address"`
	Chain    Chain           `json:"chain"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	LogoURI  string          `json:"logoURI,omitempty"`
	Decimals uint8           `json:"decimals"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
}

// AssetKey identifies an asset. Addresses are only unique within a chain.
type AssetKey struct {
	Chain   Chain
	Address string
}

// Key returns the (chain, address) identity of the asset.
func (a Asset) Key() AssetKey {
	return AssetKey{Chain: a.Chain, Address: a.Address}
}

// Value is the derived USD value, price × amount.
func (a Asset) Value() decimal.Decimal {
	return a.Price.Mul(a.Amount)
}
