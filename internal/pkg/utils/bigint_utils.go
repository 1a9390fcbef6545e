package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToDecimal converts a raw on-chain integer amount into token units.
// Example: amount=1234500000000000000, decimals=18 => 1.2345
func ToDecimal(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// LamportsToDecimal converts an unsigned base unit amount, such as lamports, into token units.
func LamportsToDecimal(amount uint64, decimals uint8) decimal.Decimal {
	return ToDecimal(new(big.Int).SetUint64(amount), decimals)
}

// FormatBigInt converts a big.Int value to a human-readable string with trailing zeros trimmed.
func FormatBigInt(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return ToDecimal(amount, decimals).String()
}
