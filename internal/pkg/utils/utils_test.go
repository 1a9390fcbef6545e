package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDecimal(t *testing.T) {
	v, _ := new(big.Int).SetString("1234500000000000000", 10)

	assert.Equal(t, "1.2345", ToDecimal(v, 18).String())
	assert.Equal(t, "1500", ToDecimal(big.NewInt(1500), 0).String())
	assert.True(t, ToDecimal(nil, 6).IsZero())
	assert.Equal(t, "2.5", LamportsToDecimal(2_500_000_000, 9).String())
	assert.Equal(t, "0.000001", FormatBigInt(big.NewInt(1), 6))
	assert.Equal(t, "0", FormatBigInt(nil, 6))
}

func TestBatch(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		size  int
		want  [][]string
	}{
		{"empty", nil, 3, [][]string{}},
		{"exact", []string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{"remainder", []string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
		{"non positive size", []string{"a", "b"}, 0, [][]string{{"a", "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Batch(tt.items, tt.size))
		})
	}
}
