package math

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"0.01", 18, "10000000000000000", false},
		{"0.005", 18, "5000000000000000", false},
		{"20", 6, "20000000", false},
		{"1.5", 0, "", true},
		{"abc", 18, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := ParseUnits(tt.amount, tt.decimals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToDecimal(t *testing.T) {
	assert.True(t, decimal.RequireFromString("0.0002").Equal(ToDecimal(big.NewInt(200000000000000), 18)))
	assert.True(t, decimal.RequireFromString("20").Equal(ToDecimal(big.NewInt(20000000), 6)))
	assert.True(t, decimal.Zero.Equal(ToDecimal(nil, 18)))
}

func TestApplySlippage(t *testing.T) {
	assert.Equal(t, "19900000", ApplySlippage(big.NewInt(20000000), 50).String())
	assert.Equal(t, "0", ApplySlippage(big.NewInt(20000000), 20000).String())
	// rounds down
	assert.Equal(t, "994", ApplySlippage(big.NewInt(999), 50).String())
}

func TestBpsOf(t *testing.T) {
	oneEth := MustParseUnits("1", 18)
	assert.Equal(t, "900000000000000", BpsOf(oneEth, 9).String())
	assert.Equal(t, int64(0), BpsOf(oneEth, 0).Int64())
}

func TestMax(t *testing.T) {
	assert.Equal(t, int64(5), Max(big.NewInt(5), big.NewInt(3)).Int64())
	assert.Equal(t, int64(7), Max(big.NewInt(5), big.NewInt(7)).Int64())
}
