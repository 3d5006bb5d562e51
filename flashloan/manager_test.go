package flashloan

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbscanner/config"
)

func TestManagerSelectsCheapestProvider(t *testing.T) {
	m := NewManager(config.FlashLoanConfig{
		Providers: []config.FlashLoanProviderConfig{
			{Name: "aave-v3", FeeBps: 9},
			{Name: "balancer", FeeBps: 0},
			{Name: "uniswap-flash", FeeBps: 5},
		},
	}, zaptest.NewLogger(t))

	oneEth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	q, err := m.Quote(common.Address{}, oneEth)
	require.NoError(t, err)
	assert.Equal(t, "balancer", q.Provider)
	assert.Equal(t, uint32(0), q.FeeBps)
	assert.Equal(t, "0", q.Fee.String())
}

func TestManagerFeeAmount(t *testing.T) {
	m := NewManager(config.DefaultConfig().FlashLoan, zaptest.NewLogger(t))

	fiveEth := new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	q, err := m.Quote(common.Address{}, fiveEth)
	require.NoError(t, err)
	assert.Equal(t, "aave-v3", q.Provider)
	assert.Equal(t, uint32(9), q.FeeBps)
	assert.Equal(t, "4500000000000000", q.Fee.String())
}

func TestManagerWithoutProviders(t *testing.T) {
	m := NewManager(config.FlashLoanConfig{}, zaptest.NewLogger(t))
	_, err := m.Quote(common.Address{}, big.NewInt(1))
	assert.Error(t, err)
}
