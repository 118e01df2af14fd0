package access

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/sporelabs/sporeverse/internal/model"
	"github.com/sporelabs/sporeverse/internal/testutil"
)

// stubCaller maps token contract addresses to balances or errors
type stubCaller struct {
	balances map[common.Address]*big.Int
	errs     map[common.Address]error
}

func (c *stubCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err, ok := c.errs[*call.To]; ok {
		return nil, err
	}
	balance, ok := c.balances[*call.To]
	if !ok {
		balance = big.NewInt(0)
	}
	return common.LeftPadBytes(balance.Bytes(), 32), nil
}

var (
	tokenA = common.HexToAddress("0xa72159fc390f0e3c6d415e658264c7c4051e9b87")
	tokenB = common.HexToAddress("0x9c4a4204b79dd291d6b6571c5be8bbcd0622f050")
	holder = model.Address("0x1111111111111111111111111111111111111111")
)

func TestTokenGateAllowsHolder(t *testing.T) {
	caller := &stubCaller{balances: map[common.Address]*big.Int{
		tokenB: big.NewInt(5),
	}}
	gate := NewTokenGate(caller, []common.Address{tokenA, tokenB}, testutil.NopLogger())

	assert.True(t, gate.Allow(context.Background(), holder))
}

func TestTokenGateDeniesZeroBalances(t *testing.T) {
	caller := &stubCaller{}
	gate := NewTokenGate(caller, []common.Address{tokenA, tokenB}, testutil.NopLogger())

	assert.False(t, gate.Allow(context.Background(), holder))
}

func TestTokenGateTreatsErrorsAsZero(t *testing.T) {
	caller := &stubCaller{
		balances: map[common.Address]*big.Int{tokenB: big.NewInt(1)},
		errs:     map[common.Address]error{tokenA: errors.New("rpc down")},
	}
	gate := NewTokenGate(caller, []common.Address{tokenA, tokenB}, testutil.NopLogger())

	// The failing token does not mask the one with a balance
	assert.True(t, gate.Allow(context.Background(), holder))

	// And with every call failing the gate denies instead of erroring
	caller.errs[tokenB] = errors.New("rpc down")
	assert.False(t, gate.Allow(context.Background(), holder))
}

func TestTokenGateDeniesWithNoTokens(t *testing.T) {
	gate := NewTokenGate(&stubCaller{}, nil, testutil.NopLogger())
	assert.False(t, gate.Allow(context.Background(), holder))
}

func TestBalanceOfCalldata(t *testing.T) {
	holderAddr := common.HexToAddress(string(holder))
	data := balanceOfCalldata(holderAddr)

	assert.Len(t, data, 36)
	// 0x70a08231 is the balanceOf(address) selector
	assert.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, data[:4])
	assert.Equal(t, common.LeftPadBytes(holderAddr.Bytes(), 32), data[4:])
}

func TestAnyOf(t *testing.T) {
	deny := Func(func(context.Context, model.Address) bool { return false })
	allow := Func(func(context.Context, model.Address) bool { return true })

	assert.False(t, AnyOf{}.Allow(context.Background(), holder))
	assert.False(t, AnyOf{deny}.Allow(context.Background(), holder))
	assert.True(t, AnyOf{deny, allow}.Allow(context.Background(), holder))
}
