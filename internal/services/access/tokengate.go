package access

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sporelabs/sporeverse/internal/model"
)

// defaultCallTimeout bounds how long a single gate evaluation may keep a join
// pending
const defaultCallTimeout = 10 * time.Second

// ContractCaller is the slice of the Ethereum RPC client the token gate
// needs. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenGate admits addresses holding a nonzero balance of any of a set of
// ERC-20 tokens. Balances are read with raw balanceOf eth_calls against the
// latest block; every token is queried concurrently and any RPC failure
// counts as a zero balance.
type TokenGate struct {
	logger  *slog.Logger
	caller  ContractCaller
	tokens  []common.Address
	timeout time.Duration
}

var _ Policy = (*TokenGate)(nil)

// NewTokenGate creates a token gate over the given ERC-20 contract addresses
func NewTokenGate(caller ContractCaller, tokens []common.Address, logger *slog.Logger) *TokenGate {
	return &TokenGate{
		logger:  logger.With(slog.String("component", "token-gate")),
		caller:  caller,
		tokens:  tokens,
		timeout: defaultCallTimeout,
	}
}

// Allow reports whether address holds any of the gate's tokens
func (g *TokenGate) Allow(ctx context.Context, address model.Address) bool {
	if len(g.tokens) == 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	holder := common.HexToAddress(string(address))
	results := make(chan bool, len(g.tokens))

	for _, token := range g.tokens {
		go func() {
			results <- g.hasBalance(ctx, token, holder)
		}()
	}

	allowed := false
	for range g.tokens {
		if <-results {
			allowed = true
		}
	}
	return allowed
}

func (g *TokenGate) hasBalance(ctx context.Context, token, holder common.Address) bool {
	out, err := g.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: balanceOfCalldata(holder),
	}, nil)
	if err != nil {
		g.logger.Warn("balance check failed",
			slog.String("token", token.Hex()),
			slog.String("holder", holder.Hex()),
			slog.String("error", err.Error()))
		return false
	}
	return new(big.Int).SetBytes(out).Sign() != 0
}

var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

// balanceOfCalldata ABI-encodes a balanceOf(address) call
func balanceOfCalldata(holder common.Address) []byte {
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(holder.Bytes(), 32)...)
	return data
}
