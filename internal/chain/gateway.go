package chain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/scard-game/scard/internal/game"
	"github.com/scard-game/scard/internal/platform/retry"
	"github.com/scard-game/scard/internal/platform/timeouts"
)

// TxMaxRetries bounds receipt polling while awaiting finality.
const TxMaxRetries = 9

// ErrReverted reports a transaction that was included but failed in
// execution. Callers must not apply any state from it.
var ErrReverted = errors.New("transaction reverted")

// ErrTimeout reports that finality was not observed within the retry
// budget. Nothing was confirmed; callers keep their prior state.
var ErrTimeout = errors.New("transaction confirmation timeout")

// Invoker is the wallet capability: it signs and submits a call to the
// game systems contract and returns the transaction hash.
type Invoker interface {
	Execute(ctx context.Context, entrypoint string, calldata []string) (string, error)
}

// Gateway submits player actions as transactions and awaits their
// finality. It performs no local game-state mutation; deduplication of
// accidental double submission is the orchestrator's responsibility.
type Gateway struct {
	rpc    RPCCaller
	wallet Invoker

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGateway creates a transaction gateway over the given RPC client and
// wallet capability.
func NewGateway(rpc RPCCaller, wallet Invoker) *Gateway {
	return &Gateway{rpc: rpc, wallet: wallet}
}

// CreateGame submits a session-creation transaction.
func (g *Gateway) CreateGame(ctx context.Context, gameID string) (string, error) {
	return g.submit(ctx, EntryCreateGame, gameID)
}

// Move submits a move transaction for the given direction.
func (g *Gateway) Move(ctx context.Context, gameID string, dir game.Direction) (string, error) {
	code, err := dir.WireCode()
	if err != nil {
		return "", err
	}
	return g.submit(ctx, EntryMove, gameID, "0x"+strconv.FormatUint(uint64(code), 16))
}

// Fight submits a fight transaction.
func (g *Gateway) Fight(ctx context.Context, gameID string) (string, error) {
	return g.submit(ctx, EntryFight, gameID)
}

// Flee submits a flee transaction.
func (g *Gateway) Flee(ctx context.Context, gameID string) (string, error) {
	return g.submit(ctx, EntryFlee, gameID)
}

func (g *Gateway) submit(ctx context.Context, entrypoint, gameID string, extra ...string) (string, error) {
	if g.wallet == nil {
		return "", errors.New("wallet is not configured")
	}
	idFelt, err := feltFromID(gameID)
	if err != nil {
		return "", err
	}
	calldata := append([]string{idFelt}, extra...)
	txHash, err := g.wallet.Execute(ctx, entrypoint, calldata)
	if err != nil {
		return "", fmt.Errorf("%s: %w", entrypoint, err)
	}
	log.Printf("[Gateway] %s transaction hash: %s", entrypoint, txHash)
	return txHash, nil
}

// AwaitFinality polls for the transaction receipt until the execution
// outcome is known. Polling is bounded: TxMaxRetries attempts at a fixed
// interval, with a longer pause after a transport failure. A reverted
// execution surfaces as ErrReverted; an exhausted budget as ErrTimeout.
func (g *Gateway) AwaitFinality(ctx context.Context, txHash string) (Receipt, error) {
	policy := &finalityBackOff{
		poll:     timeouts.TxPollInterval,
		errDelay: timeouts.TxRetryDelay,
	}

	receipt, err := retry.Do(ctx, retry.Options{
		MaxAttempts: TxMaxRetries,
		Policy:      policy,
		Sleep:       g.sleep,
		Notify: func(attempt int, err error) {
			policy.slow = isTransportError(err)
			log.Printf("[Gateway] receipt poll %d/%d for %s: %v", attempt, TxMaxRetries, txHash, err)
		},
	}, func(ctx context.Context) (Receipt, error) {
		return g.pollReceipt(ctx, txHash)
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return Receipt{}, fmt.Errorf("%w: %s", ErrTimeout, txHash)
		}
		return Receipt{}, err
	}
	return receipt, nil
}

func (g *Gateway) pollReceipt(ctx context.Context, txHash string) (Receipt, error) {
	result, err := g.rpc.Call(ctx, "starknet_getTransactionReceipt", []any{txHash})
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			// Hash not found yet: the transaction is still propagating.
			return Receipt{}, fmt.Errorf("receipt pending: %w", err)
		}
		return Receipt{}, transportError{err}
	}

	receipt := receiptFromJSON(result)
	if receipt.ExecutionStatus == "REVERTED" {
		return Receipt{}, retry.Permanent(fmt.Errorf("%w: %s", ErrReverted, txHash))
	}
	switch receipt.FinalityStatus {
	case "PRE_CONFIRMED", "ACCEPTED_ON_L2", "ACCEPTED_ON_L1":
		return receipt, nil
	}
	return Receipt{}, fmt.Errorf("finality pending: %s", receipt.FinalityStatus)
}

// transportError tags RPC transport failures so the backoff can apply the
// longer inter-retry delay.
type transportError struct{ err error }

func (e transportError) Error() string { return e.err.Error() }
func (e transportError) Unwrap() error { return e.err }

func isTransportError(err error) bool {
	var te transportError
	return errors.As(err, &te)
}

// finalityBackOff polls at a fixed interval and stretches to errDelay
// after a transport failure.
type finalityBackOff struct {
	poll     time.Duration
	errDelay time.Duration
	slow     bool
}

func (b *finalityBackOff) NextBackOff() time.Duration {
	if b.slow {
		b.slow = false
		return b.errDelay
	}
	return b.poll
}

func (b *finalityBackOff) Reset() { b.slow = false }
