package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// TransferPort moves tokens between user accounts and the pool's custody.
// Implementations must either complete a transfer or leave balances untouched.
type TransferPort interface {
	TransferIn(ctx context.Context, from solana.PublicKey, mint solana.PublicKey, amount *uint256.Int) error
	TransferOut(ctx context.Context, to solana.PublicKey, mint solana.PublicKey, amount *uint256.Int) error
}

// MemoryLedger is an in-process TransferPort. The pool's custody is tracked
// under the Vault account.
type MemoryLedger struct {
	Vault solana.PublicKey

	mu       sync.Mutex
	balances map[solana.PublicKey]map[solana.PublicKey]*uint256.Int
}

func NewMemoryLedger(vault solana.PublicKey) *MemoryLedger {
	return &MemoryLedger{
		Vault:    vault,
		balances: make(map[solana.PublicKey]map[solana.PublicKey]*uint256.Int),
	}
}

// Credit adds amount of mint to account out of thin air.
func (l *MemoryLedger) Credit(account, mint solana.PublicKey, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balance(account, mint)
	bal.Add(bal, amount)
}

func (l *MemoryLedger) Balance(account, mint solana.PublicKey) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(l.balance(account, mint))
}

func (l *MemoryLedger) TransferIn(ctx context.Context, from, mint solana.PublicKey, amount *uint256.Int) error {
	return l.move(ctx, from, l.Vault, mint, amount)
}

func (l *MemoryLedger) TransferOut(ctx context.Context, to, mint solana.PublicKey, amount *uint256.Int) error {
	return l.move(ctx, l.Vault, to, mint, amount)
}

func (l *MemoryLedger) move(ctx context.Context, from, to, mint solana.PublicKey, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	src := l.balance(from, mint)
	if src.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s", ErrInsufficientFunds, from, src.Dec(), mint, amount.Dec())
	}
	src.Sub(src, amount)
	dst := l.balance(to, mint)
	dst.Add(dst, amount)
	return nil
}

// balance returns the live balance entry, creating it. Callers hold mu.
func (l *MemoryLedger) balance(account, mint solana.PublicKey) *uint256.Int {
	byMint, ok := l.balances[account]
	if !ok {
		byMint = make(map[solana.PublicKey]*uint256.Int)
		l.balances[account] = byMint
	}
	bal, ok := byMint[mint]
	if !ok {
		bal = new(uint256.Int)
		byMint[mint] = bal
	}
	return bal
}
