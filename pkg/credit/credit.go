package credit

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultBalance is the balance granted on first use.
const DefaultBalance = 5

// DefaultKey is the key the balance is persisted under.
const DefaultKey = "zhiyin_credits"

const maxSwapAttempts = 5

// ErrConflict is returned when the balance kept changing under every swap
// attempt.
var ErrConflict = errors.New("credit: balance changed concurrently")

// ErrInsufficient is returned by Debit when a reload shows the stored balance
// no longer covers the cost. Nothing is written in that case.
var ErrInsufficient = errors.New("credit: insufficient balance")

// Store persists the balance. Load reports false when no value was stored yet.
type Store interface {
	Load(ctx context.Context) (int, bool, error)
	Save(ctx context.Context, v int) error
}

// Swapper is implemented by stores that can replace the persisted value only
// if it still holds the expected one.
type Swapper interface {
	Swap(ctx context.Context, old, new int) (bool, error)
}

// Ledger is a write-through credit counter. The persisted value and the
// in-memory value are equal whenever a method returns.
type Ledger struct {
	lck     sync.Mutex
	store   Store
	balance int
}

// NewLedger returns a ledger backed by store. Call Initialize before use.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Initialize loads the persisted balance, storing the default one when there
// is none yet.
func (l *Ledger) Initialize(ctx context.Context) (int, error) {
	l.lck.Lock()
	defer l.lck.Unlock()

	v, ok, err := l.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("credit: couldn't load balance: %w", err)
	}
	if !ok || v < 0 {
		if !ok {
			v = DefaultBalance
		} else {
			v = 0
		}
		if err := l.store.Save(ctx, v); err != nil {
			return 0, fmt.Errorf("credit: couldn't save balance: %w", err)
		}
	}
	l.balance = v
	return v, nil
}

func (l *Ledger) Balance() int {
	l.lck.Lock()
	defer l.lck.Unlock()
	return l.balance
}

func (l *Ledger) HasSufficientBalance(cost int) bool {
	l.lck.Lock()
	defer l.lck.Unlock()
	return l.balance >= cost
}

// Debit subtracts cost from the balance, never going below zero. If another
// process changed the stored balance and it no longer covers the cost,
// ErrInsufficient is returned and the balance is left as stored.
func (l *Ledger) Debit(ctx context.Context, cost int) error {
	return l.apply(ctx, func(v int, reloaded bool) (int, error) {
		if reloaded && v < cost {
			return v, ErrInsufficient
		}
		return max(0, v-cost), nil
	})
}

// Credit adds amount to the balance.
func (l *Ledger) Credit(ctx context.Context, amount int) error {
	return l.apply(ctx, func(v int, _ bool) (int, error) {
		return v + amount, nil
	})
}

// apply persists f applied to the balance. Reloaded tells f the value was
// read back from the store after a lost swap.
func (l *Ledger) apply(ctx context.Context, f func(v int, reloaded bool) (int, error)) error {
	l.lck.Lock()
	defer l.lck.Unlock()

	sw, ok := l.store.(Swapper)
	if !ok {
		next, err := f(l.balance, false)
		if err != nil {
			return err
		}
		if err := l.store.Save(ctx, next); err != nil {
			return fmt.Errorf("credit: couldn't save balance: %w", err)
		}
		l.balance = next
		return nil
	}

	old, reloaded := l.balance, false
	for i := 0; i < maxSwapAttempts; i++ {
		next, err := f(old, reloaded)
		if err != nil {
			l.balance = old
			return err
		}
		if next == old {
			l.balance = old
			return nil
		}
		swapped, err := sw.Swap(ctx, old, next)
		if err != nil {
			return fmt.Errorf("credit: couldn't swap balance: %w", err)
		}
		if swapped {
			l.balance = next
			return nil
		}

		// Someone else changed the balance, reload and apply again
		cur, found, err := l.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("credit: couldn't reload balance: %w", err)
		}
		if !found {
			next, err := f(old, false)
			if err != nil {
				return err
			}
			if err := l.store.Save(ctx, next); err != nil {
				return fmt.Errorf("credit: couldn't save balance: %w", err)
			}
			l.balance = next
			return nil
		}
		old, reloaded = cur, true
	}
	return ErrConflict
}
