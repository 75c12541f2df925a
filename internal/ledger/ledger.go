// Package ledger owns the metered credit balance gating barcode generation.
// The store is the sole source of truth: balances are never cached across a
// check-then-debit pair, and every debit is an atomic read-modify-write at
// the store so concurrent requests cannot lose updates.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// AccountID identifies one metered account.
type AccountID string

// IsNil reports whether the account ID is empty.
func (id AccountID) IsNil() bool {
	return id == ""
}

// Credits is a non-negative credit quantity in hundredths, giving amounts
// two-decimal precision semantics without floating point drift.
type Credits int64

// String formats the amount as a decimal with two fraction digits.
func (c Credits) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Float64 returns the decimal value for JSON responses.
func (c Credits) Float64() float64 {
	return float64(c) / 100
}

// Store sentinel errors, translated to domain codes by the Service.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Store persists account balances. Deduct must be check-then-apply atomic
// from the store's perspective.
type Store interface {
	// Balance returns the current balance, or ErrAccountNotFound.
	Balance(ctx context.Context, accountID AccountID) (Credits, error)
	// Add credits the account, creating it at zero when absent, and returns
	// the new balance.
	Add(ctx context.Context, accountID AccountID, amount Credits) (Credits, error)
	// Deduct debits the account and returns the new balance. It fails with
	// ErrInsufficientBalance when the balance would go negative and must not
	// partially apply.
	Deduct(ctx context.Context, accountID AccountID, amount Credits) (Credits, error)
}
