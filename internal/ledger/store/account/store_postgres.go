package account

import (
	"context"
	"database/sql"
	"fmt"

	"cardgen/internal/ledger"
)

// PostgresStore persists account balances in PostgreSQL. Debits rely on a
// conditional UPDATE so the check-then-apply is a single atomic statement
// and concurrent debits cannot lose updates.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed balance store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL the store expects. Balances are stored in hundredths so
// two-decimal amounts stay exact.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	balance_cents BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the accounts table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure accounts schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Balance(ctx context.Context, accountID ledger.AccountID) (ledger.Credits, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance_cents FROM accounts WHERE id = $1`, string(accountID),
	).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ledger.ErrAccountNotFound
		}
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return ledger.Credits(balance), nil
}

func (s *PostgresStore) Add(ctx context.Context, accountID ledger.AccountID, amount ledger.Credits) (ledger.Credits, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, balance_cents)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			balance_cents = accounts.balance_cents + EXCLUDED.balance_cents,
			updated_at = now()
		RETURNING balance_cents
	`, string(accountID), int64(amount)).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("add credits: %w", err)
	}
	return ledger.Credits(balance), nil
}

func (s *PostgresStore) Deduct(ctx context.Context, accountID ledger.AccountID, amount ledger.Credits) (ledger.Credits, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance_cents = balance_cents - $2,
		    updated_at = now()
		WHERE id = $1 AND balance_cents >= $2
		RETURNING balance_cents
	`, string(accountID), int64(amount)).Scan(&balance)
	if err == nil {
		return ledger.Credits(balance), nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("deduct credits: %w", err)
	}

	// No row updated: distinguish a missing account from a balance that is
	// too low at this instant.
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, string(accountID),
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("deduct credits: %w", err)
	}
	if !exists {
		return 0, ledger.ErrAccountNotFound
	}
	return 0, ledger.ErrInsufficientBalance
}
