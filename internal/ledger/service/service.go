package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cardgen/internal/ledger"
	dErrors "cardgen/pkg/domain-errors"
)

// Service exposes the three ledger operations the rest of the system is
// allowed to use: check balance, debit, credit. Amounts are validated here;
// atomicity is the store's contract.
type Service struct {
	store  ledger.Store
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a ledger service over the given store.
func New(store ledger.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Balance returns the current balance for the account. Unknown accounts
// report a zero balance: they simply have not been credited yet.
func (s *Service) Balance(ctx context.Context, accountID ledger.AccountID) (ledger.Credits, error) {
	if accountID.IsNil() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "account id is required")
	}
	balance, err := s.store.Balance(ctx, accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, translateStoreErr(err, "check balance")
	}
	return balance, nil
}

// Debit removes amount from the account balance. A store precondition
// failure (balance dropped below amount by a concurrent request) surfaces as
// a DebitRejected domain error.
func (s *Service) Debit(ctx context.Context, accountID ledger.AccountID, amount ledger.Credits) (ledger.Credits, error) {
	if accountID.IsNil() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "account id is required")
	}
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "debit amount must be positive")
	}

	newBalance, err := s.store.Deduct(ctx, accountID, amount)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) || errors.Is(err, ledger.ErrAccountNotFound) {
			return 0, dErrors.Wrap(err, dErrors.CodeDebitRejected, "ledger declined debit")
		}
		return 0, translateStoreErr(err, "debit")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "credits debited",
			"account_id", accountID,
			"amount", amount.String(),
			"new_balance", newBalance.String(),
		)
	}
	return newBalance, nil
}

// Credit adds amount to the account balance, creating the account when it
// does not exist yet.
func (s *Service) Credit(ctx context.Context, accountID ledger.AccountID, amount ledger.Credits) (ledger.Credits, error) {
	if accountID.IsNil() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "account id is required")
	}
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "credit amount must be positive")
	}

	newBalance, err := s.store.Add(ctx, accountID, amount)
	if err != nil {
		return 0, translateStoreErr(err, "credit")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "credits added",
			"account_id", accountID,
			"amount", amount.String(),
			"new_balance", newBalance.String(),
		)
	}
	return newBalance, nil
}

// translateStoreErr keeps collaborator timeouts distinct from business
// rejections and from generic store failures.
func translateStoreErr(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "ledger "+op+" timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "ledger "+op+" failed")
}
