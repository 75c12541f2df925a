package account

import (
	"context"
	"sync"

	"cardgen/internal/ledger"
)

// InMemoryStore keeps balances in a mutex-guarded map. It backs unit tests
// and local development; production uses the Postgres store.
type InMemoryStore struct {
	mu       sync.RWMutex
	balances map[ledger.AccountID]ledger.Credits
}

// NewMemory creates an empty in-memory balance store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		balances: make(map[ledger.AccountID]ledger.Credits),
	}
}

func (s *InMemoryStore) Balance(_ context.Context, accountID ledger.AccountID) (ledger.Credits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, exists := s.balances[accountID]
	if !exists {
		return 0, ledger.ErrAccountNotFound
	}
	return balance, nil
}

func (s *InMemoryStore) Add(_ context.Context, accountID ledger.AccountID, amount ledger.Credits) (ledger.Credits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[accountID] += amount
	return s.balances[accountID], nil
}

func (s *InMemoryStore) Deduct(_ context.Context, accountID ledger.AccountID, amount ledger.Credits) (ledger.Credits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, exists := s.balances[accountID]
	if !exists {
		return 0, ledger.ErrAccountNotFound
	}
	if balance < amount {
		return 0, ledger.ErrInsufficientBalance
	}
	s.balances[accountID] = balance - amount
	return s.balances[accountID], nil
}
