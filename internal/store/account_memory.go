package store

import (
	"context"
	"sync"

	"github.com/serroba/url-shortener/internal/account"
)

// AccountMemoryStore is an in-memory implementation of account.Repository.
// Accounts are copied in and out so callers never share state with the store.
type AccountMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*account.Account
	byEmail map[string]string // email -> id
}

// NewAccountMemoryStore creates a new in-memory account store.
func NewAccountMemoryStore() *AccountMemoryStore {
	return &AccountMemoryStore{
		byID:    make(map[string]*account.Account),
		byEmail: make(map[string]string),
	}
}

func (m *AccountMemoryStore) Create(_ context.Context, acc *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[acc.Email]; ok {
		return account.ErrEmailTaken
	}

	m.byID[acc.ID] = cloneAccount(acc)
	m.byEmail[acc.Email] = acc.ID

	return nil
}

func (m *AccountMemoryStore) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, account.ErrNotFound
	}

	return cloneAccount(m.byID[id]), nil
}

func (m *AccountMemoryStore) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.byID[id]
	if !ok {
		return account.ErrNotFound
	}

	acc.EmailVerified = true
	acc.Pending = nil

	return nil
}

func (m *AccountMemoryStore) UpdatePending(_ context.Context, id string, pending account.PendingVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.byID[id]
	if !ok {
		return account.ErrNotFound
	}

	acc.Pending = &pending

	return nil
}

func cloneAccount(acc *account.Account) *account.Account {
	c := *acc

	if acc.Pending != nil {
		p := *acc.Pending
		c.Pending = &p
	}

	return &c
}

var _ account.Repository = (*AccountMemoryStore)(nil)
