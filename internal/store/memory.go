package store

import (
	"context"
	"sync"

	"github.com/guiplbarros-ai/extrato/internal/domain"
)

// Memory is an in-memory Store for dry runs and tests.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]map[string]domain.CanonicalTransaction // accountID -> fingerprint -> txn
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]map[string]domain.CanonicalTransaction)}
}

// ExistingFingerprints returns the account's fingerprint set.
func (m *Memory) ExistingFingerprints(_ context.Context, accountID string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(map[string]struct{}, len(m.accounts[accountID]))
	for fp := range m.accounts[accountID] {
		set[fp] = struct{}{}
	}
	return set, nil
}

// Persist stores the batch. A fingerprint already present for the account
// keeps its original record.
func (m *Memory) Persist(_ context.Context, accountID string, txns []domain.CanonicalTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byFP := m.accounts[accountID]
	if byFP == nil {
		byFP = make(map[string]domain.CanonicalTransaction)
		m.accounts[accountID] = byFP
	}
	for _, txn := range txns {
		if _, exists := byFP[txn.Fingerprint]; exists {
			continue
		}
		byFP[txn.Fingerprint] = txn
	}
	return nil
}

// Count returns how many transactions the account holds.
func (m *Memory) Count(accountID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts[accountID])
}
