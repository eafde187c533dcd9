// Package store persists canonical transactions and serves the per-account
// fingerprint sets the deduplicator reconciles against.
package store

import (
	"context"

	"github.com/guiplbarros-ai/extrato/internal/domain"
)

// Store is the persistence contract the importer depends on.
type Store interface {
	// ExistingFingerprints returns the set of fingerprints already
	// persisted for the account. Fingerprint scope is per account:
	// identical transactions on different accounts are distinct.
	ExistingFingerprints(ctx context.Context, accountID string) (map[string]struct{}, error)

	// Persist writes the batch for the account atomically. Re-persisting a
	// record whose (account, fingerprint) pair already exists is a no-op,
	// which makes retries after partial failures idempotent.
	Persist(ctx context.Context, accountID string, txns []domain.CanonicalTransaction) error
}
