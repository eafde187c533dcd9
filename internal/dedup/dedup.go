// Package dedup reconciles a parsed batch against itself and against the
// fingerprints already persisted for an account.
package dedup

import (
	"github.com/guiplbarros-ai/extrato/internal/domain"
)

// Result partitions a batch into the records to persist and the duplicates
// that were dropped. Order of Accepted follows the input batch.
type Result struct {
	Accepted []domain.CanonicalTransaction

	// IntraBatch are later repeats of a fingerprint inside the same batch;
	// the first occurrence stays in Accepted.
	IntraBatch []domain.CanonicalTransaction

	// AgainstStore are records whose fingerprint the account already has.
	AgainstStore []domain.CanonicalTransaction
}

// Reconcile runs both deduplication stages. The existing set must contain
// only the target account's fingerprints; cross-account collisions are
// legitimate distinct transactions and must not reach this function.
//
// Stage one keeps the first occurrence of each fingerprint in batch order.
// Stage two drops survivors whose fingerprint is already in existing.
func Reconcile(batch []domain.CanonicalTransaction, existing map[string]struct{}) Result {
	res := Result{}
	seen := make(map[string]struct{}, len(batch))

	for _, txn := range batch {
		if _, dup := seen[txn.Fingerprint]; dup {
			res.IntraBatch = append(res.IntraBatch, txn)
			continue
		}
		seen[txn.Fingerprint] = struct{}{}

		if _, dup := existing[txn.Fingerprint]; dup {
			res.AgainstStore = append(res.AgainstStore, txn)
			continue
		}
		res.Accepted = append(res.Accepted, txn)
	}
	return res
}
