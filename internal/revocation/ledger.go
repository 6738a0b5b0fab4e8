// Package revocation holds the server-side blocklist of token ids that were
// invalidated before their natural expiry.
//
// Entries are only ever inserted or pruned by expiry; they are never updated.
// A check that starts after Revoke returns observes the entry. Checks already
// in flight when Revoke commits may still pass.
package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps every storage failure so callers can fail closed.
var ErrUnavailable = errors.New("revocation store unavailable")

// Ledger is the revocation store shared by all requests.
type Ledger interface {
	// Revoke records tokenID until expiresAt. Revoking an id twice is a no-op.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	// IsRevoked reports whether tokenID was revoked. An empty id counts as revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// PruneExpiredBefore deletes entries whose original expiry is before now and
	// returns how many were removed.
	PruneExpiredBefore(ctx context.Context, now time.Time) (int64, error)
}
