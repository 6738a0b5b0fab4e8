package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps revocations in process memory. Revocations are lost on
// restart and are not shared between instances.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryLedger builds an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]time.Time)}
}

func (l *MemoryLedger) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[tokenID]; !ok {
		l.entries[tokenID] = expiresAt
	}
	return nil
}

func (l *MemoryLedger) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return true, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[tokenID]
	return ok, nil
}

func (l *MemoryLedger) PruneExpiredBefore(_ context.Context, now time.Time) (int64, error) {
	cutoff := now.Unix()

	l.mu.Lock()
	defer l.mu.Unlock()

	var removed int64
	for id, expiresAt := range l.entries {
		if expiresAt.Unix() < cutoff {
			delete(l.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live entries.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
