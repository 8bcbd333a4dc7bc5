package cache

import (
	"context"
	"time"

	"finsight/internal/fetch"
)

// Entry is one cached fetch outcome. Entries are written whole and never
// mutated in place; a refresh overwrites the previous entry under the same
// fingerprint.
type Entry struct {
	Fingerprint string
	Capability  string
	Result      fetch.SourceResult
	ExpiresAt   time.Time
}

func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is the TTL cache shared by every adapter through the resolver.
//
// Get returns live entries only: an expired entry behaves exactly like a
// miss. GetStale returns an expired entry if the store still holds one, for
// the degraded last-resort tier. Put is idempotent and last-write-wins;
// a reader never observes a partially written entry.
type Store interface {
	Get(ctx context.Context, fingerprint string) (*Entry, bool, error)
	GetStale(ctx context.Context, fingerprint string) (*Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	// EvictCapability removes every entry of one capability namespace and
	// reports how many were dropped.
	EvictCapability(ctx context.Context, capability string) (int64, error)
	Close() error
}
