package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/fetch"
)

func testEntry(fingerprint, capability string, ttl time.Duration, base time.Time) Entry {
	return Entry{
		Fingerprint: fingerprint,
		Capability:  capability,
		Result: fetch.SourceResult{
			Payload:    map[string]any{"ticker": "AAPL"},
			Confidence: 0.85,
			Provenance: "polygon https://api.polygon.io/v3/reference/tickers/AAPL",
			FetchedAt:  base,
		},
		ExpiresAt: base.Add(ttl),
	}
}

func TestMemoryStoreGetBeforeExpiry(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return base }

	entry := testEntry("company_profile:abc", "company_profile", time.Hour, base)
	require.NoError(t, s.Put(context.Background(), entry))

	got, ok, err := s.Get(context.Background(), entry.Fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.85, got.Result.Confidence)
}

func TestMemoryStoreMissAfterExpiry(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	now := base
	s.now = func() time.Time { return now }

	entry := testEntry("company_profile:abc", "company_profile", time.Hour, base)
	require.NoError(t, s.Put(context.Background(), entry))

	now = base.Add(time.Hour) // boundary: now == expiresAt counts as expired
	_, ok, err := s.Get(context.Background(), entry.Fingerprint)
	require.NoError(t, err)
	assert.False(t, ok)

	stale, ok, err := s.GetStale(context.Background(), entry.Fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.85, stale.Result.Confidence)
}

func TestMemoryStoreGetStaleOnlyReturnsExpired(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return base }

	entry := testEntry("company_profile:live", "company_profile", time.Hour, base)
	require.NoError(t, s.Put(context.Background(), entry))

	_, ok, err := s.GetStale(context.Background(), entry.Fingerprint)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStorePutOverwrites(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return base }

	first := testEntry("company_profile:abc", "company_profile", time.Hour, base)
	require.NoError(t, s.Put(context.Background(), first))

	second := first
	second.Result.Confidence = 0.8
	require.NoError(t, s.Put(context.Background(), second))

	got, ok, err := s.Get(context.Background(), first.Fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.8, got.Result.Confidence)
}

func TestMemoryStoreEvictCapability(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return base }

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testEntry("quarterly_financials:a", "quarterly_financials", time.Hour, base)))
	require.NoError(t, s.Put(ctx, testEntry("quarterly_financials:b", "quarterly_financials", time.Hour, base)))
	require.NoError(t, s.Put(ctx, testEntry("company_profile:c", "company_profile", time.Hour, base)))

	dropped, err := s.EvictCapability(ctx, "quarterly_financials")
	require.NoError(t, err)
	assert.EqualValues(t, 2, dropped)

	_, ok, _ := s.Get(ctx, "quarterly_financials:a")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "company_profile:c")
	assert.True(t, ok)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return base }

	ctx := context.Background()
	entry := testEntry("company_profile:race", "company_profile", time.Hour, base)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				_ = s.Put(ctx, entry)
				got, ok, err := s.Get(ctx, entry.Fingerprint)
				if err == nil && ok {
					// a reader must never observe a torn entry
					assert.Equal(t, 0.85, got.Result.Confidence)
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
