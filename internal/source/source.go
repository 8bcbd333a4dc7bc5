package source

import (
	"context"
	"sync"

	"finsight/internal/fetch"
)

// Stats counts what one adapter has done since startup.
type Stats struct {
	Fetches   int
	Failures  int
	LastError string
}

// Adapter performs one externally observable fetch against a single data
// provider and normalizes the payload before returning it. Failures are
// always *fetch.Error so the resolver can log the kind and move on.
type Adapter interface {
	// Identity names the external provider; the rate limiter budgets by it.
	Identity() string
	// Capabilities lists the provider capabilities this adapter can serve.
	Capabilities() []string
	// Confidence is the intrinsic confidence ceiling of this provider.
	Confidence() float64
	Fetch(ctx context.Context, req fetch.Request) (*fetch.SourceResult, error)
	Stats() Stats
}

// StatsRecorder is the mutex-guarded counter embedded by the concrete
// adapters.
type StatsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func (r *StatsRecorder) RecordFetch() {
	r.mu.Lock()
	r.stats.Fetches++
	r.mu.Unlock()
}

func (r *StatsRecorder) RecordFailure(err error) {
	r.mu.Lock()
	r.stats.Failures++
	if err != nil {
		r.stats.LastError = err.Error()
	}
	r.mu.Unlock()
}

func (r *StatsRecorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
