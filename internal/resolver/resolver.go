package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"finsight/internal/cache"
	"finsight/internal/fetch"
	"finsight/internal/logger"
	"finsight/internal/ratelimit"
	"finsight/internal/source"
	"finsight/internal/trace"
)

// Attempt records why one adapter did not produce a result.
type Attempt struct {
	Source string
	Reason string
}

// ExhaustedError reports that every adapter in the cascade failed, carrying
// the per-adapter reasons for diagnostics.
type ExhaustedError struct {
	Capability string
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, a.Source+": "+a.Reason)
	}
	return fmt.Sprintf("all sources exhausted for %s (%s)", e.Capability, strings.Join(reasons, "; "))
}

// Options tune caching and degradation behavior.
type Options struct {
	// TTLs maps capability to cache lifetime; a zero TTL disables caching
	// for that capability. DefaultTTL covers capabilities not listed.
	TTLs       map[string]time.Duration
	DefaultTTL time.Duration

	// StaleFallback serves an expired cache entry, confidence degraded by
	// StaleFactor, when every live source failed.
	StaleFallback bool
	StaleFactor   float64

	// FetchTimeout bounds every adapter call. A cache hit never touches a
	// timeout-bound call.
	FetchTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = 24 * time.Hour
	}
	if o.StaleFactor <= 0 || o.StaleFactor >= 1 {
		o.StaleFactor = 0.5
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 15 * time.Second
	}
	return o
}

// Resolver tries adapters in priority order under caching and rate-limit
// constraints and returns the first success. Ordering encodes the trust
// hierarchy: most authoritative first, cheaper sources as fallback.
type Resolver struct {
	store  cache.Store
	limits *ratelimit.Limiter
	opts   Options
	group  singleflight.Group
}

func New(store cache.Store, limits *ratelimit.Limiter, opts Options) *Resolver {
	return &Resolver{store: store, limits: limits, opts: opts.withDefaults()}
}

// Resolve returns the first successful normalized result for req, or an
// *ExhaustedError once every adapter has been tried. Concurrent calls for
// the same fingerprint are collapsed into one upstream fetch.
func (r *Resolver) Resolve(ctx context.Context, req fetch.Request, adapters []source.Adapter, log *trace.Log) (*fetch.SourceResult, error) {
	if len(adapters) == 0 {
		return nil, &ExhaustedError{Capability: req.Capability, Attempts: []Attempt{{Source: "resolver", Reason: "no adapters configured"}}}
	}
	fp := req.Fingerprint()

	// dominant fast path: a live entry short-circuits before the limiter
	// or any adapter is consulted
	if entry, ok, err := r.store.Get(ctx, fp); err == nil && ok {
		log.Appendf("%s: cache hit (%s)", req.Capability, entry.Result.Provenance)
		result := entry.Result
		return &result, nil
	} else if err != nil {
		logger.Warnf("cache read failed for %s: %v", fp, err)
	}
	log.Appendf("%s: cache miss", req.Capability)

	v, err, shared := r.group.Do(fp, func() (any, error) {
		return r.cascade(ctx, req, fp, adapters, log)
	})
	if shared {
		log.Appendf("%s: coalesced with concurrent identical request", req.Capability)
	}
	if err != nil {
		return nil, err
	}
	return v.(*fetch.SourceResult), nil
}

func (r *Resolver) cascade(ctx context.Context, req fetch.Request, fp string, adapters []source.Adapter, log *trace.Log) (*fetch.SourceResult, error) {
	// a coalesced loser may arrive after the winner populated the cache
	if entry, ok, err := r.store.Get(ctx, fp); err == nil && ok {
		result := entry.Result
		return &result, nil
	}

	attempts := make([]Attempt, 0, len(adapters))
	for _, adapter := range adapters {
		identity := adapter.Identity()

		decision := r.limits.TryAcquire(identity)
		if !decision.Allowed {
			// a refusal is a budget signal, not an error: skip without
			// spending a network call
			log.Appendf("%s: skipping %s (%s)", req.Capability, identity, decision.Reason)
			attempts = append(attempts, Attempt{Source: identity, Reason: decision.Reason})
			continue
		}

		log.Appendf("%s: trying %s", req.Capability, identity)
		result, err := r.fetchWithTimeout(ctx, adapter, req)
		if err != nil {
			kind := classify(err)
			log.Appendf("%s: %s failed (%s): %v", req.Capability, identity, kind, err)
			attempts = append(attempts, Attempt{Source: identity, Reason: fmt.Sprintf("%s: %v", kind, err)})
			continue
		}

		if ttl := r.ttlFor(req.Capability); ttl > 0 {
			entry := cache.Entry{
				Fingerprint: fp,
				Capability:  req.Capability,
				Result:      *result,
				ExpiresAt:   time.Now().Add(ttl),
			}
			if err := r.store.Put(ctx, entry); err != nil {
				logger.Warnf("cache write failed for %s: %v", fp, err)
			}
		}
		log.Appendf("%s: resolved via %s (confidence %.2f)", req.Capability, identity, result.Confidence)
		return result, nil
	}

	if r.opts.StaleFallback {
		if entry, ok, err := r.store.GetStale(ctx, fp); err == nil && ok {
			stale := entry.Result
			stale.Confidence = stale.Confidence * r.opts.StaleFactor
			stale.Provenance = stale.Provenance + " (stale cache)"
			log.Appendf("%s: all sources failed, serving stale cache entry (confidence %.2f)",
				req.Capability, stale.Confidence)
			return &stale, nil
		}
	}

	log.Appendf("%s: all %d sources exhausted", req.Capability, len(adapters))
	return nil, &ExhaustedError{Capability: req.Capability, Attempts: attempts}
}

func (r *Resolver) fetchWithTimeout(ctx context.Context, adapter source.Adapter, req fetch.Request) (*fetch.SourceResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()
	return adapter.Fetch(fetchCtx, req)
}

func (r *Resolver) ttlFor(capability string) time.Duration {
	if ttl, ok := r.opts.TTLs[capability]; ok {
		return ttl
	}
	return r.opts.DefaultTTL
}

func classify(err error) fetch.ErrorKind {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return fetch.KindUnavailable
}
