package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Budget configures one source identity. A zero dimension means that
// dimension is not enforced.
type Budget struct {
	PerMinute int
	PerDay    int
}

// Decision is the outcome of TryAcquire. A refusal is not an error: the
// resolver treats it as "skip this source without spending a network call".
type Decision struct {
	Allowed bool
	Reason  string
}

type sourceState struct {
	budget Budget
	minute *rate.Limiter
	day    int
	dayKey string
}

// Limiter tracks per-source call budgets: a rolling per-minute window
// (token bucket) and a calendar-day counter, enforced independently.
// Check-and-increment happens under one lock so concurrent callers can
// never jointly exceed a budget.
type Limiter struct {
	mu      sync.Mutex
	sources map[string]*sourceState

	now func() time.Time
}

func NewLimiter(budgets map[string]Budget) *Limiter {
	l := &Limiter{
		sources: make(map[string]*sourceState, len(budgets)),
		now:     time.Now,
	}
	for identity, b := range budgets {
		l.sources[identity] = newSourceState(b)
	}
	return l
}

func newSourceState(b Budget) *sourceState {
	s := &sourceState{budget: b}
	if b.PerMinute > 0 {
		s.minute = rate.NewLimiter(rate.Limit(float64(b.PerMinute)/60.0), b.PerMinute)
	}
	return s
}

// SetBudget installs or replaces the budget for one identity.
func (l *Limiter) SetBudget(identity string, b Budget) {
	l.mu.Lock()
	l.sources[identity] = newSourceState(b)
	l.mu.Unlock()
}

// TryAcquire reports whether a call against identity may proceed right now,
// incrementing the counters as part of the same operation when it may.
// Unknown identities are unbudgeted and always allowed.
func (l *Limiter) TryAcquire(identity string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sources[identity]
	if !ok {
		return Decision{Allowed: true}
	}
	now := l.now()

	if s.budget.PerDay > 0 {
		key := now.Format("2006-01-02")
		if s.dayKey != key {
			s.dayKey = key
			s.day = 0
		}
		if s.day >= s.budget.PerDay {
			return Decision{Reason: fmt.Sprintf("%s: daily budget of %d calls exhausted", identity, s.budget.PerDay)}
		}
	}
	if s.minute != nil && !s.minute.AllowN(now, 1) {
		return Decision{Reason: fmt.Sprintf("%s: per-minute budget of %d calls exhausted", identity, s.budget.PerMinute)}
	}
	if s.budget.PerDay > 0 {
		s.day++
	}
	return Decision{Allowed: true}
}
