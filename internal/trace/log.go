package trace

import (
	"fmt"
	"sync"
)

// Log is the per-query execution log. The resolver and executor append to
// the same Log from whatever goroutine handles an intent, so appends are
// serialized; Lines returns a copy, safe to hand to the audit trail.
type Log struct {
	mu    sync.Mutex
	lines []string
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Appendf(format string, v ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
	l.mu.Unlock()
}

func (l *Log) Lines() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}
