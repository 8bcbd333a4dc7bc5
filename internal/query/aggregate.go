package query

import (
	"time"

	"github.com/google/uuid"

	"finsight/internal/trace"
)

// Aggregate folds the executor's output into an audit trail. It performs no
// retries and never mutates results: overall confidence is the arithmetic
// mean over every result, with failed tools contributing 0 so that partial
// failure visibly depresses overall trust instead of being excluded.
func Aggregate(q string, plan []ToolCall, results []ToolResult, log *trace.Log, elapsed time.Duration) *AuditTrail {
	overall := 0.0
	if len(results) > 0 {
		sum := 0.0
		for _, r := range results {
			sum += r.Confidence
		}
		overall = sum / float64(len(results))
	}
	if len(plan) == 0 {
		log.Appendf("aggregator: no tools executed")
	} else {
		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}
		log.Appendf("aggregator: %d/%d tools succeeded, overall confidence %.2f",
			succeeded, len(results), overall)
	}
	return &AuditTrail{
		TraceID:           uuid.NewString(),
		Query:             q,
		Plan:              plan,
		Results:           results,
		OverallConfidence: overall,
		Latency:           elapsed,
		ExecutionLog:      log.Lines(),
	}
}
