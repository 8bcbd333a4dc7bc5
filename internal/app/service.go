package app

import (
	"context"
	"time"

	"finsight/internal/executor"
	"finsight/internal/logger"
	"finsight/internal/query"
	"finsight/internal/trace"
)

// Service runs planned queries end to end: execute every intent, then
// fold the results into one audit trail.
type Service struct {
	exec *executor.Executor
}

func NewService(exec *executor.Executor) *Service {
	return &Service{exec: exec}
}

func (s *Service) Answer(ctx context.Context, q string, plan []query.ToolCall) *query.AuditTrail {
	start := time.Now()
	log := trace.NewLog()
	results := s.exec.Execute(ctx, plan, log)
	trail := query.Aggregate(q, plan, results, log, time.Since(start))
	logger.Infof("query %s answered: %d intents, confidence %.2f, %s",
		trail.TraceID, len(plan), trail.OverallConfidence, trail.Latency)
	return trail
}
