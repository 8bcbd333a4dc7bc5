package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"finsight/internal/fetch"
	"finsight/internal/logger"
	"finsight/internal/query"
	"finsight/internal/resolver"
	"finsight/internal/trace"
)

// Options controls plan execution. Sequential execution is the default;
// parallel mode fans intents out over an errgroup with a concurrency cap.
type Options struct {
	Parallel      bool
	MaxConcurrent int
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	return o
}

// Executor runs a planner-produced tool plan. Every intent yields exactly
// one ToolResult in plan order, and no intent can take down its siblings:
// errors and panics are absorbed into a failed result with confidence 0.
type Executor struct {
	registry *Registry
	resolve  *resolver.Resolver
	opts     Options
}

func New(registry *Registry, res *resolver.Resolver, opts Options) *Executor {
	return &Executor{registry: registry, resolve: res, opts: opts.withDefaults()}
}

// Execute runs every intent in the plan and returns one result per intent,
// index-aligned with the plan. The trace log receives a routing line, an
// outcome line per intent, and a final summary.
func (e *Executor) Execute(ctx context.Context, plan []query.ToolCall, log *trace.Log) []query.ToolResult {
	results := make([]query.ToolResult, len(plan))
	if e.opts.Parallel && len(plan) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.MaxConcurrent)
		for i, call := range plan {
			i, call := i, call
			g.Go(func() error {
				results[i] = e.runOne(gctx, call, log)
				return nil
			})
		}
		// workers never return errors, failures live in the results
		_ = g.Wait()
	} else {
		for i, call := range plan {
			results[i] = e.runOne(ctx, call, log)
		}
	}

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}
	log.Appendf("executor: %d succeeded, %d failed", succeeded, len(results)-succeeded)
	return results
}

func (e *Executor) runOne(ctx context.Context, call query.ToolCall, log *trace.Log) (result query.ToolResult) {
	result = query.ToolResult{ToolName: call.Name}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("tool %s panicked: %v", call.Name, r)
			log.Appendf("executor: %s panicked: %v", call.Name, r)
			result = failed(call.Name, fmt.Sprintf("internal error: %v", r))
		}
	}()

	tool, ok := e.registry.Lookup(call.Name)
	if !ok {
		log.Appendf("executor: unknown tool %q", call.Name)
		return failed(call.Name, fmt.Sprintf("unknown tool %q", call.Name))
	}
	if err := tool.Validate(call.Params); err != nil {
		log.Appendf("executor: %s rejected: %v", call.Name, err)
		return failed(call.Name, err.Error())
	}

	if call.Reason != "" {
		log.Appendf("executor: %s -> %s via [%s] (%s)", call.Name, tool.Capability, tool.chainNames(), call.Reason)
	} else {
		log.Appendf("executor: %s -> %s via [%s]", call.Name, tool.Capability, tool.chainNames())
	}
	req := fetch.NewRequest(tool.Capability, call.Params)
	res, err := e.resolve.Resolve(ctx, req, tool.Chain, log)
	if err != nil {
		return failed(call.Name, err.Error())
	}
	return query.ToolResult{
		ToolName:   call.Name,
		Success:    true,
		Data:       res.Payload,
		Source:     res.Provenance,
		Confidence: res.Confidence,
		FetchedAt:  res.FetchedAt,
	}
}

func failed(name, msg string) query.ToolResult {
	return query.ToolResult{ToolName: name, Success: false, Confidence: 0, Error: msg}
}
