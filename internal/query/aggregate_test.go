package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/trace"
)

func TestAggregateMeanConfidence(t *testing.T) {
	plan := []ToolCall{
		{Name: "get_quarterly_financials", Params: map[string]string{"ticker": "AAPL"}},
		{Name: "find_competitors", Params: map[string]string{"ticker": "AAPL"}},
	}
	results := []ToolResult{
		{ToolName: "get_quarterly_financials", Success: false, Confidence: 0, Error: "all sources exhausted"},
		{ToolName: "find_competitors", Success: true, Confidence: 1.0},
	}

	at := Aggregate("how is AAPL doing", plan, results, trace.NewLog(), 120*time.Millisecond)

	require.Len(t, at.Results, 2)
	assert.InDelta(t, 0.5, at.OverallConfidence, 1e-9)
	assert.Equal(t, 120*time.Millisecond, at.Latency)
	assert.NotEmpty(t, at.TraceID)
}

func TestAggregateEmptyPlan(t *testing.T) {
	log := trace.NewLog()
	at := Aggregate("anything", nil, nil, log, time.Millisecond)

	assert.Zero(t, at.OverallConfidence)
	require.NotEmpty(t, at.ExecutionLog)
	assert.Contains(t, at.ExecutionLog[len(at.ExecutionLog)-1], "no tools executed")
}

func TestAggregateDoesNotMutateResults(t *testing.T) {
	results := []ToolResult{{ToolName: "x", Success: true, Confidence: 0.8}}
	at := Aggregate("q", []ToolCall{{Name: "x"}}, results, trace.NewLog(), 0)

	assert.Equal(t, 0.8, results[0].Confidence)
	assert.InDelta(t, 0.8, at.OverallConfidence, 1e-9)
}
