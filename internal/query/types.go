package query

import "time"

// ToolCall is one planned tool invocation as emitted by the external
// planner. Immutable once created; intents in a plan are independent.
type ToolCall struct {
	Name   string            `json:"tool_name"`
	Params map[string]string `json:"parameters"`
	Reason string            `json:"reason,omitempty"`
}

// ToolResult is the uniform outcome record the executor produces exactly
// once per intent. A failed result always carries confidence 0.
type ToolResult struct {
	ToolName   string    `json:"tool_name"`
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	Error      string    `json:"error,omitempty"`
	FetchedAt  time.Time `json:"fetched_at,omitempty"`
}

// AuditTrail is the complete record of one query: what was planned, what
// each tool returned, the combined confidence and the human-readable trace.
// Read-only once returned to the caller.
type AuditTrail struct {
	TraceID           string        `json:"trace_id"`
	Query             string        `json:"query"`
	Plan              []ToolCall    `json:"plan"`
	Results           []ToolResult  `json:"results"`
	OverallConfidence float64       `json:"overall_confidence"`
	Latency           time.Duration `json:"latency_ms"`
	ExecutionLog      []string      `json:"execution_log"`
}
