package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"finsight/internal/cache"
	"finsight/internal/executor"
	"finsight/internal/fetch"
	"finsight/internal/query"
	"finsight/internal/ratelimit"
	"finsight/internal/resolver"
	"finsight/internal/source"
)

type mockAdapter struct {
	mock.Mock
	source.StatsRecorder

	identity   string
	confidence float64
	caps       []string
}

func (m *mockAdapter) Identity() string       { return m.identity }
func (m *mockAdapter) Confidence() float64    { return m.confidence }
func (m *mockAdapter) Capabilities() []string { return m.caps }

func (m *mockAdapter) Fetch(ctx context.Context, req fetch.Request) (*fetch.SourceResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*fetch.SourceResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func newServiceWithAdapters(adapters executor.Adapters) *Service {
	res := resolver.New(cache.NewMemoryStore(), ratelimit.NewLimiter(nil), resolver.Options{})
	exec := executor.New(executor.NewRegistry(adapters), res, executor.Options{})
	return NewService(exec)
}

func TestAnswerQuarterlyFinancials(t *testing.T) {
	regulatory := &mockAdapter{identity: "edgar", confidence: 1.0, caps: []string{"quarterly_financials"}}
	market := &mockAdapter{identity: "yahoo", confidence: 0.8, caps: []string{"company_profile"}}
	research := &mockAdapter{identity: "webresearch", confidence: 0.7, caps: []string{"ai_disruption"}}

	filing := fetch.Financials{
		Ticker:    "AAPL",
		Company:   "Apple Inc.",
		Revenue:   decimal.NewFromInt(94930000000),
		NetIncome: decimal.NewFromInt(23434000000),
		FiscalEnd: "2025-06-28",
	}
	regulatory.On("Fetch", mock.Anything, mock.MatchedBy(func(req fetch.Request) bool {
		return req.Capability == "quarterly_financials" && req.Param("ticker") == "AAPL"
	})).Return(&fetch.SourceResult{
		Payload:    filing,
		Confidence: 1.0,
		Provenance: "edgar 10-Q 2025-06-28",
		FetchedAt:  time.Now(),
	}, nil)

	svc := newServiceWithAdapters(executor.Adapters{
		Regulatory: regulatory,
		Market:     []source.Adapter{market},
		Research:   research,
	})

	plan := []query.ToolCall{{
		Name:   "get_quarterly_financials",
		Params: map[string]string{"ticker": "AAPL"},
		Reason: "latest reported quarter",
	}}
	trail := svc.Answer(context.Background(), "how did Apple do last quarter", plan)

	require.Len(t, trail.Results, 1)
	result := trail.Results[0]
	assert.True(t, result.Success)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, "edgar 10-Q 2025-06-28", result.Source)

	payload, ok := result.Data.(fetch.Financials)
	require.True(t, ok)
	assert.True(t, payload.Revenue.Equal(decimal.NewFromInt(94930000000)))

	assert.Equal(t, 1.0, trail.OverallConfidence)
	assert.NotEmpty(t, trail.TraceID)
	assert.NotEmpty(t, trail.ExecutionLog)
	regulatory.AssertExpectations(t)
}

func TestAnswerMixedPlanDegradesConfidence(t *testing.T) {
	regulatory := &mockAdapter{identity: "edgar", confidence: 1.0, caps: []string{"quarterly_financials"}}
	market := &mockAdapter{identity: "yahoo", confidence: 0.8, caps: []string{"company_profile"}}
	research := &mockAdapter{identity: "webresearch", confidence: 0.7, caps: []string{"ai_disruption"}}

	regulatory.On("Fetch", mock.Anything, mock.Anything).Return(&fetch.SourceResult{
		Payload:    fetch.Financials{Ticker: "AAPL"},
		Confidence: 1.0,
		Provenance: "edgar",
		FetchedAt:  time.Now(),
	}, nil)
	market.On("Fetch", mock.Anything, mock.Anything).
		Return(nil, fetch.Unavailable("yahoo", "upstream 500"))

	svc := newServiceWithAdapters(executor.Adapters{
		Regulatory: regulatory,
		Market:     []source.Adapter{market},
		Research:   research,
	})

	plan := []query.ToolCall{
		{Name: "get_quarterly_financials", Params: map[string]string{"ticker": "AAPL"}},
		{Name: "get_company_profile", Params: map[string]string{"ticker": "AAPL"}},
	}
	trail := svc.Answer(context.Background(), "full picture on Apple", plan)

	require.Len(t, trail.Results, 2)
	assert.True(t, trail.Results[0].Success)
	assert.False(t, trail.Results[1].Success)
	assert.InDelta(t, 0.5, trail.OverallConfidence, 1e-9)
}
