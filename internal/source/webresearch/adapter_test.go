package webresearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/fetch"
)

const searchFixture = `{"results": [
	{"title": "AI in healthcare", "url": "https://example.com/a", "content": "diagnostics"},
	{"title": "Hospital automation", "url": "https://example.com/b", "content": "triage bots"}
]}`

const synthesisFixture = `{"choices": [{"message": {"content":
	"{\"summary\": \"AI is reshaping healthcare diagnostics and triage.\", \"use_cases\": [\"imaging diagnostics\", \"triage automation\"], \"examples\": [\"PathAI\"]}"
}}]}`

func newTestAdapter(t *testing.T, search, llm http.HandlerFunc) *Adapter {
	t.Helper()
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		search(w, r)
	}))
	t.Cleanup(searchSrv.Close)
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		llm(w, r)
	}))
	t.Cleanup(llmSrv.Close)

	a, err := New(Config{
		SearchBaseURL: searchSrv.URL,
		SearchAPIKey:  "search-key",
		LLMBaseURL:    llmSrv.URL,
		LLMAPIKey:     "llm-key",
	})
	require.NoError(t, err)
	return a
}

func TestFetchResearch(t *testing.T) {
	a := newTestAdapter(t,
		func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, searchFixture) },
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer llm-key", r.Header.Get("Authorization"))
			fmt.Fprint(w, synthesisFixture)
		},
	)

	res, err := a.Fetch(context.Background(), fetch.NewRequest("ai_disruption", map[string]string{"industry": "healthcare"}))
	require.NoError(t, err)

	assert.Equal(t, 0.7, res.Confidence)
	research := res.Payload.(fetch.Research)
	assert.Equal(t, "healthcare", research.Industry)
	assert.Contains(t, research.Summary, "healthcare")
	assert.Equal(t, []string{"imaging diagnostics", "triage automation"}, research.UseCases)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, research.Sources)
}

func TestFetchEmptySearchIsNotFound(t *testing.T) {
	a := newTestAdapter(t,
		func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, `{"results": []}`) },
		func(w http.ResponseWriter, _ *http.Request) { t.Fatal("LLM must not be called without search hits") },
	)

	_, err := a.Fetch(context.Background(), fetch.NewRequest("ai_disruption", map[string]string{"industry": "healthcare"}))
	var fe *fetch.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fetch.KindNotFound, fe.Kind)
}

func TestFetchBadSynthesisIsMalformed(t *testing.T) {
	a := newTestAdapter(t,
		func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, searchFixture) },
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"choices": [{"message": {"content": "sorry, I cannot help"}}]}`)
		},
	)

	_, err := a.Fetch(context.Background(), fetch.NewRequest("ai_disruption", map[string]string{"industry": "healthcare"}))
	var fe *fetch.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fetch.KindMalformed, fe.Kind)
}

func TestParseResearchToleratesFencedJSON(t *testing.T) {
	content := "Here you go:\n```json\n{\"summary\": \"AI matters.\", \"use_cases\": [\"x\"]}\n```"
	research, ok := parseResearch("finance", content)
	require.True(t, ok)
	assert.Equal(t, "AI matters.", research.Summary)
	assert.Equal(t, []string{"x"}, research.UseCases)
	assert.Empty(t, research.Examples)
}

func TestParseResearchRejectsMissingSummary(t *testing.T) {
	_, ok := parseResearch("finance", `{"use_cases": []}`)
	assert.False(t, ok)
}
