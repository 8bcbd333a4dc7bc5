package webresearch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"finsight/internal/fetch"
	"finsight/internal/source"
)

const (
	identity = "webresearch"
	// research is synthesis over third-party prose, the least trusted tier
	confidence = 0.7
)

const synthesisSystemPrompt = `You are a financial research analyst. You will be given web search results about AI adoption in an industry. Respond with a single JSON object with these fields:
"summary": a 2-3 sentence overview of how AI is disrupting the industry,
"use_cases": an array of short strings naming concrete AI applications,
"examples": an array of short strings naming companies or projects applying AI.
Respond with the JSON object only.`

type searchHit struct {
	Title   string
	URL     string
	Content string
}

// Adapter answers qualitative "how is AI disrupting X" questions by
// searching the web and synthesizing the hits with an OpenAI-compatible
// model. Results are never cached beyond the query (their confidence is
// context-dependent).
type Adapter struct {
	source.StatsRecorder

	cfg       Config
	searchCli *resty.Client
	llmCli    *resty.Client
}

func New(cfg Config) (*Adapter, error) {
	final := cfg.withDefaults()
	if strings.TrimSpace(final.SearchAPIKey) == "" {
		return nil, fmt.Errorf("web research adapter requires a search API key")
	}
	if strings.TrimSpace(final.LLMAPIKey) == "" {
		return nil, fmt.Errorf("web research adapter requires an LLM API key")
	}
	return &Adapter{
		cfg:       final,
		searchCli: resty.New().SetTimeout(final.HTTPTimeout).SetBaseURL(final.SearchBaseURL),
		llmCli: resty.New().SetTimeout(final.HTTPTimeout).SetBaseURL(final.LLMBaseURL).
			SetHeader("Authorization", "Bearer "+final.LLMAPIKey),
	}, nil
}

func (a *Adapter) Identity() string       { return identity }
func (a *Adapter) Confidence() float64    { return confidence }
func (a *Adapter) Capabilities() []string { return []string{"ai_disruption"} }

func (a *Adapter) Fetch(ctx context.Context, req fetch.Request) (*fetch.SourceResult, error) {
	a.RecordFetch()
	res, err := a.fetch(ctx, req)
	if err != nil {
		a.RecordFailure(err)
		return nil, err
	}
	return res, nil
}

func (a *Adapter) fetch(ctx context.Context, req fetch.Request) (*fetch.SourceResult, error) {
	industry := strings.TrimSpace(req.Param("industry"))
	if industry == "" {
		return nil, fetch.Malformed(identity, "missing required parameter: industry")
	}

	hits, err := a.search(ctx, industry)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fetch.NotFound(identity, "web search found nothing for %q", industry)
	}

	research, err := a.synthesize(ctx, industry, hits)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		research.Sources = append(research.Sources, h.URL)
	}

	return &fetch.SourceResult{
		Payload:    research,
		Confidence: confidence,
		Provenance: fmt.Sprintf("web research + LLM synthesis (%d sources)", len(hits)),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func (a *Adapter) search(ctx context.Context, industry string) ([]searchHit, error) {
	body := map[string]any{
		"api_key":      a.cfg.SearchAPIKey,
		"query":        fmt.Sprintf("how AI is disrupting the %s industry 2026", industry),
		"max_results":  a.cfg.MaxResults,
		"search_depth": "basic",
	}
	resp, err := a.searchCli.R().SetContext(ctx).SetBody(body).Post("/search")
	if err != nil {
		return nil, fetch.UnavailableErr(identity, err, "web search request failed")
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, fetch.RateLimited(identity, "search provider throttled the request")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fetch.Unavailable(identity, "web search returned %d", resp.StatusCode())
	}
	var hits []searchHit
	gjson.GetBytes(resp.Body(), "results").ForEach(func(_, row gjson.Result) bool {
		hit := searchHit{
			Title:   row.Get("title").String(),
			URL:     row.Get("url").String(),
			Content: row.Get("content").String(),
		}
		if hit.URL != "" {
			hits = append(hits, hit)
		}
		return true
	})
	return hits, nil
}

func (a *Adapter) synthesize(ctx context.Context, industry string, hits []searchHit) (fetch.Research, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Industry: %s\n\nSearch results:\n", industry)
	for i, h := range hits {
		fmt.Fprintf(&sb, "\n[%d] %s\n%s\n%s\n", i+1, h.Title, h.URL, h.Content)
	}

	body := map[string]any{
		"model": a.cfg.LLMModel,
		"messages": []map[string]string{
			{"role": "system", "content": synthesisSystemPrompt},
			{"role": "user", "content": sb.String()},
		},
		"temperature": 0.3,
	}
	resp, err := a.llmCli.R().SetContext(ctx).SetBody(body).Post("/chat/completions")
	if err != nil {
		return fetch.Research{}, fetch.UnavailableErr(identity, err, "synthesis request failed")
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return fetch.Research{}, fetch.RateLimited(identity, "LLM provider throttled the request")
	}
	if resp.StatusCode() != http.StatusOK {
		return fetch.Research{}, fetch.Unavailable(identity, "synthesis returned %d", resp.StatusCode())
	}
	content := gjson.GetBytes(resp.Body(), "choices.0.message.content").String()
	research, ok := parseResearch(industry, content)
	if !ok {
		return fetch.Research{}, fetch.Malformed(identity, "synthesis output was not the expected JSON shape")
	}
	return research, nil
}

// parseResearch extracts the JSON object from the model output, tolerating
// fenced code blocks and surrounding prose. Missing list fields default to
// empty rather than failing the whole fetch.
func parseResearch(industry, content string) (fetch.Research, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return fetch.Research{}, false
	}
	obj := gjson.Parse(content[start : end+1])
	summary := strings.TrimSpace(obj.Get("summary").String())
	if summary == "" {
		return fetch.Research{}, false
	}
	research := fetch.Research{
		Industry: industry,
		Summary:  summary,
		UseCases: stringList(obj.Get("use_cases")),
		Examples: stringList(obj.Get("examples")),
	}
	return research, true
}

func stringList(v gjson.Result) []string {
	var out []string
	v.ForEach(func(_, item gjson.Result) bool {
		s := strings.TrimSpace(item.String())
		if s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}
