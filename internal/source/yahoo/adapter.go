package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"finsight/internal/fetch"
	"finsight/internal/source"
)

const (
	identity   = "yahoo"
	confidence = 0.8

	partialFactor = 0.75
)

// SectorUniverse resolves an industry term to a canonical sector and its
// ticker list. Satisfied by the sectors registry.
type SectorUniverse interface {
	Resolve(name string) (string, []string, bool)
}

// Adapter is the free fallback market-data source. Competitor and ranking
// searches run over the injected sector universe; a sector missing from
// that universe is reported as reduced coverage, not as a provider failure.
type Adapter struct {
	source.StatsRecorder

	cfg     Config
	client  *resty.Client
	sectors SectorUniverse
}

func New(cfg Config, sectors SectorUniverse) *Adapter {
	final := cfg.withDefaults()
	client := resty.New().
		SetTimeout(final.HTTPTimeout).
		SetBaseURL(final.BaseURL).
		SetHeader("Accept", "application/json")
	return &Adapter{cfg: final, client: client, sectors: sectors}
}

func (a *Adapter) Identity() string    { return identity }
func (a *Adapter) Confidence() float64 { return confidence }
func (a *Adapter) Capabilities() []string {
	return []string{"company_profile", "competitor_lookup", "top_companies"}
}

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
	switch req.Capability {
	case "company_profile":
		return a.fetchProfile(ctx, req)
	case "competitor_lookup":
		return a.fetchCompetitors(ctx, req)
	case "top_companies":
		return a.fetchTopCompanies(ctx, req)
	default:
		return nil, fetch.Malformed(identity, "unsupported capability %q", req.Capability)
	}
}

func (a *Adapter) fetchProfile(ctx context.Context, req fetch.Request) (*fetch.SourceResult, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Param("ticker")))
	if ticker == "" {
		return nil, fetch.Malformed(identity, "missing required parameter: ticker")
	}
	profile, err := a.quoteSummary(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return a.result(profile, "quoteSummary/"+ticker, confidence), nil
}

func (a *Adapter) fetchCompetitors(ctx context.Context, req fetch.Request) (*fetch.SourceResult, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Param("ticker")))
	if ticker == "" {
		return nil, fetch.Malformed(identity, "missing required parameter: ticker")
	}
	limit := intParam(req, "limit", 5)

	target, err := a.quoteSummary(ctx, ticker)
	if err != nil {
		return nil, err
	}

	payload := fetch.CompetitorSet{Target: target.Company, Coverage: fetch.CoverageFull}
	conf := confidence

	candidates := a.sectorCandidates(target.Sector, ticker)
	if len(candidates) == 0 {
		// the company itself was identified; an empty candidate set means
		// our universe has no coverage for its sector
		payload.Coverage = fetch.CoveragePartial
		conf = confidence * partialFactor
		return a.result(payload, "quoteSummary/"+ticker, conf), nil
	}

	quotes, err := a.batchQuote(ctx, candidates)
	if err != nil {
		return nil, err
	}
	var competitors []fetch.Company
	for _, q := range quotes {
		if !withinCapRange(target.MarketCap, q.MarketCap, 0.3, 3.0) {
			continue
		}
		q.Sector = target.Sector
		competitors = append(competitors, q)
	}
	sortByCapProximity(competitors, target.MarketCap)

	payload.Competitors = capSlice(competitors, limit)
	payload.TotalFound = len(competitors)
	if len(competitors) == 0 {
		payload.Coverage = fetch.CoveragePartial
		conf = confidence * partialFactor
	}
	return a.result(payload, fmt.Sprintf("quote?symbols=%d sector peers", len(candidates)), conf), nil
}

func (a *Adapter) fetchTopCompanies(ctx context.Context, req fetch.Request) (*fetch.SourceResult, error) {
	industry := req.Param("industry")
	if industry == "" {
		return nil, fetch.Malformed(identity, "missing required parameter: industry")
	}
	n := intParam(req, "n", 10)
	if a.sectors == nil {
		return nil, fetch.Unavailable(identity, "no sector universe configured")
	}
	sector, tickers, ok := a.sectors.Resolve(industry)
	if !ok {
		return nil, fetch.NotFound(identity, "unknown industry %q", industry)
	}
	quotes, err := a.batchQuote(ctx, tickers)
	if err != nil {
		return nil, err
	}
	for i := range quotes {
		quotes[i].Sector = sector
	}
	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].MarketCap.GreaterThan(quotes[j].MarketCap)
	})
	payload := fetch.TopCompanySet{Sector: sector, Companies: capSlice(quotes, n)}
	return a.result(payload, "quote (sector "+sector+")", confidence), nil
}

// sectorCandidates returns the universe tickers for a sector, minus the
// target itself.
func (a *Adapter) sectorCandidates(sector, exclude string) []string {
	if a.sectors == nil || sector == "" {
		return nil
	}
	_, tickers, ok := a.sectors.Resolve(sector)
	if !ok {
		return nil
	}
	out := tickers[:0:0]
	for _, t := range tickers {
		if t != exclude {
			out = append(out, t)
		}
	}
	return out
}

func (a *Adapter) quoteSummary(ctx context.Context, ticker string) (fetch.CompanyProfile, error) {
	resp, err := a.client.R().SetContext(ctx).
		SetQueryParam("modules", "assetProfile,price").
		Get("/v10/finance/quoteSummary/" + ticker)
	if err != nil {
		return fetch.CompanyProfile{}, fetch.UnavailableErr(identity, err, "quote summary request failed for %s", ticker)
	}
	if err := statusError(resp.StatusCode(), "quote summary for "+ticker); err != nil {
		return fetch.CompanyProfile{}, err
	}
	root := gjson.GetBytes(resp.Body(), "quoteSummary.result.0")
	if !root.Exists() {
		return fetch.CompanyProfile{}, fetch.NotFound(identity, "no quote summary for %s", ticker)
	}
	name := root.Get("price.longName").String()
	if name == "" {
		name = root.Get("price.shortName").String()
	}
	if name == "" {
		return fetch.CompanyProfile{}, fetch.Malformed(identity, "quote summary for %s had no company name", ticker)
	}
	return fetch.CompanyProfile{
		Company: fetch.Company{
			Ticker:    ticker,
			Name:      name,
			Sector:    root.Get("assetProfile.sector").String(),
			Industry:  root.Get("assetProfile.industry").String(),
			MarketCap: decimal.NewFromFloat(root.Get("price.marketCap.raw").Float()),
		},
		Description: root.Get("assetProfile.longBusinessSummary").String(),
		Exchange:    root.Get("price.exchangeName").String(),
	}, nil
}

func (a *Adapter) batchQuote(ctx context.Context, tickers []string) ([]fetch.Company, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	resp, err := a.client.R().SetContext(ctx).
		SetQueryParam("symbols", strings.Join(tickers, ",")).
		Get("/v7/finance/quote")
	if err != nil {
		return nil, fetch.UnavailableErr(identity, err, "batch quote request failed")
	}
	if err := statusError(resp.StatusCode(), "batch quote"); err != nil {
		return nil, err
	}
	var out []fetch.Company
	gjson.GetBytes(resp.Body(), "quoteResponse.result").ForEach(func(_, row gjson.Result) bool {
		sym := strings.ToUpper(row.Get("symbol").String())
		if sym == "" {
			return true
		}
		name := row.Get("longName").String()
		if name == "" {
			name = row.Get("shortName").String()
		}
		out = append(out, fetch.Company{
			Ticker:    sym,
			Name:      name,
			MarketCap: decimal.NewFromFloat(row.Get("marketCap").Float()),
		})
		return true
	})
	return out, nil
}

func (a *Adapter) result(payload any, locator string, conf float64) *fetch.SourceResult {
	return &fetch.SourceResult{
		Payload:    payload,
		Confidence: conf,
		Provenance: "Yahoo Finance " + a.cfg.BaseURL + "/" + locator,
		FetchedAt:  time.Now().UTC(),
	}
}

func statusError(code int, what string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fetch.NotFound(identity, "%s returned 404", what)
	case code == http.StatusTooManyRequests:
		return fetch.RateLimited(identity, "%s hit the provider rate limit", what)
	default:
		return fetch.Unavailable(identity, "%s returned %d", what, code)
	}
}

func intParam(req fetch.Request, key string, def int) int {
	raw := req.Param(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func withinCapRange(target, candidate decimal.Decimal, lo, hi float64) bool {
	if target.IsZero() || candidate.IsZero() {
		return true
	}
	ratio, _ := candidate.Div(target).Float64()
	return ratio >= lo && ratio <= hi
}

func sortByCapProximity(companies []fetch.Company, target decimal.Decimal) {
	if target.IsZero() {
		return
	}
	sort.Slice(companies, func(i, j int) bool {
		di := companies[i].MarketCap.Sub(target).Abs()
		dj := companies[j].MarketCap.Sub(target).Abs()
		return di.LessThan(dj)
	})
}

func capSlice(companies []fetch.Company, n int) []fetch.Company {
	if n > 0 && len(companies) > n {
		return companies[:n]
	}
	return companies
}
