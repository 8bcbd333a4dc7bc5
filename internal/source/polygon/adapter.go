package polygon

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
	identity   = "polygon"
	confidence = 0.85

	// partialFactor degrades confidence when the company was identified
	// but no viable competitor candidates survived filtering.
	partialFactor = 0.75

	// profile fetches per top-companies request are bounded to keep one
	// tool call from burning the whole daily budget.
	maxProfileFetches = 25
)

// SectorUniverse resolves an industry term to a canonical sector and its
// ticker list. Satisfied by the sectors registry.
type SectorUniverse interface {
	Resolve(name string) (string, []string, bool)
}

// Adapter serves reference data from the Polygon.io REST API: company
// profiles, SIC-code competitor search and sector rankings.
type Adapter struct {
	source.StatsRecorder

	cfg     Config
	client  *resty.Client
	sectors SectorUniverse
}

func New(cfg Config, sectors SectorUniverse) (*Adapter, error) {
	final := cfg.withDefaults()
	if final.APIKey == "" {
		return nil, fmt.Errorf("polygon adapter requires an API key")
	}
	client := resty.New().
		SetTimeout(final.HTTPTimeout).
		SetBaseURL(final.BaseURL).
		SetQueryParam("apiKey", final.APIKey)
	return &Adapter{cfg: final, client: client, sectors: sectors}, nil
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
	profile, _, err := a.referenceTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return a.result(profile, "/v3/reference/tickers/"+ticker), nil
}

func (a *Adapter) fetchCompetitors(ctx context.Context, req fetch.Request) (*fetch.SourceResult, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Param("ticker")))
	if ticker == "" {
		return nil, fetch.Malformed(identity, "missing required parameter: ticker")
	}
	limit := intParam(req, "limit", 5)

	target, sicCode, err := a.referenceTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if sicCode == "" {
		return nil, fetch.NotFound(identity, "no SIC classification for %s", ticker)
	}

	resp, err := a.client.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"sic_code": sicCode,
			"active":   "true",
			"market":   "stocks",
			"limit":    strconv.Itoa(a.cfg.MaxCandidates),
		}).
		Get("/v3/reference/tickers")
	if err != nil {
		return nil, fetch.UnavailableErr(identity, err, "SIC search failed for %s", ticker)
	}
	if err := statusError(resp.StatusCode(), "SIC search for "+ticker); err != nil {
		return nil, err
	}

	targetCap := target.MarketCap
	var competitors []fetch.Company
	gjson.GetBytes(resp.Body(), "results").ForEach(func(_, row gjson.Result) bool {
		compTicker := strings.ToUpper(row.Get("ticker").String())
		if compTicker == "" || compTicker == ticker {
			return true
		}
		comp := fetch.Company{
			Ticker:    compTicker,
			Name:      row.Get("name").String(),
			Industry:  "SIC " + sicCode,
			MarketCap: decimal.NewFromFloat(row.Get("market_cap").Float()),
		}
		if !withinCapRange(targetCap, comp.MarketCap, 0.3, 3.0) {
			return true
		}
		competitors = append(competitors, comp)
		return true
	})
	sortByCapProximity(competitors, targetCap)

	payload := fetch.CompetitorSet{
		Target:      target.Company,
		Competitors: capSlice(competitors, limit),
		TotalFound:  len(competitors),
		Coverage:    fetch.CoverageFull,
	}
	conf := confidence
	if len(competitors) == 0 {
		// company exists but the candidate set came back empty; report it
		// as reduced-coverage success rather than full-confidence silence
		payload.Coverage = fetch.CoveragePartial
		conf = confidence * partialFactor
	}
	res := a.result(payload, "/v3/reference/tickers?sic_code="+sicCode)
	res.Confidence = conf
	return res, nil
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
	if len(tickers) > maxProfileFetches {
		tickers = tickers[:maxProfileFetches]
	}

	var companies []fetch.Company
	for _, t := range tickers {
		profile, _, err := a.referenceTicker(ctx, t)
		if err != nil {
			// one bad ticker in the universe must not sink the ranking
			continue
		}
		c := profile.Company
		c.Sector = sector
		companies = append(companies, c)
	}
	if len(companies) == 0 {
		return nil, fetch.Unavailable(identity, "no profiles could be fetched for sector %s", sector)
	}
	sort.Slice(companies, func(i, j int) bool {
		return companies[i].MarketCap.GreaterThan(companies[j].MarketCap)
	})
	payload := fetch.TopCompanySet{Sector: sector, Companies: capSlice(companies, n)}
	return a.result(payload, "/v3/reference/tickers (sector "+sector+")"), nil
}

// referenceTicker fetches one company profile and its SIC code.
func (a *Adapter) referenceTicker(ctx context.Context, ticker string) (fetch.CompanyProfile, string, error) {
	resp, err := a.client.R().SetContext(ctx).Get("/v3/reference/tickers/" + ticker)
	if err != nil {
		return fetch.CompanyProfile{}, "", fetch.UnavailableErr(identity, err, "reference request failed for %s", ticker)
	}
	if err := statusError(resp.StatusCode(), "reference request for "+ticker); err != nil {
		return fetch.CompanyProfile{}, "", err
	}
	results := gjson.GetBytes(resp.Body(), "results")
	if !results.Exists() || results.Get("ticker").String() == "" {
		return fetch.CompanyProfile{}, "", fetch.Malformed(identity, "reference payload for %s had no results", ticker)
	}
	profile := fetch.CompanyProfile{
		Company: fetch.Company{
			Ticker:    strings.ToUpper(results.Get("ticker").String()),
			Name:      results.Get("name").String(),
			Industry:  results.Get("sic_description").String(),
			MarketCap: decimal.NewFromFloat(results.Get("market_cap").Float()),
		},
		Description: results.Get("description").String(),
		Exchange:    results.Get("primary_exchange").String(),
	}
	return profile, results.Get("sic_code").String(), nil
}

func (a *Adapter) result(payload any, locator string) *fetch.SourceResult {
	return &fetch.SourceResult{
		Payload:    payload,
		Confidence: confidence,
		Provenance: "Polygon.io " + a.cfg.BaseURL + locator,
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
		// unknown caps pass through; better to over-include than to hide
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
