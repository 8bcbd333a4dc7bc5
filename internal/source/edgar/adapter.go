package edgar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"finsight/internal/fetch"
	"finsight/internal/source"
)

const (
	identity   = "edgar"
	confidence = 1.0

	// The ticker→CIK mapping file changes rarely; refetch once a day.
	tickerMapTTL = 24 * time.Hour
)

// Adapter extracts headline figures from the latest 10-Q XBRL company facts
// on SEC EDGAR. Official filings carry the highest confidence in the system.
type Adapter struct {
	source.StatsRecorder

	cfg    Config
	client *resty.Client

	mapMu        sync.Mutex
	tickerToCIK  map[string]string
	mapFetchedAt time.Time
}

func New(cfg Config) (*Adapter, error) {
	final := cfg.withDefaults()
	if final.UserAgent == "" {
		return nil, fmt.Errorf("edgar adapter requires a user-agent identity")
	}
	client := resty.New().
		SetTimeout(final.HTTPTimeout).
		SetHeader("User-Agent", final.UserAgent).
		SetHeader("Accept", "application/json")
	return &Adapter{cfg: final, client: client}, nil
}

func (a *Adapter) Identity() string       { return identity }
func (a *Adapter) Confidence() float64    { return confidence }
func (a *Adapter) Capabilities() []string { return []string{"quarterly_financials"} }

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
	ticker := strings.ToUpper(strings.TrimSpace(req.Param("ticker")))
	if ticker == "" {
		return nil, fetch.Malformed(identity, "missing required parameter: ticker")
	}
	cik, err := a.lookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	factsURL := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", a.cfg.BaseURL, cik)
	resp, err := a.client.R().SetContext(ctx).Get(factsURL)
	if err != nil {
		return nil, fetch.UnavailableErr(identity, err, "company facts request failed for %s", ticker)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fetch.NotFound(identity, "no company facts for %s (CIK %s)", ticker, cik)
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, fetch.RateLimited(identity, "SEC throttled company facts request for %s", ticker)
	case resp.StatusCode() != http.StatusOK:
		return nil, fetch.Unavailable(identity, "company facts request for %s returned %d", ticker, resp.StatusCode())
	}

	body := resp.Body()
	company := gjson.GetBytes(body, "entityName").String()

	revenue, fiscalEnd, filed, ok := latestQuarterlyFact(body,
		"facts.us-gaap.Revenues.units.USD",
		"facts.us-gaap.RevenueFromContractWithCustomerExcludingAssessedTax.units.USD",
	)
	if !ok {
		return nil, fetch.Malformed(identity, "no quarterly revenue fact for %s", ticker)
	}
	netIncome, _, _, hasNI := latestQuarterlyFact(body, "facts.us-gaap.NetIncomeLoss.units.USD")

	payload := fetch.Financials{
		Ticker:     ticker,
		Company:    company,
		Revenue:    decimal.NewFromFloat(revenue),
		FiscalEnd:  fiscalEnd,
		FilingDate: filed,
		FilingURL:  factsURL,
	}
	if hasNI {
		payload.NetIncome = decimal.NewFromFloat(netIncome)
	}

	return &fetch.SourceResult{
		Payload:    payload,
		Confidence: confidence,
		Provenance: fmt.Sprintf("SEC EDGAR 10-Q XBRL %s", factsURL),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// latestQuarterlyFact scans the given fact paths in order and returns the
// value of the most recent 10-Q entry found under the first path that has
// one.
func latestQuarterlyFact(body []byte, paths ...string) (value float64, fiscalEnd, filed string, ok bool) {
	for _, path := range paths {
		facts := gjson.GetBytes(body, path)
		if !facts.Exists() {
			continue
		}
		var bestEnd string
		facts.ForEach(func(_, fact gjson.Result) bool {
			if fact.Get("form").String() != "10-Q" {
				return true
			}
			end := fact.Get("end").String()
			if end <= bestEnd {
				return true
			}
			bestEnd = end
			value = fact.Get("val").Float()
			fiscalEnd = end
			filed = fact.Get("filed").String()
			ok = true
			return true
		})
		if ok {
			return value, fiscalEnd, filed, true
		}
	}
	return 0, "", "", false
}

func (a *Adapter) lookupCIK(ctx context.Context, ticker string) (string, error) {
	a.mapMu.Lock()
	defer a.mapMu.Unlock()

	if a.tickerToCIK == nil || time.Since(a.mapFetchedAt) > tickerMapTTL {
		resp, err := a.client.R().SetContext(ctx).Get(a.cfg.TickerMapURL)
		if err != nil {
			return "", fetch.UnavailableErr(identity, err, "ticker map request failed")
		}
		if resp.StatusCode() != http.StatusOK {
			return "", fetch.Unavailable(identity, "ticker map request returned %d", resp.StatusCode())
		}
		mapping := make(map[string]string)
		gjson.ParseBytes(resp.Body()).ForEach(func(_, entry gjson.Result) bool {
			t := strings.ToUpper(entry.Get("ticker").String())
			if t != "" {
				mapping[t] = fmt.Sprintf("%010d", entry.Get("cik_str").Int())
			}
			return true
		})
		if len(mapping) == 0 {
			return "", fetch.Malformed(identity, "ticker map was empty")
		}
		a.tickerToCIK = mapping
		a.mapFetchedAt = time.Now()
	}

	cik, ok := a.tickerToCIK[ticker]
	if !ok {
		return "", fetch.NotFound(identity, "ticker %s is not registered with the SEC", ticker)
	}
	return cik, nil
}
