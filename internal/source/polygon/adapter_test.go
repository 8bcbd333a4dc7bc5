package polygon

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

type stubUniverse map[string][]string

func (u stubUniverse) Resolve(name string) (string, []string, bool) {
	tickers, ok := u[name]
	return name, tickers, ok
}

func profileJSON(ticker, name, sic string, marketCap float64) string {
	return fmt.Sprintf(`{"results": {"ticker": %q, "name": %q, "sic_code": %q,
		"sic_description": "Motor Vehicles", "market_cap": %f,
		"primary_exchange": "XNAS", "description": "test company"}}`,
		ticker, name, sic, marketCap)
}

func newTestAdapter(t *testing.T, mux *http.ServeMux, universe SectorUniverse) *Adapter {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	a, err := New(Config{BaseURL: srv.URL, APIKey: "test-key"}, universe)
	require.NoError(t, err)
	return a
}

func TestFetchCompanyProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/reference/tickers/TSLA", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		fmt.Fprint(w, profileJSON("TSLA", "Tesla, Inc.", "3711", 800e9))
	})
	a := newTestAdapter(t, mux, nil)

	res, err := a.Fetch(context.Background(), fetch.NewRequest("company_profile", map[string]string{"ticker": "TSLA"}))
	require.NoError(t, err)

	assert.Equal(t, 0.85, res.Confidence)
	profile, ok := res.Payload.(fetch.CompanyProfile)
	require.True(t, ok)
	assert.Equal(t, "Tesla, Inc.", profile.Name)
	assert.Contains(t, res.Provenance, "Polygon.io")
}

func TestFetchCompetitorsFiltersAndSorts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/reference/tickers/TSLA", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, profileJSON("TSLA", "Tesla, Inc.", "3711", 800e9))
	})
	mux.HandleFunc("/v3/reference/tickers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3711", r.URL.Query().Get("sic_code"))
		fmt.Fprint(w, `{"results": [
			{"ticker": "TSLA", "name": "Tesla, Inc.", "market_cap": 800e9},
			{"ticker": "TM", "name": "Toyota Motor", "market_cap": 300e9},
			{"ticker": "GM", "name": "General Motors", "market_cap": 60e9},
			{"ticker": "RIVN", "name": "Rivian", "market_cap": 15e9}
		]}`)
	})
	a := newTestAdapter(t, mux, nil)

	res, err := a.Fetch(context.Background(), fetch.NewRequest("competitor_lookup", map[string]string{"ticker": "TSLA", "limit": "5"}))
	require.NoError(t, err)

	set, ok := res.Payload.(fetch.CompetitorSet)
	require.True(t, ok)
	assert.Equal(t, fetch.CoverageFull, set.Coverage)
	// GM (60B) and RIVN (15B) fall outside the 0.3x-3x band of 800B
	require.Len(t, set.Competitors, 1)
	assert.Equal(t, "TM", set.Competitors[0].Ticker)
	assert.Equal(t, 0.85, res.Confidence)
}

func TestFetchCompetitorsEmptySetIsPartialCoverage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/reference/tickers/TSLA", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, profileJSON("TSLA", "Tesla, Inc.", "3711", 800e9))
	})
	mux.HandleFunc("/v3/reference/tickers", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"results": [{"ticker": "TSLA", "name": "Tesla, Inc.", "market_cap": 800e9}]}`)
	})
	a := newTestAdapter(t, mux, nil)

	res, err := a.Fetch(context.Background(), fetch.NewRequest("competitor_lookup", map[string]string{"ticker": "TSLA"}))
	require.NoError(t, err)

	set := res.Payload.(fetch.CompetitorSet)
	assert.Equal(t, fetch.CoveragePartial, set.Coverage)
	assert.Empty(t, set.Competitors)
	assert.InDelta(t, 0.85*0.75, res.Confidence, 1e-9)
}

func TestFetchCompetitorsNoSICIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/reference/tickers/NEWCO", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, profileJSON("NEWCO", "New Co", "", 1e9))
	})
	a := newTestAdapter(t, mux, nil)

	_, err := a.Fetch(context.Background(), fetch.NewRequest("competitor_lookup", map[string]string{"ticker": "NEWCO"}))
	var fe *fetch.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fetch.KindNotFound, fe.Kind)
}

func TestFetchProviderThrottleIsRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/reference/tickers/TSLA", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	a := newTestAdapter(t, mux, nil)

	_, err := a.Fetch(context.Background(), fetch.NewRequest("company_profile", map[string]string{"ticker": "TSLA"}))
	var fe *fetch.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fetch.KindRateLimited, fe.Kind)
}

func TestFetchTopCompaniesRanksByMarketCap(t *testing.T) {
	caps := map[string]float64{"AAPL": 3400e9, "MSFT": 3100e9, "NVDA": 3500e9}
	mux := http.NewServeMux()
	for ticker, cap := range caps {
		ticker, cap := ticker, cap
		mux.HandleFunc("/v3/reference/tickers/"+ticker, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, profileJSON(ticker, ticker+" Inc", "7372", cap))
		})
	}
	a := newTestAdapter(t, mux, stubUniverse{"technology": {"AAPL", "MSFT", "NVDA"}})

	res, err := a.Fetch(context.Background(), fetch.NewRequest("top_companies", map[string]string{"industry": "technology", "n": "2"}))
	require.NoError(t, err)

	set := res.Payload.(fetch.TopCompanySet)
	require.Len(t, set.Companies, 2)
	assert.Equal(t, "NVDA", set.Companies[0].Ticker)
	assert.Equal(t, "AAPL", set.Companies[1].Ticker)
}

func TestFetchTopCompaniesUnknownIndustry(t *testing.T) {
	a := newTestAdapter(t, http.NewServeMux(), stubUniverse{})

	_, err := a.Fetch(context.Background(), fetch.NewRequest("top_companies", map[string]string{"industry": "basket weaving"}))
	var fe *fetch.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fetch.KindNotFound, fe.Kind)
}
