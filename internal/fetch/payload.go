package fetch

import "github.com/shopspring/decimal"

// Normalized payload shapes. Adapters translate whatever the provider
// returns into one of these before handing the result up; nothing above the
// adapter layer sees provider-specific structures.

// Coverage distinguishes a complete lookup from one where the company was
// identified but the candidate universe had no entries for it.
const (
	CoverageFull    = "full"
	CoveragePartial = "partial"
)

// Financials carries the headline figures of one quarterly filing.
type Financials struct {
	Ticker     string          `json:"ticker"`
	Company    string          `json:"company"`
	Revenue    decimal.Decimal `json:"revenue"`
	NetIncome  decimal.Decimal `json:"net_income"`
	FiscalEnd  string          `json:"fiscal_end,omitempty"`
	FilingDate string          `json:"filing_date,omitempty"`
	FilingURL  string          `json:"filing_url,omitempty"`
}

// Company is one listed company as seen by a market-data provider.
type Company struct {
	Ticker    string          `json:"ticker"`
	Name      string          `json:"name"`
	Sector    string          `json:"sector,omitempty"`
	Industry  string          `json:"industry,omitempty"`
	MarketCap decimal.Decimal `json:"market_cap"`
}

// CompanyProfile is the normalized reference record for one ticker.
type CompanyProfile struct {
	Company
	Description string `json:"description,omitempty"`
	Exchange    string `json:"exchange,omitempty"`
}

// CompetitorSet is the outcome of a competitor lookup.
type CompetitorSet struct {
	Target      Company   `json:"target"`
	Competitors []Company `json:"competitors"`
	TotalFound  int       `json:"total_found"`
	Coverage    string    `json:"coverage"`
}

// TopCompanySet ranks the largest companies of one sector by market cap.
type TopCompanySet struct {
	Sector    string    `json:"sector"`
	Companies []Company `json:"companies"`
}

// Research is a synthesized qualitative analysis built from web sources.
type Research struct {
	Industry string   `json:"industry"`
	Summary  string   `json:"summary"`
	UseCases []string `json:"use_cases"`
	Examples []string `json:"examples"`
	Sources  []string `json:"sources"`
}
