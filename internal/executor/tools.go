package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"finsight/internal/source"
)

// Tool binds a planner-facing tool name to the capability it resolves and
// the ordered adapter chain allowed to serve it. The schema gates the raw
// planner parameters before any network call happens.
type Tool struct {
	Name       string
	Capability string
	Chain      []source.Adapter

	schema *jsonschema.Schema
}

// Validate checks the planner parameters against the tool's schema.
func (t *Tool) Validate(params map[string]string) error {
	doc := make(map[string]any, len(params))
	for k, v := range params {
		doc[k] = v
	}
	if err := t.schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid parameters for %s: %w", t.Name, err)
	}
	return nil
}

func (t *Tool) chainNames() string {
	names := make([]string, 0, len(t.Chain))
	for _, a := range t.Chain {
		names = append(names, a.Identity())
	}
	return strings.Join(names, ", ")
}

// Registry is the fixed tool table. Tool names and routing are static;
// only the adapter instances behind them are injected.
type Registry struct {
	tools map[string]*Tool
}

// Adapters groups the data sources by role for registry construction.
type Adapters struct {
	// Regulatory serves quarterly financials directly, no fallback.
	Regulatory source.Adapter
	// Market is the ordered cascade for profile, competitor and
	// top-company lookups, highest confidence first.
	Market []source.Adapter
	// Research serves qualitative industry research directly.
	Research source.Adapter
}

var (
	tickerSchema = jsonschema.MustCompileString("ticker.json", `{
		"type": "object",
		"properties": {
			"ticker": {"type": "string", "minLength": 1, "maxLength": 10}
		},
		"required": ["ticker"]
	}`)
	competitorSchema = jsonschema.MustCompileString("competitors.json", `{
		"type": "object",
		"properties": {
			"ticker": {"type": "string", "minLength": 1, "maxLength": 10},
			"limit": {"type": "string", "pattern": "^[1-9][0-9]*$"}
		},
		"required": ["ticker"]
	}`)
	topCompaniesSchema = jsonschema.MustCompileString("top_companies.json", `{
		"type": "object",
		"properties": {
			"industry": {"type": "string", "minLength": 1},
			"n": {"type": "string", "pattern": "^[1-9][0-9]*$"}
		},
		"required": ["industry"]
	}`)
	industrySchema = jsonschema.MustCompileString("industry.json", `{
		"type": "object",
		"properties": {
			"industry": {"type": "string", "minLength": 1}
		},
		"required": ["industry"]
	}`)
)

// NewRegistry wires the five query tools to their adapter chains.
func NewRegistry(adapters Adapters) *Registry {
	r := &Registry{tools: make(map[string]*Tool)}
	r.register(&Tool{
		Name:       "get_quarterly_financials",
		Capability: "quarterly_financials",
		Chain:      []source.Adapter{adapters.Regulatory},
		schema:     tickerSchema,
	})
	r.register(&Tool{
		Name:       "get_company_profile",
		Capability: "company_profile",
		Chain:      adapters.Market,
		schema:     tickerSchema,
	})
	r.register(&Tool{
		Name:       "find_competitors",
		Capability: "competitor_lookup",
		Chain:      adapters.Market,
		schema:     competitorSchema,
	})
	r.register(&Tool{
		Name:       "get_top_companies",
		Capability: "top_companies",
		Chain:      adapters.Market,
		schema:     topCompaniesSchema,
	})
	r.register(&Tool{
		Name:       "research_ai_disruption",
		Capability: "ai_disruption",
		Chain:      []source.Adapter{adapters.Research},
		schema:     industrySchema,
	})
	return r
}

func (r *Registry) register(t *Tool) {
	r.tools[t.Name] = t
}

// Lookup returns the tool for a planner name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists the registered tool names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
