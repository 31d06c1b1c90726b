package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Route is the domain label assigned to a query.
type Route string

const (
	RoutePriceCompare  Route = "PRICE_COMPARE"
	RouteFinanceStock  Route = "FINANCE_STOCK"
	RouteDietNutrition Route = "DIET_NUTRITION"
	RouteClarify       Route = "CLARIFY"
	RouteGeneralQuery  Route = "GENERAL_QUERY"
)

// AllRoutes lists every route in declaration order.
var AllRoutes = []Route{RoutePriceCompare, RouteFinanceStock, RouteDietNutrition, RouteClarify, RouteGeneralQuery}

func (r Route) String() string {
	return string(r)
}

// Valid reports whether r is one of the known routes.
func (r Route) Valid() bool {
	for _, known := range AllRoutes {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRoute normalises case and separators ("price-compare" → PRICE_COMPARE).
func ParseRoute(s string) (Route, bool) {
	r := Route(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	return r, r.Valid()
}

// IntentEntities are the optional structured slots a classifier may extract.
type IntentEntities struct {
	Product  string   `json:"product,omitempty"`
	Ticker   string   `json:"ticker,omitempty"`
	Food     string   `json:"food,omitempty"`
	Budget   *float64 `json:"budget,omitempty"`
	Location string   `json:"location,omitempty"`
}

// Classification methods recorded on IntentPrediction.
const (
	MethodLLM       = "llm"
	MethodHeuristic = "heuristic"
)

// IntentPrediction is produced once per request and not modified afterwards.
type IntentPrediction struct {
	Route              Route           `json:"route"`
	Confidence         float64         `json:"confidence"`
	ClarifyingQuestion string          `json:"clarifying_question,omitempty"`
	ExtractedEntities  *IntentEntities `json:"extracted_entities,omitempty"`

	Method string             `json:"-"`
	Model  string             `json:"-"`
	Usage  *schema.TokenUsage `json:"-"`
	// FallbackReason is the primary classifier's error when a fallback answered.
	FallbackReason string `json:"-"`
}

// FinanceQueryKind is the finance sub-route chosen before any tool call.
type FinanceQueryKind string

const (
	FinanceGeneralKnowledge FinanceQueryKind = "GENERAL_KNOWLEDGE"
	FinanceMarketWide       FinanceQueryKind = "MARKET_WIDE"
	FinanceSingleTicker     FinanceQueryKind = "SINGLE_TICKER"
)
