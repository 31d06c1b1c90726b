package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
)

func TestRouteCondition(t *testing.T) {
	cases := map[model.Route]string{
		model.RouteDietNutrition: NodeVaultRetrieve,
		model.RoutePriceCompare:  NodePriceTool,
		model.RouteFinanceStock:  NodeFinanceTool,
		model.RouteGeneralQuery:  NodeGenerate,
		model.RouteClarify:       NodeGenerate,
	}
	for route, want := range cases {
		next, err := RouteCondition(context.Background(), &model.ConversationState{Route: route})
		assert.NoError(t, err)
		assert.Equal(t, want, next, route)
	}

	refused := &model.ConversationState{Route: model.RouteDietNutrition}
	refused.Refuse(model.RefusalRouteNotAllowed, "no")
	next, _ := RouteCondition(context.Background(), refused)
	assert.Equal(t, NodeGenerate, next)
}

func TestRenderPrice(t *testing.T) {
	assert.Equal(t, priceUnavailable, renderPrice(nil))
	out := renderPrice(&model.PriceComparison{
		Items: []model.PriceItem{
			{Name: "Phone A", Price: 18999, Currency: "INR", Vendor: "shop", Location: "Pune", Source: "https://a"},
			{Name: "Phone B", Price: 19500.5, Currency: "INR", Vendor: "mart", Source: "https://b"},
		},
		Summary: "A is cheaper",
	})
	assert.Equal(t, "Phone A: 18999 INR at shop (Pune) source=https://a\n"+
		"Phone B: 19500.5 INR at mart source=https://b\n"+
		"Summary: A is cheaper", out)
}

func TestRenderHistoryKeepsFirstFive(t *testing.T) {
	assert.Equal(t, "No historical data available", renderHistory(nil))
	candles := []model.Candle{
		{Date: "d1", Close: 1}, {Date: "d2", Close: 2}, {Date: "d3", Close: 3},
		{Date: "d4", Close: 4}, {Date: "d5", Close: 5}, {Date: "d6", Close: 6},
	}
	assert.Equal(t, "d1: close 1; d2: close 2; d3: close 3; d4: close 4; d5: close 5", renderHistory(candles))
}

func TestPriceFilters(t *testing.T) {
	budget := 20000.0
	f := priceFilters(&model.IntentPrediction{ExtractedEntities: &model.IntentEntities{Budget: &budget, Location: "Delhi"}})
	assert.Equal(t, map[string]any{"max_price": 20000.0, "location": "Delhi"}, f)
	assert.Empty(t, priceFilters(nil))
}

func TestRound3(t *testing.T) {
	v := 0.85449
	assert.Equal(t, 0.854, *round3(&v))
	assert.Nil(t, round3(nil))
}
