package model

import (
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoute(t *testing.T) {
	r, ok := ParseRoute(" diet-nutrition ")
	assert.True(t, ok)
	assert.Equal(t, RouteDietNutrition, r)

	_, ok = ParseRoute("WEATHER")
	assert.False(t, ok)
}

func TestDefaultTenantConfigDropsUnknownRoutes(t *testing.T) {
	cfg := DefaultTenantConfig("t9", TenantDefaultsConfig{
		RatePerMinute: 10,
		RatePerHour:   100,
		AllowedRoutes: []string{"PRICE_COMPARE", "bogus", "general_query"},
	})
	assert.Equal(t, []Route{RoutePriceCompare, RouteGeneralQuery}, cfg.AllowedRoutes)
	assert.True(t, cfg.AllowsRoute(RouteGeneralQuery))
	assert.False(t, cfg.AllowsRoute(RouteDietNutrition))
}

func TestTenantConfigCloneIsDeep(t *testing.T) {
	cfg := TenantConfig{TenantID: "t1", BlockedTools: []string{ToolPriceCompare}}
	clone := cfg.Clone()
	clone.BlockedTools[0] = "changed"
	assert.Equal(t, ToolPriceCompare, cfg.BlockedTools[0])
}

func TestTenantConfigClonePreservesEmptyLists(t *testing.T) {
	cfg := DefaultTenantConfig("t1", TenantDefaultsConfig{RatePerMinute: 1, RatePerHour: 1})
	clone := cfg.Clone()
	assert.NotNil(t, clone.BlockedTools)
	assert.NotNil(t, clone.SensitivePromptPatterns)
	assert.NotNil(t, clone.RefusalRules)

	raw, err := json.Marshal(clone)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"blocked_tools":[]`)
	assert.Contains(t, string(raw), `"refusal_rules":[]`)
	assert.NotContains(t, string(raw), "null")

	assert.Nil(t, TenantConfig{}.Clone().BlockedTools)
}

func TestStateAddUsageAccumulatesCost(t *testing.T) {
	s := NewConversationState(ConversationRequest{TenantID: "t1"}, TenantConfig{})
	s.AddUsage("gemini-2.5-flash", &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 0, TotalTokens: 1_000_000})
	s.AddUsage("models/gemini-2.5-flash", &schema.TokenUsage{PromptTokens: 0, CompletionTokens: 1_000_000, TotalTokens: 1_000_000})
	s.AddUsage("unknown", nil)

	assert.Equal(t, 2_000_000, s.Meta.TokenUsage.TotalTokens)
	assert.InDelta(t, 0.30+2.50, s.Meta.CostUSD, 1e-9)
}

func TestStateRefuseFirstWins(t *testing.T) {
	s := NewConversationState(ConversationRequest{}, TenantConfig{})
	s.Refuse(RefusalRouteNotAllowed, "first")
	s.Refuse(RefusalToolUnavailable, "second")

	resp := s.Response()
	assert.True(t, resp.Refusal.IsRefused)
	assert.Equal(t, "first", resp.Refusal.Reason)
	assert.Equal(t, RefusalRouteNotAllowed, s.RefusalCode)
}
