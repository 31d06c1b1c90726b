package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
)

func TestCheckGuardrails(t *testing.T) {
	cfg := model.TenantConfig{
		TenantID:                "t1",
		SensitivePromptPatterns: []string{"Insider Tip"},
		RefusalRules: []model.RefusalRule{
			{Type: model.RuleContains, Pattern: "crypto", Reason: "crypto not supported"},
			{Type: model.RuleRegex, Pattern: `\bpump\s+and\s+dump\b`, Reason: "market manipulation"},
			{Type: model.RuleContains, Pattern: "crypto pump", Reason: "never reached"},
			{Type: "prefix", Pattern: "what"},
		},
	}

	tests := []struct {
		name   string
		query  string
		allow  bool
		reason string
	}{
		{name: "clean", query: "what is a dividend", allow: true},
		{name: "sensitive case-insensitive", query: "any insider TIP on TCS?", reason: "Query matches sensitive pattern: Insider Tip"},
		{name: "contains rule", query: "Best CRYPTO to buy", reason: "crypto not supported"},
		{name: "first match wins", query: "crypto pump and dump", reason: "crypto not supported"},
		{name: "regex rule", query: "is this a Pump and Dump scheme", reason: "market manipulation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckGuardrails(cfg, tt.query)
			assert.Equal(t, tt.allow, d.Allow)
			if !tt.allow {
				assert.Equal(t, CodeGuardrailViolation, d.Code)
				assert.Equal(t, tt.reason, d.Reason)
			}
		})
	}
}

func TestCheckGuardrailsDefaultReason(t *testing.T) {
	cfg := model.TenantConfig{RefusalRules: []model.RefusalRule{{Type: model.RuleContains, Pattern: "lottery"}}}
	d := CheckGuardrails(cfg, "lottery numbers please")
	assert.False(t, d.Allow)
	assert.Equal(t, defaultRuleReason, d.Reason)
}

func TestCheckRoute(t *testing.T) {
	cfg := model.TenantConfig{TenantID: "t1", AllowedRoutes: []model.Route{model.RoutePriceCompare}}

	assert.True(t, CheckRoute(cfg, model.RoutePriceCompare).Allow)

	d := CheckRoute(cfg, model.RouteFinanceStock)
	assert.False(t, d.Allow)
	assert.Equal(t, CodeRouteNotAllowed, d.Code)
	assert.Equal(t, "Route FINANCE_STOCK not allowed for tenant t1", d.Reason)
}
