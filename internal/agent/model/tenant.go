package model

import (
	"slices"
	"time"
)

// Refusal rule kinds.
const (
	RuleContains = "contains"
	RuleRegex    = "regex"
)

// Tool names as used in blocked_tools and in the tool-call log.
const (
	ToolIntentClassifier  = "intent_classifier"
	ToolVaultRetrieve     = "vault.retrieve"
	ToolPriceCompare      = "price.compare"
	ToolFinanceBundle     = "finance.bundle"
	ToolFinanceTopGainers = "finance.top_gainers"
	ToolFinanceLLMDirect  = "finance.llm_direct"
)

// RefusalRule is tenant data evaluated in declaration order.
type RefusalRule struct {
	Type    string `json:"type" validate:"required,oneof=contains regex"`
	Pattern string `json:"pattern" validate:"required"`
	Reason  string `json:"reason,omitempty"`
}

// TenantConfig is created lazily per tenant and replaced through the admin API.
type TenantConfig struct {
	TenantID                string        `json:"tenant_id" validate:"required"`
	BlockedTools            []string      `json:"blocked_tools"`
	SensitivePromptPatterns []string      `json:"sensitive_prompt_patterns" validate:"dive,required"`
	RefusalRules            []RefusalRule `json:"refusal_rules" validate:"dive"`
	RateLimitPerMinute      int           `json:"rate_limit_per_minute" validate:"gte=0"`
	RateLimitPerHour        int           `json:"rate_limit_per_hour" validate:"gte=0"`
	AllowedRoutes           []Route       `json:"allowed_routes" validate:"dive,oneof=PRICE_COMPARE FINANCE_STOCK DIET_NUTRITION CLARIFY GENERAL_QUERY"`
}

// Clone returns a deep copy so callers never share slices with the store.
// Empty lists stay non-nil.
func (c TenantConfig) Clone() TenantConfig {
	out := c
	out.BlockedTools = slices.Clone(c.BlockedTools)
	out.SensitivePromptPatterns = slices.Clone(c.SensitivePromptPatterns)
	out.RefusalRules = slices.Clone(c.RefusalRules)
	out.AllowedRoutes = slices.Clone(c.AllowedRoutes)
	return out
}

// AllowsRoute reports whether route is in the tenant's allow-list.
func (c TenantConfig) AllowsRoute(route Route) bool {
	for _, r := range c.AllowedRoutes {
		if r == route {
			return true
		}
	}
	return false
}

// BlocksTool reports whether the tenant disabled the named tool.
func (c TenantConfig) BlocksTool(name string) bool {
	for _, t := range c.BlockedTools {
		if t == name {
			return true
		}
	}
	return false
}

// DefaultTenantConfig builds the configuration used the first time a tenant is seen.
func DefaultTenantConfig(tenantID string, defaults TenantDefaultsConfig) TenantConfig {
	routes := make([]Route, 0, len(defaults.AllowedRoutes))
	for _, r := range defaults.AllowedRoutes {
		if parsed, ok := ParseRoute(r); ok {
			routes = append(routes, parsed)
		}
	}
	if len(routes) == 0 {
		routes = append(routes, AllRoutes...)
	}
	return TenantConfig{
		TenantID:                tenantID,
		BlockedTools:            []string{},
		SensitivePromptPatterns: []string{},
		RefusalRules:            []RefusalRule{},
		RateLimitPerMinute:      defaults.RatePerMinute,
		RateLimitPerHour:        defaults.RatePerHour,
		AllowedRoutes:           routes,
	}
}

// TenantRateLimit holds the fixed-window counters of one tenant.
type TenantRateLimit struct {
	TenantID          string    `json:"tenant_id"`
	RequestsPerMinute int       `json:"requests_per_minute"`
	RequestsPerHour   int       `json:"requests_per_hour"`
	LastResetMinute   time.Time `json:"last_reset_minute"`
	LastResetHour     time.Time `json:"last_reset_hour"`
}
