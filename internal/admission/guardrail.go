package admission

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

const defaultRuleReason = "Query violates refusal rule"

// compiled regex rules, keyed by pattern
var ruleCache sync.Map

func compileRule(pattern string) (*regexp.Regexp, error) {
	if re, ok := ruleCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	ruleCache.Store(pattern, re)
	return re, nil
}

// CheckGuardrails rejects queries containing a sensitive pattern or matching
// a refusal rule. Rules are evaluated in declaration order; first match wins.
func CheckGuardrails(cfg model.TenantConfig, query string) Decision {
	lower := strings.ToLower(query)

	for _, p := range cfg.SensitivePromptPatterns {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return deny(CodeGuardrailViolation, fmt.Sprintf("Query matches sensitive pattern: %s", p))
		}
	}

	for _, rule := range cfg.RefusalRules {
		if !ruleMatches(cfg.TenantID, rule, query, lower) {
			continue
		}
		reason := rule.Reason
		if reason == "" {
			reason = defaultRuleReason
		}
		return deny(CodeGuardrailViolation, reason)
	}

	return Allowed()
}

func ruleMatches(tenantID string, rule model.RefusalRule, query, lower string) bool {
	if rule.Pattern == "" {
		return false
	}
	switch rule.Type {
	case model.RuleContains:
		return strings.Contains(lower, strings.ToLower(rule.Pattern))
	case model.RuleRegex:
		re, err := compileRule(rule.Pattern)
		if err != nil {
			logx.Warn().Err(err).Str("tenant_id", tenantID).Str("pattern", rule.Pattern).Msg("skipping invalid regex rule")
			return false
		}
		return re.MatchString(query)
	default:
		logx.Debug().Str("tenant_id", tenantID).Str("type", rule.Type).Msg("unknown refusal rule type")
		return false
	}
}

// CheckRoute is the post-classification RBAC step.
func CheckRoute(cfg model.TenantConfig, route model.Route) Decision {
	if cfg.AllowsRoute(route) {
		return Allowed()
	}
	return deny(CodeRouteNotAllowed, fmt.Sprintf("Route %s not allowed for tenant %s", route, cfg.TenantID))
}
