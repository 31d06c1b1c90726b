// Package admission gates requests per tenant: fixed-window rate limits,
// guardrails on the raw query, and route RBAC once a route is known.
package admission

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/router/internal/core/error"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// Code identifies why a request was rejected.
type Code string

const (
	CodeAllowed            Code = ""
	CodeRateLimited        Code = model.RefusalRateLimited
	CodeGuardrailViolation Code = model.RefusalGuardrailViolation
	CodeRouteNotAllowed    Code = model.RefusalRouteNotAllowed
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allow  bool
	Code   Code
	Reason string
}

func Allowed() Decision {
	return Decision{Allow: true}
}

func deny(code Code, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}

// Err converts a rejection into the errx taxonomy; nil when allowed.
func (d Decision) Err() error {
	switch d.Code {
	case CodeAllowed:
		return nil
	case CodeRateLimited:
		return errx.New(fmt.Errorf("%w: %s", errx.ErrRateLimited, d.Reason), http.StatusTooManyRequests, errx.RateLimitedMessage)
	case CodeGuardrailViolation:
		return errx.New(fmt.Errorf("%w: %s", errx.ErrGuardrailViolation, d.Reason), http.StatusOK, d.Reason)
	default:
		return errx.New(fmt.Errorf("%w: %s", errx.ErrRouteNotAllowed, d.Reason), http.StatusForbidden, d.Reason)
	}
}

// Admitter applies the pre-classification checks.
type Admitter struct {
	limiter Limiter
}

func NewAdmitter(limiter Limiter) *Admitter {
	return &Admitter{limiter: limiter}
}

// Admit runs the rate check then the guardrail check against cfg. Counters
// only change when the limiter admits. Limiter backend errors fail open.
func (a *Admitter) Admit(ctx context.Context, cfg model.TenantConfig, query string) Decision {
	d := a.CheckRate(ctx, cfg)
	if d.Allow {
		d = CheckGuardrails(cfg, query)
	}
	admissionDecisions.WithLabelValues(codeLabel(d.Code)).Inc()
	if !d.Allow {
		logx.Warn().Str("tenant_id", cfg.TenantID).Str("code", string(d.Code)).Str("reason", d.Reason).Msg("request rejected at admission")
	}
	return d
}

// CheckRate consumes one slot of the tenant's windows.
func (a *Admitter) CheckRate(ctx context.Context, cfg model.TenantConfig) Decision {
	ok, err := a.limiter.Allow(ctx, cfg.TenantID, cfg.RateLimitPerMinute, cfg.RateLimitPerHour)
	if err != nil {
		logx.Error().Err(err).Str("tenant_id", cfg.TenantID).Msg("rate limiter unavailable, admitting request")
		return Allowed()
	}
	if !ok {
		return deny(CodeRateLimited, errx.RateLimitedMessage)
	}
	return Allowed()
}

func codeLabel(c Code) string {
	if c == CodeAllowed {
		return "ALLOWED"
	}
	return string(c)
}
