package llm

import (
	"errors"
	"strings"

	"github.com/Chative-core-poc-v1/router/internal/retry"
)

// RateLimitError is returned by adapters that already know the failure is a
// provider throttle. Quota marks a billing/quota exhaustion signature.
type RateLimitError struct {
	Quota bool
	Err   error
}

func (e *RateLimitError) Error() string {
	if e.Quota {
		return "llm quota exhausted: " + e.Err.Error()
	}
	return "llm rate limited: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

var throttleSignatures = []string{
	"429",
	"rate limit",
	"ratelimit",
	"resource_exhausted",
	"resource exhausted",
	"too many requests",
}

// ClassifyError maps provider errors to retry classes by message signature,
// so no provider SDK error type is needed.
func ClassifyError(err error) retry.Class {
	if err == nil {
		return retry.Permanent
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		if rl.Quota {
			return retry.QuotaExhausted
		}
		return retry.RateLimited
	}

	msg := strings.ToLower(err.Error())
	if isQuota(msg) {
		return retry.QuotaExhausted
	}
	if containsAny(msg, throttleSignatures) {
		return retry.RateLimited
	}
	return retry.Permanent
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isQuota(msg string) bool {
	if strings.Contains(msg, "insufficient_quota") {
		return true
	}
	return strings.Contains(msg, "quota") && (strings.Contains(msg, "exceeded") || strings.Contains(msg, "exhausted"))
}
