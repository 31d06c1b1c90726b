// Package httpx runs outbound HTTP calls through a failsafe retry policy and
// circuit breaker.
package httpx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// ShouldRetry retries network errors, 5xx except 501, and 429.
func ShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// countsAsFailure decides what trips the breaker. 501 is a capability answer,
// not an outage.
func countsAsFailure(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented
}

type Config struct {
	Name       string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Breaker disables the circuit breaker when false.
	Breaker bool
}

func DefaultConfig(name string) Config {
	return Config{
		Name:       name,
		MaxRetries: 2,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Breaker:    true,
	}
}

func normalize(cfg Config) Config {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return cfg
}

// Executor sends requests with retry and an optional breaker.
type Executor struct {
	name     string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
}

//nolint:bodyclose // *http.Response is a type parameter here, not a live response
func NewExecutor(client *http.Client, cfg Config) *Executor {
	cfg = normalize(cfg)
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(ShouldRetry).
		// failsafe drops the superseded response, so its body is closed here
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			drain(e.LastResult())
		}).
		OnRetriesExceeded(func(e failsafe.ExecutionEvent[*http.Response]) {
			drain(e.LastResult())
		}).
		Build()

	policies := []failsafe.Policy[*http.Response]{retry}
	if cfg.Breaker {
		name := cfg.Name
		cb := circuitbreaker.NewBuilder[*http.Response]().
			WithFailureThresholdRatio(5, 10).
			WithDelay(15 * time.Second).
			WithSuccessThreshold(1).
			HandleIf(countsAsFailure).
			OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
				logx.Warn().Str("circuit_breaker", name).
					Str("from_state", stateName(event.OldState)).
					Str("to_state", stateName(event.NewState)).
					Msg("circuit breaker state change")
			}).
			Build()
		policies = append(policies, cb)
	}

	return &Executor{
		name:     cfg.Name,
		client:   client,
		executor: failsafe.With(policies...),
	}
}

// Do builds a fresh request per attempt and returns the final response. The
// caller owns the response body when err is nil.
func (e *Executor) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	resp, err := e.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return e.client.Do(req)
	})
	if err != nil {
		drain(resp)
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}
