// Package observability records one trace line and a set of metrics per routed request.
package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// Record is the trace of one request, taken from its final state.
type Record struct {
	RequestID string
	TenantID  string
	UserID    string
	SessionID string
	Route     model.Route

	Latency     time.Duration
	ToolCalls   []model.ToolCallLog
	Citations   int
	RefusalCode string
	Refused     bool

	ClassifierMethod string
	RetrievalMethod  string
	RetrievalAvg     *float64

	ClassifierError string
	RetrievalError  string
	ToolError       string
	GenerationError string

	Usage   model.TokenUsage
	CostUSD float64
}

// RecordFromState snapshots the fields the emitter needs.
func RecordFromState(s *model.ConversationState) Record {
	r := Record{
		RequestID:       s.Meta.RequestID,
		TenantID:        s.Request.TenantID,
		UserID:          s.Meta.UserID,
		SessionID:       s.Meta.SessionID,
		Route:           s.Route,
		Latency:         time.Duration(s.Meta.LatencyMS) * time.Millisecond,
		ToolCalls:       append([]model.ToolCallLog(nil), s.ToolCalls...),
		Citations:       len(s.Citations),
		RefusalCode:     s.RefusalCode,
		Refused:         s.Refusal != "",
		RetrievalMethod: s.RetrievalMethod,
		RetrievalAvg:    s.RetrievalConfidenceAvg,
		ClassifierError: s.ClassifierError,
		RetrievalError:  s.RetrievalError,
		ToolError:       s.ToolError,
		GenerationError: s.GenerationError,
		Usage:           s.Meta.TokenUsage,
		CostUSD:         s.Meta.CostUSD,
	}
	if s.Intent != nil {
		r.ClassifierMethod = s.Intent.Method
	}
	return r
}

// Emitter consumes request traces.
type Emitter interface {
	Emit(ctx context.Context, r Record)
}

// LogEmitter updates the prometheus collectors and writes a structured trace line.
type LogEmitter struct {
	log zerolog.Logger
}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{log: logx.With("trace")}
}

func (e *LogEmitter) Emit(_ context.Context, r Record) {
	observe(r)

	evt := e.log.Info()
	if r.Refused {
		evt = e.log.Warn().Str("refusal_code", r.RefusalCode)
	}
	evt = evt.
		Str("request_id", r.RequestID).
		Str("tenant_id", r.TenantID).
		Str("user_id", r.UserID).
		Str("session_id", r.SessionID).
		Str("route", r.Route.String()).
		Int64("latency_ms", r.Latency.Milliseconds()).
		Int("tool_calls", len(r.ToolCalls)).
		Int("citations", r.Citations).
		Int("total_tokens", r.Usage.TotalTokens).
		Float64("cost_usd", r.CostUSD)
	if r.ClassifierMethod != "" {
		evt = evt.Str("classifier", r.ClassifierMethod)
	}
	if r.RetrievalMethod != "" {
		evt = evt.Str("retrieval_method", r.RetrievalMethod)
	}
	if r.RetrievalAvg != nil {
		evt = evt.Float64("retrieval_confidence_avg", *r.RetrievalAvg)
	}
	for key, val := range map[string]string{
		"classifier_error": r.ClassifierError,
		"retrieval_error":  r.RetrievalError,
		"tool_error":       r.ToolError,
		"generation_error": r.GenerationError,
	} {
		if val != "" {
			evt = evt.Str(key, val)
		}
	}
	evt.Msg("request traced")
}

func observe(r Record) {
	route := r.Route.String()
	requestLatency.WithLabelValues(r.TenantID, route).Observe(r.Latency.Seconds())
	requestsTotal.WithLabelValues(r.TenantID, route, strconv.FormatBool(r.Refused)).Inc()
	if r.Refused {
		code := r.RefusalCode
		if code == "" {
			code = "UNSPECIFIED"
		}
		refusalsTotal.WithLabelValues(r.TenantID, code).Inc()
	}
	for _, tc := range r.ToolCalls {
		toolCallsTotal.WithLabelValues(tc.ToolName, tc.Status).Inc()
	}
	citationsPerRequest.Observe(float64(r.Citations))
	if r.Usage.PromptTokens > 0 {
		tokensTotal.WithLabelValues(r.TenantID, "prompt").Add(float64(r.Usage.PromptTokens))
	}
	if r.Usage.CompletionTokens > 0 {
		tokensTotal.WithLabelValues(r.TenantID, "completion").Add(float64(r.Usage.CompletionTokens))
	}
	if r.CostUSD > 0 {
		costTotal.WithLabelValues(r.TenantID).Add(r.CostUSD)
	}
}

// ObserveRejection counts a request refused before routing.
func ObserveRejection(tenantID, code string) {
	requestsTotal.WithLabelValues(tenantID, "", "true").Inc()
	refusalsTotal.WithLabelValues(tenantID, code).Inc()
}
