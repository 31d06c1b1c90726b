package model

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// Refusal codes recorded on ConversationState.
const (
	RefusalRateLimited        = "RATE_LIMITED"
	RefusalGuardrailViolation = "GUARDRAIL_VIOLATION"
	RefusalRouteNotAllowed    = "ROUTE_NOT_ALLOWED"
	RefusalToolUnavailable    = "TOOL_UNAVAILABLE"
	RefusalTickerRequired     = "TICKER_REQUIRED"
)

// FinanceResult carries the finance sub-route decision and tool payloads.
type FinanceResult struct {
	Kind           FinanceQueryKind
	Ticker         string
	Bundle         *FinanceBundle
	TopGainers     *TopGainers
	UseLLMDirectly bool
}

// StateMeta holds timing and token counters for one request.
type StateMeta struct {
	RequestID  string
	UserID     string
	SessionID  string
	StartedAt  time.Time
	LatencyMS  int64
	TokenUsage TokenUsage
	CostUSD    float64
}

// ConversationState is the request-scoped aggregate threaded through every graph node.
// Concurrency model:
//   - One instance per request, created by the runner and passed by pointer from node to node.
//   - Graph nodes run sequentially for a single request, so no locking is needed.
//   - Never stored, cached or handed to another request.
type ConversationState struct {
	Request ConversationRequest
	Tenant  TenantConfig

	Intent          *IntentPrediction
	Route           Route
	ClassifierError string

	Price   *PriceComparison
	Finance FinanceResult

	VaultChunks            []VaultChunk
	RetrievalConfidenceAvg *float64
	RetrievalError         string
	RetrievalMethod        string

	ToolError       string
	GenerationError string

	Answer      string
	Citations   []Citation
	ToolCalls   []ToolCallLog
	Refusal     string
	RefusalCode string

	Meta StateMeta
}

// NewConversationState seeds a state for req under the tenant's config snapshot.
func NewConversationState(req ConversationRequest, tenant TenantConfig) *ConversationState {
	return &ConversationState{
		Request:   req,
		Tenant:    tenant,
		Citations: []Citation{},
		ToolCalls: []ToolCallLog{},
	}
}

// LogToolCall appends an entry to the ordered tool-call log.
func (s *ConversationState) LogToolCall(name, status string, err error, details map[string]any) {
	entry := ToolCallLog{ToolName: name, Status: status, Details: details}
	if err != nil {
		entry.Error = err.Error()
	}
	s.ToolCalls = append(s.ToolCalls, entry)
}

// AddCitation appends to the ordered citation list.
func (s *ConversationState) AddCitation(c Citation) {
	s.Citations = append(s.Citations, c)
}

// Refuse records a refusal; the first recorded refusal wins.
func (s *ConversationState) Refuse(code, reason string) {
	if s.Refusal != "" {
		return
	}
	s.RefusalCode = code
	s.Refusal = reason
}

// AddUsage accumulates token usage and its USD cost for modelName.
func (s *ConversationState) AddUsage(modelName string, usage *schema.TokenUsage) float64 {
	if usage == nil {
		return 0
	}
	s.Meta.TokenUsage.PromptTokens += usage.PromptTokens
	s.Meta.TokenUsage.CompletionTokens += usage.CompletionTokens
	s.Meta.TokenUsage.TotalTokens += usage.TotalTokens
	_, _, total := ComputeCost(usage, ResolvePricing(modelName))
	s.Meta.CostUSD += total
	return total
}

// Response renders the state into the public response body.
func (s *ConversationState) Response() *ChatResponse {
	return &ChatResponse{
		Route:     s.Route,
		Answer:    s.Answer,
		Citations: append([]Citation{}, s.Citations...),
		ToolCalls: append([]ToolCallLog{}, s.ToolCalls...),
		Refusal:   Refusal{IsRefused: s.Refusal != "", Reason: s.Refusal},
		Meta: ResponseMeta{
			LatencyMS:       s.Meta.LatencyMS,
			TokenUsage:      s.Meta.TokenUsage,
			CostUSDEstimate: s.Meta.CostUSD,
			UserID:          s.Meta.UserID,
			SessionID:       s.Meta.SessionID,
			RequestID:       s.Meta.RequestID,
		},
	}
}
