package model

// ConversationRequest is built at the HTTP boundary and never modified afterwards.
type ConversationRequest struct {
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Locale    string `json:"locale"`
}

// Citation types.
const (
	CitationUserVault = "user_vault"
	CitationTool      = "tool"
)

type Citation struct {
	Type       string   `json:"type"`
	Ref        string   `json:"ref"`
	Confidence *float64 `json:"confidence,omitempty"`
	Method     string   `json:"method,omitempty"`
}

// Tool call statuses.
const (
	ToolStatusOK          = "ok"
	ToolStatusError       = "error"
	ToolStatusSkipped     = "skipped"
	ToolStatusUnavailable = "unavailable"
	ToolStatusBlocked     = "blocked"
	ToolStatusFallback    = "fallback"
)

type ToolCallLog struct {
	ToolName string         `json:"tool_name"`
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Refusal struct {
	IsRefused bool   `json:"is_refused"`
	Reason    string `json:"reason,omitempty"`
}

type ResponseMeta struct {
	LatencyMS       int64      `json:"latency_ms"`
	TokenUsage      TokenUsage `json:"token_usage"`
	CostUSDEstimate float64    `json:"cost_usd_estimate"`
	UserID          string     `json:"user_id,omitempty"`
	SessionID       string     `json:"session_id,omitempty"`
	RequestID       string     `json:"request_id,omitempty"`
}

// ChatResponse is the body of POST /chat.
type ChatResponse struct {
	Route     Route         `json:"route"`
	Answer    string        `json:"answer"`
	Citations []Citation    `json:"citations"`
	ToolCalls []ToolCallLog `json:"tool_calls"`
	Refusal   Refusal       `json:"refusal"`
	Meta      ResponseMeta  `json:"meta"`
}

// RefusedResponse builds the response for a request rejected before routing.
func RefusedResponse(route Route, reason string) *ChatResponse {
	return &ChatResponse{
		Route:     route,
		Answer:    reason,
		Citations: []Citation{},
		ToolCalls: []ToolCallLog{},
		Refusal:   Refusal{IsRefused: true, Reason: reason},
	}
}
