// Package nodes holds the lambda nodes of the routing graph. Every node takes
// and returns the request's *model.ConversationState. Collaborator failures are
// recorded on the state and never returned as errors, so END is always reached.
package nodes

import (
	"context"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/router/internal/agent/graph/classifier"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/internal/llm"
	"github.com/Chative-core-poc-v1/router/internal/observability"
	"github.com/Chative-core-poc-v1/router/internal/retrieval"
)

// Node names
const (
	NodeIntake        = "intake"
	NodeClassify      = "classify"
	NodeAdmit         = "admit"
	NodeVaultRetrieve = "vault_retrieve"
	NodePriceTool     = "price_tool"
	NodeFinanceTool   = "finance_tool"
	NodeGenerate      = "generate"
	NodeTrace         = "trace"
)

// VaultRetriever is the retrieval engine as seen by the diet route.
type VaultRetriever interface {
	Retrieve(ctx context.Context, tenantID, userID, query string, topK int) (*retrieval.Result, error)
	MinConfidence() float64
}

// Deps are the collaborators shared by all nodes of a compiled graph.
type Deps struct {
	Classifier classifier.Classifier
	Retriever  VaultRetriever
	TopK       int
	Price      tools.PriceClient
	Finance    tools.FinanceClient
	Responder  llm.Completer
	Response   model.ResponseModelConfig
	Emitter    observability.Emitter
	Now        func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

type stateFunc func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error)

func lambda(fn stateFunc) *compose.Lambda {
	return compose.InvokableLambda(compose.InvokeWOOpt[*model.ConversationState, *model.ConversationState](fn))
}

type requestIDKey struct{}

// ContextWithRequestID carries the HTTP request id into intake.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
