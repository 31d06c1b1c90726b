// Package graph compiles the routing state machine
// INTAKE → CLASSIFY → ADMIT → {RETRIEVE | TOOL_CALL} → GENERATE → TRACE → END
// as an eino graph over *model.ConversationState.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/router/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

const maxRunSteps = 20

// Runner executes the compiled graph for one request.
type Runner interface {
	Invoke(ctx context.Context, req model.ConversationRequest, tenant model.TenantConfig) (*model.ConversationState, error)
}

// WithRequestID attaches the HTTP request id so the trace uses it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return nodes.ContextWithRequestID(ctx, id)
}

// GraphBuilder handles the construction of the routing graph
type GraphBuilder struct {
	deps  *nodes.Deps
	graph *compose.Graph[*model.ConversationState, *model.ConversationState]
	errs  []error
}

type graphRunner struct {
	runnable compose.Runnable[*model.ConversationState, *model.ConversationState]
}

func (r *graphRunner) Invoke(ctx context.Context, req model.ConversationRequest, tenant model.TenantConfig) (*model.ConversationState, error) {
	state := model.NewConversationState(req, tenant)
	out, err := r.runnable.Invoke(ctx, state, compose.WithCallbacks(observers.Handlers()...))
	if err != nil {
		return nil, fmt.Errorf("run graph: %w", err)
	}
	if out == nil {
		return nil, errors.New("run graph: nil state")
	}
	return out, nil
}

// NewRunner builds and compiles the graph.
func NewRunner(ctx context.Context, deps *nodes.Deps) (Runner, error) {
	runnable, err := BuildGraph(ctx, deps)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Routing graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled routing graph
func BuildGraph(ctx context.Context, deps *nodes.Deps) (compose.Runnable[*model.ConversationState, *model.ConversationState], error) {
	if deps == nil {
		return nil, fmt.Errorf("graph deps are nil")
	}
	if deps.Classifier == nil {
		return nil, fmt.Errorf("classifier is nil")
	}

	b := &GraphBuilder{
		deps:  deps,
		graph: compose.NewGraph[*model.ConversationState, *model.ConversationState](),
	}
	b.addNodes()
	b.addEdges()
	b.addBranches()
	if err := errors.Join(b.errs...); err != nil {
		logx.Error().Err(err).Msg("Error assembling graph")
		return nil, fmt.Errorf("error assembling graph: %w", err)
	}
	return b.compile(ctx)
}

func (b *GraphBuilder) add(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	lambdas := []struct {
		name string
		node *compose.Lambda
	}{
		{nodes.NodeIntake, nodes.NewIntakeNode(b.deps)},
		{nodes.NodeClassify, nodes.NewClassifyNode(b.deps)},
		{nodes.NodeAdmit, nodes.NewAdmitNode()},
		{nodes.NodeVaultRetrieve, nodes.NewVaultRetrieveNode(b.deps)},
		{nodes.NodePriceTool, nodes.NewPriceToolNode(b.deps)},
		{nodes.NodeFinanceTool, nodes.NewFinanceToolNode(b.deps)},
		{nodes.NodeGenerate, nodes.NewGenerateNode(b.deps)},
		{nodes.NodeTrace, nodes.NewTraceNode(b.deps)},
	}
	for _, l := range lambdas {
		b.add(b.graph.AddLambdaNode(l.name, l.node, compose.WithNodeName(l.name)))
	}
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeIntake},
		{nodes.NodeIntake, nodes.NodeClassify},
		{nodes.NodeClassify, nodes.NodeAdmit},
		{nodes.NodeVaultRetrieve, nodes.NodeGenerate},
		{nodes.NodePriceTool, nodes.NodeGenerate},
		{nodes.NodeFinanceTool, nodes.NodeGenerate},
		{nodes.NodeGenerate, nodes.NodeTrace},
		{nodes.NodeTrace, compose.END},
	}
	for _, edge := range edges {
		b.add(b.graph.AddEdge(edge[0], edge[1]))
	}
}

// addBranches routes ADMIT to retrieval, a tool step or straight to generation
func (b *GraphBuilder) addBranches() {
	routeBranch := compose.NewGraphBranch(
		nodes.RouteCondition,
		map[string]bool{
			nodes.NodeVaultRetrieve: true,
			nodes.NodePriceTool:     true,
			nodes.NodeFinanceTool:   true,
			nodes.NodeGenerate:      true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAdmit, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		b.add(fmt.Errorf("error adding route branch: %w", err))
	}
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.ConversationState, *model.ConversationState], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxRunSteps), compose.WithGraphName("router"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
