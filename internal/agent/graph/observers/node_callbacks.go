package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

type nodeStartKey struct{}

// NewNodeCallbacks logs each lambda node with its duration.
func NewNodeCallbacks() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			if !isNode(info) {
				return ctx
			}
			return context.WithValue(ctx, nodeStartKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			if !isNode(info) {
				return ctx
			}
			evt := logx.Debug().Str("component", "graph").Str("node", info.Name)
			if started, ok := ctx.Value(nodeStartKey{}).(time.Time); ok {
				evt = evt.Dur("elapsed", time.Since(started))
			}
			evt.Msg("node done")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			if info == nil {
				return ctx
			}
			logx.Error().Err(err).Str("component", "graph").Str("node", info.Name).Msg("node failed")
			return ctx
		}).
		Build()
}

func isNode(info *einocb.RunInfo) bool {
	return info != nil && info.Component == compose.ComponentOfLambda
}
