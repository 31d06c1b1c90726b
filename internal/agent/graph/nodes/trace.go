package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/internal/observability"
)

// NewTraceNode finalizes latency and hands the request trace to the emitter.
func NewTraceNode(d *Deps) *compose.Lambda {
	return lambda(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		if !s.Meta.StartedAt.IsZero() {
			s.Meta.LatencyMS = d.now().Sub(s.Meta.StartedAt).Milliseconds()
		}
		if d.Emitter != nil {
			d.Emitter.Emit(ctx, observability.RecordFromState(s))
		}
		return s, nil
	})
}
