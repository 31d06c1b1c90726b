package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// NewIntakeNode seeds request identity and the start timestamp.
func NewIntakeNode(d *Deps) *compose.Lambda {
	return lambda(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		s.Meta.StartedAt = d.now()
		s.Meta.UserID = s.Request.UserID
		s.Meta.SessionID = s.Request.SessionID
		if s.Meta.RequestID = requestIDFrom(ctx); s.Meta.RequestID == "" {
			s.Meta.RequestID = uuid.NewString()
		}

		logx.Debug().
			Str("node", NodeIntake).
			Str("request_id", s.Meta.RequestID).
			Str("tenant_id", s.Request.TenantID).
			Str("user_id", s.Meta.UserID).
			Str("session_id", s.Meta.SessionID).
			Msg("request accepted")
		return s, nil
	})
}
