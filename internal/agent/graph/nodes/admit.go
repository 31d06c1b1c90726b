package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/router/internal/admission"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// NewAdmitNode applies route RBAC against the tenant snapshot taken at intake.
func NewAdmitNode() *compose.Lambda {
	return lambda(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		dec := admission.CheckRoute(s.Tenant, s.Route)
		if !dec.Allow {
			s.Refuse(string(dec.Code), dec.Reason)
			logx.Warn().
				Str("node", NodeAdmit).
				Str("request_id", s.Meta.RequestID).
				Str("tenant_id", s.Tenant.TenantID).
				Str("route", s.Route.String()).
				Msg("route not allowed")
		}
		return s, nil
	})
}

// RouteCondition picks the step after ADMIT.
func RouteCondition(_ context.Context, s *model.ConversationState) (string, error) {
	if s.Refusal != "" {
		return NodeGenerate, nil
	}
	switch s.Route {
	case model.RouteDietNutrition:
		return NodeVaultRetrieve, nil
	case model.RoutePriceCompare:
		return NodePriceTool, nil
	case model.RouteFinanceStock:
		return NodeFinanceTool, nil
	default:
		return NodeGenerate, nil
	}
}
