package nodes

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/router/internal/agent/graph/classifier"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// NewClassifyNode assigns the route. A CLARIFY prediction is answered on the
// GENERAL_QUERY path; only a blank query keeps the CLARIFY route.
func NewClassifyNode(d *Deps) *compose.Lambda {
	return lambda(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		query := strings.TrimSpace(s.Request.Query)
		if query == "" {
			s.Intent = &model.IntentPrediction{Route: model.RouteClarify, Method: model.MethodHeuristic}
			s.Route = model.RouteClarify
			s.LogToolCall(model.ToolIntentClassifier, model.ToolStatusSkipped, nil, map[string]any{"reason": "empty query"})
			return s, nil
		}

		pred, err := d.Classifier.Classify(ctx, query, s.Request.Locale)
		if err != nil || pred == nil {
			if err == nil {
				err = errors.New("classifier returned no prediction")
			}
			fb, _ := classifier.Heuristic{}.Classify(ctx, query, s.Request.Locale)
			fb.FallbackReason = err.Error()
			pred = fb
		}

		s.Intent = pred
		s.AddUsage(pred.Model, pred.Usage)
		s.Route = pred.Route
		if s.Route == model.RouteClarify {
			s.Route = model.RouteGeneralQuery
		}

		details := map[string]any{
			"route":      pred.Route.String(),
			"confidence": pred.Confidence,
			"method":     pred.Method,
		}
		if pred.FallbackReason != "" {
			s.ClassifierError = pred.FallbackReason
			s.LogToolCall(model.ToolIntentClassifier, model.ToolStatusFallback, errors.New(pred.FallbackReason), details)
		} else {
			s.LogToolCall(model.ToolIntentClassifier, model.ToolStatusOK, nil, details)
		}

		logx.Debug().
			Str("node", NodeClassify).
			Str("request_id", s.Meta.RequestID).
			Str("route", s.Route.String()).
			Str("method", pred.Method).
			Float64("confidence", pred.Confidence).
			Msg("query classified")
		return s, nil
	})
}
