package nodes

import (
	"context"
	"fmt"
	"math"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// NewVaultRetrieveNode fetches the requesting user's vault chunks.
func NewVaultRetrieveNode(d *Deps) *compose.Lambda {
	return lambda(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		if s.Tenant.BlocksTool(model.ToolVaultRetrieve) {
			s.LogToolCall(model.ToolVaultRetrieve, model.ToolStatusBlocked, nil, nil)
			return s, nil
		}
		if d.Retriever == nil {
			s.LogToolCall(model.ToolVaultRetrieve, model.ToolStatusSkipped, nil, map[string]any{"reason": "no vault configured"})
			return s, nil
		}

		res, err := d.Retriever.Retrieve(ctx, s.Request.TenantID, s.Request.UserID, s.Request.Query, d.TopK)
		if err != nil {
			s.RetrievalError = err.Error()
			s.LogToolCall(model.ToolVaultRetrieve, model.ToolStatusError, err, nil)
			logx.Error().Err(err).
				Str("node", NodeVaultRetrieve).
				Str("request_id", s.Meta.RequestID).
				Str("tenant_id", s.Request.TenantID).
				Str("user_id", s.Request.UserID).
				Msg("vault retrieval failed")
			return s, nil
		}

		s.VaultChunks = res.Chunks
		s.RetrievalConfidenceAvg = res.AvgConfidence
		s.RetrievalMethod = res.Method
		for _, c := range res.Chunks {
			s.AddCitation(model.Citation{
				Type:       model.CitationUserVault,
				Ref:        fmt.Sprintf("chunk:%s:%s", c.UserID, c.ChunkID),
				Confidence: round3(c.ConfidenceScore),
				Method:     c.RetrievalMethod,
			})
		}

		details := map[string]any{"chunks": len(res.Chunks), "method": res.Method}
		if res.AvgConfidence != nil {
			details["avg_confidence"] = *round3(res.AvgConfidence)
		}
		s.LogToolCall(model.ToolVaultRetrieve, model.ToolStatusOK, nil, details)
		return s, nil
	})
}

func round3(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*1000) / 1000
	return &r
}
