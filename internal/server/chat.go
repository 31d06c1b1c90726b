package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chative-core-poc-v1/router/internal/admission"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/internal/observability"
)

const defaultLocale = "en-IN"

type chatRequest struct {
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"query"`
	Locale    string `json:"locale"`
}

func (h *handler) chat(c *gin.Context) {
	var body chatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if body.Locale == "" {
		body.Locale = defaultLocale
	}

	tenantID := h.resolveTenant(c, body.TenantID)
	req := model.ConversationRequest{
		TenantID:  tenantID,
		UserID:    body.UserID,
		SessionID: body.SessionID,
		Query:     body.Query,
		Locale:    body.Locale,
	}
	reqID := c.GetString(ctxRequestID)
	cfg := h.deps.Tenants.Get(tenantID)

	if dec := h.deps.Admitter.Admit(c.Request.Context(), cfg, req.Query); !dec.Allow {
		observability.ObserveRejection(tenantID, string(dec.Code))
		resp := model.RefusedResponse(model.RouteClarify, dec.Reason)
		resp.Meta.UserID = req.UserID
		resp.Meta.SessionID = req.SessionID
		resp.Meta.RequestID = reqID
		status := http.StatusOK
		if dec.Code == admission.CodeRateLimited {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, resp)
		return
	}

	// An abandoned client does not cancel in-flight model or tool calls;
	// each of those carries its own timeout.
	ctx := graph.WithRequestID(context.WithoutCancel(c.Request.Context()), reqID)
	state, err := h.deps.Runner.Invoke(ctx, req, cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state.Response())
}
