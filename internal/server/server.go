// Package server exposes the router over HTTP with gin.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Chative-core-poc-v1/router/internal/admission"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/router/internal/core/error"
	"github.com/Chative-core-poc-v1/router/internal/retrieval"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

const (
	headerTenantID  = "X-Tenant-Id"
	headerRequestID = "X-Request-Id"
)

// RateSnapshotter exposes current limiter counters. Only the in-memory
// limiter implements it.
type RateSnapshotter interface {
	Snapshot(tenantID string) (model.TenantRateLimit, bool)
}

// Deps are the collaborators behind the HTTP handlers.
type Deps struct {
	Tenants       *admission.TenantStore
	Admitter      *admission.Admitter
	Rates         RateSnapshotter
	Runner        graph.Runner
	Retriever     nodes.VaultRetriever
	Ingestor      *retrieval.Ingestor
	DefaultTenant string
}

type handler struct {
	deps Deps
}

// New builds the gin engine with every route registered.
func New(deps Deps) (*gin.Engine, error) {
	if deps.Tenants == nil || deps.Admitter == nil || deps.Runner == nil {
		return nil, errors.New("tenants, admitter and runner are required")
	}
	if deps.DefaultTenant == "" {
		deps.DefaultTenant = "t1"
	}
	h := &handler{deps: deps}

	r := gin.New()
	r.Use(requestID(), accessLog(), recovery())

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/chat", h.chat)

	admin := r.Group("/admin")
	admin.GET("/tenants/:tenant_id/config", h.getTenantConfig)
	admin.PUT("/tenants/:tenant_id/config", h.putTenantConfig)
	admin.GET("/tenants/:tenant_id/ratelimit", h.getRateLimit)
	admin.POST("/vault/ingest", h.ingestVault)

	r.GET("/debug/vault/:user_id", h.debugVault)
	return r, nil
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// resolveTenant prefers the header, then the payload, then the default.
func (h *handler) resolveTenant(c *gin.Context, payload string) string {
	if t := c.GetHeader(headerTenantID); t != "" {
		return t
	}
	if payload != "" {
		return payload
	}
	return h.deps.DefaultTenant
}

// writeError answers with the error's safe status and message. Server-side
// faults are logged with the request id.
func writeError(c *gin.Context, err error) {
	status, msg := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("request_id", c.GetString(ctxRequestID)).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}
