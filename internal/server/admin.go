package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/internal/retrieval"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

type ingestRequest struct {
	TenantID  string               `json:"tenant_id" binding:"required"`
	UserID    string               `json:"user_id" binding:"required"`
	Documents []retrieval.Document `json:"documents" binding:"required,min=1,dive"`
}

type ingestResponse struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Chunks   int    `json:"chunks"`
}

type vaultDebugResponse struct {
	TenantID      string             `json:"tenant_id"`
	UserID        string             `json:"user_id"`
	Method        string             `json:"method,omitempty"`
	AvgConfidence *float64           `json:"avg_confidence"`
	Chunks        []model.VaultChunk `json:"chunks"`
}

func (h *handler) getTenantConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Tenants.Get(c.Param("tenant_id")))
}

func (h *handler) putTenantConfig(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	// omitted fields keep the tenant defaults; an explicit 0 ceiling stays 0
	cfg := h.deps.Tenants.Defaults(tenantID)
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant config payload"})
		return
	}
	// the path names the tenant; a body tenant_id is ignored
	cfg.TenantID = tenantID
	if cfg.BlockedTools == nil {
		cfg.BlockedTools = []string{}
	}
	if cfg.SensitivePromptPatterns == nil {
		cfg.SensitivePromptPatterns = []string{}
	}
	if cfg.RefusalRules == nil {
		cfg.RefusalRules = []model.RefusalRule{}
	}
	for i, r := range cfg.AllowedRoutes {
		if parsed, ok := model.ParseRoute(string(r)); ok {
			cfg.AllowedRoutes[i] = parsed
		}
	}

	stored, err := h.deps.Tenants.Put(cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	logx.Info().Str("tenant_id", stored.TenantID).Msg("tenant config updated")
	c.JSON(http.StatusOK, stored)
}

func (h *handler) getRateLimit(c *gin.Context) {
	if h.deps.Rates == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "rate limit counters are not exposed by this backend"})
		return
	}
	snap, ok := h.deps.Rates.Snapshot(c.Param("tenant_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no requests seen for tenant"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) ingestVault(c *gin.Context) {
	if h.deps.Ingestor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vault ingest is not configured"})
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ingest payload"})
		return
	}

	n, err := h.deps.Ingestor.Ingest(c.Request.Context(), req.TenantID, req.UserID, req.Documents)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingestResponse{TenantID: req.TenantID, UserID: req.UserID, Chunks: n})
}

func (h *handler) debugVault(c *gin.Context) {
	if h.deps.Retriever == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vault retrieval is not configured"})
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	tenantID := h.resolveTenant(c, "")
	userID := c.Param("user_id")

	res, err := h.deps.Retriever.Retrieve(c.Request.Context(), tenantID, userID, query, 0)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vaultDebugResponse{
		TenantID:      tenantID,
		UserID:        userID,
		Method:        res.Method,
		AvgConfidence: res.AvgConfidence,
		Chunks:        res.Chunks,
	})
}
