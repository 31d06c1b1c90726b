package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/pkg/httpx"
)

// RerankClient scores (query, document) pairs for relevance.
type RerankClient interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error)
}

// RerankResult is the relevance score for documents[Index].
type RerankResult struct {
	Index          int
	RelevanceScore float64
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// HTTPReranker calls a hosted cross-encoder. Cohere v2, Jina and generic
// /rerank endpoints share the same request and response shape.
type HTTPReranker struct {
	exec     *httpx.Executor
	provider string
	model    string
	apiKey   string
	endpoint string
}

func NewHTTPReranker(cfg model.RerankConfig) (*HTTPReranker, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		return nil, errors.New("reranker provider is required")
	}

	apiURL := strings.TrimRight(cfg.APIURL, "/")
	switch provider {
	case "cohere":
		if apiURL == "" {
			apiURL = "https://api.cohere.com/v2"
		}
	case "jina":
		if apiURL == "" {
			apiURL = "https://api.jina.ai/v1"
		}
	case "generic":
		if apiURL == "" {
			return nil, errors.New("RERANK_API_URL is required for generic provider")
		}
	default:
		return nil, fmt.Errorf("unknown reranker provider %q", provider)
	}

	execCfg := httpx.DefaultConfig("reranker")
	execCfg.MaxRetries = 1
	return &HTTPReranker{
		exec:     httpx.NewExecutor(&http.Client{Timeout: 10 * time.Second}, execCfg),
		provider: provider,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		endpoint: apiURL + "/rerank",
	}, nil
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(rerankRequest{Model: r.model, Query: query, Documents: documents})
	if err != nil {
		return nil, fmt.Errorf("%s rerank: marshal: %w", r.provider, err)
	}

	resp, err := r.exec.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if r.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s rerank: %w", r.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s rerank: read: %w", r.provider, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s rerank: unexpected status %s: %s", r.provider, resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded rerankResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%s rerank: decode: %w", r.provider, err)
	}
	results := make([]RerankResult, len(decoded.Results))
	for i, res := range decoded.Results {
		results[i] = RerankResult{Index: res.Index, RelevanceScore: res.RelevanceScore}
	}
	return results, nil
}
