package tools

import (
	"context"
	"errors"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/pkg/httpx"
)

// PriceClient compares offers for a shopping query.
type PriceClient interface {
	Compare(ctx context.Context, query string, filters map[string]any) (*model.PriceComparison, error)
}

type compareRequest struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters"`
}

type HTTPPriceClient struct {
	c jsonClient
}

func NewHTTPPriceClient(baseURL string, exec *httpx.Executor) *HTTPPriceClient {
	return &HTTPPriceClient{c: newJSONClient(baseURL, exec)}
}

func (p *HTTPPriceClient) Compare(ctx context.Context, query string, filters map[string]any) (*model.PriceComparison, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	var out model.PriceComparison
	if err := p.c.post(ctx, "/compare", compareRequest{Query: query, Filters: filters}, &out); err != nil {
		return nil, err
	}
	for _, item := range out.Items {
		if item.Name == "" || item.Source == "" {
			return nil, errors.New("price comparison item missing name or source")
		}
	}
	return &out, nil
}
