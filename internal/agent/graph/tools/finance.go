package tools

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/pkg/httpx"
)

const (
	defaultPeriod    = "1mo"
	defaultNewsLimit = 5
)

// FinanceClient fetches single-ticker bundles and market-wide gainers.
type FinanceClient interface {
	Bundle(ctx context.Context, ticker string) (*model.FinanceBundle, error)
	// TopGainers returns nil, nil when the backend does not implement it.
	TopGainers(ctx context.Context, limit int) (*model.TopGainers, error)
}

type bundleRequest struct {
	Ticker    string `json:"ticker"`
	Period    string `json:"period"`
	NewsLimit int    `json:"news_limit"`
}

type topGainersRequest struct {
	Limit int `json:"limit"`
}

type HTTPFinanceClient struct {
	c jsonClient
}

func NewHTTPFinanceClient(baseURL string, exec *httpx.Executor) *HTTPFinanceClient {
	return &HTTPFinanceClient{c: newJSONClient(baseURL, exec)}
}

func (f *HTTPFinanceClient) Bundle(ctx context.Context, ticker string) (*model.FinanceBundle, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, errors.New("ticker is required")
	}
	var out model.FinanceBundle
	req := bundleRequest{Ticker: ticker, Period: defaultPeriod, NewsLimit: defaultNewsLimit}
	if err := f.c.post(ctx, "/bundle", req, &out); err != nil {
		return nil, err
	}
	if out.Quote == nil || out.Quote.Ticker == "" {
		return nil, errors.New("finance bundle has no quote")
	}
	return &out, nil
}

func (f *HTTPFinanceClient) TopGainers(ctx context.Context, limit int) (*model.TopGainers, error) {
	if limit <= 0 {
		limit = 5
	}
	var out model.TopGainers
	err := f.c.post(ctx, "/top-gainers", topGainersRequest{Limit: limit}, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotImplemented {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
