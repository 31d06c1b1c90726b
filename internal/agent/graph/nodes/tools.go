package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/router/internal/agent/graph/classifier"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

const (
	defaultFinanceSource = "finance_server"

	topGainersUnavailable = "I cannot provide top gainers data at this time. " +
		"This feature requires a market-wide data source, which is not yet implemented. " +
		"Please ask about a specific stock ticker instead."
	tickerRequired = "I need a specific stock ticker to provide finance data. " +
		"Please specify a stock symbol (e.g., 'TCS', 'RELIANCE', 'INFY'). " +
		"For market-wide queries like 'top gainers', that feature is not yet available."
)

var errToolBlocked = errors.New("tool blocked for tenant")

// NewPriceToolNode calls the price comparison backend.
func NewPriceToolNode(d *Deps) *compose.Lambda {
	return lambda(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		if s.Tenant.BlocksTool(model.ToolPriceCompare) {
			s.ToolError = fmt.Sprintf("%s: %v", model.ToolPriceCompare, errToolBlocked)
			s.LogToolCall(model.ToolPriceCompare, model.ToolStatusBlocked, nil, nil)
			return s, nil
		}
		if d.Price == nil {
			s.ToolError = model.ToolPriceCompare + ": not configured"
			s.LogToolCall(model.ToolPriceCompare, model.ToolStatusUnavailable, nil, nil)
			return s, nil
		}

		res, err := d.Price.Compare(ctx, s.Request.Query, priceFilters(s.Intent))
		if err != nil {
			s.ToolError = err.Error()
			s.LogToolCall(model.ToolPriceCompare, model.ToolStatusError, err, nil)
			logx.Error().Err(err).
				Str("node", NodePriceTool).
				Str("request_id", s.Meta.RequestID).
				Msg("price comparison failed")
			return s, nil
		}

		s.Price = res
		seen := make(map[string]struct{}, len(res.Items))
		for _, item := range res.Items {
			if _, dup := seen[item.Source]; dup {
				continue
			}
			seen[item.Source] = struct{}{}
			s.AddCitation(model.Citation{Type: model.CitationTool, Ref: item.Source})
		}
		s.LogToolCall(model.ToolPriceCompare, model.ToolStatusOK, nil, map[string]any{"items": len(res.Items)})
		return s, nil
	})
}

func priceFilters(intent *model.IntentPrediction) map[string]any {
	filters := map[string]any{}
	if intent == nil || intent.ExtractedEntities == nil {
		return filters
	}
	e := intent.ExtractedEntities
	if e.Budget != nil {
		filters["max_price"] = *e.Budget
	}
	if e.Location != "" {
		filters["location"] = e.Location
	}
	if e.Product != "" {
		filters["product"] = e.Product
	}
	return filters
}

// NewFinanceToolNode runs the finance sub-classifier and the matching tool.
func NewFinanceToolNode(d *Deps) *compose.Lambda {
	return lambda(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		query := s.Request.Query
		s.Finance.Kind = classifier.ClassifyFinance(query)

		switch s.Finance.Kind {
		case model.FinanceGeneralKnowledge:
			s.Finance.UseLLMDirectly = true
			s.LogToolCall(model.ToolFinanceLLMDirect, model.ToolStatusSkipped, nil,
				map[string]any{"reason": "general knowledge or calculation query"})
		case model.FinanceMarketWide:
			topGainers(ctx, d, s, classifier.GainersLimit(query))
		default:
			var entities *model.IntentEntities
			if s.Intent != nil {
				entities = s.Intent.ExtractedEntities
			}
			ticker := classifier.ExtractTicker(query, entities)
			if ticker == "" {
				s.Refuse(model.RefusalTickerRequired, tickerRequired)
				s.LogToolCall(model.ToolFinanceBundle, model.ToolStatusError, errors.New("no ticker provided in query"), nil)
				return s, nil
			}
			bundle(ctx, d, s, ticker)
		}
		return s, nil
	})
}

func topGainers(ctx context.Context, d *Deps, s *model.ConversationState, limit int) {
	details := map[string]any{"limit": limit}
	if s.Tenant.BlocksTool(model.ToolFinanceTopGainers) {
		s.Refuse(model.RefusalToolUnavailable, topGainersUnavailable)
		s.LogToolCall(model.ToolFinanceTopGainers, model.ToolStatusBlocked, nil, details)
		return
	}
	if d.Finance == nil {
		s.Refuse(model.RefusalToolUnavailable, topGainersUnavailable)
		s.LogToolCall(model.ToolFinanceTopGainers, model.ToolStatusUnavailable, errors.New("finance backend not configured"), details)
		return
	}

	res, err := d.Finance.TopGainers(ctx, limit)
	if err != nil {
		s.ToolError = err.Error()
		s.Refuse(model.RefusalToolUnavailable, topGainersUnavailable)
		s.LogToolCall(model.ToolFinanceTopGainers, model.ToolStatusError, err, details)
		logx.Error().Err(err).Str("node", NodeFinanceTool).Str("request_id", s.Meta.RequestID).Msg("top gainers failed")
		return
	}
	if res == nil {
		s.Refuse(model.RefusalToolUnavailable, topGainersUnavailable)
		s.LogToolCall(model.ToolFinanceTopGainers, model.ToolStatusUnavailable, errors.New("feature not implemented"), details)
		return
	}

	s.Finance.TopGainers = res
	src := res.Source
	if src == "" {
		src = defaultFinanceSource
	}
	s.AddCitation(model.Citation{Type: model.CitationTool, Ref: src})
	details["stocks"] = len(res.Stocks)
	s.LogToolCall(model.ToolFinanceTopGainers, model.ToolStatusOK, nil, details)
}

func bundle(ctx context.Context, d *Deps, s *model.ConversationState, ticker string) {
	s.Finance.Ticker = ticker
	details := map[string]any{"ticker": ticker}
	if s.Tenant.BlocksTool(model.ToolFinanceBundle) {
		s.ToolError = fmt.Sprintf("%s: %v", model.ToolFinanceBundle, errToolBlocked)
		s.LogToolCall(model.ToolFinanceBundle, model.ToolStatusBlocked, nil, details)
		return
	}
	if d.Finance == nil {
		s.ToolError = model.ToolFinanceBundle + ": not configured"
		s.LogToolCall(model.ToolFinanceBundle, model.ToolStatusUnavailable, nil, details)
		return
	}

	b, err := d.Finance.Bundle(ctx, ticker)
	if err != nil {
		s.ToolError = err.Error()
		s.LogToolCall(model.ToolFinanceBundle, model.ToolStatusError, err, details)
		logx.Error().Err(err).
			Str("node", NodeFinanceTool).
			Str("request_id", s.Meta.RequestID).
			Str("ticker", ticker).
			Msg("finance bundle failed")
		return
	}

	s.Finance.Bundle = b
	src := b.Quote.Source
	if src == "" {
		src = defaultFinanceSource
	}
	s.AddCitation(model.Citation{Type: model.CitationTool, Ref: src})
	s.LogToolCall(model.ToolFinanceBundle, model.ToolStatusOK, nil, details)
}
