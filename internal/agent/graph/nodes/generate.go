package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/router/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/internal/llm"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// User-facing texts. Collaborator error strings never reach the answer.
const (
	clarifyFallback = "Could you provide more specifics? What would you like help with? " +
		"(e.g. price comparison, stocks, or diet/nutrition)"
	generalCaution = "This is general information only. Not financial, medical, or purchasing advice.\n\n"

	dietRetrievalFailed = "I encountered an error retrieving your medical information. " +
		"Please try again or contact support."
	dietLowConfidence = "I couldn't find highly relevant information in your medical records for this query. " +
		"The retrieved information may not be accurate. Please consult your doctor for personalized advice."
	dietNoChunks = "I couldn't retrieve relevant information from your medical records. " +
		"Please ensure your vault has been ingested, or try rephrasing your question."
	dietCaution = "\n\nCaution: For personal medical advice, consult your doctor."

	priceUnavailable = "Price comparison unavailable right now."

	financeTransparency = "I don't have access to real-time market data or specific tools for this query, " +
		"but I can provide general information based on finance knowledge:\n\n"
	financeNoQuote = "I couldn't fetch stock data for this ticker. " +
		"The finance data service is not available in this environment. " +
		"You can ask general finance questions instead."
	notFinancialAdvice = "Not financial advice."

	quotaExhausted = "I'm currently experiencing rate limit issues with the AI service. " +
		"This may be due to billing/quota limits. Please check your AI provider account settings " +
		"or try again in a few minutes."
	transientRateLimit = "Rate limit exceeded. Please try again in a moment."
	generationFailed   = "Response generation failed; please try again."

	historyItems = 5
	newsItems    = 5
)

// NewGenerateNode assembles the route-specific answer.
func NewGenerateNode(d *Deps) *compose.Lambda {
	g := &generator{deps: d}
	return lambda(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		s.Answer = g.answer(ctx, s)
		return s, nil
	})
}

type generator struct {
	deps *Deps
}

func (g *generator) answer(ctx context.Context, s *model.ConversationState) string {
	// refusals from RBAC or a tool step are answered verbatim without a model call
	if s.Refusal != "" {
		return s.Refusal
	}

	switch s.Route {
	case model.RouteClarify:
		return clarifyingQuestion(s.Intent)
	case model.RouteGeneralQuery:
		if s.Intent != nil && s.Intent.Route == model.RouteClarify && s.Intent.ClarifyingQuestion != "" {
			return s.Intent.ClarifyingQuestion
		}
		out, err := g.complete(ctx, s, prompts.General, map[string]any{"Query": s.Request.Query})
		if err != nil {
			return generalCaution + g.failure(s, err)
		}
		return generalCaution + out
	case model.RouteDietNutrition:
		return g.diet(ctx, s)
	case model.RoutePriceCompare:
		out, err := g.complete(ctx, s, prompts.Price, map[string]any{
			"Query":   s.Request.Query,
			"Context": renderPrice(s.Price),
		})
		if err != nil {
			return g.failure(s, err)
		}
		return out
	case model.RouteFinanceStock:
		return g.finance(ctx, s)
	default:
		return clarifyingQuestion(nil)
	}
}

func clarifyingQuestion(intent *model.IntentPrediction) string {
	if intent != nil && intent.ClarifyingQuestion != "" {
		return intent.ClarifyingQuestion
	}
	return clarifyFallback
}

func (g *generator) diet(ctx context.Context, s *model.ConversationState) string {
	if s.RetrievalError != "" {
		return dietRetrievalFailed
	}
	minConf := 0.0
	if g.deps.Retriever != nil {
		minConf = g.deps.Retriever.MinConfidence()
	}
	if s.RetrievalConfidenceAvg != nil && *s.RetrievalConfidenceAvg < minConf {
		logx.Warn().
			Str("node", NodeGenerate).
			Str("request_id", s.Meta.RequestID).
			Float64("avg_confidence", *s.RetrievalConfidenceAvg).
			Float64("min_confidence", minConf).
			Msg("low retrieval confidence")
		return dietLowConfidence
	}
	if len(s.VaultChunks) == 0 {
		return dietNoChunks
	}

	texts := make([]string, 0, len(s.VaultChunks))
	for _, c := range s.VaultChunks {
		texts = append(texts, c.Text)
	}
	out, err := g.complete(ctx, s, prompts.Diet, map[string]any{
		"Query":   s.Request.Query,
		"Context": strings.Join(texts, "\n---\n"),
	})
	if err != nil {
		return g.failure(s, err)
	}
	return out + dietCaution
}

func (g *generator) finance(ctx context.Context, s *model.ConversationState) string {
	f := s.Finance
	switch {
	case f.UseLLMDirectly:
		out, err := g.complete(ctx, s, prompts.FinanceGeneral, map[string]any{"Query": s.Request.Query})
		if err != nil {
			return g.failure(s, err)
		}
		return financeTransparency + out + "\n\n" + notFinancialAdvice
	case f.TopGainers != nil:
		return renderTopGainers(f.TopGainers)
	case f.Bundle == nil || f.Bundle.Quote == nil:
		return financeNoQuote + "\n\n" + notFinancialAdvice
	}

	q := f.Bundle.Quote
	out, err := g.complete(ctx, s, prompts.FinanceTicker, map[string]any{
		"Query":   s.Request.Query,
		"Ticker":  q.Ticker,
		"Quote":   fmt.Sprintf("%.2f %s (%+.2f%%) source=%s", q.Price, q.Currency, q.ChangePct, q.Source),
		"History": renderHistory(f.Bundle.History),
		"News":    renderNews(f.Bundle.News),
	})
	if err != nil {
		return g.failure(s, err)
	}
	return out + "\n" + notFinancialAdvice
}

func (g *generator) complete(ctx context.Context, s *model.ConversationState, name prompts.Name, vars map[string]any) (string, error) {
	if g.deps.Responder == nil {
		return "", errors.New("no response model configured")
	}
	msgs, err := prompts.Render(ctx, name, vars)
	if err != nil {
		return "", err
	}
	opts := []llm.Option{llm.WithTemperature(g.deps.Response.Temperature)}
	if g.deps.Response.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(g.deps.Response.MaxTokens))
	}
	out, err := g.deps.Responder.Complete(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	s.AddUsage(out.Model, out.Usage)
	return strings.TrimSpace(out.Content), nil
}

// failure records the error on the state and picks the user-facing message.
func (g *generator) failure(s *model.ConversationState, err error) string {
	evt := logx.Error().Err(err).
		Str("node", NodeGenerate).
		Str("request_id", s.Meta.RequestID).
		Str("route", s.Route.String())

	var rl *llm.RateLimitError
	if errors.As(err, &rl) {
		s.GenerationError = "rate_limit: " + err.Error()
		evt.Bool("quota", rl.Quota).Msg("generation rate limited")
		if rl.Quota {
			return quotaExhausted
		}
		return transientRateLimit
	}
	s.GenerationError = err.Error()
	evt.Msg("generation failed")
	return generationFailed
}

func renderPrice(res *model.PriceComparison) string {
	if res == nil {
		return priceUnavailable
	}
	var b strings.Builder
	for _, item := range res.Items {
		fmt.Fprintf(&b, "%s: %v %s at %s", item.Name, item.Price, item.Currency, item.Vendor)
		if item.Location != "" {
			fmt.Fprintf(&b, " (%s)", item.Location)
		}
		fmt.Fprintf(&b, " source=%s\n", item.Source)
	}
	fmt.Fprintf(&b, "Summary: %s", res.Summary)
	return b.String()
}

func renderHistory(history []model.Candle) string {
	if len(history) == 0 {
		return "No historical data available"
	}
	if len(history) > historyItems {
		history = history[:historyItems]
	}
	parts := make([]string, 0, len(history))
	for _, c := range history {
		parts = append(parts, fmt.Sprintf("%s: close %v", c.Date, c.Close))
	}
	return strings.Join(parts, "; ")
}

func renderNews(news []model.NewsItem) string {
	if len(news) == 0 {
		return "No recent news"
	}
	if len(news) > newsItems {
		news = news[:newsItems]
	}
	var b strings.Builder
	for _, n := range news {
		fmt.Fprintf(&b, "- %s (%s) %s\n", n.Title, n.Source, n.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTopGainers(g *model.TopGainers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Top %d Gainers:\n\n", len(g.Stocks))
	for i, st := range g.Stocks {
		name := st.Name
		if name == "" {
			name = st.Ticker
		}
		fmt.Fprintf(&b, "%d. %s (%s): ₹%.2f (%+.2f%%)\n", i+1, name, st.Ticker, st.Price, st.ChangePct)
	}
	src := g.Source
	if src == "" {
		src = defaultFinanceSource
	}
	fmt.Fprintf(&b, "\nSource: %s\n%s", src, notFinancialAdvice)
	return b.String()
}
