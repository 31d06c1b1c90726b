package classifier

import (
	"context"
	"strings"
	"unicode"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
)

const heuristicConfidence = 0.4

var (
	financeKeywords = []string{"stock", "ticker", "market", "share", "finance", "nse", "bse", "nifty", "sensex", "dividend", "gainer", "equity", "portfolio", "invest"}
	priceKeywords   = []string{"price", "buy", "compare", "cost", "rs", "budget", "cheap", "deal", "discount"}
	dietKeywords    = []string{"diet", "eat", "eating", "food", "calorie", "protein", "paneer", "nutrition", "diabetic", "sugar", "meal"}
	dietPhrases     = []string{"good for me"}
)

// Heuristic is the deterministic keyword classifier. It never fails.
type Heuristic struct{}

func (Heuristic) Classify(_ context.Context, query, _ string) (*model.IntentPrediction, error) {
	return &model.IntentPrediction{
		Route:      HeuristicRoute(query),
		Confidence: heuristicConfidence,
		Method:     model.MethodHeuristic,
	}, nil
}

// HeuristicRoute maps query keywords to a route. Finance is checked first so
// "TCS stock price" is not taken for a shopping query.
func HeuristicRoute(query string) model.Route {
	tokens := tokenize(query)
	switch {
	case matchAny(tokens, financeKeywords):
		return model.RouteFinanceStock
	case matchAny(tokens, priceKeywords):
		return model.RoutePriceCompare
	case matchAny(tokens, dietKeywords) || containsPhrase(query, dietPhrases):
		return model.RouteDietNutrition
	default:
		return model.RouteGeneralQuery
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchAny matches whole tokens; keywords of four letters or more also match
// as a prefix ("stocks", "cheapest", "diabetics").
func matchAny(tokens, keywords []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if tok == kw || (len(kw) >= 4 && strings.HasPrefix(tok, kw)) {
				return true
			}
		}
	}
	return false
}

func containsPhrase(s string, phrases []string) bool {
	lower := strings.ToLower(s)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
