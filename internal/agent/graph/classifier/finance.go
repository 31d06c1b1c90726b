package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
)

const defaultGainersLimit = 5

var (
	marketWidePatterns = compileAll(
		`top\s+\d+\s+gainers?`,
		`top\s+gainers?`,
		`top\s+\d+\s+losers?`,
		`top\s+losers?`,
		`market\s+leaders?`,
		`best\s+performing\s+stocks?`,
	)
	knowledgePatterns = compileAll(
		`what\s+is\s+(a\s+)?(p/e|pe|price.*earnings?|dividend|beta|roe|roce)`,
		`how\s+does\s+(the\s+)?(stock\s+)?market\s+work`,
		`explain\s+(p/e|pe|dividend|beta|roe|roce|stock\s+market)`,
		`difference\s+between\s+(nse|bse|nifty|sensex)`,
		`what\s+is\s+(nse|bse|nifty|sensex)`,
		`how\s+to\s+calculate\s+(return|profit|loss)`,
		`what\s+does\s+(p/e|pe|dividend|beta|roe|roce)\s+mean`,
	)
	calculationPatterns = compileAll(
		`calculate\s+(return|profit|loss|gain)`,
		`what\s+(is|would\s+be)\s+(my\s+)?(return|profit|loss)`,
		`if\s+i\s+(bought|purchased|invested)`,
		`how\s+much\s+(profit|loss|return)`,
	)
	topNPattern = regexp.MustCompile(`top\s+(\d+)`)
)

// tickerStopwords are uppercase-looking words that are never symbols.
var tickerStopwords = map[string]struct{}{
	"THE": {}, "AND": {}, "FOR": {}, "WHAT": {}, "ARE": {}, "HOW": {}, "WHY": {}, "SHOW": {},
	"STOCK": {}, "STOCKS": {}, "PRICE": {}, "SHARE": {}, "SHARES": {}, "TODAY": {}, "NEWS": {},
	"ABOUT": {}, "GIVE": {}, "TELL": {}, "WITH": {}, "FROM": {}, "THIS": {}, "THAT": {}, "DOING": {},
	"QUOTE": {}, "CAN": {}, "YOU": {}, "CHART": {}, "TREND": {},
	"HAS": {}, "DOES": {}, "BUY": {}, "SELL": {}, "HOLD": {}, "TOP": {},
	"WEEK": {}, "MONTH": {}, "YEAR": {}, "RATE": {}, "VALUE": {}, "DATA": {},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func matchesAny(s string, res []*regexp.Regexp) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// ClassifyFinance picks the finance sub-route. Knowledge and calculation
// questions are answered without tools; market-wide ones need the aggregate
// endpoint; everything else is treated as a single-ticker lookup.
func ClassifyFinance(query string) model.FinanceQueryKind {
	lower := strings.ToLower(query)
	switch {
	case matchesAny(lower, knowledgePatterns), matchesAny(lower, calculationPatterns):
		return model.FinanceGeneralKnowledge
	case matchesAny(lower, marketWidePatterns):
		return model.FinanceMarketWide
	default:
		return model.FinanceSingleTicker
	}
}

// GainersLimit reads N from "top N ...", defaulting to 5.
func GainersLimit(query string) int {
	m := topNPattern.FindStringSubmatch(strings.ToLower(query))
	if len(m) < 2 {
		return defaultGainersLimit
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return defaultGainersLimit
	}
	return n
}

// ExtractTicker prefers the classifier's entity, then a 3-5 letter token the
// user already wrote in capitals, then any 3-5 letter token that is not a
// common word. This is a placeholder heuristic and misfires on plain words.
func ExtractTicker(query string, entities *model.IntentEntities) string {
	if entities != nil {
		if t := strings.ToUpper(strings.TrimSpace(entities.Ticker)); t != "" {
			return t
		}
	}

	words := strings.Fields(query)
	var fallback string
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
		if len(w) < 3 || len(w) > 5 || !isASCIIAlpha(w) {
			continue
		}
		upper := strings.ToUpper(w)
		if _, stop := tickerStopwords[upper]; stop {
			continue
		}
		if w == upper {
			return upper
		}
		if fallback == "" {
			fallback = upper
		}
	}
	return fallback
}

func isASCIIAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
