package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/router/internal/core/error"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen  = 16 * 1024
	maxQuestionLen = 1024
	maxEntityLen   = 256
	maxErrSnippet  = 200
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type rawIntent struct {
	Route              string       `json:"route" validate:"required"`
	Confidence         float64      `json:"confidence" validate:"gte=0,lte=1"`
	ClarifyingQuestion string       `json:"clarifying_question" validate:"max=1024"`
	ExtractedEntities  *rawEntities `json:"extracted_entities"`
}

type rawEntities struct {
	Product  string     `json:"product"`
	Ticker   string     `json:"ticker"`
	Food     string     `json:"food"`
	Budget   *flexFloat `json:"budget"`
	Location string     `json:"location"`
}

// flexFloat accepts a JSON number or a numeric string ("20000", "₹20,000").
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("budget parse: %w", err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("budget parse: %w", err)
	}
	*f = flexFloat(v)
	return nil
}

// ParseIntent decodes the classifier's structured output into an IntentPrediction.
// Code fences and prose around the JSON object are tolerated.
func ParseIntent(content string) (pred *model.IntentPrediction, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("intent parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			pred = nil
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "intent_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("%w: invalid utf8", errx.ErrClassificationFailure)
	}

	obj, ok := extractObject(content)
	if !ok {
		return nil, fmt.Errorf("%w: no json object in %q", errx.ErrClassificationFailure, safeSnippet(content))
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", errx.ErrClassificationFailure, err)
	}
	if math.IsNaN(raw.Confidence) {
		return nil, fmt.Errorf("%w: confidence is NaN", errx.ErrClassificationFailure)
	}
	if err := validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errx.ErrClassificationFailure, err)
	}

	route, ok := model.ParseRoute(raw.Route)
	if !ok {
		return nil, fmt.Errorf("%w: unknown route %q", errx.ErrClassificationFailure, safeSnippet(raw.Route))
	}

	pred = &model.IntentPrediction{
		Route:              route,
		Confidence:         raw.Confidence,
		ClarifyingQuestion: clip(strings.TrimSpace(raw.ClarifyingQuestion), maxQuestionLen),
		ExtractedEntities:  raw.ExtractedEntities.toModel(),
	}
	return pred, nil
}

func (e *rawEntities) toModel() *model.IntentEntities {
	if e == nil {
		return nil
	}
	out := &model.IntentEntities{
		Product:  clip(strings.TrimSpace(e.Product), maxEntityLen),
		Ticker:   strings.ToUpper(clip(strings.TrimSpace(e.Ticker), maxEntityLen)),
		Food:     clip(strings.TrimSpace(e.Food), maxEntityLen),
		Location: clip(strings.TrimSpace(e.Location), maxEntityLen),
	}
	if e.Budget != nil {
		v := float64(*e.Budget)
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 {
			out.Budget = &v
		}
	}
	if *out == (model.IntentEntities{}) {
		return nil
	}
	return out
}

// extractObject returns the outermost {...} span of s.
func extractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// back off to a rune boundary
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return clip(s, maxErrSnippet) + "..."
}
