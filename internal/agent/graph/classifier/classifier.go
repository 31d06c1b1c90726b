// Package classifier assigns a route to a query. The LLM-backed classifier is
// wrapped by a fallback combinator that hands failures to a keyword heuristic.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/Chative-core-poc-v1/router/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/router/internal/core/error"
	"github.com/Chative-core-poc-v1/router/internal/llm"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// Classifier predicts the route of a query.
type Classifier interface {
	Classify(ctx context.Context, query, locale string) (*model.IntentPrediction, error)
}

// LLMClassifier asks the intent model for a structured prediction.
type LLMClassifier struct {
	llm         llm.Completer
	maxTokens   int
	temperature float32
}

func NewLLMClassifier(c llm.Completer, cfg model.IntentModelConfig) *LLMClassifier {
	return &LLMClassifier{llm: c, maxTokens: cfg.MaxTokens, temperature: cfg.Temperature}
}

func (c *LLMClassifier) Classify(ctx context.Context, query, locale string) (*model.IntentPrediction, error) {
	msgs, err := prompts.RenderIntent(ctx, query, locale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errx.ErrClassificationFailure, err)
	}

	opts := []llm.Option{llm.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(c.maxTokens))
	}
	out, err := c.llm.Complete(ctx, msgs, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errx.ErrClassificationFailure, err)
	}

	pred, err := parsers.ParseIntent(out.Content)
	if err != nil {
		return nil, err
	}
	pred.Method = model.MethodLLM
	pred.Model = out.Model
	pred.Usage = out.Usage
	return pred, nil
}

// Fallback answers with secondary whenever primary fails.
type Fallback struct {
	primary   Classifier
	secondary Classifier
}

func WithFallback(primary, secondary Classifier) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Classify(ctx context.Context, query, locale string) (*model.IntentPrediction, error) {
	pred, err := f.primary.Classify(ctx, query, locale)
	if err == nil && pred != nil {
		return pred, nil
	}
	if err == nil {
		err = errors.New("classifier returned no prediction")
	}

	var rl *llm.RateLimitError
	evt := logx.Warn()
	if errors.As(err, &rl) {
		evt = logx.Error().Bool("quota", rl.Quota)
	}
	evt.Err(err).Str("component", "classifier").Msg("primary classifier failed, using fallback")

	fb, ferr := f.secondary.Classify(ctx, query, locale)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	fb.FallbackReason = err.Error()
	return fb, nil
}
