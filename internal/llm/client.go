// Package llm adapts eino chat models into the completion collaborator used by
// classification and generation, adding retry and per-call timeouts.
package llm

import (
	"context"
	"fmt"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/router/internal/retry"
)

// Completion is the text and usage of one model call.
type Completion struct {
	Content string
	Model   string
	Usage   *schema.TokenUsage
}

// Completer is the completion collaborator.
type Completer interface {
	Complete(ctx context.Context, messages []*schema.Message, opts ...Option) (*Completion, error)
	ModelName() string
}

type options struct {
	maxTokens   *int
	temperature *float32
}

// Option tunes a single Complete call.
type Option func(*options)

func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = &n }
}

func WithTemperature(t float32) Option {
	return func(o *options) { o.temperature = &t }
}

// Client wraps an eino BaseChatModel.
type Client struct {
	chat    einomodel.BaseChatModel
	name    string
	timeout time.Duration
	policy  retry.Policy
}

// NewClient builds a Client. A zero timeout disables the per-attempt deadline.
func NewClient(chat einomodel.BaseChatModel, modelName string, timeout time.Duration, policy retry.Policy) *Client {
	if policy.Classify == nil {
		policy.Classify = ClassifyError
	}
	if policy.Name == "" {
		policy.Name = "llm:" + modelName
	}
	return &Client{chat: chat, name: modelName, timeout: timeout, policy: policy}
}

func (c *Client) ModelName() string {
	return c.name
}

// Complete calls the model through the retry wrapper. Rate-limit failures are
// surfaced as *RateLimitError after retries are exhausted.
func (c *Client) Complete(ctx context.Context, messages []*schema.Message, opts ...Option) (*Completion, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	var modelOpts []einomodel.Option
	if o.maxTokens != nil {
		modelOpts = append(modelOpts, einomodel.WithMaxTokens(*o.maxTokens))
	}
	if o.temperature != nil {
		modelOpts = append(modelOpts, einomodel.WithTemperature(*o.temperature))
	}

	ctx = einocb.ReuseHandlers(ctx, &einocb.RunInfo{
		Name:      c.name,
		Type:      "Gemini",
		Component: components.ComponentOfChatModel,
	})

	msg, err := retry.Do(ctx, c.policy, func(ctx context.Context) (*schema.Message, error) {
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		return c.chat.Generate(callCtx, messages, modelOpts...)
	})
	if err != nil {
		switch ClassifyError(err) {
		case retry.QuotaExhausted:
			return nil, &RateLimitError{Quota: true, Err: err}
		case retry.RateLimited:
			return nil, &RateLimitError{Err: err}
		}
		return nil, fmt.Errorf("generate with %s: %w", c.name, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("generate with %s: empty message", c.name)
	}

	out := &Completion{Content: msg.Content, Model: c.name}
	if msg.ResponseMeta != nil {
		out.Usage = msg.ResponseMeta.Usage
	}
	return out, nil
}
