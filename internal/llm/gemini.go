package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// GeminiConfig holds the provider settings shared by chat and embedding.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
}

// NewGenAIClient creates the shared Gemini API client.
func NewGenAIClient(ctx context.Context, cfg GeminiConfig) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// ChatModelConfig describes one Gemini chat model.
type ChatModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewGeminiChatModel creates an eino chat model backed by client.
func NewGeminiChatModel(ctx context.Context, client *genai.Client, cfg ChatModelConfig) (*gemini.ChatModel, error) {
	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Str("model", cfg.Model).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model %s: %w", cfg.Model, err)
	}
	return cm, nil
}
