package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"

	"github.com/Chative-core-poc-v1/router/internal/admission"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph/classifier"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/router/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	"github.com/Chative-core-poc-v1/router/internal/core"
	"github.com/Chative-core-poc-v1/router/internal/llm"
	"github.com/Chative-core-poc-v1/router/internal/observability"
	"github.com/Chative-core-poc-v1/router/internal/retrieval"
	"github.com/Chative-core-poc-v1/router/internal/retry"
	"github.com/Chative-core-poc-v1/router/internal/server"
	"github.com/Chative-core-poc-v1/router/pkg/httpx"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/router/pkg/redis"
)

// AppConfig defines all configurable parameters of the router service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Server model.ServerConfig
	Redis  pkgredis.Config

	// LLM provider
	LLM       model.LLMConfig
	Intent    model.IntentModelConfig
	Response  model.ResponseModelConfig
	Embedding model.EmbeddingConfig
	Retry     model.RetryConfig

	// Retrieval and tools
	Retrieval model.RetrievalConfig
	Rerank    model.RerankConfig
	Vault     model.VaultConfig
	Tools     model.ToolsConfig

	TenantDefaults model.TenantDefaultsConfig
}

type vault struct {
	source  retrieval.Source
	writer  retrieval.Writer
	cleanup func()
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env, Level: cfg.LogLevel})
	if env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	genaiClient, err := llm.NewGenAIClient(ctx, llm.GeminiConfig{APIKey: cfg.LLM.APIKey, BaseURL: cfg.LLM.BaseURL})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	policy := retry.Policy{
		MaxRetries:    cfg.Retry.MaxRetries,
		InitialDelay:  cfg.Retry.InitialDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
		Classify:      llm.ClassifyError,
	}

	intentModel, err := llm.NewGeminiChatModel(ctx, genaiClient, llm.ChatModelConfig{
		Model:       cfg.Intent.Model,
		MaxTokens:   cfg.Intent.MaxTokens,
		Temperature: cfg.Intent.Temperature,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create intent model")
	}
	responseModel, err := llm.NewGeminiChatModel(ctx, genaiClient, llm.ChatModelConfig{
		Model:       cfg.Response.Model,
		MaxTokens:   cfg.Response.MaxTokens,
		Temperature: cfg.Response.Temperature,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create response model")
	}

	intentPolicy := policy
	intentPolicy.Name = "intent"
	responsePolicy := policy
	responsePolicy.Name = "response"
	intentLLM := llm.NewClient(intentModel, cfg.Intent.Model, cfg.LLM.Timeout, intentPolicy)
	responseLLM := llm.NewClient(responseModel, cfg.Response.Model, cfg.LLM.Timeout, responsePolicy)
	embedder := llm.NewGeminiEmbedder(genaiClient, cfg.Embedding.Model)

	limiter, rates := buildLimiter(ctx, cfg)

	v, err := buildVault(ctx, cfg.Vault)
	if err != nil {
		logx.Fatal().Err(err).Str("backend", cfg.Vault.Backend).Msg("Failed to initialise vault")
	}
	defer v.cleanup()

	var reranker retrieval.RerankClient
	if cfg.Rerank.Enabled {
		rr, err := retrieval.NewHTTPReranker(cfg.Rerank)
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to create reranker")
		}
		reranker = rr
	}
	retriever := retrieval.NewRetriever(v.source, embedder, reranker, retrieval.ConfigFrom(cfg.Retrieval, cfg.Rerank))
	ingestor := retrieval.NewIngestor(embedder, v.writer, cfg.Vault.ChunkSize, cfg.Vault.ChunkOverlap)

	toolHTTP := &http.Client{Timeout: cfg.Tools.Timeout}
	priceCfg := httpx.DefaultConfig("price_tool")
	priceCfg.MaxRetries = cfg.Tools.MaxRetries
	financeCfg := httpx.DefaultConfig("finance_tool")
	financeCfg.MaxRetries = cfg.Tools.MaxRetries

	runner, err := graph.NewRunner(ctx, &nodes.Deps{
		Classifier: classifier.WithFallback(classifier.NewLLMClassifier(intentLLM, cfg.Intent), classifier.Heuristic{}),
		Retriever:  retriever,
		TopK:       cfg.Retrieval.TopK,
		Price:      tools.NewHTTPPriceClient(cfg.Tools.PriceURL, httpx.NewExecutor(toolHTTP, priceCfg)),
		Finance:    tools.NewHTTPFinanceClient(cfg.Tools.FinanceURL, httpx.NewExecutor(toolHTTP, financeCfg)),
		Responder:  responseLLM,
		Response:   cfg.Response,
		Emitter:    observability.NewLogEmitter(),
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build routing graph")
	}

	engine, err := server.New(server.Deps{
		Tenants:       admission.NewTenantStore(cfg.TenantDefaults),
		Admitter:      admission.NewAdmitter(limiter),
		Rates:         rates,
		Runner:        runner,
		Retriever:     retriever,
		Ingestor:      ingestor,
		DefaultTenant: cfg.TenantDefaults.DefaultTenantID,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build HTTP server")
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: engine}
	go func() {
		logx.Info().Str("addr", cfg.Server.Addr).Str("env", env.String()).Msg("Router listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logx.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// buildLimiter picks the rate limit backend. Counters are only inspectable
// through the admin API for the in-memory limiter.
func buildLimiter(ctx context.Context, cfg AppConfig) (admission.Limiter, server.RateSnapshotter) {
	if cfg.TenantDefaults.RateLimitBackend == "redis" {
		if !cfg.Redis.Enabled() {
			logx.Fatal().Msg("RATE_LIMIT_BACKEND=redis requires REDIS_URL")
		}
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		logx.Info().Msg("Connected to Redis, using shared rate limiter")
		return admission.NewRedisLimiter(rdb), nil
	}
	mem := admission.NewMemoryLimiter()
	return mem, mem
}

func buildVault(ctx context.Context, cfg model.VaultConfig) (*vault, error) {
	switch cfg.Backend {
	case "pgvector":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("VAULT_DATABASE_URL is required for the pgvector backend")
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		idx, err := retrieval.NewPGIndex(db, cfg.Table)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := idx.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &vault{source: idx, writer: idx, cleanup: func() { _ = db.Close() }}, nil

	case "memory", "":
		store := retrieval.NewMemoryStore(cfg.IndexPath)
		if cfg.IndexPath == "" {
			logx.Warn().Msg("VAULT_INDEX_PATH not set, vault is in-memory only")
			return &vault{source: store, writer: store, cleanup: func() {}}, nil
		}
		reloader := retrieval.NewReloader(store, cfg.IndexPath, cfg.ReloadInterval)
		if err := reloader.Start(); err != nil {
			return nil, err
		}
		return &vault{source: store, writer: store, cleanup: func() {
			if err := reloader.Stop(); err != nil {
				logx.Error().Err(err).Msg("Failed to stop vault reloader")
			}
		}}, nil

	default:
		return nil, errors.New("unknown VAULT_BACKEND " + cfg.Backend)
	}
}
