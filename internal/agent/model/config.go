package model

import "time"

// ================ Config ================

type IntentModelConfig struct {
	Model       string  `envconfig:"INTENT_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"INTENT_MAX_TOKENS" default:"256"`
	Temperature float32 `envconfig:"INTENT_TEMPERATURE" default:"0"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"512"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.2"`
}

type EmbeddingConfig struct {
	Model string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
}

type LLMConfig struct {
	APIKey  string        `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string        `envconfig:"GEMINI_BASE_URL"`
	Timeout time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`
}

type RetryConfig struct {
	MaxRetries    int           `envconfig:"RETRY_MAX_RETRIES" default:"3"`
	InitialDelay  time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"1s"`
	MaxDelay      time.Duration `envconfig:"RETRY_MAX_DELAY" default:"30s"`
	BackoffFactor float64       `envconfig:"RETRY_BACKOFF_FACTOR" default:"2"`
}

type RetrievalConfig struct {
	TopK          int     `envconfig:"DIET_TOP_K" default:"4"`
	UseMMR        bool    `envconfig:"USE_MMR" default:"true"`
	FetchK        int     `envconfig:"MMR_FETCH_K" default:"20"`
	Lambda        float64 `envconfig:"MMR_LAMBDA" default:"0.5"`
	MinConfidence float64 `envconfig:"MIN_RETRIEVAL_CONFIDENCE" default:"0.0"`
}

type RerankConfig struct {
	Enabled  bool   `envconfig:"RERANK_ENABLED" default:"false"`
	TopN     int    `envconfig:"RERANK_TOP_N" default:"4"`
	Provider string `envconfig:"RERANK_PROVIDER" default:"generic"`
	Model    string `envconfig:"RERANK_MODEL"`
	APIKey   string `envconfig:"RERANK_API_KEY"`
	APIURL   string `envconfig:"RERANK_API_URL"`
}

type VaultConfig struct {
	Backend        string        `envconfig:"VAULT_BACKEND" default:"memory"`
	IndexPath      string        `envconfig:"VAULT_INDEX_PATH"`
	ReloadInterval time.Duration `envconfig:"VAULT_RELOAD_INTERVAL" default:"0s"`
	DatabaseURL    string        `envconfig:"VAULT_DATABASE_URL"`
	Table          string        `envconfig:"VAULT_TABLE" default:"vault_chunks"`
	ChunkSize      int           `envconfig:"VAULT_CHUNK_SIZE" default:"400"`
	ChunkOverlap   int           `envconfig:"VAULT_CHUNK_OVERLAP" default:"80"`
}

type ToolsConfig struct {
	PriceURL   string        `envconfig:"PRICE_TOOL_URL" default:"http://localhost:8001"`
	FinanceURL string        `envconfig:"FINANCE_TOOL_URL" default:"http://localhost:8002"`
	Timeout    time.Duration `envconfig:"TOOL_TIMEOUT" default:"30s"`
	MaxRetries int           `envconfig:"TOOL_MAX_RETRIES" default:"2"`
}

type TenantDefaultsConfig struct {
	DefaultTenantID  string   `envconfig:"DEFAULT_TENANT_ID" default:"t1"`
	RatePerMinute    int      `envconfig:"TENANT_RATE_LIMIT_PER_MINUTE" default:"10"`
	RatePerHour      int      `envconfig:"TENANT_RATE_LIMIT_PER_HOUR" default:"100"`
	AllowedRoutes    []string `envconfig:"TENANT_ALLOWED_ROUTES" default:"PRICE_COMPARE,FINANCE_STOCK,DIET_NUTRITION,CLARIFY,GENERAL_QUERY"`
	RateLimitBackend string   `envconfig:"RATE_LIMIT_BACKEND" default:"memory"`
}

type ServerConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8000"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}
