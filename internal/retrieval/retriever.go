package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/router/internal/core/error"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

const (
	MethodSimilarity = "similarity"
	MethodMMR        = "mmr"
	rerankSuffix     = "+rerank"

	// rerankPrefixChars bounds the text sent to the cross-encoder per chunk.
	rerankPrefixChars = 500
)

// Config tunes a Retriever.
type Config struct {
	TopK          int
	UseMMR        bool
	FetchK        int
	Lambda        float64
	MinConfidence float64
	RerankTopN    int
}

func ConfigFrom(rc model.RetrievalConfig, rr model.RerankConfig) Config {
	return Config{
		TopK:          rc.TopK,
		UseMMR:        rc.UseMMR,
		FetchK:        rc.FetchK,
		Lambda:        rc.Lambda,
		MinConfidence: rc.MinConfidence,
		RerankTopN:    rr.TopN,
	}
}

// Result is the output of one retrieval call.
type Result struct {
	Chunks        []model.VaultChunk
	AvgConfidence *float64
	Method        string
}

// Retriever runs the vault retrieval pipeline.
type Retriever struct {
	source   Source
	embedder embedding.Embedder
	reranker RerankClient
	cfg      Config
}

// NewRetriever builds a Retriever. reranker may be nil to disable re-ranking.
func NewRetriever(source Source, embedder embedding.Embedder, reranker RerankClient, cfg Config) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.FetchK < cfg.TopK {
		cfg.FetchK = cfg.TopK
	}
	if cfg.RerankTopN <= 0 {
		cfg.RerankTopN = cfg.TopK
	}
	return &Retriever{source: source, embedder: embedder, reranker: reranker, cfg: cfg}
}

// MinConfidence is the configured threshold.
func (r *Retriever) MinConfidence() float64 {
	return r.cfg.MinConfidence
}

// Retrieve returns the tenant/user's best chunks for query. A missing index
// yields an empty result, not an error. topK <= 0 uses the configured value.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, userID, query string, topK int) (*Result, error) {
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	log := logx.With("retrieval")

	// One snapshot for the whole call.
	idx := r.source.Current()
	if idx == nil {
		log.Warn().Str("tenant_id", tenantID).Str("user_id", userID).Msg("no vault index available")
		return &Result{Chunks: []model.VaultChunk{}}, nil
	}
	if tenantID == "" || userID == "" {
		return nil, errx.New(fmt.Errorf("%w: tenant and user are required", errx.ErrRetrievalFailure), http.StatusBadRequest, "tenant and user are required")
	}

	method := MethodSimilarity
	if r.cfg.UseMMR {
		method = MethodMMR
	}
	start := time.Now()
	defer func() {
		retrievalDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	vecs, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", errx.ErrRetrievalFailure, err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vector", errx.ErrRetrievalFailure)
	}
	qv := vecs[0]
	filter := Filter{TenantID: tenantID, UserID: userID}

	var cands []Candidate
	if r.cfg.UseMMR {
		cands, err = r.mmrWithScores(ctx, idx, qv, topK, filter)
	} else {
		cands, err = idx.Search(ctx, qv, topK, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errx.ErrRetrievalFailure, err)
	}

	cands = verifyIsolation(cands, filter)

	if r.reranker != nil && len(cands) > 0 {
		var reranked bool
		cands, reranked = r.rerank(ctx, query, cands)
		if reranked {
			method += rerankSuffix
		}
	}

	chunks := make([]model.VaultChunk, 0, len(cands))
	for _, c := range cands {
		score := Normalize(c.Distance)
		chunks = append(chunks, model.VaultChunk{
			TenantID:        c.TenantID,
			UserID:          c.UserID,
			ChunkID:         c.ChunkID,
			Text:            c.Text,
			Source:          c.Source,
			ConfidenceScore: &score,
			RetrievalMethod: method,
		})
	}

	before := len(chunks)
	chunks = FilterByConfidence(chunks, r.cfg.MinConfidence)
	if dropped := before - len(chunks); dropped > 0 {
		log.Debug().Int("dropped", dropped).Float64("min_confidence", r.cfg.MinConfidence).
			Msg("dropped low-confidence chunks")
	}
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	avg := AverageConfidence(chunks)
	ev := log.Info().Str("tenant_id", tenantID).Str("user_id", userID).Str("method", method).Int("chunks", len(chunks))
	if avg != nil {
		ev = ev.Float64("avg_confidence", *avg)
	}
	ev.Msg("vault retrieval complete")

	return &Result{Chunks: chunks, AvgConfidence: avg, Method: method}, nil
}

// mmrWithScores runs MMR selection, then attaches distances from a plain
// similarity pass matched by chunk id.
func (r *Retriever) mmrWithScores(ctx context.Context, idx VectorIndex, qv []float64, topK int, f Filter) ([]Candidate, error) {
	selected, err := idx.MMRSearch(ctx, qv, topK, r.cfg.FetchK, r.cfg.Lambda, f)
	if err != nil {
		return nil, err
	}
	scored, err := idx.Search(ctx, qv, r.cfg.FetchK, f)
	if err != nil {
		return nil, err
	}
	distances := make(map[string]float64, len(scored))
	for _, c := range scored {
		if c.ChunkID != "" {
			distances[c.ChunkID] = c.Distance
		}
	}
	for i := range selected {
		d, ok := distances[selected[i].ChunkID]
		if !ok {
			d = NeutralDistance
		}
		selected[i].Distance = d
	}
	return selected, nil
}

// verifyIsolation drops any hit outside the requested tenant/user.
func verifyIsolation(cands []Candidate, f Filter) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.TenantID != f.TenantID || c.UserID != f.UserID {
			isolationViolations.Inc()
			logx.Error().Err(errx.ErrIsolationViolation).
				Str("expected_tenant_id", f.TenantID).Str("expected_user_id", f.UserID).
				Str("observed_tenant_id", c.TenantID).Str("observed_user_id", c.UserID).
				Str("chunk_id", c.ChunkID).
				Msg("index returned a chunk outside the request scope; dropped")
			continue
		}
		out = append(out, c)
	}
	return out
}

// rerank reorders by cross-encoder score and keeps the top N. On failure the
// prior order is kept, truncated, with neutral distances.
func (r *Retriever) rerank(ctx context.Context, query string, cands []Candidate) ([]Candidate, bool) {
	topN := r.cfg.RerankTopN
	docs := make([]string, len(cands))
	for i, c := range cands {
		docs[i] = prefix(c.Text, rerankPrefixChars)
	}

	results, err := r.reranker.Rerank(ctx, query, docs)
	if err == nil && len(results) == 0 {
		err = errors.New("reranker returned no results")
	}
	if err != nil {
		rerankCalls.WithLabelValues("error").Inc()
		logx.Warn().Err(err).Msg("reranker unavailable, keeping prior order")
		if len(cands) > topN {
			cands = cands[:topN]
		}
		for i := range cands {
			cands[i].Distance = NeutralDistance
		}
		return cands, false
	}
	rerankCalls.WithLabelValues("ok").Inc()

	sort.SliceStable(results, func(i, j int) bool { return results[i].RelevanceScore > results[j].RelevanceScore })
	out := make([]Candidate, 0, topN)
	seen := make(map[int]bool, len(results))
	for _, res := range results {
		if len(out) == topN {
			break
		}
		if res.Index < 0 || res.Index >= len(cands) || seen[res.Index] {
			continue
		}
		seen[res.Index] = true
		c := cands[res.Index]
		c.Distance = scoreToDistance(res.RelevanceScore)
		out = append(out, c)
	}
	return out, true
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// scoreToDistance maps a relevance score so Normalize reports it back. A
// distance of exactly 1 would normalize to 1, so zero scores stay just below.
func scoreToDistance(score float64) float64 {
	return math.Min(1-clamp01(score), math.Nextafter(1, 0))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
