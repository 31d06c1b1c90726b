package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
)

type fixedEmbedder struct {
	vec []float64
	err error
}

func (e *fixedEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

// scriptedIndex returns canned hits and ignores the filter, standing in for an
// index with a broken WHERE clause.
type scriptedIndex struct {
	search []Candidate
	mmr    []Candidate
}

func (s *scriptedIndex) Search(context.Context, []float64, int, Filter) ([]Candidate, error) {
	return append([]Candidate(nil), s.search...), nil
}

func (s *scriptedIndex) MMRSearch(context.Context, []float64, int, int, float64, Filter) ([]Candidate, error) {
	return append([]Candidate(nil), s.mmr...), nil
}

type staticSource struct{ idx VectorIndex }

func (s staticSource) Current() VectorIndex { return s.idx }

type stubReranker struct {
	results []RerankResult
	err     error
	docs    []string
}

func (r *stubReranker) Rerank(_ context.Context, _ string, docs []string) ([]RerankResult, error) {
	r.docs = docs
	return r.results, r.err
}

func hit(tenant, user, id string, distance float64) Candidate {
	return Candidate{
		Entry:    Entry{ChunkID: id, TenantID: tenant, UserID: user, Source: "vault", Text: "text " + id},
		Distance: distance,
	}
}

func scores(chunks []model.VaultChunk) []float64 {
	out := make([]float64, len(chunks))
	for i, c := range chunks {
		out[i] = *c.ConfidenceScore
	}
	return out
}

func TestRetrieveFiltersByConfidenceAndAverages(t *testing.T) {
	idx := &scriptedIndex{search: []Candidate{
		hit("t1", "u1", "a", 0.1),
		hit("t1", "u1", "b", 0.2),
		hit("t1", "u1", "c", 0.8),
	}}
	r := NewRetriever(staticSource{idx}, &fixedEmbedder{vec: []float64{1, 0}}, nil,
		Config{TopK: 4, MinConfidence: 0.5})

	res, err := r.Retrieve(context.Background(), "t1", "u1", "is paneer good for diabetics", 0)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "a", res.Chunks[0].ChunkID)
	assert.Equal(t, "b", res.Chunks[1].ChunkID)
	assert.InDeltaSlice(t, []float64{0.9, 0.8}, scores(res.Chunks), 1e-9)
	require.NotNil(t, res.AvgConfidence)
	assert.InDelta(t, 0.85, *res.AvgConfidence, 1e-9)
	assert.Equal(t, MethodSimilarity, res.Method)
	assert.Equal(t, MethodSimilarity, res.Chunks[0].RetrievalMethod)
}

func TestRetrieveDropsChunksOutsideScope(t *testing.T) {
	idx := &scriptedIndex{search: []Candidate{
		hit("t2", "u1", "other-tenant", 0.0),
		hit("t1", "u1", "mine", 0.3),
		hit("t1", "u2", "other-user", 0.0),
		hit("", "", "unscoped", 0.0),
	}}
	r := NewRetriever(staticSource{idx}, &fixedEmbedder{vec: []float64{1}}, nil, Config{TopK: 4})

	res, err := r.Retrieve(context.Background(), "t1", "u1", "q", 0)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "mine", res.Chunks[0].ChunkID)
	assert.Equal(t, "t1", res.Chunks[0].TenantID)
	assert.Equal(t, "u1", res.Chunks[0].UserID)
}

func TestRetrieveNeverLeaksAcrossTenantsOrUsers(t *testing.T) {
	var entries []Entry
	tenants := []string{"t1", "t2", "t3"}
	users := []string{"u1", "u2"}
	for _, tn := range tenants {
		for _, u := range users {
			for i := 0; i < 3; i++ {
				entries = append(entries, Entry{
					ChunkID:   fmt.Sprintf("doc:%d", i),
					TenantID:  tn,
					UserID:    u,
					Text:      tn + "/" + u,
					Embedding: []float64{1, float64(i) * 0.1},
				})
			}
		}
	}
	store := NewMemoryStore("")
	store.Replace(NewMemoryIndex(entries))

	for _, useMMR := range []bool{false, true} {
		r := NewRetriever(store, &fixedEmbedder{vec: []float64{1, 0}}, nil,
			Config{TopK: 10, UseMMR: useMMR, FetchK: 20, Lambda: 0.5})
		for _, tn := range tenants {
			for _, u := range users {
				res, err := r.Retrieve(context.Background(), tn, u, "q", 0)
				require.NoError(t, err)
				require.Len(t, res.Chunks, 3)
				for _, c := range res.Chunks {
					assert.Equal(t, tn, c.TenantID)
					assert.Equal(t, u, c.UserID)
					assert.Equal(t, tn+"/"+u, c.Text)
				}
			}
		}
	}
}

func TestRetrieveWithoutIndexIsEmpty(t *testing.T) {
	r := NewRetriever(NewMemoryStore(""), &fixedEmbedder{vec: []float64{1}}, nil, Config{TopK: 4})

	res, err := r.Retrieve(context.Background(), "t1", "u1", "q", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Nil(t, res.AvgConfidence)
}

func TestRetrieveNoMatchesHasNilAverage(t *testing.T) {
	store := NewMemoryStore("")
	store.Replace(NewMemoryIndex([]Entry{{ChunkID: "x", TenantID: "t2", UserID: "u1", Embedding: []float64{1}}}))
	r := NewRetriever(store, &fixedEmbedder{vec: []float64{1}}, nil, Config{TopK: 4})

	res, err := r.Retrieve(context.Background(), "t1", "u1", "q", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Nil(t, res.AvgConfidence)
}

func TestRetrieveMMRAttachesScoresAndNeutralDefault(t *testing.T) {
	idx := &scriptedIndex{
		mmr: []Candidate{hit("t1", "u1", "a", 0), hit("t1", "u1", "ghost", 0)},
		search: []Candidate{
			hit("t1", "u1", "a", 0.25),
			hit("t1", "u1", "b", 0.3),
		},
	}
	r := NewRetriever(staticSource{idx}, &fixedEmbedder{vec: []float64{1}}, nil,
		Config{TopK: 2, UseMMR: true, FetchK: 10})

	res, err := r.Retrieve(context.Background(), "t1", "u1", "q", 0)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.InDeltaSlice(t, []float64{0.75, 0.5}, scores(res.Chunks), 1e-9)
	assert.Equal(t, MethodMMR, res.Method)
}

func TestRetrieveRerankReordersAndReportsScores(t *testing.T) {
	idx := &scriptedIndex{search: []Candidate{
		hit("t1", "u1", "a", 0.1),
		hit("t1", "u1", "b", 0.2),
		hit("t1", "u1", "c", 0.3),
	}}
	rr := &stubReranker{results: []RerankResult{
		{Index: 0, RelevanceScore: 0.2},
		{Index: 2, RelevanceScore: 0.95},
		{Index: 1, RelevanceScore: 0.6},
	}}
	r := NewRetriever(staticSource{idx}, &fixedEmbedder{vec: []float64{1}}, rr,
		Config{TopK: 4, RerankTopN: 2})

	res, err := r.Retrieve(context.Background(), "t1", "u1", "q", 0)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "c", res.Chunks[0].ChunkID)
	assert.Equal(t, "b", res.Chunks[1].ChunkID)
	assert.InDeltaSlice(t, []float64{0.95, 0.6}, scores(res.Chunks), 1e-9)
	assert.Equal(t, "similarity+rerank", res.Method)
	assert.Len(t, rr.docs, 3)
}

func TestRetrieveRerankFailureKeepsOrderWithNeutralScores(t *testing.T) {
	idx := &scriptedIndex{search: []Candidate{
		hit("t1", "u1", "a", 0.1),
		hit("t1", "u1", "b", 0.2),
		hit("t1", "u1", "c", 0.3),
	}}
	rr := &stubReranker{err: errors.New("connection refused")}
	r := NewRetriever(staticSource{idx}, &fixedEmbedder{vec: []float64{1}}, rr,
		Config{TopK: 4, RerankTopN: 2})

	res, err := r.Retrieve(context.Background(), "t1", "u1", "q", 0)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "a", res.Chunks[0].ChunkID)
	assert.Equal(t, "b", res.Chunks[1].ChunkID)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, scores(res.Chunks), 1e-9)
	assert.Equal(t, MethodSimilarity, res.Method)
}

func TestRetrieveEmbedFailureIsRetrievalFailure(t *testing.T) {
	store := NewMemoryStore("")
	store.Replace(NewMemoryIndex(nil))
	r := NewRetriever(store, &fixedEmbedder{err: errors.New("boom")}, nil, Config{TopK: 4})

	_, err := r.Retrieve(context.Background(), "t1", "u1", "q", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval failure")
}

func TestNormalize(t *testing.T) {
	cases := map[float64]float64{
		0:    1,
		0.1:  0.9,
		-0.2: 0.8,
		0.7:  0.3,
		1:    1,
		1.5:  1,
	}
	for in, want := range cases {
		assert.InDelta(t, want, Normalize(in), 1e-9, "distance %v", in)
	}
	assert.InDelta(t, 0, Normalize(scoreToDistance(0)), 1e-9)
	assert.InDelta(t, 0.4, Normalize(scoreToDistance(0.4)), 1e-9)
}

func TestFilterByConfidenceIsIdempotent(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	chunks := []model.VaultChunk{
		{ChunkID: "a", ConfidenceScore: f(0.9)},
		{ChunkID: "b", ConfidenceScore: f(0.49)},
		{ChunkID: "c", ConfidenceScore: f(0.5)},
		{ChunkID: "d"},
	}
	once := FilterByConfidence(chunks, 0.5)
	twice := FilterByConfidence(once, 0.5)
	assert.Equal(t, once, twice)
	require.Len(t, once, 2)
	assert.Equal(t, "a", once[0].ChunkID)
	assert.Equal(t, "c", once[1].ChunkID)
}

func TestAverageConfidence(t *testing.T) {
	assert.Nil(t, AverageConfidence(nil))
	f := func(v float64) *float64 { return &v }
	avg := AverageConfidence([]model.VaultChunk{{ConfidenceScore: f(0.2)}, {ConfidenceScore: f(0.6)}})
	require.NotNil(t, avg)
	assert.InDelta(t, 0.4, *avg, 1e-9)
}
