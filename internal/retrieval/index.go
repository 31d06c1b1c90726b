// Package retrieval serves tenant/user-scoped nearest-neighbour search over the
// private vault with MMR diversity, optional re-ranking and confidence filtering.
package retrieval

import "context"

// Filter scopes every index query to one tenant and user.
type Filter struct {
	TenantID string
	UserID   string
}

// Entry is one stored vault chunk with its embedding.
type Entry struct {
	ChunkID   string    `json:"chunk_id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
}

// Candidate is an index hit. Distance is only meaningful for Search results.
type Candidate struct {
	Entry
	Distance float64
}

// VectorIndex is a nearest-neighbour index. Implementations must apply the
// filter to every query.
type VectorIndex interface {
	Search(ctx context.Context, query []float64, k int, f Filter) ([]Candidate, error)
	// MMRSearch selects k of the fetchK nearest candidates by maximal marginal
	// relevance. Results carry no distance.
	MMRSearch(ctx context.Context, query []float64, k, fetchK int, lambda float64, f Filter) ([]Candidate, error)
}

// Source hands out the current index snapshot, or nil when none exists.
type Source interface {
	Current() VectorIndex
}

// Writer replaces all chunks of one tenant/user in a single step.
type Writer interface {
	ReplaceUserDocuments(ctx context.Context, tenantID, userID string, entries []Entry) error
}
