package model

// VaultChunk is one retrieved piece of a tenant/user private vault.
type VaultChunk struct {
	TenantID        string   `json:"tenant_id"`
	UserID          string   `json:"user_id"`
	ChunkID         string   `json:"chunk_id"`
	Text            string   `json:"text"`
	Source          string   `json:"source"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	RetrievalMethod string   `json:"retrieval_method"`
}
