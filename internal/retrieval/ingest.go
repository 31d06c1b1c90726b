package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"

	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

const (
	defaultSource  = "user_vault"
	embedBatchSize = 64
)

// Document is raw vault text submitted for ingest.
type Document struct {
	Text   string `json:"text" binding:"required"`
	Source string `json:"source"`
}

// SplitText cuts text into windows of size runes overlapping by overlap runes.
// A window ends at the last whitespace in its second half when there is one.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 400
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			for i := end; i > start+size/2; i-- {
				if unicode.IsSpace(runes[i-1]) {
					end = i
					break
				}
			}
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// Ingestor splits, embeds and stores a user's vault documents.
type Ingestor struct {
	embedder embedding.Embedder
	writer   Writer
	size     int
	overlap  int
}

func NewIngestor(embedder embedding.Embedder, writer Writer, size, overlap int) *Ingestor {
	return &Ingestor{embedder: embedder, writer: writer, size: size, overlap: overlap}
}

// Ingest replaces the tenant/user's vault with docs and returns the number of
// chunks stored. Chunk ids are "<source>:<index>".
func (in *Ingestor) Ingest(ctx context.Context, tenantID, userID string, docs []Document) (int, error) {
	if tenantID == "" || userID == "" {
		return 0, errors.New("tenant id and user id are required")
	}

	var entries []Entry
	var texts []string
	// chunk indexes run per source across all documents of the ingest
	next := make(map[string]int)
	for _, doc := range docs {
		source := strings.TrimSpace(doc.Source)
		if source == "" {
			source = defaultSource
		}
		for _, piece := range SplitText(doc.Text, in.size, in.overlap) {
			entries = append(entries, Entry{
				ChunkID:  fmt.Sprintf("%s:%d", source, next[source]),
				TenantID: tenantID,
				UserID:   userID,
				Source:   source,
				Text:     piece,
			})
			texts = append(texts, piece)
			next[source]++
		}
	}

	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		vecs, err := in.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return 0, fmt.Errorf("embed vault chunks: %w", err)
		}
		if len(vecs) != end-start {
			return 0, fmt.Errorf("embed vault chunks: got %d vectors for %d chunks", len(vecs), end-start)
		}
		for i, v := range vecs {
			entries[start+i].Embedding = v
		}
	}

	if err := in.writer.ReplaceUserDocuments(ctx, tenantID, userID, entries); err != nil {
		return 0, fmt.Errorf("store vault chunks: %w", err)
	}
	ingestChunks.Add(float64(len(entries)))
	logx.Info().Str("tenant_id", tenantID).Str("user_id", userID).Int("documents", len(docs)).
		Int("chunks", len(entries)).Msg("vault ingested")
	return len(entries), nil
}
