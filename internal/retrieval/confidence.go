package retrieval

import (
	"math"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
)

// NeutralDistance is assigned to chunks with no known distance. It normalizes
// to a confidence of 0.5.
const NeutralDistance = 0.5

// Normalize maps a raw distance to a [0,1] similarity. The same mapping feeds
// both the threshold filter and the reported confidence.
func Normalize(distance float64) float64 {
	if distance < 1 {
		return math.Max(0, 1-math.Abs(distance))
	}
	return math.Min(1, distance)
}

// FilterByConfidence keeps chunks scoring at least min, preserving order.
// Chunks without a score are dropped.
func FilterByConfidence(chunks []model.VaultChunk, min float64) []model.VaultChunk {
	out := make([]model.VaultChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.ConfidenceScore == nil || *c.ConfidenceScore < min {
			continue
		}
		out = append(out, c)
	}
	return out
}

// AverageConfidence is the mean score, or nil for no chunks.
func AverageConfidence(chunks []model.VaultChunk) *float64 {
	if len(chunks) == 0 {
		return nil
	}
	var sum float64
	for _, c := range chunks {
		if c.ConfidenceScore != nil {
			sum += *c.ConfidenceScore
		}
	}
	avg := sum / float64(len(chunks))
	return &avg
}
