package retrieval

import "math"

// CosineSimilarity returns 0 for empty or mismatched vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineDistance matches pgvector's <=> operator.
func CosineDistance(a, b []float64) float64 {
	return 1 - CosineSimilarity(a, b)
}

// SelectMMR returns indexes into candidates, picking k by maximal marginal
// relevance. lambda=1 is pure relevance, lambda=0 pure diversity.
func SelectMMR(query []float64, candidates [][]float64, k int, lambda float64) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	lambda = math.Max(0, math.Min(1, lambda))
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = CosineSimilarity(query, c)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(candidates))
	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if used[i] {
				continue
			}
			redundancy := 0.0
			for _, j := range selected {
				if s := CosineSimilarity(candidates[i], candidates[j]); s > redundancy {
					redundancy = s
				}
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		selected = append(selected, best)
	}
	return selected
}

func mmrFromCandidates(query []float64, cands []Candidate, k int, lambda float64) []Candidate {
	vecs := make([][]float64, len(cands))
	for i, c := range cands {
		vecs[i] = c.Embedding
	}
	idx := SelectMMR(query, vecs, k, lambda)
	out := make([]Candidate, 0, len(idx))
	for _, i := range idx {
		out = append(out, cands[i])
	}
	return out
}
