package retrieval

import (
	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
)

// DefaultLambda is used for a lambda outside of (0, 1].
const DefaultLambda = 0.70

// Diversify greedily selects min(topK, len(candidates)) candidates by
// maximal marginal relevance:
//
//	mmr(i) = lambda*relevance(i) - (1-lambda)*max_similarity(i, selected)
//
// candidates must be sorted by descending VectorScore. The first pick is
// always the most relevant candidate and ties keep relevance order. Pools
// not larger than topK are returned in relevance order.
func Diversify(candidates []model.Candidate, topK int, lambda float64) []model.Candidate {
	if topK <= 0 || len(candidates) == 0 {
		return []model.Candidate{}
	}
	if len(candidates) <= topK {
		return append([]model.Candidate(nil), candidates...)
	}
	if !(lambda > 0 && lambda <= 1) {
		lambda = DefaultLambda
	}

	selected := make([]model.Candidate, 0, topK)
	selected = append(selected, candidates[0])

	picked := make([]bool, len(candidates))
	picked[0] = true

	// maxSim[i] is the highest similarity of candidate i to any selected one.
	maxSim := make([]float64, len(candidates))
	for i := 1; i < len(candidates); i++ {
		maxSim[i] = helper.Dot(candidates[i].Vector, candidates[0].Vector)
	}

	for len(selected) < topK {
		best := -1
		bestScore := 0.0
		for i := 1; i < len(candidates); i++ {
			if picked[i] {
				continue
			}
			score := lambda*candidates[i].VectorScore - (1-lambda)*maxSim[i]
			if best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}

		picked[best] = true
		selected = append(selected, candidates[best])
		for i := 1; i < len(candidates); i++ {
			if picked[i] {
				continue
			}
			if sim := helper.Dot(candidates[i].Vector, candidates[best].Vector); sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}

	return selected
}
