package service

import (
	"sort"

	"github.com/zer0-A1/emineon-search/internal/model"
	"github.com/zer0-A1/emineon-search/internal/repo"
)

// Weights controls the blend of the two ranking signals. They need not sum
// to 1.
type Weights struct {
	Vector  float64 `json:"vector"`
	Lexical float64 `json:"lexical"`
}

func DefaultWeights() Weights {
	return Weights{Vector: 0.6, Lexical: 0.4}
}

// FuseScores merges a vector-scored and a lexically-scored result set into
// one ranked list. Vector scores (1 - cosine distance) are already bounded
// and used as-is; lexical ranks are unbounded and get max-normalized within
// the current result set. Documents appearing in only one set default the
// missing score to 0. The union of both sets is kept.
func FuseScores(vecHits, lexHits []repo.SearchHit, weights Weights) []repo.SearchHit {
	maxLex := 0.0
	for _, hit := range lexHits {
		if hit.Score > maxLex {
			maxLex = hit.Score
		}
	}

	type pair struct {
		vec float64
		lex float64
	}
	merged := make(map[model.SourceKey]pair)
	for _, hit := range vecHits {
		key := model.SourceKey{SourceType: hit.SourceType, SourceID: hit.SourceID}
		entry := merged[key]
		entry.vec = hit.Score
		merged[key] = entry
	}
	for _, hit := range lexHits {
		key := model.SourceKey{SourceType: hit.SourceType, SourceID: hit.SourceID}
		entry := merged[key]
		if maxLex > 0 {
			entry.lex = hit.Score / maxLex
		}
		merged[key] = entry
	}

	fused := make([]repo.SearchHit, 0, len(merged))
	for key, entry := range merged {
		fused = append(fused, repo.SearchHit{
			SourceType: key.SourceType,
			SourceID:   key.SourceID,
			Score:      weights.Vector*entry.vec + weights.Lexical*entry.lex,
		})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		if fused[i].SourceType != fused[j].SourceType {
			return fused[i].SourceType < fused[j].SourceType
		}
		return fused[i].SourceID < fused[j].SourceID
	})
	return fused
}
