package search

import (
	"slices"

	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// FuseRRF merges ranked lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d) + 1) over every list containing d, rank zero-based.
// Title and text come from the first list that contributed d; ties keep first-encounter order.
// k <= 0 means DefaultRRFK, topK <= 0 disables truncation.
func FuseRRF(lists [][]candidate.Candidate, k, topK int) []candidate.Candidate {
	if k <= 0 {
		k = DefaultRRFK
	}

	type scored struct {
		c     candidate.Candidate
		score float64
	}

	pos := make(map[int64]int)
	var merged []scored

	for _, list := range lists {
		for rank, c := range list {
			s := 1.0 / float64(k+rank+1)
			if i, ok := pos[c.DocID()]; ok {
				merged[i].score += s
				continue
			}
			pos[c.DocID()] = len(merged)
			merged = append(merged, scored{c: c, score: s})
		}
	}

	slices.SortStableFunc(merged, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}

	out := make([]candidate.Candidate, len(merged))
	for i, m := range merged {
		out[i] = m.c.WithScore(m.score, candidate.Fused)
	}
	return out
}
