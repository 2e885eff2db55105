package sparse

import (
	"cmp"
	"math"
	"slices"

	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
)

// Params are the BM25 free parameters.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams are the usual Okapi settings.
var DefaultParams = Params{K1: 1.5, B: 0.75}

// idf is the non-negative BM25 variant: with the classic formula a term that
// occurs in half of a two-document corpus would score zero.
func idf(n, df int) float64 {
	return math.Log(1 + (float64(n-df)+0.5)/(float64(df)+0.5))
}

// score ranks every document against the query terms. Terms repeated in the
// query contribute once per occurrence.
func (s *Snapshot) score(terms []string, p Params, topK int) []candidate.Candidate {
	if len(s.docs) == 0 || len(terms) == 0 || topK <= 0 {
		return nil
	}

	scores := make([]float64, len(s.docs))
	n := len(s.docs)
	for _, t := range terms {
		plist := s.postings[t]
		if len(plist) == 0 {
			continue
		}
		w := idf(n, len(plist))
		for _, pst := range plist {
			tf := float64(pst.tf)
			norm := 1 - p.B
			if s.avgLen > 0 {
				norm += p.B * float64(s.docLens[pst.doc]) / s.avgLen
			}
			scores[pst.doc] += w * tf * (p.K1 + 1) / (tf + p.K1*norm)
		}
	}

	hits := make([]int, 0, len(scores))
	for i, sc := range scores {
		if sc > 0 {
			hits = append(hits, i)
		}
	}
	// Stable on insertion order for equal scores.
	slices.SortStableFunc(hits, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]candidate.Candidate, len(hits))
	for i, idx := range hits {
		d := s.docs[idx]
		out[i] = candidate.New(d.ID(), d.Title(), d.Text(), scores[idx], candidate.Sparse)
	}
	return out
}
