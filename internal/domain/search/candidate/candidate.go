package candidate

import "fmt"

// Source names the pipeline stage that produced a candidate's current score.
type Source string

const (
	// Sparse is a keyword index hit.
	Sparse Source = "sparse"
	// Dense is a vector similarity hit.
	Dense Source = "dense"
	// Fused is an RRF aggregate over several lists.
	Fused Source = "fused"
	// Reranked carries a cross-encoder relevance score.
	Reranked Source = "reranked"
)

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	switch s {
	case Sparse, Dense, Fused, Reranked:
		return true
	}
	return false
}

// NeutralRerankScore is assigned when the relevance scorer cannot run.
const NeutralRerankScore = 0.5

// Candidate is a scored document flowing through the pipeline (immutable value).
type Candidate struct {
	docID       int64
	title       string
	text        string
	score       float64
	source      Source
	rerankScore float64
	reranked    bool
}

// New creates a candidate without a rerank score.
func New(docID int64, title, text string, score float64, source Source) Candidate {
	return Candidate{docID: docID, title: title, text: text, score: score, source: source}
}

// Reconstruct restores a candidate from a cached payload.
func Reconstruct(
	docID int64, title, text string, score float64, source Source, rerankScore *float64,
) Candidate {
	c := New(docID, title, text, score, source)
	if rerankScore != nil {
		c.rerankScore = *rerankScore
		c.reranked = true
	}
	return c
}

// DocID returns the document identifier.
func (c Candidate) DocID() int64 { return c.docID }

// Title returns the document title.
func (c Candidate) Title() string { return c.title }

// Text returns the document text.
func (c Candidate) Text() string { return c.text }

// Score returns the retrieval or fusion score.
func (c Candidate) Score() float64 { return c.score }

// Source returns the producing stage.
func (c Candidate) Source() Source { return c.source }

// RerankScore returns the relevance score and whether one was assigned.
func (c Candidate) RerankScore() (float64, bool) { return c.rerankScore, c.reranked }

// WithScore returns a copy carrying a new score and source.
func (c Candidate) WithScore(score float64, source Source) Candidate {
	c.score = score
	c.source = source
	return c
}

// WithRerankScore returns a copy carrying a relevance score.
func (c Candidate) WithRerankScore(score float64) Candidate {
	c.rerankScore = score
	c.reranked = true
	return c
}

// WithSource returns a copy attributed to another stage.
func (c Candidate) WithSource(source Source) Candidate {
	c.source = source
	return c
}

func (c Candidate) String() string {
	if c.reranked {
		return fmt.Sprintf("%d(%s %.4f rerank=%.4f)", c.docID, c.source, c.score, c.rerankScore)
	}
	return fmt.Sprintf("%d(%s %.4f)", c.docID, c.source, c.score)
}

// IDs lists document ids in order.
func IDs(cs []Candidate) []int64 {
	ids := make([]int64, len(cs))
	for i := range cs {
		ids[i] = cs[i].docID
	}
	return ids
}
