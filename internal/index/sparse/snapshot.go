package sparse

import (
	"time"

	"github.com/kailas-cloud/filmrag/internal/domain/film"
)

type posting struct {
	doc int
	tf  int
}

// Snapshot is an immutable BM25 view over one corpus. It is never mutated after Build.
type Snapshot struct {
	version  string
	builtAt  time.Time
	docs     []film.Document
	docLens  []int
	avgLen   float64
	postings map[string][]posting
}

// Version is the unique identifier of the build that produced the snapshot.
func (s *Snapshot) Version() string { return s.version }

// BuiltAt is the time the snapshot was swapped in.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Len returns the number of indexed documents.
func (s *Snapshot) Len() int { return len(s.docs) }

// Terms returns the vocabulary size.
func (s *Snapshot) Terms() int { return len(s.postings) }

// DocFreq returns the number of documents containing term.
func (s *Snapshot) DocFreq(term string) int { return len(s.postings[term]) }

func newSnapshot(version string, builtAt time.Time, docs []film.Document, tokens [][]string) *Snapshot {
	s := &Snapshot{
		version:  version,
		builtAt:  builtAt,
		docs:     docs,
		docLens:  make([]int, len(docs)),
		postings: make(map[string][]posting),
	}

	var total int
	for i, terms := range tokens {
		s.docLens[i] = len(terms)
		total += len(terms)

		tf := make(map[string]int, len(terms))
		order := make([]string, 0, len(terms))
		for _, t := range terms {
			if tf[t] == 0 {
				order = append(order, t)
			}
			tf[t]++
		}
		for _, t := range order {
			s.postings[t] = append(s.postings[t], posting{doc: i, tf: tf[t]})
		}
	}
	if len(docs) > 0 {
		s.avgLen = float64(total) / float64(len(docs))
	}
	return s
}
